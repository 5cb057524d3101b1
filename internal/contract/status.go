package contract

import (
	"fmt"
	"strings"
)

// Status is the lifecycle state of a contract record.
type Status string

const (
	Draft     Status = "draft"
	Active    Status = "active"
	Completed Status = "completed"
	Cancelled Status = "cancelled"
)

var transitions = map[Status][]Status{
	Draft:     {Active, Cancelled},
	Active:    {Completed, Cancelled},
	Completed: nil,
	Cancelled: nil,
}

// ParseStatus accepts a status name in any case.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := transitions[st]; !ok {
		return "", fmt.Errorf("unknown status %q", s)
	}
	return st, nil
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Next lists the statuses s may move to. Terminal statuses have none.
func (s Status) Next() []Status {
	return append([]Status(nil), transitions[s]...)
}

// CanTransition reports whether moving from s to to is allowed.
func (s Status) CanTransition(to Status) bool {
	for _, n := range transitions[s] {
		if n == to {
			return true
		}
	}
	return false
}

// Terminal reports whether s allows no further transitions.
func (s Status) Terminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

// Label is the name shown to office staff.
func (s Status) Label() string {
	switch s {
	case Draft:
		return "Taslak"
	case Active:
		return "Aktif"
	case Completed:
		return "Tamamlandı"
	case Cancelled:
		return "İptal Edildi"
	}
	return string(s)
}
