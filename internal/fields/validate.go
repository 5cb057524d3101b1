package fields

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the string form of every date field.
const DateLayout = "2006-01-02"

// Currencies accepted in the currency field.
var Currencies = []string{"TRY", "USD", "EUR", "GBP"}

// Required lists the fields a contract record cannot be saved without.
var Required = []Name{
	LandlordName, TenantName, PropertyAddress, PropertyCity,
	StartDate, EndDate, RentAmount, Currency,
}

// Problem is one validation failure on one field.
type Problem struct {
	Field   Name
	Message string
}

// ValidationError collects every problem found by Validate.
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, fmt.Sprintf("%s %s", p.Field, p.Message))
	}
	return "invalid contract fields: " + strings.Join(parts, "; ")
}

// Has reports whether a problem was recorded for field.
func (e *ValidationError) Has(field Name) bool {
	for _, p := range e.Problems {
		if p.Field == field {
			return true
		}
	}
	return false
}

// Validate checks business rules on a schema. It never modifies s. Optional
// fields are only checked when non-empty.
func (s Schema) Validate() error {
	var problems []Problem
	add := func(f Name, msg string) {
		problems = append(problems, Problem{Field: f, Message: msg})
	}

	for _, f := range Required {
		if strings.TrimSpace(s.Get(f)) == "" {
			add(f, "is required")
		}
	}

	var start, end time.Time
	var startOK, endOK bool
	for _, f := range []Name{StartDate, EndDate, ContractDate} {
		v := strings.TrimSpace(s.Get(f))
		if v == "" {
			continue
		}
		t, err := time.Parse(DateLayout, v)
		if err != nil {
			add(f, "must be a date in YYYY-MM-DD form")
			continue
		}
		switch f {
		case StartDate:
			start, startOK = t, true
		case EndDate:
			end, endOK = t, true
		}
	}
	if startOK && endOK && end.Before(start) {
		add(EndDate, "must not be before startDate")
	}

	for _, f := range []Name{RentAmount, Deposit, PropertyArea} {
		v := strings.TrimSpace(s.Get(f))
		if v == "" {
			continue
		}
		n, err := ParseAmount(v)
		if err != nil || n < 0 {
			add(f, "must be a non-negative number")
		}
	}

	// roomCount ("3+1") and propertyFloor ("Zemin") are free text.

	if v := strings.TrimSpace(s.PaymentDay); v != "" {
		day, err := strconv.Atoi(v)
		if err != nil || day < 1 || day > 31 {
			add(PaymentDay, "must be a day of month between 1 and 31")
		}
	}

	if v := strings.TrimSpace(s.Currency); v != "" && !isCurrency(v) {
		add(Currency, "must be one of "+strings.Join(Currencies, ", "))
	}

	for _, f := range []Name{UtilitiesIncluded, PetAllowed, SmokingAllowed} {
		if _, ok := ParseFlag(s.Get(f)); !ok {
			add(f, "must be evet/hayır or yes/no")
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// ParseAmount parses an amount written with either "." or "," as decimal
// separator and optional thousands grouping ("15.000,50", "15000.5").
func ParseAmount(v string) (float64, error) {
	v = strings.ReplaceAll(strings.TrimSpace(v), " ", "")
	lastDot := strings.LastIndex(v, ".")
	lastComma := strings.LastIndex(v, ",")
	switch {
	case lastComma > lastDot:
		v = strings.ReplaceAll(v, ".", "")
		v = strings.Replace(v, ",", ".", 1)
	case lastDot > lastComma && lastComma >= 0:
		v = strings.ReplaceAll(v, ",", "")
	case lastDot >= 0 && strings.Count(v, ".") > 1:
		v = strings.ReplaceAll(v, ".", "")
	}
	return strconv.ParseFloat(v, 64)
}

// ParseFlag interprets a yes/no field. The empty string is a valid "unset".
func ParseFlag(v string) (value bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "":
		return false, true
	case "evet", "yes", "true", "var":
		return true, true
	case "hayır", "hayir", "no", "false", "yok":
		return false, true
	}
	return false, false
}

func isCurrency(v string) bool {
	for _, c := range Currencies {
		if strings.EqualFold(c, v) {
			return true
		}
	}
	return false
}
