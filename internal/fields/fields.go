// Package fields defines the fixed set of named rental contract fields and the
// resolve-with-default boundary every other package goes through.
package fields

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Name is the exported name of a contract field. It is also the name of the
// interactive field in a fillable document.
type Name string

const (
	LandlordName      Name = "landlordName"
	LandlordTcNo      Name = "landlordTcNo"
	LandlordAddress   Name = "landlordAddress"
	LandlordPhone     Name = "landlordPhone"
	TenantName        Name = "tenantName"
	TenantTcNo        Name = "tenantTcNo"
	TenantAddress     Name = "tenantAddress"
	TenantPhone       Name = "tenantPhone"
	PropertyAddress   Name = "propertyAddress"
	PropertyDistrict  Name = "propertyDistrict"
	PropertyCity      Name = "propertyCity"
	PropertyType      Name = "propertyType"
	RoomCount         Name = "roomCount"
	PropertyArea      Name = "propertyArea"
	PropertyFloor     Name = "propertyFloor"
	StartDate         Name = "startDate"
	EndDate           Name = "endDate"
	RentAmount        Name = "rentAmount"
	Deposit           Name = "deposit"
	Currency          Name = "currency"
	PaymentDay        Name = "paymentDay"
	PaymentMethod     Name = "paymentMethod"
	UtilitiesIncluded Name = "utilitiesIncluded"
	PetAllowed        Name = "petAllowed"
	SmokingAllowed    Name = "smokingAllowed"
	SpecialConditions Name = "specialConditions"
	ContractDate      Name = "contractDate"
	ContractLocation  Name = "contractLocation"
)

// Schema holds every contract field as a string. The zero value is a complete
// instance with every field empty; parsing and formatting belong to callers.
type Schema struct {
	LandlordName      string `json:"landlordName"`
	LandlordTcNo      string `json:"landlordTcNo"`
	LandlordAddress   string `json:"landlordAddress"`
	LandlordPhone     string `json:"landlordPhone"`
	TenantName        string `json:"tenantName"`
	TenantTcNo        string `json:"tenantTcNo"`
	TenantAddress     string `json:"tenantAddress"`
	TenantPhone       string `json:"tenantPhone"`
	PropertyAddress   string `json:"propertyAddress"`
	PropertyDistrict  string `json:"propertyDistrict"`
	PropertyCity      string `json:"propertyCity"`
	PropertyType      string `json:"propertyType"`
	RoomCount         string `json:"roomCount"`
	PropertyArea      string `json:"propertyArea"`
	PropertyFloor     string `json:"propertyFloor"`
	StartDate         string `json:"startDate"`
	EndDate           string `json:"endDate"`
	RentAmount        string `json:"rentAmount"`
	Deposit           string `json:"deposit"`
	Currency          string `json:"currency"`
	PaymentDay        string `json:"paymentDay"`
	PaymentMethod     string `json:"paymentMethod"`
	UtilitiesIncluded string `json:"utilitiesIncluded"`
	PetAllowed        string `json:"petAllowed"`
	SmokingAllowed    string `json:"smokingAllowed"`
	SpecialConditions string `json:"specialConditions"`
	ContractDate      string `json:"contractDate"`
	ContractLocation  string `json:"contractLocation"`
}

// names is the canonical field order, also used for document tab order.
var names = []Name{
	LandlordName, LandlordTcNo, LandlordAddress, LandlordPhone,
	TenantName, TenantTcNo, TenantAddress, TenantPhone,
	PropertyAddress, PropertyDistrict, PropertyCity, PropertyType,
	RoomCount, PropertyArea, PropertyFloor,
	StartDate, EndDate, RentAmount, Deposit, Currency,
	PaymentDay, PaymentMethod, UtilitiesIncluded, PetAllowed, SmokingAllowed,
	SpecialConditions, ContractDate, ContractLocation,
}

var slots = map[Name]func(*Schema) *string{
	LandlordName:      func(s *Schema) *string { return &s.LandlordName },
	LandlordTcNo:      func(s *Schema) *string { return &s.LandlordTcNo },
	LandlordAddress:   func(s *Schema) *string { return &s.LandlordAddress },
	LandlordPhone:     func(s *Schema) *string { return &s.LandlordPhone },
	TenantName:        func(s *Schema) *string { return &s.TenantName },
	TenantTcNo:        func(s *Schema) *string { return &s.TenantTcNo },
	TenantAddress:     func(s *Schema) *string { return &s.TenantAddress },
	TenantPhone:       func(s *Schema) *string { return &s.TenantPhone },
	PropertyAddress:   func(s *Schema) *string { return &s.PropertyAddress },
	PropertyDistrict:  func(s *Schema) *string { return &s.PropertyDistrict },
	PropertyCity:      func(s *Schema) *string { return &s.PropertyCity },
	PropertyType:      func(s *Schema) *string { return &s.PropertyType },
	RoomCount:         func(s *Schema) *string { return &s.RoomCount },
	PropertyArea:      func(s *Schema) *string { return &s.PropertyArea },
	PropertyFloor:     func(s *Schema) *string { return &s.PropertyFloor },
	StartDate:         func(s *Schema) *string { return &s.StartDate },
	EndDate:           func(s *Schema) *string { return &s.EndDate },
	RentAmount:        func(s *Schema) *string { return &s.RentAmount },
	Deposit:           func(s *Schema) *string { return &s.Deposit },
	Currency:          func(s *Schema) *string { return &s.Currency },
	PaymentDay:        func(s *Schema) *string { return &s.PaymentDay },
	PaymentMethod:     func(s *Schema) *string { return &s.PaymentMethod },
	UtilitiesIncluded: func(s *Schema) *string { return &s.UtilitiesIncluded },
	PetAllowed:        func(s *Schema) *string { return &s.PetAllowed },
	SmokingAllowed:    func(s *Schema) *string { return &s.SmokingAllowed },
	SpecialConditions: func(s *Schema) *string { return &s.SpecialConditions },
	ContractDate:      func(s *Schema) *string { return &s.ContractDate },
	ContractLocation:  func(s *Schema) *string { return &s.ContractLocation },
}

// Names returns all field names in canonical order.
func Names() []Name {
	out := make([]Name, len(names))
	copy(out, names)
	return out
}

// IsKnown reports whether name is one of the contract fields.
func IsKnown(name string) bool {
	_, ok := slots[Name(name)]
	return ok
}

// Get returns the value of the named field, or "" for an unknown name.
func (s Schema) Get(name Name) string {
	slot, ok := slots[name]
	if !ok {
		return ""
	}
	return *slot(&s)
}

// Set assigns the named field. It fails for names outside the schema.
func (s *Schema) Set(name Name, value string) error {
	slot, ok := slots[name]
	if !ok {
		return fmt.Errorf("unknown contract field: %q", name)
	}
	*slot(s) = value
	return nil
}

// Map returns every field keyed by name. All keys are always present.
func (s Schema) Map() map[string]string {
	out := make(map[string]string, len(names))
	for _, n := range names {
		out[string(n)] = s.Get(n)
	}
	return out
}

// Mismatch describes an input key that does not belong to the schema.
type Mismatch struct {
	Key    string
	Reason string
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s: %s", m.Key, m.Reason)
}

// Resolve turns a possibly partial key/value set into a complete Schema.
// Missing keys resolve to "", unknown keys are dropped and reported.
func Resolve(partial map[string]string) (Schema, []Mismatch) {
	var s Schema
	var mismatches []Mismatch
	for key, value := range partial {
		if err := s.Set(Name(key), value); err != nil {
			mismatches = append(mismatches, Mismatch{Key: key, Reason: "not a contract field"})
		}
	}
	sort.Slice(mismatches, func(i, j int) bool { return mismatches[i].Key < mismatches[j].Key })
	return s, mismatches
}

// Merge returns a copy of s with every key in partial applied on top.
func (s Schema) Merge(partial map[string]string) (Schema, []Mismatch) {
	out := s
	var mismatches []Mismatch
	for key, value := range partial {
		if err := out.Set(Name(key), value); err != nil {
			mismatches = append(mismatches, Mismatch{Key: key, Reason: "not a contract field"})
		}
	}
	sort.Slice(mismatches, func(i, j int) bool { return mismatches[i].Key < mismatches[j].Key })
	return out, mismatches
}

// ParseJSON decodes a JSON object of string values into a Schema. Values
// that are not strings are rejected; unknown keys are reported.
func ParseJSON(data []byte) (Schema, []Mismatch, error) {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return Schema{}, nil, fmt.Errorf("contract fields must be a JSON object of strings: %w", err)
	}
	s, mismatches := Resolve(raw)
	return s, mismatches, nil
}
