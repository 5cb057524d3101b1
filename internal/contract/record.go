package contract

import (
	"time"

	"github.com/a3tai/mcp-rental-contract/internal/fields"
)

// Party is one side of the contract.
type Party struct {
	Name    string `json:"name"`
	TcNo    string `json:"tcNo,omitempty"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

// Property describes the rented real estate.
type Property struct {
	Address   string `json:"address"`
	District  string `json:"district,omitempty"`
	City      string `json:"city"`
	Type      string `json:"type,omitempty"`
	RoomCount string `json:"roomCount,omitempty"`
	Area      string `json:"area,omitempty"`
	Floor     string `json:"floor,omitempty"`
}

// Terms are the financial and legal terms of the contract.
type Terms struct {
	StartDate         string `json:"startDate"`
	EndDate           string `json:"endDate"`
	RentAmount        string `json:"rentAmount"`
	Deposit           string `json:"deposit,omitempty"`
	Currency          string `json:"currency"`
	PaymentDay        string `json:"paymentDay,omitempty"`
	PaymentMethod     string `json:"paymentMethod,omitempty"`
	UtilitiesIncluded string `json:"utilitiesIncluded,omitempty"`
	PetAllowed        string `json:"petAllowed,omitempty"`
	SmokingAllowed    string `json:"smokingAllowed,omitempty"`
	SpecialConditions string `json:"specialConditions,omitempty"`
	ContractDate      string `json:"contractDate,omitempty"`
	ContractLocation  string `json:"contractLocation,omitempty"`
}

// Details is the structured form of a field schema.
type Details struct {
	Landlord Party    `json:"landlord"`
	Tenant   Party    `json:"tenant"`
	Property Property `json:"property"`
	Terms    Terms    `json:"terms"`
}

// FromSchema splits a schema into structured details.
func FromSchema(s fields.Schema) Details {
	return Details{
		Landlord: Party{Name: s.LandlordName, TcNo: s.LandlordTcNo, Address: s.LandlordAddress, Phone: s.LandlordPhone},
		Tenant:   Party{Name: s.TenantName, TcNo: s.TenantTcNo, Address: s.TenantAddress, Phone: s.TenantPhone},
		Property: Property{
			Address:   s.PropertyAddress,
			District:  s.PropertyDistrict,
			City:      s.PropertyCity,
			Type:      s.PropertyType,
			RoomCount: s.RoomCount,
			Area:      s.PropertyArea,
			Floor:     s.PropertyFloor,
		},
		Terms: Terms{
			StartDate:         s.StartDate,
			EndDate:           s.EndDate,
			RentAmount:        s.RentAmount,
			Deposit:           s.Deposit,
			Currency:          s.Currency,
			PaymentDay:        s.PaymentDay,
			PaymentMethod:     s.PaymentMethod,
			UtilitiesIncluded: s.UtilitiesIncluded,
			PetAllowed:        s.PetAllowed,
			SmokingAllowed:    s.SmokingAllowed,
			SpecialConditions: s.SpecialConditions,
			ContractDate:      s.ContractDate,
			ContractLocation:  s.ContractLocation,
		},
	}
}

// ToSchema is the inverse of FromSchema.
func (d Details) ToSchema() fields.Schema {
	return fields.Schema{
		LandlordName:      d.Landlord.Name,
		LandlordTcNo:      d.Landlord.TcNo,
		LandlordAddress:   d.Landlord.Address,
		LandlordPhone:     d.Landlord.Phone,
		TenantName:        d.Tenant.Name,
		TenantTcNo:        d.Tenant.TcNo,
		TenantAddress:     d.Tenant.Address,
		TenantPhone:       d.Tenant.Phone,
		PropertyAddress:   d.Property.Address,
		PropertyDistrict:  d.Property.District,
		PropertyCity:      d.Property.City,
		PropertyType:      d.Property.Type,
		RoomCount:         d.Property.RoomCount,
		PropertyArea:      d.Property.Area,
		PropertyFloor:     d.Property.Floor,
		StartDate:         d.Terms.StartDate,
		EndDate:           d.Terms.EndDate,
		RentAmount:        d.Terms.RentAmount,
		Deposit:           d.Terms.Deposit,
		Currency:          d.Terms.Currency,
		PaymentDay:        d.Terms.PaymentDay,
		PaymentMethod:     d.Terms.PaymentMethod,
		UtilitiesIncluded: d.Terms.UtilitiesIncluded,
		PetAllowed:        d.Terms.PetAllowed,
		SmokingAllowed:    d.Terms.SmokingAllowed,
		SpecialConditions: d.Terms.SpecialConditions,
		ContractDate:      d.Terms.ContractDate,
		ContractLocation:  d.Terms.ContractLocation,
	}
}

// Record is a stored contract: metadata plus the fillable document it
// exclusively owns. Document is replaced wholesale on every edit.
type Record struct {
	ID       string `json:"id"`
	OfficeID string `json:"officeId"`
	Status   Status `json:"status"`
	Details

	Document         []byte `json:"-"`
	DocumentRevision int    `json:"documentRevision"`

	// Version is bumped by the store on every write.
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	if r.Document != nil {
		c.Document = append([]byte(nil), r.Document...)
	}
	return &c
}

// Summary is the listing view of a record.
type Summary struct {
	ID          string    `json:"id"`
	OfficeID    string    `json:"officeId"`
	Status      Status    `json:"status"`
	StatusLabel string    `json:"statusLabel"`
	Next        []Status  `json:"next"`
	Tenant      string    `json:"tenant"`
	Landlord    string    `json:"landlord"`
	Property    string    `json:"property"`
	StartDate   string    `json:"startDate"`
	EndDate     string    `json:"endDate"`
	Rent        string    `json:"rent"`
	HasDocument bool      `json:"hasDocument"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Summarize returns the listing view of r.
func (r *Record) Summarize() Summary {
	rent := r.Terms.RentAmount
	if rent != "" && r.Terms.Currency != "" {
		rent += " " + r.Terms.Currency
	}
	return Summary{
		ID:          r.ID,
		OfficeID:    r.OfficeID,
		Status:      r.Status,
		StatusLabel: r.Status.Label(),
		Next:        r.Status.Next(),
		Tenant:      r.Tenant.Name,
		Landlord:    r.Landlord.Name,
		Property:    r.Property.Address,
		StartDate:   r.Terms.StartDate,
		EndDate:     r.Terms.EndDate,
		Rent:        rent,
		HasDocument: len(r.Document) > 0,
		UpdatedAt:   r.UpdatedAt,
	}
}
