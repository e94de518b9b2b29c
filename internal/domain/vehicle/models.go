package vehicle

import (
	"fmt"
	"time"
)

// Slot is one of the fixed photo positions of a vehicle.
type Slot int

const (
	SlotFront Slot = iota
	SlotRear
	SlotLeft
	SlotRight
	SlotFirstInterior
	SlotSecondInterior
)

// PhotoCount is the number of photos every vehicle record carries.
const PhotoCount = 6

var slotNames = [PhotoCount]string{
	SlotFront:          "front",
	SlotRear:           "rear",
	SlotLeft:           "left",
	SlotRight:          "right",
	SlotFirstInterior:  "firstInterior",
	SlotSecondInterior: "secondInterior",
}

// Slots lists every slot in photo order.
func Slots() [PhotoCount]Slot {
	return [PhotoCount]Slot{SlotFront, SlotRear, SlotLeft, SlotRight, SlotFirstInterior, SlotSecondInterior}
}

// ParseSlot maps a role name to its slot. Unknown roles are an error.
func ParseSlot(role string) (Slot, error) {
	for i, name := range slotNames {
		if name == role {
			return Slot(i), nil
		}
	}
	return 0, fmt.Errorf("unknown photo slot %q", role)
}

func (s Slot) Valid() bool {
	return s >= SlotFront && s <= SlotSecondInterior
}

// Index is the position of the slot in Record.Photos.
func (s Slot) Index() int {
	return int(s)
}

// CarriesPlate reports whether photos in this slot are read for plate text.
func (s Slot) CarriesPlate() bool {
	return s == SlotFront || s == SlotRear
}

func (s Slot) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Slot(%d)", int(s))
	}
	return slotNames[s]
}

type Status string

const (
	StatusAvailable   Status = "available"
	StatusUnavailable Status = "unavailable"
	StatusRented      Status = "rented"
)

func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusUnavailable, StatusRented:
		return true
	}
	return false
}

// ExtractionResult is the outcome of one photo upload. It is never persisted.
type ExtractionResult struct {
	ImageURL      string `json:"imageUrl"`
	LicenseNumber string `json:"licenseNumber,omitempty"`
	Jurisdiction  string `json:"stateRegistered,omitempty"`
	Found         bool   `json:"found"`
	Status        int    `json:"status"`
	Message       string `json:"message,omitempty"`
}

// Details holds the owner supplied description of a vehicle.
type Details struct {
	Model            string `json:"model"`
	Year             int    `json:"year"`
	Mileage          int    `json:"mileage"`
	Color            string `json:"color,omitempty"`
	Leather          bool   `json:"leather"`
	Location         string `json:"location"`
	Purpose          string `json:"purpose"`
	Terms            string `json:"terms"`
	Interval         string `json:"interval"`
	Remittance       int    `json:"remittance"`
	ContractDuration string `json:"contractDuration"`
}

// ApplyDefaults fills the optional details the same way a new listing does.
func (d *Details) ApplyDefaults() {
	if d.Purpose == "" {
		d.Purpose = "for rent"
	}
	if d.Interval == "" {
		d.Interval = "weekly"
	}
	if d.Remittance == 0 {
		d.Remittance = 25000
	}
	if d.ContractDuration == "" {
		d.ContractDuration = "not specified"
	}
}

type Record struct {
	ID                    string             `json:"id"`
	OwnerID               string             `json:"ownerId"`
	DeclaredLicenseNumber string             `json:"declaredLicenseNumber"`
	VerifiedLicenseNumber string             `json:"verifiedLicenseNumber"`
	Jurisdiction          string             `json:"stateRegistered,omitempty"`
	Photos                [PhotoCount]string `json:"photos"`
	Status                Status             `json:"status"`
	Details
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HasPhotos reports whether any slot holds a URL.
func (r *Record) HasPhotos() bool {
	for _, p := range r.Photos {
		if p != "" {
			return true
		}
	}
	return false
}

// Fields is the whitelist of metadata an owner may edit after creation.
// Nil pointers are left untouched.
type Fields struct {
	DeclaredLicenseNumber *string `json:"declaredLicenseNumber,omitempty"`
	Model                 *string `json:"model,omitempty"`
	Year                  *int    `json:"year,omitempty"`
	Mileage               *int    `json:"mileage,omitempty"`
	Color                 *string `json:"color,omitempty"`
	Leather               *bool   `json:"leather,omitempty"`
	Location              *string `json:"location,omitempty"`
	Purpose               *string `json:"purpose,omitempty"`
	Terms                 *string `json:"terms,omitempty"`
	Interval              *string `json:"interval,omitempty"`
	Remittance            *int    `json:"remittance,omitempty"`
	ContractDuration      *string `json:"contractDuration,omitempty"`
}

func (f Fields) Empty() bool {
	return f == Fields{}
}

// Apply copies every set field onto r.
func (f Fields) Apply(r *Record) {
	if f.DeclaredLicenseNumber != nil {
		r.DeclaredLicenseNumber = *f.DeclaredLicenseNumber
	}
	if f.Model != nil {
		r.Model = *f.Model
	}
	if f.Year != nil {
		r.Year = *f.Year
	}
	if f.Mileage != nil {
		r.Mileage = *f.Mileage
	}
	if f.Color != nil {
		r.Color = *f.Color
	}
	if f.Leather != nil {
		r.Leather = *f.Leather
	}
	if f.Location != nil {
		r.Location = *f.Location
	}
	if f.Purpose != nil {
		r.Purpose = *f.Purpose
	}
	if f.Terms != nil {
		r.Terms = *f.Terms
	}
	if f.Interval != nil {
		r.Interval = *f.Interval
	}
	if f.Remittance != nil {
		r.Remittance = *f.Remittance
	}
	if f.ContractDuration != nil {
		r.ContractDuration = *f.ContractDuration
	}
}
