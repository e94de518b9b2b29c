package rental

import "time"

// Status is the lifecycle state of a driver's request for a vehicle.
type Status string

const (
	StatusOpen     Status = "open"
	StatusAccepted Status = "accepted"
	StatusDeclined Status = "declined"
	StatusClosed   Status = "closed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusAccepted, StatusDeclined, StatusClosed:
		return true
	}
	return false
}

// Request is a driver asking to rent a listed vehicle.
type Request struct {
	ID        string    `json:"id"`
	VehicleID string    `json:"carId"`
	DriverID  string    `json:"driver"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"date"`
	UpdatedAt time.Time `json:"updatedAt"`
}
