package permit

import "time"

// StatusPending is the status of every newly requested permit
const StatusPending = "pending"

// Driver represents a registered truck driver, keyed by national ID
type Driver struct {
	NationalID  string    `json:"national_id"`
	Name        string    `json:"name"`
	TruckNumber string    `json:"truck_number"`
	CargoType   string    `json:"cargo_type"`
	Photo       string    `json:"photo"` // stored file name
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Permit represents a request to drive a route on a given day
type Permit struct {
	ID         string    `json:"id"`
	DriverID   string    `json:"driver_id"` // national ID of the driver
	DriverName string    `json:"driver_name"`
	Date       string    `json:"date"` // YYYY-MM-DD
	TimeSlot   string    `json:"time_slot"`
	Route      string    `json:"route"`
	Purpose    string    `json:"purpose"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}
