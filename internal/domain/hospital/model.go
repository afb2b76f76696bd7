// Package hospital defines the operational records the analytics engine
// consumes and the data sources that produce them.
package hospital

import "time"

// Room is a physical ward room with a fixed bed capacity.
type Room struct {
	ID          int64  `db:"id" json:"id"`
	RoomType    string `db:"room_type" json:"room_type"`
	BedCapacity int    `db:"bed_capacity" json:"bed_capacity"`
	Status      string `db:"status" json:"status"`
}

// Occupancy is a single patient stay. DischargedAt is nil while the patient
// is still admitted.
type Occupancy struct {
	ID           int64      `db:"id" json:"id"`
	RoomID       int64      `db:"room_id" json:"room_id"`
	PatientID    int64      `db:"patient_id" json:"patient_id"`
	AssignedAt   time.Time  `db:"assigned_at" json:"assigned_at"`
	DischargedAt *time.Time `db:"discharged_at" json:"discharged_at,omitempty"`
	Attendee     string     `db:"attendee" json:"attendee"`
	AgeAtAdm     int        `db:"age_at_adm" json:"age_at_adm"`
	Gender       string     `db:"gender" json:"gender"`
}

// Staff is a hospital employee. StaffType is one of "doctors", "nurses",
// "support".
type Staff struct {
	ID           int64  `db:"id" json:"id"`
	FullName     string `db:"full_name" json:"full_name"`
	StaffType    string `db:"staff_type" json:"staff_type"`
	Department   string `db:"department" json:"department"`
	ShiftPattern string `db:"shift_pattern" json:"shift_pattern"`
	Status       string `db:"status" json:"status"`
}

// Tool is a pooled equipment type with availability counters. The counters
// are not guaranteed consistent with each other; utilisation analysis handles
// partial data.
type Tool struct {
	ID                int64  `db:"id" json:"id"`
	ToolName          string `db:"tool_name" json:"tool_name"`
	QuantityTotal     int    `db:"quantity_total" json:"quantity_total"`
	QuantityAvailable int    `db:"quantity_available" json:"quantity_available"`
	QuantityInUse     int    `db:"quantity_in_use" json:"quantity_in_use"`
	MaintenanceStatus string `db:"maintenance_status" json:"maintenance_status"`
	Status            string `db:"status" json:"status"`
}

// InventoryItem is a consumable stock line.
type InventoryItem struct {
	ID                int64     `db:"id" json:"id"`
	ItemName          string    `db:"item_name" json:"item_name"`
	Category          string    `db:"category" json:"category"`
	QuantityAvailable int       `db:"quantity_available" json:"quantity_available"`
	ExpiryDate        time.Time `db:"expiry_date" json:"expiry_date"`
	Supplier          string    `db:"supplier" json:"supplier"`
	UnitCost          float64   `db:"unit_cost" json:"unit_cost"`
	Status            string    `db:"status" json:"status"`
}

// Active reports whether the stay is still open at the given instant.
func (o Occupancy) Active(at time.Time) bool {
	if o.AssignedAt.After(at) {
		return false
	}
	return o.DischargedAt == nil || o.DischargedAt.After(at)
}

// LengthOfStayDays returns the stay length in fractional days, or false for
// open stays.
func (o Occupancy) LengthOfStayDays() (float64, bool) {
	if o.DischargedAt == nil {
		return 0, false
	}
	return o.DischargedAt.Sub(o.AssignedAt).Hours() / 24, true
}
