package hospital

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// SyntheticSource generates a plausible hospital dataset when no database is
// reachable. The same seed always yields the same tables, so analyses are
// reproducible in demos and tests. Generation is lazy and cached.
type SyntheticSource struct {
	seed int64

	once      sync.Once
	rooms     []Room
	occupancy []Occupancy
	staff     []Staff
	tools     []Tool
	inventory []InventoryItem
}

func NewSyntheticSource(seed int64) *SyntheticSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &SyntheticSource{seed: seed}
}

func (s *SyntheticSource) Name() string { return "synthetic" }

func (s *SyntheticSource) generate() {
	rng := rand.New(rand.NewSource(s.seed))
	now := time.Now()

	s.rooms = []Room{
		{ID: 1, RoomType: "ICU", BedCapacity: 2, Status: "active"},
		{ID: 2, RoomType: "ICU", BedCapacity: 2, Status: "active"},
		{ID: 3, RoomType: "ICU", BedCapacity: 1, Status: "active"},
		{ID: 4, RoomType: "Emergency", BedCapacity: 4, Status: "active"},
		{ID: 5, RoomType: "Emergency", BedCapacity: 4, Status: "active"},
		{ID: 6, RoomType: "Emergency", BedCapacity: 3, Status: "active"},
		{ID: 7, RoomType: "General Ward", BedCapacity: 6, Status: "active"},
		{ID: 8, RoomType: "General Ward", BedCapacity: 6, Status: "active"},
		{ID: 9, RoomType: "General Ward", BedCapacity: 4, Status: "active"},
		{ID: 10, RoomType: "Surgical", BedCapacity: 3, Status: "active"},
		{ID: 11, RoomType: "Surgical", BedCapacity: 3, Status: "active"},
		{ID: 12, RoomType: "Pediatric", BedCapacity: 4, Status: "active"},
	}

	attendees := []string{"Dr. Smith", "Dr. Johnson", "Dr. Brown", "Dr. Davis", "Dr. Wilson"}
	genders := []string{"M", "F", "Other"}
	const stayCount = 200
	const historyDays = 90

	s.occupancy = make([]Occupancy, 0, stayCount)
	for i := 0; i < stayCount; i++ {
		assignedAt := now.AddDate(0, 0, -(rng.Intn(historyDays) + 1)).
			Add(time.Duration(rng.Intn(24))*time.Hour + time.Duration(rng.Intn(60))*time.Minute)

		var dischargedAt *time.Time
		if rng.Float64() >= 0.3 {
			losDays := rng.ExpFloat64() * 3.5
			d := assignedAt.Add(time.Duration(losDays * 24 * float64(time.Hour)))
			if d.Before(now) {
				dischargedAt = &d
			}
		}

		s.occupancy = append(s.occupancy, Occupancy{
			ID:           int64(i + 1),
			RoomID:       int64(rng.Intn(12) + 1),
			PatientID:    int64(1000 + i),
			AssignedAt:   assignedAt,
			DischargedAt: dischargedAt,
			Attendee:     attendees[rng.Intn(len(attendees))],
			AgeAtAdm:     rng.Intn(68) + 18,
			Gender:       genders[rng.Intn(len(genders))],
		})
	}

	s.staff = []Staff{
		{ID: 1, FullName: "Dr. Sarah Johnson", StaffType: "doctors", Department: "Emergency", ShiftPattern: "rotating", Status: "active"},
		{ID: 2, FullName: "Dr. Michael Brown", StaffType: "doctors", Department: "ICU", ShiftPattern: "day", Status: "active"},
		{ID: 3, FullName: "Dr. Emily Davis", StaffType: "doctors", Department: "Surgery", ShiftPattern: "day", Status: "active"},
		{ID: 4, FullName: "Nurse Jennifer Wilson", StaffType: "nurses", Department: "ICU", ShiftPattern: "rotating", Status: "active"},
		{ID: 5, FullName: "Nurse Robert Miller", StaffType: "nurses", Department: "Emergency", ShiftPattern: "night", Status: "active"},
		{ID: 6, FullName: "Nurse Lisa Garcia", StaffType: "nurses", Department: "General", ShiftPattern: "day", Status: "active"},
		{ID: 7, FullName: "Nurse Maria Rodriguez", StaffType: "nurses", Department: "Pediatric", ShiftPattern: "day", Status: "active"},
		{ID: 8, FullName: "Tech John Anderson", StaffType: "support", Department: "General", ShiftPattern: "day", Status: "active"},
		{ID: 9, FullName: "Tech Amanda Taylor", StaffType: "support", Department: "ICU", ShiftPattern: "rotating", Status: "active"},
		{ID: 10, FullName: "Dr. David Lee", StaffType: "doctors", Department: "Pediatric", ShiftPattern: "day", Status: "active"},
	}
	departments := []string{"ICU", "Emergency", "General", "Surgical", "Pediatric"}
	shifts := []string{"day", "night", "rotating"}
	for i := 0; i < 15; i++ {
		s.staff = append(s.staff, Staff{
			ID:           int64(11 + i),
			FullName:     fmt.Sprintf("Nurse Staff-%d", i+1),
			StaffType:    "nurses",
			Department:   departments[rng.Intn(len(departments))],
			ShiftPattern: shifts[rng.Intn(len(shifts))],
			Status:       "active",
		})
	}

	s.tools = []Tool{
		{ID: 1, ToolName: "Ventilator", QuantityTotal: 10, QuantityAvailable: 3, QuantityInUse: 7, MaintenanceStatus: "good", Status: "active"},
		{ID: 2, ToolName: "ECG Machine", QuantityTotal: 15, QuantityAvailable: 8, QuantityInUse: 7, MaintenanceStatus: "good", Status: "active"},
		{ID: 3, ToolName: "Defibrillator", QuantityTotal: 8, QuantityAvailable: 2, QuantityInUse: 6, MaintenanceStatus: "good", Status: "active"},
		{ID: 4, ToolName: "X-Ray Machine", QuantityTotal: 4, QuantityAvailable: 1, QuantityInUse: 3, MaintenanceStatus: "maintenance", Status: "active"},
		{ID: 5, ToolName: "Ultrasound", QuantityTotal: 6, QuantityAvailable: 2, QuantityInUse: 4, MaintenanceStatus: "good", Status: "active"},
		{ID: 6, ToolName: "Patient Monitor", QuantityTotal: 25, QuantityAvailable: 5, QuantityInUse: 20, MaintenanceStatus: "good", Status: "active"},
		{ID: 7, ToolName: "Wheelchair", QuantityTotal: 20, QuantityAvailable: 12, QuantityInUse: 8, MaintenanceStatus: "good", Status: "active"},
		{ID: 8, ToolName: "IV Pump", QuantityTotal: 30, QuantityAvailable: 8, QuantityInUse: 22, MaintenanceStatus: "good", Status: "active"},
	}

	type invSeed struct {
		name     string
		category string
		quantity int
		unitCost float64
	}
	seeds := []invSeed{
		{"Surgical Gloves", "Medical Supplies", 500, 0.25},
		{"Face Masks", "Medical Supplies", 1200, 0.15},
		{"Syringes", "Medical Supplies", 800, 0.30},
		{"Gauze Pads", "Medical Supplies", 300, 0.50},
		{"Acetaminophen", "Pharmaceuticals", 150, 2.50},
		{"Ibuprofen", "Pharmaceuticals", 200, 1.80},
		{"Amoxicillin", "Pharmaceuticals", 75, 8.50},
		{"Saline Solution", "Pharmaceuticals", 300, 3.20},
		{"Surgical Sutures", "Surgical Supplies", 80, 15.00},
		{"Scalpels", "Surgical Supplies", 50, 12.00},
		{"Bandages", "Medical Supplies", 400, 1.20},
		{"Alcohol Wipes", "Disposables", 2000, 0.05},
		{"Paper Towels", "Disposables", 100, 2.00},
		{"Bed Sheets", "Linens", 60, 15.00},
		{"Pillowcases", "Linens", 80, 8.00},
	}
	s.inventory = make([]InventoryItem, 0, len(seeds))
	for i, sd := range seeds {
		s.inventory = append(s.inventory, InventoryItem{
			ID:                int64(i + 1),
			ItemName:          sd.name,
			Category:          sd.category,
			QuantityAvailable: sd.quantity,
			ExpiryDate:        now.AddDate(0, 0, rng.Intn(336)+30),
			Supplier:          fmt.Sprintf("Supplier-%d", rng.Intn(5)+1),
			UnitCost:          sd.unitCost,
			Status:            "active",
		})
	}
}

func (s *SyntheticSource) Rooms(ctx context.Context) ([]Room, error) {
	s.once.Do(s.generate)
	out := make([]Room, len(s.rooms))
	copy(out, s.rooms)
	return out, nil
}

func (s *SyntheticSource) Occupancy(ctx context.Context, daysBack int) ([]Occupancy, error) {
	s.once.Do(s.generate)
	cutoff := time.Now().AddDate(0, 0, -daysBack)
	var out []Occupancy
	for _, o := range s.occupancy {
		if !o.AssignedAt.Before(cutoff) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *SyntheticSource) Users(ctx context.Context) ([]Staff, error) {
	s.once.Do(s.generate)
	out := make([]Staff, len(s.staff))
	copy(out, s.staff)
	return out, nil
}

func (s *SyntheticSource) Tools(ctx context.Context) ([]Tool, error) {
	s.once.Do(s.generate)
	out := make([]Tool, len(s.tools))
	copy(out, s.tools)
	return out, nil
}

func (s *SyntheticSource) Inventory(ctx context.Context) ([]InventoryItem, error) {
	s.once.Do(s.generate)
	out := make([]InventoryItem, len(s.inventory))
	copy(out, s.inventory)
	return out, nil
}
