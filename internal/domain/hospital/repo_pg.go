package hospital

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// LiveSource reads operational tables from Postgres.
type LiveSource struct {
	pool *pgxpool.Pool
}

func NewLiveSource(pool *pgxpool.Pool) *LiveSource {
	return &LiveSource{pool: pool}
}

func (s *LiveSource) Name() string { return "live" }

func (s *LiveSource) Rooms(ctx context.Context) ([]Room, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, room_type, bed_capacity, status
		FROM rooms
		WHERE status = 'active'
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query rooms: %w", err)
	}
	defer rows.Close()

	var out []Room
	for rows.Next() {
		var r Room
		if err := rows.Scan(&r.ID, &r.RoomType, &r.BedCapacity, &r.Status); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *LiveSource) Occupancy(ctx context.Context, daysBack int) ([]Occupancy, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT o.id, o.room_id, o.patient_id, o.assigned_at, o.discharged_at,
		       COALESCE(o.attendee, ''), COALESCE(o.age_at_adm, 0), COALESCE(o.gender, '')
		FROM occupancy o
		WHERE o.assigned_at >= NOW() - make_interval(days => $1)
		ORDER BY o.assigned_at DESC`, daysBack)
	if err != nil {
		return nil, fmt.Errorf("query occupancy: %w", err)
	}
	defer rows.Close()

	var out []Occupancy
	for rows.Next() {
		var o Occupancy
		if err := rows.Scan(&o.ID, &o.RoomID, &o.PatientID, &o.AssignedAt, &o.DischargedAt,
			&o.Attendee, &o.AgeAtAdm, &o.Gender); err != nil {
			return nil, fmt.Errorf("scan occupancy: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *LiveSource) Users(ctx context.Context) ([]Staff, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, full_name, staff_type, COALESCE(department, ''), COALESCE(shift_pattern, ''), status
		FROM users
		WHERE status = 'active'
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var out []Staff
	for rows.Next() {
		var u Staff
		if err := rows.Scan(&u.ID, &u.FullName, &u.StaffType, &u.Department, &u.ShiftPattern, &u.Status); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *LiveSource) Tools(ctx context.Context) ([]Tool, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, tool_name, COALESCE(quantity_total, 0), COALESCE(quantity_available, 0),
		       COALESCE(quantity_in_use, 0), COALESCE(maintenance_status, ''), status
		FROM tools
		WHERE status = 'active'
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query tools: %w", err)
	}
	defer rows.Close()

	var out []Tool
	for rows.Next() {
		var t Tool
		if err := rows.Scan(&t.ID, &t.ToolName, &t.QuantityTotal, &t.QuantityAvailable,
			&t.QuantityInUse, &t.MaintenanceStatus, &t.Status); err != nil {
			return nil, fmt.Errorf("scan tool: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *LiveSource) Inventory(ctx context.Context) ([]InventoryItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, item_name, COALESCE(category, ''), COALESCE(quantity_available, 0),
		       expiry_date, COALESCE(supplier, ''), COALESCE(unit_cost, 0), status
		FROM hospital_inventory
		WHERE status = 'active'
		ORDER BY expiry_date`)
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	defer rows.Close()

	var out []InventoryItem
	for rows.Next() {
		var it InventoryItem
		if err := rows.Scan(&it.ID, &it.ItemName, &it.Category, &it.QuantityAvailable,
			&it.ExpiryDate, &it.Supplier, &it.UnitCost, &it.Status); err != nil {
			return nil, fmt.Errorf("scan inventory item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
