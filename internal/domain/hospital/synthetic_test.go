package hospital

import (
	"context"
	"testing"
	"time"
)

func TestSyntheticDeterministicForSeed(t *testing.T) {
	ctx := context.Background()
	a := NewSyntheticSource(42)
	b := NewSyntheticSource(42)

	occA, err := a.Occupancy(ctx, 90)
	if err != nil {
		t.Fatalf("occupancy: %v", err)
	}
	occB, _ := b.Occupancy(ctx, 90)

	if len(occA) != len(occB) {
		t.Fatalf("seeded sources disagree on stay count: %d vs %d", len(occA), len(occB))
	}
	for i := range occA {
		if occA[i].RoomID != occB[i].RoomID || occA[i].Gender != occB[i].Gender {
			t.Fatalf("stay %d differs between identically-seeded sources", i)
		}
	}
}

func TestSyntheticShapes(t *testing.T) {
	ctx := context.Background()
	s := NewSyntheticSource(7)

	rooms, _ := s.Rooms(ctx)
	if len(rooms) != 12 {
		t.Errorf("expected 12 rooms, got %d", len(rooms))
	}
	wardTypes := map[string]bool{}
	for _, r := range rooms {
		wardTypes[r.RoomType] = true
		if r.BedCapacity <= 0 {
			t.Errorf("room %d has non-positive capacity", r.ID)
		}
	}
	if len(wardTypes) != 5 {
		t.Errorf("expected 5 ward types, got %d", len(wardTypes))
	}

	staff, _ := s.Users(ctx)
	if len(staff) != 25 {
		t.Errorf("expected 25 staff, got %d", len(staff))
	}
	tools, _ := s.Tools(ctx)
	if len(tools) != 8 {
		t.Errorf("expected 8 tools, got %d", len(tools))
	}
	inv, _ := s.Inventory(ctx)
	if len(inv) != 15 {
		t.Errorf("expected 15 inventory items, got %d", len(inv))
	}
}

func TestSyntheticOccupancyCutoff(t *testing.T) {
	ctx := context.Background()
	s := NewSyntheticSource(7)
	occ, _ := s.Occupancy(ctx, 7)
	cutoff := time.Now().AddDate(0, 0, -7).Add(-time.Minute)
	for _, o := range occ {
		if o.AssignedAt.Before(cutoff) {
			t.Fatalf("stay assigned %v escapes 7-day window", o.AssignedAt)
		}
	}
}

func TestOccupancyHelpers(t *testing.T) {
	now := time.Now()
	discharged := now.Add(-time.Hour)
	open := Occupancy{AssignedAt: now.Add(-48 * time.Hour)}
	closed := Occupancy{AssignedAt: now.Add(-49 * time.Hour), DischargedAt: &discharged}

	if !open.Active(now) {
		t.Error("open stay should be active")
	}
	if closed.Active(now) {
		t.Error("discharged stay should not be active")
	}
	if _, ok := open.LengthOfStayDays(); ok {
		t.Error("open stay has no length of stay")
	}
	los, ok := closed.LengthOfStayDays()
	if !ok || los < 1.9 || los > 2.1 {
		t.Errorf("length of stay = %f, want ~2 days", los)
	}
}
