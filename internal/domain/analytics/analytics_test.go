package analytics

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/wardops/wardops/internal/domain/hospital"
	"github.com/wardops/wardops/internal/platform/storage"
)

// testNow is a Tuesday so weekday-sensitive analyses behave predictably.
var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type fixtureSource struct {
	rooms     []hospital.Room
	occupancy []hospital.Occupancy
	staff     []hospital.Staff
	tools     []hospital.Tool
	inventory []hospital.InventoryItem
}

func (f *fixtureSource) Rooms(ctx context.Context) ([]hospital.Room, error) { return f.rooms, nil }
func (f *fixtureSource) Occupancy(ctx context.Context, daysBack int) ([]hospital.Occupancy, error) {
	return f.occupancy, nil
}
func (f *fixtureSource) Users(ctx context.Context) ([]hospital.Staff, error) { return f.staff, nil }
func (f *fixtureSource) Tools(ctx context.Context) ([]hospital.Tool, error)  { return f.tools, nil }
func (f *fixtureSource) Inventory(ctx context.Context) ([]hospital.InventoryItem, error) {
	return f.inventory, nil
}
func (f *fixtureSource) Name() string { return "fixture" }

func newTestAnalyzer(t *testing.T, src hospital.Source) *Analyzer {
	t.Helper()
	store, err := storage.New(t.TempDir(), t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	return New(src, store, zerolog.Nop()).
		WithClock(func() time.Time { return testNow }).
		WithRand(rand.New(rand.NewSource(42)))
}

func daysAgo(d int) time.Time { return testNow.AddDate(0, 0, -d) }

func timePtr(t time.Time) *time.Time { return &t }

func resultList(t *testing.T, result Result, key string) []map[string]any {
	t.Helper()
	list, ok := result[key].([]map[string]any)
	if !ok {
		t.Fatalf("result[%q] is %T, want []map[string]any", key, result[key])
	}
	return list
}

func resultMap(t *testing.T, result Result, key string) map[string]any {
	t.Helper()
	m, ok := result[key].(map[string]any)
	if !ok {
		t.Fatalf("result[%q] is %T, want map[string]any", key, result[key])
	}
	return m
}
