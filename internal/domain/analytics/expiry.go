package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"
)

func expiryUrgency(daysToExpiry int) string {
	switch {
	case daysToExpiry < 0:
		return "expired"
	case daysToExpiry <= 7:
		return "critical"
	case daysToExpiry <= 30:
		return "urgent"
	default:
		return "watch"
	}
}

// InventoryExpiry buckets stock by time to expiry and computes the value at
// risk inside the threshold window. One alert is emitted per non-empty
// bucket; a single info alert covers the all-clear case.
func (a *Analyzer) InventoryExpiry(ctx context.Context, daysThreshold int) (Result, error) {
	inventory, err := a.src.Inventory(ctx)
	if err != nil {
		return nil, fmt.Errorf("load inventory: %w", err)
	}

	now := a.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	type bucketed struct {
		row  map[string]any
		days int
	}
	var withinThreshold []bucketed
	expiredCount, criticalCount, urgentCount, watchCount := 0, 0, 0, 0
	categoryAgg := map[string]struct {
		items    int
		quantity int
		daysSum  int
	}{}
	valueAtRisk := 0.0

	for _, item := range inventory {
		exp := item.ExpiryDate
		expDay := time.Date(exp.Year(), exp.Month(), exp.Day(), 0, 0, 0, 0, exp.Location())
		daysToExpiry := int(expDay.Sub(today).Hours() / 24)

		switch expiryUrgency(daysToExpiry) {
		case "expired":
			expiredCount++
		case "critical":
			criticalCount++
		case "urgent":
			urgentCount++
		default:
			if daysToExpiry <= daysThreshold {
				watchCount++
			}
		}

		if daysToExpiry < 0 || daysToExpiry > daysThreshold {
			continue
		}

		value := item.UnitCost * float64(item.QuantityAvailable)
		valueAtRisk += value
		withinThreshold = append(withinThreshold, bucketed{
			days: daysToExpiry,
			row: map[string]any{
				"item_name":          item.ItemName,
				"days_to_expiry":     daysToExpiry,
				"expiry_date":        expDay.Format("2006-01-02"),
				"quantity_available": item.QuantityAvailable,
				"category":           item.Category,
				"urgency":            expiryUrgency(daysToExpiry),
				"estimated_value":    round2(value),
			},
		})

		agg := categoryAgg[item.Category]
		agg.items++
		agg.quantity += item.QuantityAvailable
		agg.daysSum += daysToExpiry
		categoryAgg[item.Category] = agg
	}

	sort.SliceStable(withinThreshold, func(i, j int) bool {
		return withinThreshold[i].days < withinThreshold[j].days
	})
	expiringData := make([]map[string]any, len(withinThreshold))
	for i, b := range withinThreshold {
		expiringData[i] = b.row
	}

	categories := make([]string, 0, len(categoryAgg))
	for c := range categoryAgg {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	categoryBreakdown := make([]map[string]any, 0, len(categories))
	for _, c := range categories {
		agg := categoryAgg[c]
		categoryBreakdown = append(categoryBreakdown, map[string]any{
			"category":           c,
			"items_expiring":     agg.items,
			"total_quantity":     agg.quantity,
			"avg_days_to_expiry": round1(float64(agg.daysSum) / float64(agg.items)),
		})
	}

	var alerts []map[string]any
	if expiredCount > 0 {
		alerts = append(alerts, map[string]any{
			"level":   "critical",
			"message": fmt.Sprintf("%d items have already expired", expiredCount),
			"action":  "Immediate removal and disposal required",
			"count":   expiredCount,
		})
	}
	if criticalCount > 0 {
		alerts = append(alerts, map[string]any{
			"level":   "critical",
			"message": fmt.Sprintf("%d items expiring within 7 days", criticalCount),
			"action":  "Urgent review and usage planning required",
			"count":   criticalCount,
		})
	}
	if urgentCount > 0 {
		alerts = append(alerts, map[string]any{
			"level":   "warning",
			"message": fmt.Sprintf("%d items expiring within 30 days", urgentCount),
			"action":  "Schedule usage or consider redistribution",
			"count":   urgentCount,
		})
	}
	if len(alerts) == 0 {
		alerts = append(alerts, map[string]any{
			"level":   "info",
			"message": "No immediate expiry concerns detected",
			"action":  "Continue regular monitoring",
			"count":   0,
		})
	}

	pctExpiring := 0.0
	if len(inventory) > 0 {
		pctExpiring = round1(float64(len(expiringData)) / float64(len(inventory)) * 100)
	}

	result := Result{
		"expiring_items": expiringData,
		"summary_statistics": map[string]any{
			"total_inventory_items":           len(inventory),
			"items_expiring_within_threshold": len(expiringData),
			"expired_items":                   expiredCount,
			"critical_items":                  criticalCount,
			"urgent_items":                    urgentCount,
			"watch_items":                     watchCount,
			"percentage_expiring":             pctExpiring,
		},
		"category_breakdown": categoryBreakdown,
		"value_at_risk":      round2(valueAtRisk),
		"alerts":             alerts,
		"analysis_parameters": map[string]any{
			"days_threshold": daysThreshold,
			"analysis_date":  today.Format("2006-01-02"),
		},
		"analysis_timestamp": now.Format(time.RFC3339),
	}
	if len(inventory) == 0 {
		result["error"] = "no inventory data available"
	}

	a.persist("inventory_expiry", result, map[string]any{
		"analysis_type":  "inventory_expiry",
		"days_threshold": daysThreshold,
		"urgency_categories": map[string]any{
			"expired":  "< 0 days",
			"critical": "0-7 days",
			"urgent":   "8-30 days",
			"watch":    fmt.Sprintf("31-%d days", daysThreshold),
		},
		"calculation_method": "days_to_expiry = expiry_date - current_date",
		"risk_assessment": map[string]any{
			"items_at_risk":      len(expiringData),
			"percentage_at_risk": pctExpiring,
			"value_at_risk":      round2(valueAtRisk),
			"alert_count":        len(alerts),
		},
	})
	return result, nil
}
