package alerts

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/barflowtrack/barflow/pkg/core"
)

// Notification types produced by the rules.
const (
	TypeLowStock        = "low_stock"
	TypeOutOfStock      = "out_of_stock"
	TypeStockProjection = "stock_projection"
)

// lowStockRule flags items at or under their threshold. An item that is fully
// out counts as out-of-stock instead, at high priority.
func lowStockRule(items []core.InventoryItem, now time.Time) []core.Notification {
	var out []core.Notification
	for _, item := range items {
		if item.ID == "" || item.Quantity > item.Threshold {
			continue
		}

		n := core.Notification{
			ID:            uuid.NewString(),
			Timestamp:     now,
			RelatedItemID: item.ID,
		}
		if item.Quantity <= 0 {
			n.Type = TypeOutOfStock
			n.Priority = core.PriorityHigh
			n.Title = fmt.Sprintf("%s is out of stock", item.Name)
			n.Message = fmt.Sprintf("%s has run out. Restock before the next shift.", item.Name)
		} else {
			n.Type = TypeLowStock
			n.Priority = core.PriorityMedium
			n.Title = fmt.Sprintf("%s is running low", item.Name)
			n.Message = fmt.Sprintf("%s is down to %g %s (threshold %g).",
				item.Name, item.Quantity, unitOrDefault(item.Unit), item.Threshold)
		}
		out = append(out, n)
	}
	return out
}

// projectionWindow is how far back consumption is sampled for predictions.
const projectionWindow = 14 * 24 * time.Hour

// projectionRule estimates days-to-empty from the recent consumption rate and
// warns when an item above its threshold will still run out within the
// horizon. Projections expire on their own after a day; stock keeps moving.
func projectionRule(items []core.InventoryItem, history []core.HistoryEntry, horizon time.Duration, now time.Time) []core.Notification {
	if horizon <= 0 {
		return nil
	}

	consumed := make(map[string]float64)
	cutoff := now.Add(-projectionWindow)
	for _, entry := range history {
		if entry.ItemID == "" || entry.Delta >= 0 || entry.At.Before(cutoff) {
			continue
		}
		consumed[entry.ItemID] += -entry.Delta
	}

	days := projectionWindow.Hours() / 24
	var out []core.Notification
	for _, item := range items {
		if item.ID == "" || item.Quantity <= item.Threshold {
			continue // already covered by the low stock rule
		}
		perDay := consumed[item.ID] / days
		if perDay <= 0 {
			continue
		}

		daysLeft := item.Quantity / perDay
		if daysLeft > horizon.Hours()/24 {
			continue
		}

		expires := now.Add(24 * time.Hour)
		out = append(out, core.Notification{
			ID:            uuid.NewString(),
			Type:          TypeStockProjection,
			Title:         fmt.Sprintf("%s will run out soon", item.Name),
			Message:       fmt.Sprintf("At the current pace %s lasts about %.1f more days.", item.Name, daysLeft),
			Timestamp:     now,
			Priority:      core.PriorityLow,
			RelatedItemID: item.ID,
			ExpiresAt:     &expires,
		})
	}
	return out
}

func unitOrDefault(unit string) string {
	if unit == "" {
		return "units"
	}
	return unit
}
