// Record is the central entity of the domain.
package core

import (
	"encoding/json"
	"time"
)

// Record represents a stored value identified by its key.
// Values are opaque JSON; structure is imposed by the application layer,
// not by the store.
type Record struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	Timestamp time.Time       `json:"timestamp"`
}

// EventType represents the type of change to a key.
type EventType string

const (
	EventSet    EventType = "SET"
	EventRemove EventType = "REMOVE"
	EventImport EventType = "IMPORT"
)

// Event represents a change to a key's value.
// It is dispatched synchronously to subscribers after the write lands.
type Event struct {
	Type      EventType
	Key       string
	Value     json.RawMessage
	Timestamp int64 // Unix timestamp
}

// String implements fmt.Stringer (and lifecycle.Event).
func (e Event) String() string {
	return string(e.Type) + " " + e.Key
}

// Priority classifies how urgently a notification should surface.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Notification is a derived alert surfaced to the user-facing layer.
// Identity for deduplication purposes is (Type, RelatedItemID): no two
// unread notifications with the same identity may coexist.
type Notification struct {
	ID            string     `json:"id"`
	Type          string     `json:"type"`
	Title         string     `json:"title"`
	Message       string     `json:"message"`
	Timestamp     time.Time  `json:"timestamp"`
	Read          bool       `json:"read"`
	Priority      Priority   `json:"priority"`
	RelatedItemID string     `json:"relatedItemId,omitempty"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
}

// Valid reports whether the notification carries the required fields.
// Malformed records pulled from storage are filtered out, not surfaced.
func (n Notification) Valid() bool {
	return n.ID != "" && n.Type != "" && n.Title != ""
}

// Expired reports whether the notification has passed its expiry, if any.
func (n Notification) Expired(now time.Time) bool {
	return n.ExpiresAt != nil && now.After(*n.ExpiresAt)
}

// Operation is the kind of remote mutation carried by a sync item.
type Operation string

const (
	OpInsert Operation = "insert"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// SyncItem is one pending remote mutation in the offline outbox.
// The IdempotencyKey is generated client-side so the remote can deduplicate
// retried deliveries; the item itself is otherwise immutable once queued.
type SyncItem struct {
	ID             string          `json:"id"`
	Table          string          `json:"table_name"`
	Op             Operation       `json:"operation"`
	Data           json.RawMessage `json:"data"`
	Timestamp      time.Time       `json:"timestamp"`
	IdempotencyKey string          `json:"idempotency_key"`
}

// Well-known keys of the application namespace. The store itself is
// schema-agnostic; these are the keys the domain layer agrees on.
const (
	KeyInventory        = "inventory"
	KeySales            = "sales"
	KeyStaff            = "staff"
	KeySettings         = "settings"
	KeyCategories       = "categories"
	KeyTables           = "tables"
	KeyCashBalance      = "cashBalance"
	KeyCashTransactions = "cashTransactions"
	KeyInventoryHistory = "inventoryHistory"
	KeyNotifications    = "notifications"
	KeySyncQueue        = "syncQueue"
	KeyAppLog           = "appLog"
)

// InventoryItem is the inventory shape the aggregators understand.
type InventoryItem struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	Threshold float64 `json:"threshold"`
	Unit      string  `json:"unit,omitempty"`
	Price     float64 `json:"price,omitempty"`
}

// Sale records a single sale of an inventory item.
type Sale struct {
	ID       string    `json:"id"`
	ItemID   string    `json:"itemId"`
	Quantity float64   `json:"quantity"`
	Total    float64   `json:"total"`
	At       time.Time `json:"at"`
}

// HistoryEntry records a stock movement, used for consumption-rate predictions.
type HistoryEntry struct {
	ItemID string    `json:"itemId"`
	Delta  float64   `json:"delta"` // negative for consumption
	At     time.Time `json:"at"`
}
