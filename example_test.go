package barflow_test

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/barflowtrack/barflow"
	"github.com/barflowtrack/barflow/pkg/core"
)

// Example_basic demonstrates opening the app, binding a key, and reading the
// optimistic value back.
func Example_basic() {
	// Create a temporary directory for the example
	tmpDir, err := os.MkdirTemp("", "barflow-example-*")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	// Open the app targeting the temporary directory. The file engine avoids
	// the database dependency in this small example.
	app, err := barflow.Open(tmpDir, barflow.WithEngine("file"))
	if err != nil {
		log.Fatal(err)
	}
	defer app.Close()

	ctx := context.Background()

	// 1. Bind the cash balance with a fallback of zero
	balance := barflow.Bind(app, core.KeyCashBalance, 0.0)

	// 2. Save optimistically; the durable write happens in the background
	if err := balance.Save(ctx, 125.50); err != nil {
		log.Fatal(err)
	}

	// 3. Read it back; the fresh snapshot is served from memory
	value, err := balance.Load(ctx)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Balance: %.2f\n", value)
	// Output:
	// Balance: 125.50
}

// ExampleCollection demonstrates the typed collection view over a stored key.
func ExampleCollection() {
	tmpDir, err := os.MkdirTemp("", "barflow-collection-example-*")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	app, err := barflow.Open(tmpDir, barflow.WithEngine("file"))
	if err != nil {
		log.Fatal(err)
	}
	defer app.Close()

	ctx := context.Background()

	// The inventory collection, keyed by item ID
	inventory := barflow.Inventory(app)

	err = inventory.Upsert(ctx, core.InventoryItem{
		ID:        "gin-001",
		Name:      "London Dry Gin",
		Quantity:  12,
		Threshold: 3,
		Unit:      "bottle",
	})
	if err != nil {
		log.Fatal(err)
	}

	item, _, err := inventory.Find(ctx, "gin-001")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Item: %s (%v %s)\n", item.Name, item.Quantity, item.Unit)
	// Output:
	// Item: London Dry Gin (12 bottle)
}
