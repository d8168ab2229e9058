// Package barflow is the Composition Root for the BarFlow local core.
//
// It connects the durable key-value store (Persistence Layer) with the
// reactive bindings, the change event bus, the offline sync queue and the
// alert aggregator that the point-of-sale layer builds on.
//
// Philosophy:
//
// BarFlow treats the device as the source of truth. Every operation succeeds
// locally first; remote synchronization is an eventually-consistent background
// concern handled by the outbox. The storage engine is chosen once at open
// time, so a session never straddles two backends.
//
// Features:
//
//   - **Single Authoritative Engine**: SQLite by default, flat files as the
//     fallback, with a one-time migration from legacy flat-file records.
//   - **Reactive Bindings**: TTL-cached, optimistic key bindings with a
//     deferred write queue (`Bind[T]`).
//   - **Change Events**: Synchronous per-key change notifications with glob
//     pattern subscriptions.
//   - **Offline Sync Queue**: Persisted FIFO of remote mutations, at-least-once
//     delivery with idempotency keys, failures skip without blocking.
//   - **Derived Alerts**: Low-stock and projection notifications recomputed
//     from the stored snapshot, deduplicated while unread.
//
// Usage:
//
//	// Open the app rooted at a data directory
//	app, err := barflow.Open("./data",
//		barflow.WithLogger(logger),
//		barflow.WithRemoteURL("https://api.example.com/sync", token),
//	)
//
//	// Bind a key and save optimistically
//	balance := barflow.Bind(app, core.KeyCashBalance, 0.0)
//	err = balance.Save(ctx, 125.50)
package barflow
