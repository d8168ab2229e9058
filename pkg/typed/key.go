package typed

import "context"

// Get reads one key into a value of T. The boolean reports whether a usable
// value was stored; otherwise the zero value is returned.
func Get[T any](ctx context.Context, store Store, key string) (T, bool, error) {
	var value T
	ok, err := store.Get(ctx, key, &value)
	return value, ok, err
}

// GetOr reads one key, falling back to the given default when nothing usable
// is stored.
func GetOr[T any](ctx context.Context, store Store, key string, fallback T) (T, error) {
	var value T
	ok, err := store.Get(ctx, key, &value)
	if err != nil || !ok {
		return fallback, err
	}
	return value, nil
}

// Set writes a typed value under one key.
func Set[T any](ctx context.Context, store Store, key string, value T) error {
	return store.Set(ctx, key, value)
}
