// Package store keeps the small amount of state that outlives a session: the
// hostname and transport security remembered for each camera slot.
package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

// ErrNotFound is returned by Get when a key has never been written
var ErrNotFound = errors.New("key not found")

// KV is a flat durable string key-value store
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// HostnameKey and SecurityKey name the persisted entries for a camera slot
func HostnameKey(index int) string { return fmt.Sprintf("camerahostname_%d", index) }
func SecurityKey(index int) string { return fmt.Sprintf("camerasecurity_%d", index) }

// SaveCamera remembers the hostname and security flag for a slot
func SaveCamera(ctx context.Context, kv KV, index int, hostname string, secure bool) error {
	if err := kv.Set(ctx, HostnameKey(index), hostname); err != nil {
		return err
	}
	return kv.Set(ctx, SecurityKey(index), strconv.FormatBool(secure))
}

// LoadCamera returns what was remembered for a slot. A slot that was never
// saved yields an empty hostname and no error.
func LoadCamera(ctx context.Context, kv KV, index int) (hostname string, secure bool, err error) {
	hostname, err = kv.Get(ctx, HostnameKey(index))
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	sec, err := kv.Get(ctx, SecurityKey(index))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return "", false, err
	}
	secure, _ = strconv.ParseBool(sec)
	return hostname, secure, nil
}

// Open picks a backend by driver name: "sqlite" (path is a file), "postgres"
// (path is a DSN) or "memory".
func Open(ctx context.Context, driver, path string) (KV, error) {
	switch driver {
	case "", "sqlite":
		return NewSQLite(path)
	case "postgres":
		return NewPostgres(ctx, path)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}
