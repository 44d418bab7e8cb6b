// Package selstore persists the last applied tag selection per document.
// Persistence is best-effort by contract: a missing or failing backend
// degrades to "nothing restored / nothing saved" and must never stop
// the filter from working.
package selstore

import (
	"context"
	"strings"
)

// Store is the selection persistence contract. Load returns an empty
// selection when the key is absent.
type Store interface {
	Load(ctx context.Context, key string) ([]string, error)
	Save(ctx context.Context, key string, tags []string) error
	Close() error
}

// Open picks a backend from the location string: empty means no
// persistence, an http(s) URL means the remote KV service, a SQLite
// database extension means SQLite, anything else a JSON file.
func Open(location string) (Store, error) {
	switch {
	case location == "":
		return NullStore{}, nil
	case strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://"):
		return NewHTTPStore(location, ""), nil
	case strings.HasSuffix(location, ".db") || strings.HasSuffix(location, ".sqlite") || strings.HasSuffix(location, ".sqlite3"):
		return NewSQLiteStore(location)
	default:
		return NewFileStore(location), nil
	}
}

// NullStore is the degraded no-persistence backend.
type NullStore struct{}

func (NullStore) Load(ctx context.Context, key string) ([]string, error) { return nil, nil }

func (NullStore) Save(ctx context.Context, key string, tags []string) error { return nil }

func (NullStore) Close() error { return nil }
