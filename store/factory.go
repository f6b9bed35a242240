package store

import (
	"fmt"
	"path/filepath"
)

// New creates the Store for one named document (area) based on the backend name.
//
// Supported backends:
//
//	"json"   - dataDir/<area>.json (default)
//	"sqlite" - SQLite database at dataDir/settings.db, shared by all areas
//	"pebble" - Pebble database at dataDir/<area>.pebble
//	"memory" - In-memory (ephemeral, for testing)
func New(backend, dataDir, area string) (Store, error) {
	switch backend {
	case "json", "":
		return NewJsonFileStore(dataDir, area)
	case "sqlite":
		return NewSqliteStore(filepath.Join(dataDir, "settings.db"), area)
	case "pebble":
		return NewPebbleStore(filepath.Join(dataDir, area+".pebble"))
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %q (supported: json, sqlite, pebble, memory)", backend)
	}
}
