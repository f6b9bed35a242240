package store_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevemurr/simple-settings-store/store"
)

// recorder collects change batches delivered to a subscriber.
type recorder struct {
	mu      sync.Mutex
	batches []store.ChangeSet
}

func (r *recorder) listen(cs store.ChangeSet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, cs)
}

func (r *recorder) take() []store.ChangeSet {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.batches
	r.batches = nil
	return out
}

// runStoreTests runs a common test suite against any Store implementation.
func runStoreTests(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("Get empty document", func(t *testing.T) {
		doc, err := s.Get(ctx)
		require.NoError(t, err)
		assert.Empty(t, doc)
	})

	t.Run("Set and Get", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, map[string]any{
			"enabled": true,
			"options": map[string]any{"theme": "dark", "count": 42},
		}))
		got, err := s.Get(ctx, "options")
		require.NoError(t, err)
		assert.Equal(t, map[string]any{
			"options": map[string]any{"theme": "dark", "count": float64(42)},
		}, got)
	})

	t.Run("Get missing key", func(t *testing.T) {
		got, err := s.Get(ctx, "missing")
		require.NoError(t, err)
		assert.NotContains(t, got, "missing")
	})

	t.Run("Get returns copies", func(t *testing.T) {
		got, err := s.Get(ctx, "options")
		require.NoError(t, err)
		got["options"].(map[string]any)["theme"] = "mutated"

		again, err := s.Get(ctx, "options")
		require.NoError(t, err)
		assert.Equal(t, "dark", again["options"].(map[string]any)["theme"])
	})

	t.Run("Set overwrites", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, map[string]any{"enabled": false}))
		got, err := s.Get(ctx, "enabled")
		require.NoError(t, err)
		assert.Equal(t, false, got["enabled"])
	})

	t.Run("Get whole document", func(t *testing.T) {
		doc, err := s.Get(ctx)
		require.NoError(t, err)
		assert.Len(t, doc, 2)
		assert.Contains(t, doc, "enabled")
		assert.Contains(t, doc, "options")
	})

	t.Run("Remove", func(t *testing.T) {
		require.NoError(t, s.Remove(ctx, "enabled", "never-existed"))
		doc, err := s.Get(ctx)
		require.NoError(t, err)
		assert.NotContains(t, doc, "enabled")
		assert.Contains(t, doc, "options")
	})

	t.Run("Clear", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, map[string]any{"a": 1, "b": "two"}))
		require.NoError(t, s.Clear(ctx))
		doc, err := s.Get(ctx)
		require.NoError(t, err)
		assert.Empty(t, doc)
	})

	t.Run("Change feed", func(t *testing.T) {
		rec := &recorder{}
		cancel := s.Subscribe(rec.listen)

		require.NoError(t, s.Set(ctx, map[string]any{"k1": 1, "k2": "x"}))
		batches := rec.take()
		require.Len(t, batches, 1)
		assert.Equal(t, store.ChangeSet{
			"k1": {NewValue: float64(1)},
			"k2": {NewValue: "x"},
		}, batches[0])

		// Rewriting an identical value is not a change.
		require.NoError(t, s.Set(ctx, map[string]any{"k1": 1, "k2": "y"}))
		batches = rec.take()
		require.Len(t, batches, 1)
		assert.Equal(t, store.ChangeSet{"k2": {OldValue: "x", NewValue: "y"}}, batches[0])

		require.NoError(t, s.Remove(ctx, "k1", "absent"))
		batches = rec.take()
		require.Len(t, batches, 1)
		assert.Equal(t, store.ChangeSet{"k1": {OldValue: float64(1)}}, batches[0])

		require.NoError(t, s.Clear(ctx))
		batches = rec.take()
		require.Len(t, batches, 1)
		assert.Equal(t, store.ChangeSet{"k2": {OldValue: "y"}}, batches[0])

		cancel()
		require.NoError(t, s.Set(ctx, map[string]any{"k3": true}))
		assert.Empty(t, rec.take())
		require.NoError(t, s.Clear(ctx))
	})

	t.Run("Change feed follows write order", func(t *testing.T) {
		rec := &recorder{}
		cancel := s.Subscribe(rec.listen)
		defer cancel()

		var wg sync.WaitGroup
		for i := range 16 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, s.Set(ctx, map[string]any{"race": i}))
			}()
		}
		wg.Wait()

		batches := rec.take()
		require.Len(t, batches, 16)
		var prev any
		for _, b := range batches {
			c := b["race"]
			assert.Equal(t, prev, c.OldValue)
			prev = c.NewValue
		}
		got, err := s.Get(ctx, "race")
		require.NoError(t, err)
		assert.Equal(t, got["race"], prev)
		require.NoError(t, s.Clear(ctx))
	})

	t.Run("Unencodable value", func(t *testing.T) {
		err := s.Set(ctx, map[string]any{"bad": make(chan int)})
		require.Error(t, err)
		doc, err := s.Get(ctx)
		require.NoError(t, err)
		assert.NotContains(t, doc, "bad")
	})
}

func TestMemoryStore(t *testing.T) {
	s := store.NewMemoryStore()
	runStoreTests(t, s)
}

func TestJsonFileStore(t *testing.T) {
	dir := t.TempDir()
	s, err := store.NewJsonFileStore(dir, "local")
	require.NoError(t, err)
	runStoreTests(t, s)
}

func TestSqliteStore(t *testing.T) {
	dir := t.TempDir()
	s, err := store.NewSqliteStore(filepath.Join(dir, "test.db"), "local")
	require.NoError(t, err)
	defer s.Close()
	runStoreTests(t, s)
}

func TestPebbleStore(t *testing.T) {
	dir := t.TempDir()
	s, err := store.NewPebbleStore(filepath.Join(dir, "local.pebble"))
	require.NoError(t, err)
	defer s.Close()
	runStoreTests(t, s)
}

func TestFactory(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		backend string
	}{
		{"json"},
		{"sqlite"},
		{"pebble"},
		{"memory"},
		{""},
	}
	for _, tc := range tests {
		t.Run(tc.backend, func(t *testing.T) {
			s, err := store.New(tc.backend, filepath.Join(dir, tc.backend), "local")
			require.NoError(t, err)
			require.NoError(t, s.Close())
		})
	}

	t.Run("unknown", func(t *testing.T) {
		_, err := store.New("redis", dir, "local")
		assert.Error(t, err)
	})
}

func TestJsonFileStoreAreas(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	local, err := store.NewJsonFileStore(dir, "local")
	require.NoError(t, err)
	synced, err := store.NewJsonFileStore(dir, "sync")
	require.NoError(t, err)

	require.NoError(t, local.Set(ctx, map[string]any{"x": 1}))
	require.NoError(t, synced.Set(ctx, map[string]any{"x": 2}))

	l, _ := local.Get(ctx, "x")
	s, _ := synced.Get(ctx, "x")
	assert.Equal(t, float64(1), l["x"])
	assert.Equal(t, float64(2), s["x"])

	_, err = os.Stat(filepath.Join(dir, "local.json"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "sync.json"))
	assert.NoError(t, err)

	// No temporary files survive a write.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestJsonFileStoreCorruptDocument(t *testing.T) {
	dir := t.TempDir()
	s, err := store.NewJsonFileStore(dir, "local")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(s.Path(), []byte("{not json"), 0o644))

	_, err = s.Get(context.Background())
	assert.Error(t, err)
}

func TestSqliteStoreSharedFile(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "settings.db")
	local, err := store.NewSqliteStore(dbPath, "local")
	require.NoError(t, err)
	defer local.Close()
	synced, err := store.NewSqliteStore(dbPath, "sync")
	require.NoError(t, err)
	defer synced.Close()

	require.NoError(t, local.Set(ctx, map[string]any{"x": "local"}))
	require.NoError(t, synced.Set(ctx, map[string]any{"x": "sync"}))
	require.NoError(t, synced.Clear(ctx))

	l, err := local.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": "local"}, l)
}

func TestPebbleStoreReopen(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "local.pebble")
	s, err := store.NewPebbleStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, map[string]any{"preferences": map[string]any{"theme": "dark"}}))
	require.NoError(t, s.Close())

	_, err = s.Get(ctx)
	assert.ErrorIs(t, err, store.ErrClosed)

	s, err = store.NewPebbleStore(dir)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get(ctx, "preferences")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"theme": "dark"}, got["preferences"])
}
