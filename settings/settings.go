// Package settings is a persistent key-value settings store over two
// independent documents, with serialized, path-addressable updates.
//
// Every Update, on either area, goes through one FIFO queue: an update reads
// its root key only after the previous update's write has landed, so
// concurrent patches to the same root key never lose each other's changes.
// Plain Set, Get, Remove and Clear calls are not queued.
package settings

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/stevemurr/simple-settings-store/schema"
	"github.com/stevemurr/simple-settings-store/store"
)

// Well-known root keys.
const (
	PreferencesKey = "preferences"
	AthleteInfoKey = "athlete_info"
)

// Store is the settings store. Its own data methods address the Local area;
// use Area to reach the Sync area. All methods are safe for concurrent use.
type Store struct {
	*Scope

	backends [2]store.Store
	queue    *updateQueue
	schemas  schema.Registry
	log      zerolog.Logger
}

// Scope is the view of a Store bound to one area.
type Scope struct {
	s    *Store
	area Area
}

// New creates a Store over the local and sync backends. sync may be nil, in
// which case operations on the Sync area fail with ErrAreaUnavailable.
func New(local, sync store.Store, opts ...Option) *Store {
	s := &Store{
		backends: [2]store.Store{local, sync},
		queue:    newUpdateQueue(),
		log:      zerolog.Nop(),
	}
	s.Scope = &Scope{s: s, area: Local}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Area returns the scope for a.
func (s *Store) Area(a Area) *Scope {
	return &Scope{s: s, area: a}
}

// Close waits for queued updates to finish and stops the update queue.
// Backends are owned by the caller and are not closed.
func (s *Store) Close() error {
	s.queue.close()
	return nil
}

// Area returns the area this scope is bound to.
func (sc *Scope) Area() Area {
	return sc.area
}

func (sc *Scope) backend() (store.Store, error) {
	if sc.area != Local && sc.area != Sync {
		return nil, fmt.Errorf("%w: %v", ErrAreaUnavailable, sc.area)
	}
	b := sc.s.backends[sc.area]
	if b == nil {
		return nil, fmt.Errorf("%w: %v", ErrAreaUnavailable, sc.area)
	}
	return b, nil
}

// Get returns the value stored under key, or nil if it is absent.
func (sc *Scope) Get(ctx context.Context, key string) (any, error) {
	b, err := sc.backend()
	if err != nil {
		return nil, err
	}
	doc, err := b.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("settings: get %q: %w", key, err)
	}
	return doc[key], nil
}

// Lookup returns the value stored under key and whether the key exists, so
// a stored null can be told apart from an absent key.
func (sc *Scope) Lookup(ctx context.Context, key string) (value any, ok bool, err error) {
	b, err := sc.backend()
	if err != nil {
		return nil, false, err
	}
	doc, err := b.Get(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("settings: get %q: %w", key, err)
	}
	value, ok = doc[key]
	return value, ok, nil
}

// GetAll returns the entire document.
func (sc *Scope) GetAll(ctx context.Context) (map[string]any, error) {
	b, err := sc.backend()
	if err != nil {
		return nil, err
	}
	doc, err := b.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("settings: get %v document: %w", sc.area, err)
	}
	return doc, nil
}

// Set stores value under key. Setting Undefined removes the key.
func (sc *Scope) Set(ctx context.Context, key string, value any) error {
	return sc.SetMany(ctx, map[string]any{key: value})
}

// SetMany stores every entry of items. Entries whose value is Undefined are
// removed rather than written.
func (sc *Scope) SetMany(ctx context.Context, items map[string]any) error {
	b, err := sc.backend()
	if err != nil {
		return err
	}
	removes := lo.Keys(lo.PickBy(items, func(_ string, v any) bool { return isUndefined(v) }))
	sets := lo.OmitBy(items, func(_ string, v any) bool { return isUndefined(v) })
	return sc.s.write(ctx, b, sets, removes)
}

// Remove deletes keys from the document. Missing keys are ignored.
func (sc *Scope) Remove(ctx context.Context, keys ...string) error {
	b, err := sc.backend()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	if err := b.Remove(ctx, keys...); err != nil {
		return fmt.Errorf("settings: remove %v: %w", keys, err)
	}
	return nil
}

// Clear erases the entire document.
func (sc *Scope) Clear(ctx context.Context) error {
	b, err := sc.backend()
	if err != nil {
		return err
	}
	if err := b.Clear(ctx); err != nil {
		return fmt.Errorf("settings: clear %v: %w", sc.area, err)
	}
	return nil
}

// Update shallow-merges patch into the object at keyPath and returns the
// merged object. Missing or null containers along the path are created.
// Updates are serialized across both areas.
func (sc *Scope) Update(ctx context.Context, keyPath string, patch Patch) (map[string]any, error) {
	p, err := ParseKeyPath(keyPath)
	if err != nil {
		return nil, err
	}
	return sc.UpdatePath(ctx, p, patch)
}

// UpdatePath is Update with an already parsed path.
func (sc *Scope) UpdatePath(ctx context.Context, p KeyPath, patch Patch) (map[string]any, error) {
	if len(p) == 0 || lo.Contains(p, "") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, p.String())
	}
	b, err := sc.backend()
	if err != nil {
		return nil, err
	}
	if depth := sc.s.queue.depth(); depth > 0 {
		sc.s.log.Debug().Str("path", p.String()).Int("queued", depth).Msg("update waiting")
	}
	return sc.s.queue.submit(ctx, func(ctx context.Context) (map[string]any, error) {
		return sc.s.applyUpdate(ctx, sc.area, b, p, patch)
	})
}

// AddListener calls fn once per changed key for every change batch the
// backend reports, in key order. The returned func removes the listener.
func (sc *Scope) AddListener(fn func(key string, newValue, oldValue any)) (remove func(), err error) {
	b, err := sc.backend()
	if err != nil {
		return nil, err
	}
	return b.Subscribe(func(changes store.ChangeSet) {
		keys := lo.Keys(map[string]store.Change(changes))
		sort.Strings(keys)
		for _, k := range keys {
			c := changes[k]
			fn(k, c.NewValue, c.OldValue)
		}
	}), nil
}

// GetPreference reads a dot-delimited path below the preferences key. It
// returns nil as soon as the walk meets a missing or null value.
func (s *Store) GetPreference(ctx context.Context, path string) (any, error) {
	prefs, err := s.Get(ctx, PreferencesKey)
	if err != nil {
		return nil, err
	}
	return lookup(prefs, strings.Split(path, ".")), nil
}

// SetPreference sets the preference at a dot-delimited path. The last
// segment is written into the object addressed by the preceding ones.
func (s *Store) SetPreference(ctx context.Context, path string, value any) error {
	if path == "" {
		return fmt.Errorf("%w: empty preference path", ErrInvalidArgument)
	}
	segs, err := ParseKeyPath(path)
	if err != nil {
		return err
	}
	leaf := segs[len(segs)-1]
	target := append(KeyPath{PreferencesKey}, segs[:len(segs)-1]...)
	_, err = s.UpdatePath(ctx, target, Patch{leaf: value})
	return err
}

// GetAthleteInfo returns the stored info for athlete id, or nil.
func (s *Store) GetAthleteInfo(ctx context.Context, id string) (map[string]any, error) {
	all, err := s.Get(ctx, AthleteInfoKey)
	if err != nil {
		return nil, err
	}
	info, _ := lookup(all, []string{id}).(map[string]any)
	return info, nil
}

// UpdateAthleteInfo merges patch into the info for athlete id.
func (s *Store) UpdateAthleteInfo(ctx context.Context, id string, patch Patch) (map[string]any, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty athlete id", ErrInvalidArgument)
	}
	return s.UpdatePath(ctx, KeyPath{AthleteInfoKey}.Child(id), patch)
}

// write validates and persists sets, removing removes first.
func (s *Store) write(ctx context.Context, b store.Store, sets map[string]any, removes []string) error {
	values := make(map[string]any, len(sets))
	for k, v := range sets {
		nv, err := normalize(v)
		if err != nil {
			return fmt.Errorf("settings: set %q: %w", k, err)
		}
		if err := s.schemas.Check(k, nv); err != nil {
			return fmt.Errorf("settings: set %q: %w", k, err)
		}
		values[k] = nv
	}
	if len(removes) > 0 {
		if err := b.Remove(ctx, removes...); err != nil {
			return fmt.Errorf("settings: remove %v: %w", removes, err)
		}
	}
	if len(values) > 0 {
		if err := b.Set(ctx, values); err != nil {
			return fmt.Errorf("settings: set %v: %w", lo.Keys(values), err)
		}
	}
	return nil
}

// applyUpdate is the body of one queued update: read the root key, merge
// the patch at the path, write the root value back.
func (s *Store) applyUpdate(ctx context.Context, area Area, b store.Store, p KeyPath, patch Patch) (map[string]any, error) {
	start := time.Now()
	root := p.Root()

	doc, err := b.Get(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("settings: update %q: %w", p, err)
	}
	rootObj, err := asObject(doc[root], root)
	if err != nil {
		return nil, fmt.Errorf("settings: update %q: %w", p, err)
	}
	ref, err := vivify(rootObj, p)
	if err != nil {
		return nil, fmt.Errorf("settings: update %q: %w", p, err)
	}
	for k, v := range patch {
		if isUndefined(v) {
			delete(ref, k)
			continue
		}
		ref[k] = v
	}

	if err := s.write(ctx, b, map[string]any{root: rootObj}, nil); err != nil {
		s.log.Debug().Err(err).Str("path", p.String()).Stringer("area", area).Msg("update failed")
		return nil, err
	}

	// Return a fresh copy of what was written, not the working tree.
	merged, err := normalize(ref)
	if err != nil {
		return nil, err
	}
	s.log.Debug().
		Str("path", p.String()).
		Stringer("area", area).
		Dur("took", time.Since(start)).
		Msg("update applied")
	return merged.(map[string]any), nil
}
