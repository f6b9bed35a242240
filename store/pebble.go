package store

import (
	"context"
	"errors"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/samber/lo"
)

// PebbleStore keeps one document in a Pebble database directory. Each
// top-level key is a Pebble key and its value is the JSON encoding.
type PebbleStore struct {
	feed
	mu     sync.RWMutex
	db     *pebble.DB
	closed bool
}

func NewPebbleStore(dir string) (*PebbleStore, error) {
	opts := &pebble.Options{
		Cache:        pebble.NewCache(8 << 20),
		MemTableSize: 4 << 20,
	}
	defer opts.Cache.Unref()

	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, err
	}
	return &PebbleStore{db: db}, nil
}

func (p *PebbleStore) getLocked(key string) (any, bool, error) {
	raw, closer, err := p.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer closer.Close()
	v, err := decodeValue(raw)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (p *PebbleStore) loadLocked(keys []string) (map[string]any, error) {
	result := make(map[string]any)
	if len(keys) > 0 {
		for _, k := range keys {
			v, ok, err := p.getLocked(k)
			if err != nil {
				return nil, err
			}
			if ok {
				result[k] = v
			}
		}
		return result, nil
	}

	iter, err := p.db.NewIter(nil)
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	for iter.First(); iter.Valid(); iter.Next() {
		raw, err := iter.ValueAndErr()
		if err != nil {
			return nil, err
		}
		v, err := decodeValue(raw)
		if err != nil {
			return nil, err
		}
		result[string(iter.Key())] = v
	}
	return result, iter.Error()
}

func (p *PebbleStore) Get(_ context.Context, keys ...string) (map[string]any, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil, ErrClosed
	}
	return p.loadLocked(lo.Uniq(keys))
}

func (p *PebbleStore) Set(_ context.Context, items map[string]any) error {
	if len(items) == 0 {
		return nil
	}
	encoded := make(map[string][]byte, len(items))
	normalized := make(map[string]any, len(items))
	for k, v := range items {
		b, err := encodeValue(v)
		if err != nil {
			return err
		}
		encoded[k] = b
		if normalized[k], err = decodeValue(b); err != nil {
			return err
		}
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	old, err := p.loadLocked(lo.Keys(items))
	if err != nil {
		p.mu.Unlock()
		return err
	}
	batch := p.db.NewBatch()
	for k, b := range encoded {
		if err := batch.Set([]byte(k), b, nil); err != nil {
			batch.Close()
			p.mu.Unlock()
			return err
		}
	}
	err = batch.Commit(pebble.Sync)
	batch.Close()
	if err != nil {
		p.mu.Unlock()
		return err
	}
	p.enqueue(diffSet(old, normalized))
	p.mu.Unlock()

	p.flush()
	return nil
}

func (p *PebbleStore) deleteLocked(keys []string) error {
	batch := p.db.NewBatch()
	defer batch.Close()
	for _, k := range keys {
		if err := batch.Delete([]byte(k), nil); err != nil {
			return err
		}
	}
	return batch.Commit(pebble.Sync)
}

func (p *PebbleStore) Remove(_ context.Context, keys ...string) error {
	keys = lo.Uniq(keys)
	if len(keys) == 0 {
		return nil
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	old, err := p.loadLocked(keys)
	if err == nil {
		err = p.deleteLocked(keys)
	}
	if err != nil {
		p.mu.Unlock()
		return err
	}
	p.enqueue(diffRemove(old, keys))
	p.mu.Unlock()

	p.flush()
	return nil
}

func (p *PebbleStore) Clear(_ context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	old, err := p.loadLocked(nil)
	if err == nil && len(old) > 0 {
		err = p.deleteLocked(lo.Keys(old))
	}
	if err != nil {
		p.mu.Unlock()
		return err
	}
	p.enqueue(diffRemove(old, lo.Keys(old)))
	p.mu.Unlock()

	p.flush()
	return nil
}

func (p *PebbleStore) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.db.Close()
}
