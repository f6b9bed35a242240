package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// JsonFileStore stores one document as a single JSON file on disk.
//
// Layout:
//
//	data_dir/
//	  local.json   # "local" document
//	  sync.json    # "sync" document
//
// Every write replaces the file through a temporary file and a rename, so a
// crash leaves either the old or the new document, never a torn one.
type JsonFileStore struct {
	feed
	mu   sync.RWMutex
	path string
}

func NewJsonFileStore(dir, name string) (*JsonFileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &JsonFileStore{path: filepath.Join(dir, name+".json")}, nil
}

// Path returns the file backing the document.
func (s *JsonFileStore) Path() string {
	return s.path
}

func (s *JsonFileStore) load() (map[string]any, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]any{}, nil
		}
		return nil, err
	}
	doc := map[string]any{}
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("store: corrupt document %s: %w", s.path, err)
	}
	return doc, nil
}

func (s *JsonFileStore) save(doc map[string]any) error {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

func (s *JsonFileStore) Get(_ context.Context, keys ...string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return doc, nil
	}
	result := make(map[string]any, len(keys))
	for _, k := range keys {
		if v, ok := doc[k]; ok {
			result[k] = v
		}
	}
	return result, nil
}

func (s *JsonFileStore) Set(_ context.Context, items map[string]any) error {
	normalized := make(map[string]any, len(items))
	for k, v := range items {
		c, err := cloneValue(v)
		if err != nil {
			return err
		}
		normalized[k] = c
	}

	s.mu.Lock()
	doc, err := s.load()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	changes := diffSet(doc, normalized)
	for k, v := range normalized {
		doc[k] = v
	}
	if err := s.save(doc); err != nil {
		s.mu.Unlock()
		return err
	}
	s.enqueue(changes)
	s.mu.Unlock()

	s.flush()
	return nil
}

func (s *JsonFileStore) Remove(_ context.Context, keys ...string) error {
	s.mu.Lock()
	doc, err := s.load()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	changes := diffRemove(doc, keys)
	if len(changes) == 0 {
		s.mu.Unlock()
		return nil
	}
	for _, k := range keys {
		delete(doc, k)
	}
	if err := s.save(doc); err != nil {
		s.mu.Unlock()
		return err
	}
	s.enqueue(changes)
	s.mu.Unlock()

	s.flush()
	return nil
}

func (s *JsonFileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	doc, err := s.load()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if err := s.save(map[string]any{}); err != nil {
		s.mu.Unlock()
		return err
	}
	changes := ChangeSet{}
	for k, v := range doc {
		changes[k] = Change{OldValue: v}
	}
	s.enqueue(changes)
	s.mu.Unlock()

	s.flush()
	return nil
}

func (s *JsonFileStore) Close() error {
	return nil
}
