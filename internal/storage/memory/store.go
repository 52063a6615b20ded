// Package memory provides an in-process key/value store with failure injection for tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
)

type Store struct {
	mu    sync.Mutex
	items map[string]string

	// FailGet, FailSet and FailRemove, when non-nil, are returned by the matching operations
	FailGet    error
	FailSet    error
	FailRemove error

	// Writes counts successful SetItem/SetItems calls
	Writes int
}

func New() *Store {
	return &Store{items: make(map[string]string)}
}

// NewWithItems seeds the store
func NewWithItems(items map[string]string) *Store {
	s := New()
	for k, v := range items {
		s.items[k] = v
	}
	return s
}

func (s *Store) Init() error  { return nil }
func (s *Store) Load() error  { return nil }
func (s *Store) Close() error { return nil }

func (s *Store) GetConfigPath() string {
	return ":memory:"
}

// SetFailures replaces all injected errors at once
func (s *Store) SetFailures(get, set, remove error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FailGet, s.FailSet, s.FailRemove = get, set, remove
}

func (s *Store) GetItem(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailGet != nil {
		return "", false, s.FailGet
	}
	v, ok := s.items[key]
	return v, ok, nil
}

func (s *Store) SetItem(ctx context.Context, key, value string) error {
	return s.SetItems(ctx, map[string]string{key: value})
}

func (s *Store) SetItems(ctx context.Context, items map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSet != nil {
		return s.FailSet
	}
	for k, v := range items {
		s.items[k] = v
	}
	s.Writes++
	return nil
}

func (s *Store) RemoveItems(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailRemove != nil {
		return s.FailRemove
	}
	for _, k := range keys {
		delete(s.items, k)
	}
	return nil
}

func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailGet != nil {
		return nil, s.FailGet
	}
	var keys []string
	for k := range s.items {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Snapshot returns a copy of the stored items, bypassing injected failures
func (s *Store) Snapshot() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.items))
	for k, v := range s.items {
		out[k] = v
	}
	return out
}
