package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/julianstephens/dytgt/internal/constants"
)

const jsonStoreVersion = 1

type jsonDocument struct {
	Version int               `json:"version"`
	Items   map[string]string `json:"items"`
}

// JSONStore keeps every item in a single JSON file, rewritten atomically on each change
type JSONStore struct {
	mu   sync.Mutex
	path string
	doc  *jsonDocument
}

func NewJSONStore(configPath string) *JSONStore {
	return &JSONStore{
		path: configPath,
	}
}

func (s *JSONStore) Init() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(s.path); err == nil {
		return s.Load()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = &jsonDocument{Version: jsonStoreVersion, Items: make(map[string]string)}
	return s.save()
}

func (s *JSONStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("storage not initialized, run '%s init' first", constants.AppName)
		}
		return fmt.Errorf("failed to read storage: %w", err)
	}

	doc := &jsonDocument{}
	if err := json.Unmarshal(data, doc); err != nil {
		return fmt.Errorf("failed to parse storage: %w", err)
	}
	if doc.Version > jsonStoreVersion {
		return fmt.Errorf("storage file version (%d) is newer than supported version (%d)", doc.Version, jsonStoreVersion)
	}
	if doc.Items == nil {
		doc.Items = make(map[string]string)
	}
	s.doc = doc
	return nil
}

func (s *JSONStore) Close() error {
	return nil
}

// save writes to a temp file and renames it over the store. Callers hold mu.
func (s *JSONStore) save() error {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize storage: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write storage: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace storage: %w", err)
	}
	return nil
}

func (s *JSONStore) GetItem(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.doc == nil {
		return "", false, fmt.Errorf("storage not loaded")
	}
	value, ok := s.doc.Items[key]
	return value, ok, nil
}

func (s *JSONStore) SetItem(ctx context.Context, key, value string) error {
	return s.SetItems(ctx, map[string]string{key: value})
}

func (s *JSONStore) SetItems(ctx context.Context, items map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.doc == nil {
		return fmt.Errorf("storage not loaded")
	}

	previous := make(map[string]*string, len(items))
	for key, value := range items {
		if old, ok := s.doc.Items[key]; ok {
			previous[key] = &old
		} else {
			previous[key] = nil
		}
		s.doc.Items[key] = value
	}

	if err := s.save(); err != nil {
		s.restore(previous)
		return err
	}
	return nil
}

func (s *JSONStore) RemoveItems(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.doc == nil {
		return fmt.Errorf("storage not loaded")
	}

	previous := make(map[string]*string, len(keys))
	for _, key := range keys {
		if old, ok := s.doc.Items[key]; ok {
			previous[key] = &old
			delete(s.doc.Items, key)
		}
	}
	if len(previous) == 0 {
		return nil
	}

	if err := s.save(); err != nil {
		s.restore(previous)
		return err
	}
	return nil
}

// restore undoes an in-memory change after a failed save
func (s *JSONStore) restore(previous map[string]*string) {
	for key, old := range previous {
		if old == nil {
			delete(s.doc.Items, key)
		} else {
			s.doc.Items[key] = *old
		}
	}
}

func (s *JSONStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.doc == nil {
		return nil, fmt.Errorf("storage not loaded")
	}

	var keys []string
	for key := range s.doc.Items {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *JSONStore) GetConfigPath() string {
	return s.path
}
