package store

import (
	"context"
	"encoding/json"
	"reflect"
	"sort"
	"strings"
	"sync"
)

// Memory keeps documents in process. It is used for local runs and tests.
type Memory struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{docs: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, path string, dst any) error {
	if _, _, err := splitDocument(path); err != nil {
		return err
	}
	m.mu.RLock()
	raw, ok := m.docs[path]
	m.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	return fromJSON(path, raw, dst)
}

func (m *Memory) Set(_ context.Context, path string, src any) error {
	if _, _, err := splitDocument(path); err != nil {
		return err
	}
	raw, err := toJSON(path, src)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.docs[path] = raw
	m.mu.Unlock()
	return nil
}

func (m *Memory) List(_ context.Context, collection string, filters ...Filter) ([]Snapshot, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	want, err := normalize(filterDocument(filters))
	if err != nil {
		return nil, err
	}

	prefix := collection + "/"
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Snapshot
	for path, raw := range m.docs {
		id, ok := strings.CutPrefix(path, prefix)
		if !ok || strings.Contains(id, "/") {
			continue
		}
		if len(filters) > 0 && !contains(raw, want) {
			continue
		}
		out = append(out, Snapshot{Path: path, ID: id, Data: append(json.RawMessage(nil), raw...)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }

// Len returns the number of stored documents.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

func normalize(v map[string]any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	return out, json.Unmarshal(raw, &out)
}

func contains(raw []byte, want map[string]any) bool {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return false
	}
	for k, v := range want {
		if !reflect.DeepEqual(doc[k], v) {
			return false
		}
	}
	return true
}
