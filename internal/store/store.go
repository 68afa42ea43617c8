// Package store persists JSON documents addressed by slash-separated paths
// such as users/{uid}/roadmaps/{rid}. Even segment counts name documents, odd
// counts name collections.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Get when no document exists at the path.
var ErrNotFound = errors.New("document not found")

// ErrInvalidPath is returned for paths that do not name a document or
// collection as the operation expects.
var ErrInvalidPath = errors.New("invalid document path")

// Filter matches documents whose top-level Field equals Value.
type Filter struct {
	Field string
	Value any
}

func Eq(field string, value any) Filter { return Filter{Field: field, Value: value} }

// Snapshot is one document returned by List.
type Snapshot struct {
	Path string
	ID   string
	Data json.RawMessage
}

// Decode unmarshals the document body into dst.
func (s Snapshot) Decode(dst any) error {
	if err := json.Unmarshal(s.Data, dst); err != nil {
		return fmt.Errorf("failed to decode %s: %w", s.Path, err)
	}
	return nil
}

// DocumentStore is implemented by the firestore, postgres and memory backends.
// Writes are last-writer-wins; no operation spans more than one document.
type DocumentStore interface {
	Get(ctx context.Context, path string, dst any) error
	Set(ctx context.Context, path string, src any) error
	List(ctx context.Context, collection string, filters ...Filter) ([]Snapshot, error)
	Ping(ctx context.Context) error
	Close() error
}

// Path joins segments with "/".
func Path(segments ...string) string { return strings.Join(segments, "/") }

// splitDocument returns the collection path and id of a document path.
func splitDocument(path string) (collection, id string, err error) {
	segs, err := segments(path)
	if err != nil {
		return "", "", err
	}
	if len(segs)%2 != 0 {
		return "", "", fmt.Errorf("%w: %q is a collection", ErrInvalidPath, path)
	}
	return strings.Join(segs[:len(segs)-1], "/"), segs[len(segs)-1], nil
}

func checkCollection(path string) error {
	segs, err := segments(path)
	if err != nil {
		return err
	}
	if len(segs)%2 == 0 {
		return fmt.Errorf("%w: %q is a document", ErrInvalidPath, path)
	}
	return nil
}

func segments(path string) ([]string, error) {
	segs := strings.Split(path, "/")
	for _, s := range segs {
		if s == "" {
			return nil, fmt.Errorf("%w: %q has an empty segment", ErrInvalidPath, path)
		}
	}
	return segs, nil
}

// toJSON encodes src and checks that it is a JSON object.
func toJSON(path string, src any) ([]byte, error) {
	raw, err := json.Marshal(src)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if len(raw) == 0 || raw[0] != '{' {
		return nil, fmt.Errorf("failed to encode %s: document must be a JSON object", path)
	}
	return raw, nil
}

func fromJSON(path string, raw []byte, dst any) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// filterDocument is the JSON object the filters describe; a document matches
// when it contains it.
func filterDocument(filters []Filter) map[string]any {
	doc := make(map[string]any, len(filters))
	for _, f := range filters {
		doc[f.Field] = f.Value
	}
	return doc
}
