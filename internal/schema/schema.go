// Package schema coerces recovered model objects into declared shapes.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Type string

const (
	TypeString  Type = "string"
	TypeNumber  Type = "number"
	TypeInteger Type = "integer"
	TypeBoolean Type = "boolean"
	TypeArray   Type = "array"
	TypeObject  Type = "object"
)

// Field declares one property. Items describes array elements and Fields the
// properties of an object; both are optional.
type Field struct {
	Name     string
	Type     Type
	Required bool
	Default  any
	Enum     []string
	Min      *float64
	Max      *float64
	Items    *Field
	Fields   []Field
}

// Schema is a named set of top-level fields.
type Schema struct {
	Name   string
	Fields []Field
}

// Bound returns a pointer to v, for Field.Min and Field.Max.
func Bound(v float64) *float64 { return &v }

// Warning records a non-fatal discrepancy between input and schema.
type Warning struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (w Warning) String() string { return w.Path + ": " + w.Message }

// Payload is an object coerced to a schema. Every declared field is present.
type Payload struct {
	Data     map[string]any
	Warnings []Warning
}

// Decode copies the payload into dst through its JSON representation.
func (p Payload) Decode(dst any) error {
	raw, err := json.Marshal(p.Data)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("failed to decode payload: %w", err)
	}
	return nil
}

// ValidationError lists required fields that were missing and had no default.
type ValidationError struct {
	Schema  string
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("schema %s: missing required fields: %s", e.Schema, strings.Join(e.Missing, ", "))
}
