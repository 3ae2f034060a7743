// Package docstore defines the document store the session core runs against:
// keyed JSON documents with partial updates, transactions, server-assigned
// timestamps and live subscriptions.
package docstore

import (
	"encoding/json"
	"fmt"
	"regexp"
	"time"
)

// Fields is a document body or a partial update keyed by top-level field name.
type Fields map[string]any

// Ref addresses a single document.
type Ref struct {
	Collection string
	ID         string
}

// Doc builds a reference.
func Doc(collection, id string) Ref {
	return Ref{Collection: collection, ID: id}
}

func (r Ref) String() string {
	return r.Collection + "/" + r.ID
}

// Validate rejects empty references.
func (r Ref) Validate() error {
	if r.Collection == "" || r.ID == "" {
		return fmt.Errorf("document ref %q: %w", r.String(), ErrInvalidInput)
	}
	return nil
}

// Snapshot is the state of a document at one version. A missing document has
// Exists false and Version 0.
type Snapshot struct {
	Ref        Ref
	Exists     bool
	Version    int64
	UpdateTime time.Time
	Raw        json.RawMessage
}

// DataTo decodes the document body into v.
func (s Snapshot) DataTo(v any) error {
	if !s.Exists {
		return ErrNotFound
	}
	if err := json.Unmarshal(s.Raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", s.Ref, err)
	}
	return nil
}

// Data decodes the document body into a generic field map.
func (s Snapshot) Data() (Fields, error) {
	fields := Fields{}
	if err := s.DataTo(&fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// Filter is an equality predicate on a top-level field. A nil Value matches
// documents where the field is null or absent.
type Filter struct {
	Field string
	Value any
}

// Where builds an equality filter.
func Where(field string, value any) Filter {
	return Filter{Field: field, Value: value}
}

var fieldNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidField reports whether name can be used as a field or filter name.
func ValidField(name string) bool {
	return fieldNamePattern.MatchString(name)
}
