package record

import (
	"maps"
	"strings"
)

// Record is a loaded entity (immutable value object).
// Field names are unique; a record carries no fixed schema.
type Record struct {
	fields map[string]string
}

// New creates a Record from a field map. The map is copied.
func New(fields map[string]string) Record {
	return Record{fields: maps.Clone(fields)}
}

// Get returns the value of a field and whether it is present.
func (r Record) Get(name string) (string, bool) {
	v, ok := r.fields[name]
	return v, ok
}

// Value returns the value of a field, or "" when it is missing.
func (r Record) Value(name string) string {
	return r.fields[name]
}

// Fields returns a copy of all fields.
func (r Record) Fields() map[string]string {
	return maps.Clone(r.fields)
}

// Len returns the number of fields.
func (r Record) Len() int { return len(r.fields) }

// Project builds the searchable text of a record: the values of fields in the
// given order joined by a single space. Missing fields contribute "".
func Project(r Record, fields []string) string {
	switch len(fields) {
	case 0:
		return ""
	case 1:
		return r.fields[fields[0]]
	}

	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(r.fields[f])
	}
	return b.String()
}
