// Package entity provides the persistence contract shared by every
// table-backed type: save, update, delete and attribute-filter queries
// over a database/sql connection, with one transaction per write.
package entity

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"
)

// Columns managed by the store for every entity.
const (
	ColumnPID       = "pid"
	ColumnCreatedOn = "created_on"
	ColumnUpdatedOn = "updated_on"
)

// Meta holds the generated identity and timestamps of a row.
// PID is zero until the entity is first saved and never changes after.
type Meta struct {
	PID       int64     `json:"pid"`
	CreatedOn time.Time `json:"created_on"`
	UpdatedOn time.Time `json:"updated_on"`
}

// Persisted reports whether the entity has been saved.
func (m *Meta) Persisted() bool {
	return m.PID != 0
}

// Descriptor is the static description of an entity type.
type Descriptor[T any] struct {
	Kind   string
	Table  string
	Meta   func(*T) *Meta
	Fields []Field[T]
}

// field looks up a domain column by name.
func (d *Descriptor[T]) field(name string) (Field[T], bool) {
	for _, f := range d.Fields {
		if f.Column == name {
			return f, true
		}
	}
	return Field[T]{}, false
}

// isColumn reports whether name is a managed or domain column.
func (d *Descriptor[T]) isColumn(name string) bool {
	switch name {
	case ColumnPID, ColumnCreatedOn, ColumnUpdatedOn:
		return true
	}
	_, ok := d.field(name)
	return ok
}

// FieldNames lists every column, managed columns first.
func (d *Descriptor[T]) FieldNames() []string {
	names := []string{ColumnPID, ColumnCreatedOn, ColumnUpdatedOn}
	for _, f := range d.Fields {
		names = append(names, f.Column)
	}
	return names
}

// AttributesAsMap returns the column values of e keyed by column name.
func (d *Descriptor[T]) AttributesAsMap(e *T) map[string]any {
	meta := d.Meta(e)
	attrs := map[string]any{
		ColumnPID:       meta.PID,
		ColumnCreatedOn: meta.CreatedOn,
		ColumnUpdatedOn: meta.UpdatedOn,
	}
	for _, f := range d.Fields {
		attrs[f.Column] = f.Value(e)
	}
	return attrs
}

// Serializable is the transport-neutral form of an entity.
type Serializable struct {
	EntType    string         `json:"ent_type"`
	Attributes map[string]any `json:"attributes"`
}

// ToSerializable wraps the attributes of e with its kind.
func (d *Descriptor[T]) ToSerializable(e *T) Serializable {
	return Serializable{
		EntType:    d.Kind,
		Attributes: d.AttributesAsMap(e),
	}
}

// scanDest returns Scan destinations in FieldNames order.
func (d *Descriptor[T]) scanDest(e *T) []any {
	meta := d.Meta(e)
	dest := []any{&meta.PID, &meta.CreatedOn, &meta.UpdatedOn}
	for _, f := range d.Fields {
		dest = append(dest, f.ScanDest(e))
	}
	return dest
}

// Filter maps column names to the values they must equal.
type Filter map[string]any

// String renders the filter with sorted keys, for error messages.
func (f Filter) String() string {
	keys := f.keys()
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, display(f[k])))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (f Filter) keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// compact returns a copy of f without absent values.
func (f Filter) compact() Filter {
	out := make(Filter, len(f))
	for k, v := range f {
		if !isAbsent(v) {
			out[k] = v
		}
	}
	return out
}

// isAbsent reports whether v is nil or a nil pointer.
func isAbsent(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

func display(v any) any {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer && !rv.IsNil() {
		return rv.Elem().Interface()
	}
	return v
}
