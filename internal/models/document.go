package models

import (
	"fmt"

	"github.com/iancoleman/orderedmap"
)

// Document is a schemaless JSON object that keeps its keys in the order they
// were written. Nested objects decode as *Document and arrays as []any.
type Document struct {
	fields *orderedmap.OrderedMap
}

func NewDocument() *Document {
	return &Document{fields: orderedmap.New()}
}

func (d *Document) ensure() *orderedmap.OrderedMap {
	if d.fields == nil {
		d.fields = orderedmap.New()
	}
	return d.fields
}

// Get returns the raw value stored under key.
func (d *Document) Get(key string) (any, bool) {
	if d == nil || d.fields == nil {
		return nil, false
	}
	return d.fields.Get(key)
}

// Value is Get without the presence flag.
func (d *Document) Value(key string) any {
	value, _ := d.Get(key)
	return value
}

// Object returns the nested object stored under key, or nil.
func (d *Document) Object(key string) *Document {
	nested, ok := d.Value(key).(*Document)
	if !ok {
		return nil
	}
	return nested
}

// Set stores value under key. Overwriting keeps the key's original position.
func (d *Document) Set(key string, value any) {
	d.ensure().Set(key, value)
}

func (d *Document) Keys() []string {
	if d == nil || d.fields == nil {
		return nil
	}
	keys := d.fields.Keys()
	out := make([]string, len(keys))
	copy(out, keys)
	return out
}

func (d *Document) Len() int {
	if d == nil || d.fields == nil {
		return 0
	}
	return len(d.fields.Keys())
}

// Clone returns a deep copy; nested objects and arrays are copied too.
func (d *Document) Clone() *Document {
	clone := NewDocument()
	for _, key := range d.Keys() {
		clone.Set(key, cloneValue(d.Value(key)))
	}
	return clone
}

func cloneValue(value any) any {
	switch typed := value.(type) {
	case *Document:
		return typed.Clone()
	case []any:
		items := make([]any, len(typed))
		for i, item := range typed {
			items[i] = cloneValue(item)
		}
		return items
	default:
		return value
	}
}

func (d *Document) MarshalJSON() ([]byte, error) {
	if d == nil {
		return []byte("null"), nil
	}
	return d.ensure().MarshalJSON()
}

func (d *Document) UnmarshalJSON(data []byte) error {
	decoded := orderedmap.New()
	if err := decoded.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("document: %w", err)
	}
	*d = *fromOrderedMap(decoded)
	return nil
}

// fromOrderedMap rewraps the nested maps the decoder produces so every level
// is reachable through Object.
func fromOrderedMap(src *orderedmap.OrderedMap) *Document {
	doc := NewDocument()
	for _, key := range src.Keys() {
		value, _ := src.Get(key)
		doc.Set(key, wrapValue(value))
	}
	return doc
}

func wrapValue(value any) any {
	switch typed := value.(type) {
	case orderedmap.OrderedMap:
		return fromOrderedMap(&typed)
	case *orderedmap.OrderedMap:
		return fromOrderedMap(typed)
	case []any:
		items := make([]any, len(typed))
		for i, item := range typed {
			items[i] = wrapValue(item)
		}
		return items
	default:
		return value
	}
}
