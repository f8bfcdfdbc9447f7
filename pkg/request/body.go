package request

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// Field is one key/value pair of a request body.
type Field struct {
	Key   string
	Value any
}

// Body is a JSON object whose keys keep their insertion order.
type Body struct {
	fields []Field
}

// Add appends a field. Adding an existing key replaces its value in place.
// NaN and infinite floats are stored as 0, which JSON can encode.
func (b *Body) Add(key string, value any) {
	value = finite(value)
	for i := range b.fields {
		if b.fields[i].Key == key {
			b.fields[i].Value = value
			return
		}
	}
	b.fields = append(b.fields, Field{Key: key, Value: value})
}

// Get returns the value stored under key.
func (b Body) Get(key string) (any, bool) {
	for _, f := range b.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Keys returns the field names in order.
func (b Body) Keys() []string {
	keys := make([]string, len(b.fields))
	for i, f := range b.fields {
		keys[i] = f.Key
	}
	return keys
}

// Len returns the number of fields.
func (b Body) Len() int {
	return len(b.fields)
}

// MarshalJSON writes the fields in insertion order.
func (b Body) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range b.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, fmt.Errorf("encode key %q: %w", f.Key, err)
		}
		value, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("encode field %q: %w", f.Key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func finite(value any) any {
	switch v := value.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return float64(0)
		}
	case float32:
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return float32(0)
		}
	}
	return value
}
