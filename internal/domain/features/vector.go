package features

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Schema is the ordered list of feature names a model expects.
type Schema []string

// Validate rejects empty schemas, blank names and duplicates.
func (s Schema) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidSchema)
	}
	seen := make(map[string]struct{}, len(s))
	for i, name := range s {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%w: blank name at %d", ErrInvalidSchema, i)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: duplicate %q", ErrInvalidSchema, name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// Key identifies a schema for caching projections.
func (s Schema) Key() string {
	return strings.Join(s, "\x1f")
}

// Vector is a fixed, ordered mapping from feature name to value.
type Vector struct {
	names  []string
	values []float64
}

// Len returns the number of features.
func (v Vector) Len() int { return len(v.names) }

// Names returns the feature names in order.
func (v Vector) Names() []string { return append([]string(nil), v.names...) }

// Values returns the feature values in order.
func (v Vector) Values() []float64 { return append([]float64(nil), v.values...) }

// Get returns the value for name.
func (v Vector) Get(name string) (float64, bool) {
	for i, n := range v.names {
		if n == name {
			return v.values[i], true
		}
	}
	return 0, false
}

// Equal compares names and values bit for bit.
func (v Vector) Equal(o Vector) bool {
	if len(v.names) != len(o.names) {
		return false
	}
	for i := range v.names {
		if v.names[i] != o.names[i] || math.Float64bits(v.values[i]) != math.Float64bits(o.values[i]) {
			return false
		}
	}
	return true
}

// MarshalJSON writes the vector as an object with keys in schema order.
func (v Vector) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range v.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(v.values[i])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
