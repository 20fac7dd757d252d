package types

import (
	"fmt"
	"sort"
)

// SettingsMap is a string-keyed settings store with typed accessors. Values
// come from user-authored YAML files, so they are limited to strings, bools
// and numbers; the accessors perform the conversions callers need instead of
// synthesizing record fields at runtime.
type SettingsMap struct {
	values map[string]any
}

// NewSettingsMap creates an empty settings map.
func NewSettingsMap() *SettingsMap {
	return &SettingsMap{values: make(map[string]any)}
}

// SettingsFromMap creates a settings map from raw key/value pairs.
func SettingsFromMap(m map[string]any) *SettingsMap {
	s := NewSettingsMap()
	for k, v := range m {
		s.values[k] = v
	}
	return s
}

// Has reports whether a key is present.
func (s *SettingsMap) Has(key string) bool {
	_, ok := s.values[key]
	return ok
}

// Set stores a value under a key.
func (s *SettingsMap) Set(key string, value any) {
	s.values[key] = value
}

// Delete removes a key.
func (s *SettingsMap) Delete(key string) {
	delete(s.values, key)
}

// String returns the value under key rendered as a string.
func (s *SettingsMap) String(key string) (string, bool) {
	v, ok := s.values[key]
	if !ok {
		return "", false
	}
	if str, ok := v.(string); ok {
		return str, true
	}
	return fmt.Sprint(v), true
}

// Bool returns the value under key as a bool. Non-bool values report false.
func (s *SettingsMap) Bool(key string) (bool, bool) {
	v, ok := s.values[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// Int returns the value under key as an int, converting from the numeric
// types the YAML decoder produces.
func (s *SettingsMap) Int(key string) (int, bool) {
	v, ok := s.values[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// Float returns the value under key as a float64.
func (s *SettingsMap) Float(key string) (float64, bool) {
	v, ok := s.values[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// Merge overlays other onto s, key by key. Later values win; the merge is
// shallow because settings files are flat key/value maps.
func (s *SettingsMap) Merge(other map[string]any) {
	for k, v := range other {
		s.values[k] = v
	}
}

// Clone returns an independent copy.
func (s *SettingsMap) Clone() *SettingsMap {
	return SettingsFromMap(s.values)
}

// Raw returns a copy of the underlying key/value pairs.
func (s *SettingsMap) Raw() map[string]any {
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Keys returns all keys in sorted order.
func (s *SettingsMap) Keys() []string {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of stored keys.
func (s *SettingsMap) Len() int {
	return len(s.values)
}
