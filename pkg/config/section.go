package config

import (
	"fmt"
	"strings"
)

// MissingKeyError is returned when a required configuration key is absent.
type MissingKeyError struct {
	Path string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("missing configuration key '%s'", e.Path)
}

// Section is a read-only view over a nested configuration mapping. Lookups report missing keys
// with their full dotted path.
type Section struct {
	path string
	data map[string]any
}

func NewSection(path string, data map[string]any) Section {
	return Section{path: path, data: data}
}

func (s Section) Path() string {
	return s.path
}

func (s Section) join(keys ...string) string {
	parts := make([]string, 0, len(keys)+1)
	if s.path != "" {
		parts = append(parts, s.path)
	}
	return strings.Join(append(parts, keys...), ".")
}

func (s Section) lookup(keys ...string) (any, bool) {
	var current any = s.data
	for _, k := range keys {
		m, ok := asMap(current)
		if !ok {
			return nil, false
		}
		current, ok = m[k]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// Sub returns the nested section under the given keys.
func (s Section) Sub(keys ...string) (Section, error) {
	v, ok := s.lookup(keys...)
	if !ok {
		return Section{}, &MissingKeyError{Path: s.join(keys...)}
	}
	m, ok := asMap(v)
	if !ok {
		return Section{}, &MissingKeyError{Path: s.join(keys...)}
	}
	return NewSection(s.join(keys...), m), nil
}

// String returns the scalar under the given keys, rendered as a string.
func (s Section) String(keys ...string) (string, error) {
	v, ok := s.lookup(keys...)
	if !ok || v == nil {
		return "", &MissingKeyError{Path: s.join(keys...)}
	}
	if _, isMap := asMap(v); isMap {
		return "", &MissingKeyError{Path: s.join(keys...)}
	}
	if str, ok := v.(string); ok {
		return str, nil
	}
	return fmt.Sprint(v), nil
}

// OptionalString returns the scalar under the given keys, or "" when it is absent.
func (s Section) OptionalString(keys ...string) string {
	v, err := s.String(keys...)
	if err != nil {
		return ""
	}
	return v
}

func (s Section) Has(keys ...string) bool {
	_, ok := s.lookup(keys...)
	return ok
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	}
	return nil, false
}
