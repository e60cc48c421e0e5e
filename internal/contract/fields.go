package contract

import (
	"fmt"
	"strings"
)

// Typed extraction from a decoded payload. Each helper returns a non-empty
// reason string on failure so the caller can wrap it with the raw response.

func stringField(m map[string]any, key string) (string, string) {
	v, ok := m[key]
	if !ok {
		return "", fmt.Sprintf("missing required key '%s'", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Sprintf("key '%s' has invalid type %T (expected string)", key, v)
	}
	if strings.TrimSpace(s) == "" {
		return "", fmt.Sprintf("key '%s' must not be empty", key)
	}
	return s, ""
}

func boolField(m map[string]any, key string) (bool, string) {
	v, ok := m[key]
	if !ok {
		return false, fmt.Sprintf("missing required key '%s'", key)
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Sprintf("key '%s' has invalid type %T (expected bool)", key, v)
	}
	return b, ""
}

func intField(m map[string]any, key string) (int, string) {
	v, ok := m[key]
	if !ok {
		return 0, fmt.Sprintf("missing required key '%s'", key)
	}
	// encoding/json decodes all numbers as float64
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Sprintf("key '%s' has invalid type %T (expected integer)", key, v)
	}
	if f != float64(int(f)) {
		return 0, fmt.Sprintf("key '%s' must be an integer, got %v", key, f)
	}
	return int(f), ""
}

func stringListField(m map[string]any, key string) ([]string, string) {
	v, ok := m[key]
	if !ok {
		return nil, fmt.Sprintf("missing required key '%s'", key)
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Sprintf("key '%s' has invalid type %T (expected array of strings)", key, v)
	}
	if len(list) == 0 {
		return nil, fmt.Sprintf("key '%s' must not be empty", key)
	}
	out := make([]string, 0, len(list))
	for i, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Sprintf("key '%s' element %d has invalid type %T (expected string)", key, i, item)
		}
		if strings.TrimSpace(s) == "" {
			return nil, fmt.Sprintf("key '%s' element %d must not be empty", key, i)
		}
		out = append(out, s)
	}
	return out, ""
}
