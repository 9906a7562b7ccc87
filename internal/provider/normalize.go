package provider

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// The provider's serializer wraps some values: measurements arrive as
// {"value": 12.3, "unit": "m"}, pydantic root models as {"root": ...}, and
// enumerations as "SportType/TrailRun". Normalize* collapses these into
// plain scalars. An object that is not a recognized wrapper is rejected
// rather than stored, so malformed payloads surface at sync time instead of
// corrupting rows.

var enumForm = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*/[A-Za-z][A-Za-z0-9_]*$`)

// NormalizeValue flattens a decoded provider JSON value. It is total over
// scalars, lists, and the known wrapper shapes; anything else is an error.
func NormalizeValue(v any) (any, error) {
	switch val := v.(type) {
	case nil, bool, float64, string:
		return val, nil
	case []any:
		out := make([]any, 0, len(val))
		for i, item := range val {
			norm, err := NormalizeValue(item)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out = append(out, norm)
		}
		return out, nil
	case map[string]any:
		return normalizeWrapper(val)
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

func normalizeWrapper(m map[string]any) (any, error) {
	if inner, ok := m["value"]; ok && wrapperKeysOnly(m, "value", "unit") {
		return NormalizeValue(inner)
	}
	if inner, ok := m["root"]; ok && wrapperKeysOnly(m, "root") {
		return NormalizeValue(inner)
	}
	return nil, fmt.Errorf("unrecognized value wrapper with keys %s", strings.Join(mapKeys(m), ","))
}

func wrapperKeysOnly(m map[string]any, allowed ...string) bool {
	for k := range m {
		found := false
		for _, a := range allowed {
			if k == a {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func mapKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

// NormalizeEnum reduces the provider's "EnumName/Member" encoding to the
// member name. Plain strings pass through.
func NormalizeEnum(v any) (string, error) {
	norm, err := NormalizeValue(v)
	if err != nil {
		return "", err
	}
	s, ok := norm.(string)
	if !ok {
		return "", fmt.Errorf("expected string, got %T", norm)
	}
	if enumForm.MatchString(s) {
		return s[strings.Index(s, "/")+1:], nil
	}
	return s, nil
}

// timeLayouts the provider has been observed to emit.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// NormalizeTime parses a provider datetime value in any of its encodings.
func NormalizeTime(v any) (time.Time, error) {
	norm, err := NormalizeValue(v)
	if err != nil {
		return time.Time{}, err
	}
	switch val := norm.(type) {
	case string:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, val); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("unparseable datetime %q", val)
	case float64:
		return time.Unix(int64(val), 0).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("expected datetime, got %T", norm)
	}
}

// NormalizeFloat coerces a normalized numeric field.
func NormalizeFloat(v any) (float64, error) {
	norm, err := NormalizeValue(v)
	if err != nil {
		return 0, err
	}
	f, ok := norm.(float64)
	if !ok {
		return 0, fmt.Errorf("expected number, got %T", norm)
	}
	return f, nil
}

// NormalizeString coerces a normalized string field.
func NormalizeString(v any) (string, error) {
	norm, err := NormalizeValue(v)
	if err != nil {
		return "", err
	}
	if norm == nil {
		return "", nil
	}
	s, ok := norm.(string)
	if !ok {
		return "", fmt.Errorf("expected string, got %T", norm)
	}
	return s, nil
}

// NormalizeBool coerces a normalized boolean field.
func NormalizeBool(v any) (bool, error) {
	norm, err := NormalizeValue(v)
	if err != nil {
		return false, err
	}
	if norm == nil {
		return false, nil
	}
	b, ok := norm.(bool)
	if !ok {
		return false, fmt.Errorf("expected bool, got %T", norm)
	}
	return b, nil
}
