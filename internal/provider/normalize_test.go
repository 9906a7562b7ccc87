package provider

import (
	"reflect"
	"testing"
	"time"
)

func TestNormalizeValueScalars(t *testing.T) {
	cases := []any{nil, true, 12.5, "hello"}
	for _, v := range cases {
		got, err := NormalizeValue(v)
		if err != nil {
			t.Errorf("NormalizeValue(%v) failed: %v", v, err)
		}
		if got != v {
			t.Errorf("NormalizeValue(%v) = %v, want the value unchanged", v, got)
		}
	}
}

func TestNormalizeValueWrappers(t *testing.T) {
	got, err := NormalizeValue(map[string]any{"value": 12.3, "unit": "m"})
	if err != nil {
		t.Fatalf("value/unit wrapper failed: %v", err)
	}
	if got != 12.3 {
		t.Errorf("Expected 12.3, got %v", got)
	}

	got, err = NormalizeValue(map[string]any{"value": "text"})
	if err != nil {
		t.Fatalf("value-only wrapper failed: %v", err)
	}
	if got != "text" {
		t.Errorf("Expected text, got %v", got)
	}

	got, err = NormalizeValue(map[string]any{"root": map[string]any{"value": 7.0}})
	if err != nil {
		t.Fatalf("nested root wrapper failed: %v", err)
	}
	if got != 7.0 {
		t.Errorf("Expected 7, got %v", got)
	}
}

func TestNormalizeValueLists(t *testing.T) {
	in := []any{
		1.0,
		map[string]any{"value": 2.0, "unit": "m"},
		[]any{map[string]any{"root": 3.0}},
	}
	got, err := NormalizeValue(in)
	if err != nil {
		t.Fatalf("list normalization failed: %v", err)
	}
	want := []any{1.0, 2.0, []any{3.0}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestNormalizeValueRejectsUnknownWrapper(t *testing.T) {
	cases := []any{
		map[string]any{"mystery": 1.0},
		map[string]any{"value": 1.0, "extra": true},
		[]any{map[string]any{"weird": "shape"}},
		42,          // int never comes out of encoding/json
		[3]int{1, 2, 3},
	}
	for _, v := range cases {
		if _, err := NormalizeValue(v); err == nil {
			t.Errorf("NormalizeValue(%v): expected an error", v)
		}
	}
}

func TestNormalizeEnum(t *testing.T) {
	got, err := NormalizeEnum("SportType/TrailRun")
	if err != nil || got != "TrailRun" {
		t.Errorf("Expected TrailRun, got %q (%v)", got, err)
	}

	got, err = NormalizeEnum("Run")
	if err != nil || got != "Run" {
		t.Errorf("Expected plain string passthrough, got %q (%v)", got, err)
	}

	// A path-looking string with more segments is not the enum form
	got, err = NormalizeEnum("a/b/c")
	if err != nil || got != "a/b/c" {
		t.Errorf("Expected multi-segment string untouched, got %q (%v)", got, err)
	}

	got, err = NormalizeEnum(map[string]any{"value": "SportType/Ride"})
	if err != nil || got != "Ride" {
		t.Errorf("Expected wrapped enum unwrapped, got %q (%v)", got, err)
	}

	if _, err := NormalizeEnum(12.0); err == nil {
		t.Error("Expected an error for a numeric enum")
	}
}

func TestNormalizeTime(t *testing.T) {
	cases := []struct {
		in   any
		want time.Time
	}{
		{"2026-03-02T08:30:00Z", time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC)},
		{"2026-03-02T08:30:00", time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC)},
		{"2026-03-02 08:30:00", time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC)},
		{float64(1767312000), time.Unix(1767312000, 0).UTC()},
		{map[string]any{"value": "2026-03-02T08:30:00"}, time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got, err := NormalizeTime(tc.in)
		if err != nil {
			t.Errorf("NormalizeTime(%v) failed: %v", tc.in, err)
			continue
		}
		if !got.Equal(tc.want) {
			t.Errorf("NormalizeTime(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}

	if _, err := NormalizeTime("not a date"); err == nil {
		t.Error("Expected an error for an unparseable datetime")
	}
	if _, err := NormalizeTime(true); err == nil {
		t.Error("Expected an error for a boolean datetime")
	}
}

func TestNormalizeCoercions(t *testing.T) {
	if f, err := NormalizeFloat(map[string]any{"value": 9.5, "unit": "km"}); err != nil || f != 9.5 {
		t.Errorf("NormalizeFloat: got %v (%v)", f, err)
	}
	if _, err := NormalizeFloat("nine"); err == nil {
		t.Error("NormalizeFloat: expected an error for a string")
	}

	if s, err := NormalizeString(nil); err != nil || s != "" {
		t.Errorf("NormalizeString(nil): got %q (%v)", s, err)
	}
	if _, err := NormalizeString(1.0); err == nil {
		t.Error("NormalizeString: expected an error for a number")
	}

	if b, err := NormalizeBool(map[string]any{"root": true}); err != nil || !b {
		t.Errorf("NormalizeBool: got %v (%v)", b, err)
	}
	if b, err := NormalizeBool(nil); err != nil || b {
		t.Errorf("NormalizeBool(nil): got %v (%v)", b, err)
	}
	if _, err := NormalizeBool("yes"); err == nil {
		t.Error("NormalizeBool: expected an error for a string")
	}
}
