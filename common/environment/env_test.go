package environment_test

import (
	"testing"
	"time"

	"github.com/chevai/smartchat/common/environment"
)

func TestStringOr(t *testing.T) {
	t.Setenv("SMARTCHAT_TEST_STR", "hello")

	if got := environment.StringOr("SMARTCHAT_TEST_STR", "fallback"); got != "hello" {
		t.Errorf("StringOr(set) = %q, want %q", got, "hello")
	}
	if got := environment.StringOr("SMARTCHAT_TEST_MISSING", "fallback"); got != "fallback" {
		t.Errorf("StringOr(unset) = %q, want %q", got, "fallback")
	}
}

func TestRequiredString(t *testing.T) {
	t.Setenv("SMARTCHAT_TEST_REQ", "value")

	v, err := environment.RequiredString("SMARTCHAT_TEST_REQ")
	if err != nil {
		t.Fatalf("RequiredString(set) returned error: %v", err)
	}
	if v != "value" {
		t.Errorf("RequiredString(set) = %q, want %q", v, "value")
	}

	if _, err := environment.RequiredString("SMARTCHAT_TEST_REQ_MISSING"); err == nil {
		t.Error("RequiredString(unset) returned nil error, want non-nil")
	}
}

func TestIntOr(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		fallback int
		want     int
	}{
		{"parses valid", "42", 7, 42},
		{"falls back on empty", "", 7, 7},
		{"falls back on garbage", "not-a-number", 7, 7},
		{"negative allowed", "-3", 7, -3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SMARTCHAT_TEST_INT", tt.value)
			if got := environment.IntOr("SMARTCHAT_TEST_INT", tt.fallback); got != tt.want {
				t.Errorf("IntOr(%q) = %d, want %d", tt.value, got, tt.want)
			}
		})
	}
}

func TestBoolOr(t *testing.T) {
	t.Setenv("SMARTCHAT_TEST_BOOL", "true")
	if !environment.BoolOr("SMARTCHAT_TEST_BOOL", false) {
		t.Error("BoolOr(\"true\") = false, want true")
	}

	t.Setenv("SMARTCHAT_TEST_BOOL", "maybe")
	if environment.BoolOr("SMARTCHAT_TEST_BOOL", false) {
		t.Error("BoolOr(malformed) should use the default (false)")
	}
}

func TestStringSliceOr(t *testing.T) {
	t.Setenv("SMARTCHAT_TEST_SLICE", "a, b , c")
	got := environment.StringSliceOr("SMARTCHAT_TEST_SLICE", nil)
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("StringSliceOr returned %d elements, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("StringSliceOr[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	fallback := []string{"x"}
	if got := environment.StringSliceOr("SMARTCHAT_TEST_SLICE_MISSING", fallback); len(got) != 1 || got[0] != "x" {
		t.Errorf("StringSliceOr(unset) = %v, want %v", got, fallback)
	}
}

func TestDurationOr(t *testing.T) {
	t.Setenv("SMARTCHAT_TEST_DUR", "90s")
	if got := environment.DurationOr("SMARTCHAT_TEST_DUR", time.Minute); got != 90*time.Second {
		t.Errorf("DurationOr(\"90s\") = %v, want 90s", got)
	}

	t.Setenv("SMARTCHAT_TEST_DUR", "")
	if got := environment.DurationOr("SMARTCHAT_TEST_DUR", time.Minute); got != time.Minute {
		t.Errorf("DurationOr(unset) = %v, want 1m", got)
	}
}
