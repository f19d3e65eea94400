package adder

import (
	"errors"
	"testing"
)

func TestParseTarget(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"<@U123ABC>", "U123ABC"},
		{"<@U123ABC|helper-bot>", "U123ABC"},
		{"<@W99>", "W99"},
		{"u123abc", "U123ABC"},
		{"  U42  ", "U42"},
	}
	for _, tt := range tests {
		got, err := ParseTarget(tt.in)
		if err != nil || got != tt.want {
			t.Fatalf("ParseTarget(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}

	for _, bad := range []string{"", "<#C123>", "bot", "<@U1", "U-1"} {
		_, err := ParseTarget(bad)
		var usage *UsageError
		if !errors.As(err, &usage) {
			t.Fatalf("ParseTarget(%q) error = %v, want UsageError", bad, err)
		}
	}
}
