package ui

import (
	"bytes"
	"strings"
	"testing"
)

func TestConfirmLine(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"", false},
		{"maybe\n", false},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		got, err := confirmLine(strings.NewReader(tt.in), &out, "Go?")
		if err != nil {
			t.Fatalf("confirmLine(%q) error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("confirmLine(%q) = %v, want %v", tt.in, got, tt.want)
		}
		if out.String() != "Go? (y/n): " {
			t.Fatalf("unexpected prompt: %q", out.String())
		}
	}
}

func TestPadRightAndTruncate(t *testing.T) {
	styled := Status(200)
	padded := PadRight(styled, 6)
	if !strings.HasPrefix(padded, styled) || !strings.HasSuffix(padded, "   ") {
		t.Fatalf("unexpected padding: %q", padded)
	}
	if Truncate("abcdefghij", 6) != "abc..." {
		t.Fatalf("unexpected truncation: %q", Truncate("abcdefghij", 6))
	}
	if Truncate("abc", 6) != "abc" {
		t.Fatalf("short strings must be untouched")
	}
	if !strings.Contains(Status(0), "ERR") {
		t.Fatalf("transport failure should render as ERR")
	}
}
