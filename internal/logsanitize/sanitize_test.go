package logsanitize

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "alice@example.com", want: "alice@example.com"},
		{name: "newline injection", in: "bob\nlevel=error", want: "bob_level=error"},
		{name: "tab kept", in: "a\tb", want: "a\tb"},
		{name: "DEL and C1", in: "x\x7fy\u0085z", want: "x_y_z"},
		{name: "empty", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.in); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSanitizeTruncates(t *testing.T) {
	long := strings.Repeat("é", MaxFieldLen) // 2 bytes each

	got := Sanitize(long)
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("expected truncation marker, got %d bytes", len(got))
	}
	if len(got) > MaxFieldLen+3 {
		t.Errorf("sanitized length = %d, want <= %d", len(got), MaxFieldLen+3)
	}
	if !utf8.ValidString(got) {
		t.Error("truncation split a UTF-8 sequence")
	}
}

func TestMask(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "alice@corp.example", want: "a****@corp.example"},
		{in: "bob", want: "b**"},
		{in: "x", want: "x"},
		{in: "", want: ""},
	}

	for _, tt := range tests {
		if got := Mask(tt.in); got != tt.want {
			t.Errorf("Mask(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
