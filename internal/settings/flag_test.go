package settings

import "testing"

func TestParseFlag(t *testing.T) {
	tests := []struct {
		in     string
		want   Flag
		wantOK bool
	}{
		{"true", FlagTrue, true},
		{"false", FlagFalse, true},
		{"TRUE", "", false},
		{"1", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseFlag(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseFlag(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestSettingsEnabled(t *testing.T) {
	s := Settings{
		"a": "true",
		"b": "false",
		"c": "yes",
	}
	if !s.Enabled("a") {
		t.Error("a should be enabled")
	}
	for _, k := range []string{"b", "c", "missing"} {
		if s.Enabled(k) {
			t.Errorf("%s should be disabled", k)
		}
	}
	if Settings(nil).Enabled("a") {
		t.Error("nil settings enable nothing")
	}
	if FlagOf(true) != FlagTrue || FlagOf(false) != FlagFalse {
		t.Error("FlagOf mismatch")
	}
}
