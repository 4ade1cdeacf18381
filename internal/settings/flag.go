package settings

import "maps"

// Flag is the wire form of a boolean setting.
type Flag string

const (
	FlagTrue  Flag = "true"
	FlagFalse Flag = "false"
)

// ParseFlag accepts only the two literal flag strings.
func ParseFlag(s string) (Flag, bool) {
	switch Flag(s) {
	case FlagTrue, FlagFalse:
		return Flag(s), true
	default:
		return "", false
	}
}

// FlagOf converts b to its wire form.
func FlagOf(b bool) Flag {
	if b {
		return FlagTrue
	}
	return FlagFalse
}

// Bool reports whether f is FlagTrue.
func (f Flag) Bool() bool {
	return f == FlagTrue
}

// Settings is a loaded key/value settings map.
type Settings map[string]string

// Enabled reports whether key holds the literal "true". Missing keys and
// any other value are disabled.
func (s Settings) Enabled(key string) bool {
	return Flag(s[key]).Bool()
}

// Clone returns an independent copy. Cloning nil yields nil.
func (s Settings) Clone() Settings {
	if s == nil {
		return nil
	}
	return maps.Clone(s)
}
