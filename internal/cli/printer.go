// Package cli holds the terminal front end of the portal: coloured
// status output, tables, prompts and the interactive login walk-through.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// ColorMode selects when output is coloured.
type ColorMode int

const (
	ColorAuto ColorMode = iota
	ColorAlways
	ColorNever
)

// ParseColorMode parses auto, always or never.
func ParseColorMode(s string) (ColorMode, error) {
	switch s {
	case "", "auto":
		return ColorAuto, nil
	case "always":
		return ColorAlways, nil
	case "never":
		return ColorNever, nil
	default:
		return ColorAuto, fmt.Errorf("invalid color mode %q: must be auto, always, or never", s)
	}
}

// ResolveColors decides whether to colour output. In auto mode NO_COLOR
// and TERM=dumb turn colours off.
func ResolveColors(mode ColorMode) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	default:
		if _, ok := os.LookupEnv("NO_COLOR"); ok {
			return false
		}
		return os.Getenv("TERM") != "dumb"
	}
}

// PrinterOptions configures a Printer. Nil writers default to stdout and
// stderr.
type PrinterOptions struct {
	ColorMode ColorMode
	Quiet     bool
	Out       io.Writer
	Err       io.Writer
}

// Printer writes status lines for humans.
type Printer struct {
	out       io.Writer
	err       io.Writer
	useColors bool
	quiet     bool
}

// NewPrinter creates a printer.
func NewPrinter(opts PrinterOptions) *Printer {
	p := &Printer{
		out:       opts.Out,
		err:       opts.Err,
		useColors: ResolveColors(opts.ColorMode),
		quiet:     opts.Quiet,
	}
	if p.out == nil {
		p.out = os.Stdout
	}
	if p.err == nil {
		p.err = os.Stderr
	}
	return p
}

// Out is the writer for regular output; tables and prompts go here.
func (p *Printer) Out() io.Writer {
	return p.out
}

// IsQuiet reports whether informational output is suppressed.
func (p *Printer) IsQuiet() bool {
	return p.quiet
}

// Info prints an informational line.
func (p *Printer) Info(format string, args ...any) {
	if p.quiet {
		return
	}
	if p.useColors {
		color.New(color.FgCyan).Fprintf(p.out, format+"\n", args...)
		return
	}
	fmt.Fprintf(p.out, format+"\n", args...)
}

// Success prints a success line.
func (p *Printer) Success(format string, args ...any) {
	if p.quiet {
		return
	}
	if p.useColors {
		color.New(color.FgGreen).Fprintf(p.out, "✓ "+format+"\n", args...)
		return
	}
	fmt.Fprintf(p.out, "[OK] "+format+"\n", args...)
}

// Warning prints a warning to the error stream.
func (p *Printer) Warning(format string, args ...any) {
	if p.quiet {
		return
	}
	if p.useColors {
		color.New(color.FgYellow).Fprintf(p.err, "! "+format+"\n", args...)
		return
	}
	fmt.Fprintf(p.err, "[WARN] "+format+"\n", args...)
}

// Error prints an error line. It is never suppressed.
func (p *Printer) Error(format string, args ...any) {
	if p.useColors {
		color.New(color.FgRed).Fprintf(p.err, "✗ "+format+"\n", args...)
		return
	}
	fmt.Fprintf(p.err, "[ERROR] "+format+"\n", args...)
}

// Print prints a plain line.
func (p *Printer) Print(format string, args ...any) {
	if p.quiet {
		return
	}
	fmt.Fprintf(p.out, format+"\n", args...)
}

// Value prints a bare value, even in quiet mode, for scripting.
func (p *Printer) Value(v string) {
	fmt.Fprintln(p.out, v)
}

// Header prints a section title.
func (p *Printer) Header(title string) {
	if p.quiet {
		return
	}
	if p.useColors {
		color.New(color.Bold).Fprintf(p.out, "\n%s\n", title)
		return
	}
	fmt.Fprintf(p.out, "\n%s\n", title)
}

// Bold returns text in bold when colours are on.
func (p *Printer) Bold(text string) string {
	if p.useColors {
		return color.New(color.Bold).Sprint(text)
	}
	return text
}
