package cli

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
)

// Exit codes
const (
	ExitSuccess  = 0
	ExitError    = 1
	ExitAuth     = 2 // sign-in failed or required
	ExitConfig   = 3
	ExitUpstream = 4 // identity service rejected or unreachable
)

// CLIError is an error with user-facing context and an exit code.
type CLIError struct {
	Summary    string
	Detail     string
	Suggestion string
	ExitCode   int
}

func (e *CLIError) Error() string {
	if e.Detail != "" {
		return e.Summary + ": " + e.Detail
	}
	return e.Summary
}

// ExitCode maps err to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var ce *CLIError
	if errors.As(err, &ce) && ce.ExitCode != 0 {
		return ce.ExitCode
	}
	return ExitError
}

// ErrNotSignedIn is returned by commands that need a session.
var ErrNotSignedIn = &CLIError{
	Summary:    "not signed in",
	Suggestion: "run 'erp-portal login' first",
	ExitCode:   ExitAuth,
}

// FormatError prints err to the error stream, with cause and suggestion
// when it is a CLIError.
func (p *Printer) FormatError(err error) {
	var ce *CLIError
	if !errors.As(err, &ce) {
		ce = &CLIError{Summary: err.Error()}
	}

	if p.useColors {
		color.New(color.FgRed, color.Bold).Fprintf(p.err, "Error: %s\n", ce.Summary)
	} else {
		fmt.Fprintf(p.err, "Error: %s\n", ce.Summary)
	}
	if ce.Detail != "" {
		fmt.Fprintf(p.err, "  Cause: %s\n", ce.Detail)
	}
	if ce.Suggestion != "" {
		if p.useColors {
			color.New(color.FgCyan).Fprintf(p.err, "  Suggestion: %s\n", ce.Suggestion)
		} else {
			fmt.Fprintf(p.err, "  Suggestion: %s\n", ce.Suggestion)
		}
	}
}
