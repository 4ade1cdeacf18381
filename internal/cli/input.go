package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Test seams for the terminal.
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

// ErrAborted is returned when input ends before an answer was given.
var ErrAborted = errors.New("input aborted")

// Prompter asks questions on out and reads answers from in. Passwords are
// read without echo when stdin is a terminal.
type Prompter struct {
	reader *bufio.Reader
	out    io.Writer
	fd     int
}

// NewPrompter creates a prompter over in and out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	fd := -1
	if f, ok := in.(*os.File); ok {
		fd = int(f.Fd())
	}
	return &Prompter{reader: bufio.NewReader(in), out: out, fd: fd}
}

// Text prints prompt and reads one trimmed line. Partial input before EOF
// is returned; EOF with no input is ErrAborted.
func (p *Prompter) Text(prompt string) (string, error) {
	if _, err := fmt.Fprint(p.out, prompt+": "); err != nil {
		return "", err
	}
	return p.line()
}

// Confirm asks a yes/no question; anything but y or yes is no.
func (p *Prompter) Confirm(prompt string) (bool, error) {
	answer, err := p.Text(prompt + " [y/N]")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// Password reads a secret. On a terminal the input is not echoed;
// otherwise one line is read, so passwords can be piped in.
func (p *Prompter) Password(prompt string) (string, error) {
	if _, err := fmt.Fprint(p.out, prompt+": "); err != nil {
		return "", err
	}
	if p.fd < 0 || !isTerminal(p.fd) {
		return p.line()
	}

	pw, err := readPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	s := string(pw)
	clear(pw)
	return s, nil
}

func (p *Prompter) line() (string, error) {
	line, err := p.reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			if len(line) > 0 {
				return strings.TrimSpace(line), nil
			}
			return "", ErrAborted
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}
