package terminal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/shellward/shellward/internal/core/security"
)

// ErrInterrupted is returned when input ends before the user answers.
var ErrInterrupted = errors.New("input interrupted")

// Prompter reads user input and renders prompts. A zero value is not
// usable; construct one with NewPrompter. Passing nil for input or
// output selects os.Stdin and os.Stdout. A single scanner wraps the
// input so consecutive reads never drop buffered lines.
type Prompter struct {
	in      io.Reader
	out     io.Writer
	scanner *bufio.Scanner
}

func NewPrompter(input io.Reader, output io.Writer) *Prompter {
	if input == nil {
		input = os.Stdin
	}
	if output == nil {
		output = os.Stdout
	}
	return &Prompter{in: input, out: output, scanner: bufio.NewScanner(input)}
}

// Out exposes the prompter's output writer for surrounding display code.
func (p *Prompter) Out() io.Writer {
	return p.out
}

// Confirm shows the proposed command with its risk tier and asks for an
// explicit yes or no. Only "y" or "yes" approves; a closed input stream
// returns ErrInterrupted.
func (p *Prompter) Confirm(command string, cls security.Classification) (bool, error) {
	fmt.Fprintf(p.out, "\nProposed command: %s\n", StyleCommand.Render(command))
	fmt.Fprintf(p.out, "Risk: %s", TierStyle(cls.Tier.String()).Render(cls.Tier.String()))
	if cls.Reason != "" {
		fmt.Fprintf(p.out, " (%s)", cls.Reason)
	}
	fmt.Fprintln(p.out)

	for {
		fmt.Fprint(p.out, "Execute? [y/n] ")
		if !p.scanner.Scan() {
			if err := p.scanner.Err(); err != nil {
				return false, err
			}
			return false, ErrInterrupted
		}
		switch strings.ToLower(strings.TrimSpace(p.scanner.Text())) {
		case "y", "yes":
			return true, nil
		case "n", "no", "":
			return false, nil
		default:
			fmt.Fprintln(p.out, StyleMuted.Render("Please answer y or n."))
		}
	}
}

// ReadLine prints the label and returns one trimmed line of input.
func (p *Prompter) ReadLine(label string) (string, error) {
	fmt.Fprint(p.out, label)
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", err
		}
		return "", ErrInterrupted
	}
	return strings.TrimSpace(p.scanner.Text()), nil
}

// ReadPassword prints the label and reads a line without echo when the
// input is a terminal. Non-terminal input falls back to a plain line
// read so tests and pipes keep working.
func (p *Prompter) ReadPassword(label string) (string, error) {
	fmt.Fprint(p.out, label)
	if f, ok := p.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(p.out)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(raw)), nil
	}
	return p.ReadLine("")
}
