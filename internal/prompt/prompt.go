// Package prompt asks the user for confirmations and free-form selections.
// On a terminal it uses huh forms; otherwise it reads plain lines.
package prompt

import (
	"bufio"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"worktreectl/internal/errors"
)

// Prompter is what batch commands need from the user
type Prompter interface {
	// Confirm returns false when the user declines or aborts
	Confirm(title string) (bool, error)
	// Input returns a line of text; an abort is an ErrCancelled error
	Input(title, placeholder string) (string, error)
}

// Terminal prompts on stdin/stdout
type Terminal struct {
	in          io.Reader
	out         io.Writer
	interactive bool
	reader      *bufio.Reader
}

// New returns a prompter bound to the process stdin and stdout
func New() *Terminal {
	return &Terminal{
		in:          os.Stdin,
		out:         os.Stdout,
		interactive: term.IsTerminal(int(os.Stdin.Fd())),
	}
}

// NewLinePrompter returns a prompter that always reads plain lines from in
func NewLinePrompter(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: in, out: out}
}

func (t *Terminal) Confirm(title string) (bool, error) {
	if t.interactive {
		var confirmed bool
		err := huh.NewConfirm().
			Title(title).
			Affirmative("Yes").
			Negative("No").
			Value(&confirmed).
			Run()
		if stderrors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return confirmed, err
	}

	fmt.Fprintf(t.out, "%s (y/N) ", title)
	line, err := t.readLine()
	if err != nil {
		return false, nil
	}
	answer := strings.ToLower(line)
	return answer == "y" || answer == "yes", nil
}

func (t *Terminal) Input(title, placeholder string) (string, error) {
	if t.interactive {
		var value string
		err := huh.NewInput().
			Title(title).
			Placeholder(placeholder).
			Value(&value).
			Run()
		if stderrors.Is(err, huh.ErrUserAborted) {
			return "", errors.New(errors.ErrCancelled, "Selection cancelled")
		}
		return strings.TrimSpace(value), err
	}

	fmt.Fprintf(t.out, "%s [%s]: ", title, placeholder)
	line, err := t.readLine()
	if err != nil {
		return "", errors.New(errors.ErrCancelled, "Selection cancelled")
	}
	return line, nil
}

func (t *Terminal) readLine() (string, error) {
	if t.reader == nil {
		t.reader = bufio.NewReader(t.in)
	}
	line, err := t.reader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Static answers prompts from fixed values. Used with --force style flows and tests.
type Static struct {
	Answer bool
	Text   string
	Asked  []string
}

func (s *Static) Confirm(title string) (bool, error) {
	s.Asked = append(s.Asked, title)
	return s.Answer, nil
}

func (s *Static) Input(title, placeholder string) (string, error) {
	s.Asked = append(s.Asked, title)
	return s.Text, nil
}
