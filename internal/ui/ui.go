// Package ui is the user-interaction sink: progress messages and
// yes/no confirmation prompts ahead of mutating steps.
package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Interactor reports messages and asks for confirmation. A "no"
// answer to Confirm must make the caller abort cleanly; it is never
// an error.
type Interactor interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Confirm(prompt string) (bool, error)
}

// Terminal is the interactive implementation.
type Terminal struct {
	In  io.Reader
	Out io.Writer

	// AssumeYes answers every prompt affirmatively (--yes flag).
	AssumeYes bool

	reader *bufio.Reader
}

func NewTerminal() *Terminal {
	return &Terminal{In: os.Stdin, Out: os.Stdout}
}

func (t *Terminal) Infof(format string, args ...any) {
	fmt.Fprintf(t.Out, format+"\n", args...)
}

func (t *Terminal) Warnf(format string, args ...any) {
	logrus.Warnf(format, args...)
	fmt.Fprintf(t.Out, "warning: "+format+"\n", args...)
}

func (t *Terminal) Confirm(prompt string) (bool, error) {
	if t.AssumeYes {
		return true, nil
	}
	if t.reader == nil {
		t.reader = bufio.NewReader(t.In)
	}
	fmt.Fprintf(t.Out, "%s [y/N] ", prompt)
	line, err := t.reader.ReadString('\n')
	if err != nil && line == "" {
		return false, fmt.Errorf("read confirmation: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// Recorder is a scripted Interactor for tests.
type Recorder struct {
	Infos []string
	Warns []string
	// Answers are consumed in order; when exhausted, Default is
	// returned.
	Answers []bool
	Default bool
	Prompts []string
}

func (r *Recorder) Infof(format string, args ...any) {
	r.Infos = append(r.Infos, fmt.Sprintf(format, args...))
}

func (r *Recorder) Warnf(format string, args ...any) {
	r.Warns = append(r.Warns, fmt.Sprintf(format, args...))
}

func (r *Recorder) Confirm(prompt string) (bool, error) {
	r.Prompts = append(r.Prompts, prompt)
	if len(r.Answers) == 0 {
		return r.Default, nil
	}
	ans := r.Answers[0]
	r.Answers = r.Answers[1:]
	return ans, nil
}
