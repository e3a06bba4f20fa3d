package iocli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Stdio is a line-oriented console over a reader and a writer
type Stdio struct {
	in          *bufio.Reader
	out         io.Writer
	interactive bool
}

// NewStdio returns a console bound to the process stdin and stdout.
// Prompts are printed only when stdin is a terminal.
func NewStdio() IO {
	return &Stdio{
		in:          bufio.NewReader(os.Stdin),
		out:         os.Stdout,
		interactive: term.IsTerminal(int(os.Stdin.Fd())),
	}
}

// New returns a non-interactive console reading in and writing out
func New(in io.Reader, out io.Writer) *Stdio {
	return &Stdio{
		in:  bufio.NewReader(in),
		out: out,
	}
}

func (s *Stdio) Println(a ...any) {
	_, _ = fmt.Fprintln(s.out, a...)
}

func (s *Stdio) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(s.out, format, a...)
}

func (s *Stdio) Write(p []byte) (int, error) {
	return s.out.Write(p)
}

func (s *Stdio) Interactive() bool {
	return s.interactive
}

// ReadInput reads one line. The last line may end without a newline; io.EOF is returned only when nothing was read.
func (s *Stdio) ReadInput(prompt string) (string, error) {
	if s.interactive {
		s.Printf("%s", prompt)
	}
	input, err := s.in.ReadString('\n')
	if err != nil && (err != io.EOF || input == "") {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
