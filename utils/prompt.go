package utils

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// Prompter solicits out-of-band input from a human operator. The login
// protocol blocks on it for one-time codes and challenge solutions, so
// implementations must honour context cancellation.
type Prompter interface {
	Ask(ctx context.Context, question string) (string, error)
}

// TerminalPrompter reads operator answers line-by-line from an input
// stream, normally stdin.
type TerminalPrompter struct {
	in  io.Reader
	out io.Writer
}

// NewTerminalPrompter creates a Prompter bound to stdin/stdout.
func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{in: os.Stdin, out: os.Stdout}
}

// Ask prints the question and blocks until the operator answers or the
// context is cancelled.
func (p *TerminalPrompter) Ask(ctx context.Context, question string) (string, error) {
	fmt.Fprintf(p.out, "%s ", question)

	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)

	go func() {
		reader := bufio.NewReader(p.in)
		line, err := reader.ReadString('\n')
		ch <- result{strings.TrimSpace(line), err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		if r.err != nil && r.line == "" {
			return "", fmt.Errorf("prompt: read answer: %w", r.err)
		}
		return r.line, nil
	}
}
