package editor

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/google/shlex"
)

const (
	tabSize              = 4
	defaultFormatTimeout = 5 * time.Second
)

// Formatter rewrites source text into canonical form.
type Formatter interface {
	Format(source string) (string, error)
}

// FormatterFunc adapts a function to Formatter.
type FormatterFunc func(source string) (string, error)

func (f FormatterFunc) Format(source string) (string, error) {
	return f(source)
}

// Whitespace normalizes indentation and line endings: tabs expand to
// four-column stops, trailing spaces are trimmed and the text ends in exactly
// one newline. An all-blank document becomes empty.
type Whitespace struct{}

func (Whitespace) Format(source string) (string, error) {
	source = strings.ReplaceAll(source, "\r\n", "\n")
	lines := strings.Split(source, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(expandTabs(line), " \t")
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		return "", nil
	}
	return strings.Join(lines, "\n") + "\n", nil
}

func expandTabs(line string) string {
	if !strings.Contains(line, "\t") {
		return line
	}
	var b strings.Builder
	col := 0
	for _, r := range line {
		if r == '\t' {
			pad := tabSize - col%tabSize
			b.WriteString(strings.Repeat(" ", pad))
			col += pad
			continue
		}
		b.WriteRune(r)
		col++
	}
	return b.String()
}

// Command pipes the source through an external formatter such as
// "ruff format -" or "black -q -".
type Command struct {
	args    []string
	timeout time.Duration
}

// NewCommand parses commandLine with shell quoting rules.
func NewCommand(commandLine string, timeout time.Duration) (*Command, error) {
	args, err := shlex.Split(commandLine)
	if err != nil {
		return nil, fmt.Errorf("parse formatter command failed: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("formatter command is empty")
	}
	if timeout <= 0 {
		timeout = defaultFormatTimeout
	}
	return &Command{args: args, timeout: timeout}, nil
}

func (c *Command) Format(source string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.args[0], c.args[1:]...)
	cmd.Stdin = strings.NewReader(source)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return "", fmt.Errorf("run formatter %s failed: %w", c.args[0], err)
		}
		return "", fmt.Errorf("run formatter %s failed: %w: %s", c.args[0], err, msg)
	}
	return stdout.String(), nil
}
