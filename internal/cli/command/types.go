package command

import (
	"fmt"
	"strings"
	"time"
)

// FieldType describes input type.
type FieldType int

const (
	FieldString FieldType = iota
	FieldDuration
	FieldURL
)

// Field defines a command argument. Positional arguments fill fields in order;
// key=value tokens address a field by name or alias.
type Field struct {
	Name     string
	Aliases  []string
	Prompt   string
	Type     FieldType
	Required bool
}

// Command defines a REPL command binding.
type Command struct {
	Name    string
	Aliases []string
	Summary string
	// Subcommands, when set, take the first positional argument as their selector.
	Subcommands map[string][]Field
	Fields      []Field
}

// Usage renders a one-line synopsis.
func (c Command) Usage() string {
	var b strings.Builder
	b.WriteString(c.Name)
	if len(c.Subcommands) > 0 {
		b.WriteString(" ")
		b.WriteString(strings.Join(sortedKeys(c.Subcommands), "|"))
		b.WriteString(" <value>")
	}
	for _, field := range c.Fields {
		if field.Required {
			fmt.Fprintf(&b, " <%s>", field.Prompt)
		} else {
			fmt.Fprintf(&b, " [%s]", field.Prompt)
		}
	}
	return b.String()
}

// Params holds parsed input params.
type Params map[string]string

func (p Params) Get(key string) string {
	return p[strings.ToLower(key)]
}

func (p Params) Set(key, value string) {
	p[strings.ToLower(key)] = value
}

func (p Params) Has(key string) bool {
	_, ok := p[strings.ToLower(key)]
	return ok
}

func (p Params) Canonicalize(fields []Field) {
	for _, field := range fields {
		for _, alias := range field.Aliases {
			aliasKey := strings.ToLower(alias)
			if value, ok := p[aliasKey]; ok {
				p[strings.ToLower(field.Name)] = value
				delete(p, aliasKey)
			}
		}
	}
}

func ParseDuration(value string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid duration: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive")
	}
	return d, nil
}

func ParseURL(value string) (string, error) {
	raw := strings.TrimRight(strings.TrimSpace(value), "/")
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return "", fmt.Errorf("invalid base url %q: want http:// or https://", value)
	}
	return raw, nil
}
