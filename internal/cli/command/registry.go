package command

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/shlex"
)

// Command names.
const (
	Run      = "run"
	Reset    = "reset"
	Format   = "format"
	Show     = "show"
	Edit     = "edit"
	Problems = "problems"
	Open     = "open"
	Set      = "set"
	Help     = "help"
	Exit     = "exit"
)

// Invocation is a parsed command line.
type Invocation struct {
	Command    Command
	Subcommand string
	Params     Params
}

// Registry returns all REPL commands keyed by name and alias.
func Registry() map[string]Command {
	commands := []Command{
		{Name: Run, Aliases: []string{"r", "submit"}, Summary: "submit the current code (Ctrl+J)"},
		{Name: Reset, Summary: "restore the starter code"},
		{Name: Format, Aliases: []string{"fmt"}, Summary: "format the current code"},
		{Name: Show, Aliases: []string{"cat"}, Summary: "print the current code"},
		{Name: Edit, Aliases: []string{"e"}, Summary: "open the working file in $EDITOR"},
		{Name: Problems, Aliases: []string{"ls", "list"}, Summary: "list problems by day"},
		{
			Name:    Open,
			Aliases: []string{"o"},
			Summary: "open a problem and load its starter code",
			Fields: []Field{
				{Name: "id", Aliases: []string{"problem", "problem_id"}, Prompt: "problem_id", Type: FieldString, Required: true},
			},
		},
		{
			Name:    Set,
			Summary: "change a session setting",
			Subcommands: map[string][]Field{
				"base":    {{Name: "value", Aliases: []string{"url"}, Prompt: "url", Type: FieldURL, Required: true}},
				"timeout": {{Name: "value", Aliases: []string{"duration"}, Prompt: "duration", Type: FieldDuration, Required: true}},
			},
		},
		{Name: Help, Aliases: []string{"?"}, Summary: "show this help"},
		{Name: Exit, Aliases: []string{"quit", "q"}, Summary: "leave the workbench"},
	}

	result := make(map[string]Command, len(commands)*2)
	for _, cmd := range commands {
		result[cmd.Name] = cmd
		for _, alias := range cmd.Aliases {
			result[alias] = cmd
		}
	}
	return result
}

// Names returns the primary command names in display order.
func Names(commands map[string]Command) []string {
	seen := make(map[string]struct{}, len(commands))
	names := make([]string, 0, len(commands))
	for _, cmd := range commands {
		if _, ok := seen[cmd.Name]; ok {
			continue
		}
		seen[cmd.Name] = struct{}{}
		names = append(names, cmd.Name)
	}
	sort.Strings(names)
	return names
}

// Parse tokenizes line and binds its arguments to a registered command.
func Parse(commands map[string]Command, line string) (Invocation, error) {
	tokens, err := shlex.Split(line)
	if err != nil {
		return Invocation{}, fmt.Errorf("parse command failed: %w", err)
	}
	if len(tokens) == 0 {
		return Invocation{}, fmt.Errorf("empty command")
	}
	cmd, ok := commands[strings.ToLower(tokens[0])]
	if !ok {
		return Invocation{}, fmt.Errorf("unknown command: %s", tokens[0])
	}

	inv := Invocation{Command: cmd, Params: Params{}}
	args := tokens[1:]
	fields := cmd.Fields
	if len(cmd.Subcommands) > 0 {
		if len(args) == 0 {
			return Invocation{}, fmt.Errorf("usage: %s", cmd.Usage())
		}
		sub := strings.ToLower(args[0])
		subFields, ok := cmd.Subcommands[sub]
		if !ok {
			return Invocation{}, fmt.Errorf("unknown %s option: %s", cmd.Name, args[0])
		}
		inv.Subcommand = sub
		fields = subFields
		args = args[1:]
	}

	if err := bindArgs(inv.Params, fields, args); err != nil {
		return Invocation{}, err
	}
	inv.Params.Canonicalize(fields)
	if err := validate(inv.Params, fields); err != nil {
		return Invocation{}, fmt.Errorf("%w (usage: %s)", err, cmd.Usage())
	}
	return inv, nil
}

func bindArgs(params Params, fields []Field, args []string) error {
	position := 0
	for _, token := range args {
		if key, value, ok := strings.Cut(token, "="); ok && key != "" {
			params.Set(key, value)
			continue
		}
		if position >= len(fields) {
			return fmt.Errorf("unexpected argument: %s", token)
		}
		params.Set(fields[position].Name, token)
		position++
	}
	return nil
}

func validate(params Params, fields []Field) error {
	for _, field := range fields {
		value := params.Get(field.Name)
		if value == "" {
			if field.Required {
				return fmt.Errorf("missing %s", field.Prompt)
			}
			continue
		}
		switch field.Type {
		case FieldDuration:
			if _, err := ParseDuration(value); err != nil {
				return err
			}
		case FieldURL:
			normalized, err := ParseURL(value)
			if err != nil {
				return err
			}
			params.Set(field.Name, normalized)
		}
	}
	return nil
}

func sortedKeys(m map[string][]Field) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
