package command

import (
	"context"
	"slices"
	"strings"
)

// LocalParser recognises slash commands typed while a form is being filled.
// Text that does not start with "/" is never a command.
type LocalParser struct {
	CancelCommands      []string
	SkipCommand         string
	KeepCommand         string
	PassthroughCommands []string
}

func NewLocalParser() *LocalParser {
	return &LocalParser{
		CancelCommands:      []string{"/cancel"},
		SkipCommand:         "/skip",
		KeepCommand:         "/keep",
		PassthroughCommands: []string{"/help"},
	}
}

func (p *LocalParser) ParseCommand(ctx context.Context, input string) (Command, error) {
	normalized := Normalize(input)
	if !strings.HasPrefix(normalized, "/") {
		return None, nil
	}
	if slices.Contains(p.CancelCommands, normalized) {
		return Cancel, nil
	}
	if p.SkipCommand != "" && normalized == p.SkipCommand {
		return Skip, nil
	}
	if p.KeepCommand != "" && normalized == p.KeepCommand {
		return Keep, nil
	}
	// Passthrough commands keep their arguments, e.g. "/language en".
	if name, _, _ := strings.Cut(normalized, " "); slices.Contains(p.PassthroughCommands, name) {
		return Passthrough, nil
	}
	return Unknown, nil
}

// Available lists the commands a user may type while filling a form, in the
// order they are shown in hints.
func (p *LocalParser) Available() []string {
	cmds := make([]string, 0, len(p.CancelCommands)+1)
	if p.SkipCommand != "" {
		cmds = append(cmds, p.SkipCommand)
	}
	return append(cmds, p.CancelCommands...)
}

// Normalize trims whitespace and drops a trailing "@botname" from the
// command token.
func Normalize(input string) string {
	s := strings.TrimSpace(input)
	if !strings.HasPrefix(s, "/") {
		return s
	}
	if i := strings.IndexByte(s, '@'); i > 0 && !strings.ContainsAny(s[:i], " \n") {
		s = s[:i]
	}
	return s
}
