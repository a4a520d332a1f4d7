package handler

import (
	"fmt"
	"time"

	"github.com/tbxark/tgform/command"
	"github.com/tbxark/tgform/lang"
)

// Config holds the commands and user-facing texts of a form session.
// Templates are formatted with fmt verbs; the comment on each names them.
type Config struct {
	// EchoFilledField repeats each accepted value back to the user using
	// EchoTemplate unless the field has its own echo text.
	EchoFilledField bool
	// EchoTemplate: %s is the formatted value.
	EchoTemplate lang.Text
	RetryFieldMsg lang.Text
	// UnsupportedCommandTemplate: %s is the comma separated list of commands.
	UnsupportedCommandTemplate lang.Text
	// CancellingBecauseOfErrorTemplate: %s is the error.
	CancellingBecauseOfErrorTemplate lang.Text
	// FormStartingTemplate: %s is the cancel command.
	FormStartingTemplate lang.Text
	// CanSkipFieldTemplate: %s is the skip command.
	CanSkipFieldTemplate lang.Text
	CantSkipFieldMsg     lang.Text
	// KeepExistingFieldValueTemplate: %s is the current value, then the keep command.
	KeepExistingFieldValueTemplate lang.Text
	// CancelledMsg is sent on cancellation; a zero text sends nothing.
	CancelledMsg lang.Text

	CancelCommand       string
	CancelAliases       []string
	SkipCommand         string
	KeepCommand         string
	PassthroughCommands []string

	Suggestions *SuggestionsConfig
	// TTL bounds how long an abandoned session is kept. Zero keeps it forever.
	TTL time.Duration
}

type SuggestionsConfig struct {
	// Count is how many previous answers are remembered per field.
	Count int
	// TTL of remembered answers. Zero keeps them forever.
	TTL time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		EchoTemplate:                     lang.Plain("%s"),
		RetryFieldMsg:                    lang.Plain("Please try again."),
		UnsupportedCommandTemplate:       lang.Plain("Unsupported command. Available commands: %s"),
		CancellingBecauseOfErrorTemplate: lang.Plain("Something went wrong, the form is cancelled: %s"),
		FormStartingTemplate:             lang.Plain("Filling in the form (%s to cancel)"),
		CanSkipFieldTemplate:             lang.Plain("(%s to skip)"),
		CantSkipFieldMsg:                 lang.Plain("This field is required and cannot be skipped."),
		KeepExistingFieldValueTemplate:   lang.Plain("Current value: %s (%s to keep it)"),
		CancelledMsg:                     lang.Plain("Cancelled."),
		CancelCommand:                    "/cancel",
		SkipCommand:                      "/skip",
		KeepCommand:                      "/keep",
		PassthroughCommands:              []string{"/help"},
	}
}

func (c *Config) validate() error {
	if c.CancelCommand == "" {
		return fmt.Errorf("cancel command is required")
	}
	if c.SkipCommand == "" {
		return fmt.Errorf("skip command is required")
	}
	seen := map[string]bool{}
	cmds := append([]string{c.CancelCommand, c.SkipCommand}, c.CancelAliases...)
	if c.KeepCommand != "" {
		cmds = append(cmds, c.KeepCommand)
	}
	cmds = append(cmds, c.PassthroughCommands...)
	for _, cmd := range cmds {
		if len(cmd) < 2 || cmd[0] != '/' {
			return fmt.Errorf("command %q must start with /", cmd)
		}
		if seen[cmd] {
			return fmt.Errorf("command %q is configured twice", cmd)
		}
		seen[cmd] = true
	}
	for name, t := range map[string]lang.Text{
		"retry field message":         c.RetryFieldMsg,
		"unsupported command template": c.UnsupportedCommandTemplate,
		"cancelling template":          c.CancellingBecauseOfErrorTemplate,
		"form starting template":       c.FormStartingTemplate,
		"can skip template":            c.CanSkipFieldTemplate,
		"cant skip message":            c.CantSkipFieldMsg,
	} {
		if t.IsZero() {
			return fmt.Errorf("%s is empty", name)
		}
	}
	if c.EchoFilledField && c.EchoTemplate.IsZero() {
		return fmt.Errorf("echo template is empty")
	}
	if c.KeepCommand != "" && c.KeepExistingFieldValueTemplate.IsZero() {
		return fmt.Errorf("keep existing value template is empty")
	}
	if c.Suggestions != nil && c.Suggestions.Count <= 0 {
		return fmt.Errorf("suggestion count must be positive")
	}
	return nil
}

func (c *Config) texts() []lang.Text {
	texts := []lang.Text{
		c.RetryFieldMsg,
		c.UnsupportedCommandTemplate,
		c.CancellingBecauseOfErrorTemplate,
		c.FormStartingTemplate,
		c.CanSkipFieldTemplate,
		c.CantSkipFieldMsg,
	}
	if c.EchoFilledField {
		texts = append(texts, c.EchoTemplate)
	}
	if c.KeepCommand != "" {
		texts = append(texts, c.KeepExistingFieldValueTemplate)
	}
	if !c.CancelledMsg.IsZero() {
		texts = append(texts, c.CancelledMsg)
	}
	return texts
}

func (c *Config) parser() *command.LocalParser {
	return &command.LocalParser{
		CancelCommands:      append([]string{c.CancelCommand}, c.CancelAliases...),
		SkipCommand:         c.SkipCommand,
		KeepCommand:         c.KeepCommand,
		PassthroughCommands: c.PassthroughCommands,
	}
}
