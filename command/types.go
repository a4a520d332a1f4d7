package command

import "context"

type Command string

const (
	None        Command = "none"
	Cancel      Command = "cancel"
	Skip        Command = "skip"
	Keep        Command = "keep"
	Passthrough Command = "passthrough"
	Unknown     Command = "unknown"
)

type Parser interface {
	ParseCommand(ctx context.Context, input string) (Command, error)
}
