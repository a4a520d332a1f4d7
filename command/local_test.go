package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalParser(t *testing.T) {
	p := NewLocalParser()
	p.CancelCommands = append(p.CancelCommands, "/stop", "/menu")

	cases := map[string]Command{
		"hello":            None,
		"  /cancel ":       Cancel,
		"/stop":            Cancel,
		"/menu":            Cancel,
		"/skip":            Skip,
		"/skip@my_bot":     Skip,
		"/keep":            Keep,
		"/help":            Passthrough,
		"/help forms":      Passthrough,
		"/start":           Unknown,
		"/cancel please":   Unknown,
		"pizza /cancel":    None,
		"email@example.io": None,
	}
	for input, want := range cases {
		got, err := p.ParseCommand(context.Background(), input)
		require.NoError(t, err)
		assert.Equal(t, want, got, input)
	}
}

func TestAvailable(t *testing.T) {
	p := NewLocalParser()
	p.CancelCommands = []string{"/cancel", "/stop"}
	assert.Equal(t, []string{"/skip", "/cancel", "/stop"}, p.Available())

	p.SkipCommand = ""
	assert.Equal(t, []string{"/cancel", "/stop"}, p.Available())
}
