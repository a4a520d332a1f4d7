package types

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatFieldTable(t *testing.T) {
	out := FormatFieldTable([]FieldInfo{
		{Name: "name", Kind: "PlainText", ValueType: "string", Required: true, GloballyRequired: true, Next: []string{"age"}},
		{Name: "age", Kind: "Integer", ValueType: "int", Next: []string{""}},
	})
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 4)
	assert.Contains(t, strings.ToLower(lines[0]), "field")
	assert.Contains(t, lines[2], "name")
	assert.Contains(t, lines[3], EndMarker)
	assert.Empty(t, FormatFieldTable(nil))
}

func TestPhaseTerminal(t *testing.T) {
	assert.False(t, PhaseCollecting.Terminal())
	assert.True(t, PhaseCompleted.Terminal())
	assert.True(t, PhaseCancelled.Terminal())
}
