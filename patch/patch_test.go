package patch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type answers struct {
	Name  string   `json:"name"`
	Age   *int     `json:"age,omitempty"`
	Foods []string `json:"foods,omitempty"`
}

func TestDiffAndApply(t *testing.T) {
	age := 30
	before := answers{Name: "Alice", Foods: []string{"pizza"}}
	after := answers{Name: "Alice B", Age: &age}

	ops, err := Diff(before, after)
	require.NoError(t, err)
	assert.Equal(t, []Operation{
		{Op: OperationRemove, Path: "/foods"},
		{Op: OperationAdd, Path: "/age", Value: float64(30)},
		{Op: OperationReplace, Path: "/name", Value: "Alice B"},
	}, ops)

	got, err := Apply(before, ops)
	require.NoError(t, err)
	assert.Equal(t, after, got)
}

func TestApplyFixesOperations(t *testing.T) {
	got, err := Apply(map[string]any{"a": "x"}, []Operation{
		{Op: OperationReplace, Path: "/b", Value: "y"},
		{Op: OperationRemove, Path: "/missing"},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": "x", "b": "y"}, got)
}

func TestApplyTypeMismatch(t *testing.T) {
	_, err := Apply(answers{Name: "a"}, []Operation{{Op: OperationReplace, Path: "/name", Value: 5}})
	assert.Error(t, err)
}

func TestMerge(t *testing.T) {
	merged, err := Merge([]byte(`{"a":1,"b":2}`), []byte(`{"a":1,"c":3}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"b":null,"c":3}`, string(merged))
}

func TestValidatePaths(t *testing.T) {
	allowed := map[string]bool{"/name": true, "/foods/*": true}
	assert.NoError(t, ValidatePaths([]Operation{{Path: "/name"}, {Path: "/foods/2"}, {Path: "/foods/-"}}, allowed))
	assert.Error(t, ValidatePaths([]Operation{{Path: "/age"}}, allowed))
	assert.NoError(t, ValidatePaths([]Operation{{Path: "/anything"}}, nil))
}

func TestRootAndEscape(t *testing.T) {
	assert.Equal(t, "a/b", Root("/"+Escape("a/b")+"/0"))
	assert.Equal(t, "pet's name", Root("/pet's name"))
	assert.Equal(t, "", Root("name"))
}
