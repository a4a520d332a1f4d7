package types

import (
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
)

const EndMarker = "(end)"

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// FormatFieldTable renders fields as a markdown table, one row per field.
func FormatFieldTable(fields []FieldInfo) string {
	if len(fields) == 0 {
		return ""
	}
	var buf strings.Builder
	table := tablewriter.NewTable(&buf, tablewriter.WithRenderer(renderer.NewMarkdown()))
	table.Header("Field", "Kind", "Type", "Required", "Always visited", "Next")
	for _, field := range fields {
		next := make([]string, 0, len(field.Next))
		for _, n := range field.Next {
			if n == "" {
				n = EndMarker
			}
			next = append(next, n)
		}
		_ = table.Append(field.Name, field.Kind, field.ValueType, yesNo(field.Required), yesNo(field.GloballyRequired), strings.Join(next, ", "))
	}
	_ = table.Render()
	return buf.String()
}
