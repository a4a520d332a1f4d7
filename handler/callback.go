package handler

import (
	"strings"

	"github.com/tbxark/tgform/form"
)

// maxCallbackData is Telegram's limit on inline button data, in bytes.
const maxCallbackData = 64

const callbackSep = "\x1f"

// CallbackData addresses payload to field of this handler's form.
func (h *Handler) CallbackData(field, payload string) string {
	return h.callbackPrefix + field + callbackSep + payload
}

// ParseCallbackData reports whether data was produced by CallbackData for a
// field of this handler's form.
func (h *Handler) ParseCallbackData(data string) (field, payload string, ok bool) {
	rest, ok := strings.CutPrefix(data, h.callbackPrefix)
	if !ok {
		return "", "", false
	}
	field, payload, ok = strings.Cut(rest, callbackSep)
	if !ok {
		return "", "", false
	}
	if _, known := h.form.Field(field); !known {
		return "", "", false
	}
	return field, payload, true
}

func (h *Handler) wrap(mk form.Markup, field string) form.Markup {
	if mk.Kind != form.MarkupInline {
		return mk
	}
	rows := make([][]form.Button, 0, len(mk.Rows))
	for _, row := range mk.Rows {
		out := make([]form.Button, 0, len(row))
		for _, b := range row {
			out = append(out, form.Button{Label: b.Label, Payload: h.CallbackData(field, b.Payload)})
		}
		rows = append(rows, out)
	}
	return form.Markup{Kind: mk.Kind, Rows: rows}
}
