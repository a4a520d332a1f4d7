package form

type MarkupKind int

const (
	// MarkupRemove hides any reply keyboard left from a previous prompt.
	MarkupRemove MarkupKind = iota
	MarkupReply
	MarkupInline
	MarkupNone
)

// Button is a keyboard button. Payload is field-local callback data and is
// only meaningful for inline keyboards.
type Button struct {
	Label   string
	Payload string
}

type Markup struct {
	Kind MarkupKind
	Rows [][]Button
}

func (m Markup) Empty() bool {
	for _, row := range m.Rows {
		if len(row) > 0 {
			return false
		}
	}
	return true
}

func ReplyKeyboard(labels []string, rowWidth int) Markup {
	buttons := make([]Button, 0, len(labels))
	for _, l := range labels {
		buttons = append(buttons, Button{Label: l})
	}
	return Markup{Kind: MarkupReply, Rows: chunk(buttons, rowWidth)}
}

func InlineKeyboard(rows ...[]Button) Markup {
	kept := make([][]Button, 0, len(rows))
	for _, r := range rows {
		if len(r) > 0 {
			kept = append(kept, r)
		}
	}
	return Markup{Kind: MarkupInline, Rows: kept}
}

func chunk(buttons []Button, width int) [][]Button {
	if width <= 0 {
		width = 1
	}
	rows := make([][]Button, 0, (len(buttons)+width-1)/width)
	for len(buttons) > 0 {
		n := min(width, len(buttons))
		rows = append(rows, buttons[:n:n])
		buttons = buttons[n:]
	}
	return rows
}

func pageCount(total, perPage int) int {
	if perPage <= 0 || total == 0 {
		return 1
	}
	return (total + perPage - 1) / perPage
}

func pageBounds(total, perPage, page int) (int, int, int) {
	pages := pageCount(total, perPage)
	page = max(0, min(page, pages-1))
	if perPage <= 0 {
		return page, 0, total
	}
	start := page * perPage
	return page, start, min(start+perPage, total)
}
