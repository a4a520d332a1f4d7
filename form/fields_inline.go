package form

import (
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/tbxark/tgform/lang"
)

const (
	payloadToggle = "t:"
	payloadRemove = "r:"
	payloadPage   = "p:"
	payloadFinish = "f"
	payloadNoop   = "n"
)

func pageButtons(page, pages int, prev, next lang.Text, l lang.Language) []Button {
	var row []Button
	if page > 0 {
		row = append(row, Button{Label: prev.String(l), Payload: payloadPage + strconv.Itoa(page-1)})
	}
	if page < pages-1 {
		row = append(row, Button{Label: next.String(l), Payload: payloadPage + strconv.Itoa(page+1)})
	}
	return row
}

func parsePage(payload string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimPrefix(payload, payloadPage))
	return n, err == nil && n >= 0
}

// MultipleSelect toggles enum options on an inline keyboard and completes on
// the finish button.
type MultipleSelect struct {
	FieldBase
	EnumID              string
	PleaseUseInlineMenu lang.Text
	FinishCaption       lang.Text
	NextPageCaption     lang.Text
	PrevPageCaption     lang.Text
	RowWidth            int
	PerPage             int
	MinSelected         int
	MaxSelected         int
	// TooFew and TooMany take the bound as %d.
	TooFew  lang.Text
	TooMany lang.Text
}

func (f *MultipleSelect) enum() *Enum {
	e, err := lookupEnum(f.EnumID)
	if err != nil {
		panic(err)
	}
	return e
}

func (f *MultipleSelect) validate() error {
	if _, err := lookupEnum(f.EnumID); err != nil {
		return err
	}
	if f.MaxSelected > 0 && f.MinSelected > f.MaxSelected {
		return fmt.Errorf("field %q: min selected %d exceeds max %d", f.Name, f.MinSelected, f.MaxSelected)
	}
	texts := []requiredText{{"PleaseUseInlineMenu", f.PleaseUseInlineMenu}}
	if f.MinSelected > 0 {
		texts = append(texts, requiredText{"TooFew", f.TooFew})
	}
	if f.MaxSelected > 0 {
		texts = append(texts, requiredText{"TooMany", f.TooMany})
	}
	return requireTexts(texts...)
}

func (f *MultipleSelect) Parse(env Env, msg Message) (any, error) {
	return nil, BadValue(f.PleaseUseInlineMenu)
}

func (f *MultipleSelect) Markup(env Env, p Pending) Markup {
	options := f.enum().Options
	page, start, end := pageBounds(len(options), f.PerPage, p.Page)
	buttons := make([]Button, 0, end-start)
	for _, o := range options[start:end] {
		label := o.Label.String(env.Lang)
		if slices.Contains(p.Items, o.ID) {
			label = "✅ " + label
		}
		buttons = append(buttons, Button{Label: label, Payload: payloadToggle + o.ID})
	}
	rows := chunk(buttons, f.RowWidth)
	rows = append(rows, pageButtons(page, pageCount(len(options), f.PerPage), f.PrevPageCaption, f.NextPageCaption, env.Lang))
	rows = append(rows, []Button{{Label: f.FinishCaption.String(env.Lang), Payload: payloadFinish}})
	return InlineKeyboard(rows...)
}

func (f *MultipleSelect) HandleCallback(env Env, payload string, p Pending) (CallbackResult, error) {
	options := f.enum().Options
	switch {
	case strings.HasPrefix(payload, payloadToggle):
		id := strings.TrimPrefix(payload, payloadToggle)
		if _, ok := findOption(options, id); !ok {
			return CallbackResult{}, fmt.Errorf("unknown option %q", id)
		}
		if i := slices.Index(p.Items, id); i >= 0 {
			p.Items = slices.Delete(p.Items, i, i+1)
		} else {
			if f.MaxSelected > 0 && len(p.Items) >= f.MaxSelected {
				return CallbackResult{Pending: p, Reply: f.TooMany.Sprintf(env.Lang, f.MaxSelected)}, nil
			}
			p.Items = append(p.Items, id)
		}
		return CallbackResult{Pending: p, Redraw: true}, nil
	case strings.HasPrefix(payload, payloadPage):
		page, ok := parsePage(payload)
		if !ok {
			return CallbackResult{}, fmt.Errorf("bad page payload %q", payload)
		}
		p.Page = page
		return CallbackResult{Pending: p, Redraw: true}, nil
	case payload == payloadFinish:
		if len(p.Items) < f.MinSelected {
			return CallbackResult{Pending: p, Reply: f.TooFew.Sprintf(env.Lang, f.MinSelected)}, nil
		}
		selected := make([]string, 0, len(p.Items))
		for _, o := range options {
			if slices.Contains(p.Items, o.ID) {
				selected = append(selected, o.ID)
			}
		}
		return CallbackResult{Value: selected, Complete: true}, nil
	}
	return CallbackResult{}, fmt.Errorf("unexpected payload %q", payload)
}

func (f *MultipleSelect) FormatValue(v any, l lang.Language) string {
	ids, _ := v.([]string)
	options := f.enum().Options
	labels := make([]string, 0, len(ids))
	for _, id := range ids {
		labels = append(labels, formatOptionID(options, id, l))
	}
	return strings.Join(labels, ", ")
}

func (f *MultipleSelect) ValueID(v any) string {
	ids, _ := v.([]string)
	return joinIDs(ids)
}

func (f *MultipleSelect) ValueType() reflect.Type { return typeOf[[]string]() }

func (f *MultipleSelect) checkValue(v any) error {
	ids, _ := v.([]string)
	for _, id := range ids {
		if err := checkOptionID(f.enum().Options, f.EnumID, id); err != nil {
			return err
		}
	}
	return nil
}

func (f *MultipleSelect) Texts() []lang.Text {
	texts := append(f.FieldBase.Texts(), nonZero(f.PleaseUseInlineMenu, f.FinishCaption, f.NextPageCaption, f.PrevPageCaption, f.TooFew, f.TooMany)...)
	if e, ok := LookupEnum(f.EnumID); ok {
		texts = append(texts, e.Texts()...)
	}
	return texts
}

func (f *MultipleSelect) Clone() Field {
	c := *f
	c.FieldBase = f.FieldBase.clone()
	return &c
}

func joinIDs(ids []string) string {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	return strings.Join(sorted, ",")
}

// ListInput collects free-text items, one per message. Items can be removed
// from the inline menu; the finish button completes the field.
type ListInput struct {
	FieldBase
	FinishCaption   lang.Text
	NextPageCaption lang.Text
	PrevPageCaption lang.Text
	MinLen          int
	MaxLen          int
	PerPage         int
	EmptyItem       lang.Text
	MaxLenReached   lang.Text
	// TooFew takes the minimum as %d.
	TooFew lang.Text
}

func (f *ListInput) validate() error {
	if f.MaxLen > 0 && f.MinLen > f.MaxLen {
		return fmt.Errorf("field %q: min length %d exceeds max %d", f.Name, f.MinLen, f.MaxLen)
	}
	texts := []requiredText{{"EmptyItem", f.EmptyItem}}
	if f.MinLen > 0 {
		texts = append(texts, requiredText{"TooFew", f.TooFew})
	}
	if f.MaxLen > 0 {
		texts = append(texts, requiredText{"MaxLenReached", f.MaxLenReached})
	}
	return requireTexts(texts...)
}

func (f *ListInput) Parse(env Env, msg Message) (any, error) {
	res, err := f.Accumulate(env, msg, Pending{})
	if err != nil {
		return nil, err
	}
	return res.Pending.Items, nil
}

func (f *ListInput) Accumulate(env Env, msg Message, p Pending) (CallbackResult, error) {
	item := strings.TrimSpace(msg.Text)
	if item == "" {
		return CallbackResult{}, BadValue(f.EmptyItem)
	}
	if f.MaxLen > 0 && len(p.Items) >= f.MaxLen {
		return CallbackResult{}, BadValue(f.MaxLenReached)
	}
	p.Items = append(p.Items, item)
	p.Page = pageCount(len(p.Items), f.PerPage) - 1
	return CallbackResult{Pending: p}, nil
}

func (f *ListInput) Markup(env Env, p Pending) Markup {
	if len(p.Items) == 0 {
		return Markup{Kind: MarkupRemove}
	}
	page, start, end := pageBounds(len(p.Items), f.PerPage, p.Page)
	rows := make([][]Button, 0, end-start+2)
	for i := start; i < end; i++ {
		rows = append(rows, []Button{{Label: "❌ " + p.Items[i], Payload: payloadRemove + strconv.Itoa(i)}})
	}
	rows = append(rows, pageButtons(page, pageCount(len(p.Items), f.PerPage), f.PrevPageCaption, f.NextPageCaption, env.Lang))
	if len(p.Items) >= f.MinLen {
		rows = append(rows, []Button{{Label: f.FinishCaption.String(env.Lang), Payload: payloadFinish}})
	}
	return InlineKeyboard(rows...)
}

func (f *ListInput) HandleCallback(env Env, payload string, p Pending) (CallbackResult, error) {
	switch {
	case strings.HasPrefix(payload, payloadRemove):
		i, err := strconv.Atoi(strings.TrimPrefix(payload, payloadRemove))
		if err != nil || i < 0 || i >= len(p.Items) {
			return CallbackResult{Pending: p}, nil
		}
		p.Items = slices.Delete(p.Items, i, i+1)
		p.Page, _, _ = pageBounds(len(p.Items), f.PerPage, p.Page)
		return CallbackResult{Pending: p, Redraw: true}, nil
	case strings.HasPrefix(payload, payloadPage):
		page, ok := parsePage(payload)
		if !ok {
			return CallbackResult{}, fmt.Errorf("bad page payload %q", payload)
		}
		p.Page = page
		return CallbackResult{Pending: p, Redraw: true}, nil
	case payload == payloadFinish:
		if len(p.Items) < f.MinLen {
			return CallbackResult{Pending: p, Reply: f.TooFew.Sprintf(env.Lang, f.MinLen)}, nil
		}
		return CallbackResult{Value: slices.Clone(p.Items), Complete: true}, nil
	}
	return CallbackResult{}, fmt.Errorf("unexpected payload %q", payload)
}

func (f *ListInput) FormatValue(v any, l lang.Language) string {
	items, _ := v.([]string)
	return strings.Join(items, "\n")
}

func (f *ListInput) ValueID(v any) string {
	items, _ := v.([]string)
	return strings.Join(items, ",")
}

func (f *ListInput) ValueType() reflect.Type { return typeOf[[]string]() }

func (f *ListInput) Texts() []lang.Text {
	return append(f.FieldBase.Texts(), nonZero(f.FinishCaption, f.NextPageCaption, f.PrevPageCaption, f.EmptyItem, f.MaxLenReached, f.TooFew)...)
}

func (f *ListInput) Clone() Field {
	c := *f
	c.FieldBase = f.FieldBase.clone()
	return &c
}
