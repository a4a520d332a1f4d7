package form

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/tbxark/tgform/lang"
)

// Attachments collects files over one or more messages, so albums sent as a
// media group arrive as several updates and still fill one field.
type Attachments struct {
	FieldBase
	Allowed       []AttachmentKind
	Min, Max      int
	SendFiles     lang.Text
	NotAllowed    lang.Text
	TooMany       lang.Text
	TooFew        lang.Text
	FinishCaption lang.Text
}

func (f *Attachments) validate() error {
	if f.Max > 0 && f.Min > f.Max {
		return fmt.Errorf("field %q: min attachments %d exceeds max %d", f.Name, f.Min, f.Max)
	}
	texts := []requiredText{{"SendFiles", f.SendFiles}, {"TooFew", f.TooFew}}
	if len(f.Allowed) > 0 {
		texts = append(texts, requiredText{"NotAllowed", f.NotAllowed})
	}
	if f.Max > 0 {
		texts = append(texts, requiredText{"TooMany", f.TooMany})
	}
	return requireTexts(texts...)
}

func (f *Attachments) check(msg Message) error {
	if len(msg.Attachments) == 0 {
		return BadValue(f.SendFiles)
	}
	if len(f.Allowed) > 0 {
		for _, a := range msg.Attachments {
			if !slices.Contains(f.Allowed, a.Kind) {
				return BadValue(f.NotAllowed)
			}
		}
	}
	return nil
}

func (f *Attachments) Parse(env Env, msg Message) (any, error) {
	if err := f.check(msg); err != nil {
		return nil, err
	}
	if f.Max > 0 && len(msg.Attachments) > f.Max {
		return nil, BadValue(f.TooMany, f.Max)
	}
	return slices.Clone(msg.Attachments), nil
}

func (f *Attachments) Accumulate(env Env, msg Message, p Pending) (CallbackResult, error) {
	if err := f.check(msg); err != nil {
		return CallbackResult{}, err
	}
	if f.Max > 0 && len(p.Files)+len(msg.Attachments) > f.Max {
		return CallbackResult{}, BadValue(f.TooMany, f.Max)
	}
	p.Files = append(p.Files, msg.Attachments...)
	if f.Max > 0 && len(p.Files) == f.Max {
		return CallbackResult{Value: p.Files, Complete: true}, nil
	}
	return CallbackResult{Pending: p}, nil
}

func (f *Attachments) Markup(env Env, p Pending) Markup {
	if len(p.Files) == 0 || len(p.Files) < f.Min {
		return Markup{Kind: MarkupRemove}
	}
	caption := fmt.Sprintf("%s (%d)", f.FinishCaption.String(env.Lang), len(p.Files))
	return InlineKeyboard([]Button{{Label: caption, Payload: payloadFinish}})
}

func (f *Attachments) HandleCallback(env Env, payload string, p Pending) (CallbackResult, error) {
	if payload != payloadFinish {
		return CallbackResult{}, fmt.Errorf("unexpected payload %q", payload)
	}
	if len(p.Files) == 0 || len(p.Files) < f.Min {
		return CallbackResult{Pending: p, Reply: f.TooFew.Sprintf(env.Lang, max(f.Min, 1))}, nil
	}
	return CallbackResult{Value: p.Files, Complete: true}, nil
}

func (f *Attachments) FormatValue(v any, l lang.Language) string {
	files, _ := v.([]Attachment)
	parts := make([]string, 0, len(files))
	for _, a := range files {
		name := a.FileName
		if name == "" {
			name = string(a.Kind)
		}
		parts = append(parts, name)
	}
	return strings.Join(parts, ", ")
}

func (f *Attachments) ValueID(v any) string {
	files, _ := v.([]Attachment)
	ids := make([]string, 0, len(files))
	for _, a := range files {
		ids = append(ids, a.FileID)
	}
	return strings.Join(ids, ",")
}

func (f *Attachments) ValueType() reflect.Type { return typeOf[[]Attachment]() }

func (f *Attachments) Texts() []lang.Text {
	return append(f.FieldBase.Texts(), nonZero(f.SendFiles, f.NotAllowed, f.TooMany, f.TooFew, f.FinishCaption)...)
}

func (f *Attachments) Clone() Field {
	c := *f
	c.FieldBase = f.FieldBase.clone()
	c.Allowed = slices.Clone(f.Allowed)
	return &c
}
