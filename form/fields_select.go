package form

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/tbxark/tgform/lang"
)

// SingleSelect offers the options of a registered enum as a reply keyboard.
type SingleSelect struct {
	FieldBase
	EnumID        string
	InvalidOption lang.Text
	RowWidth      int
}

func (f *SingleSelect) enum() *Enum {
	e, err := lookupEnum(f.EnumID)
	if err != nil {
		panic(err)
	}
	return e
}

func (f *SingleSelect) validate() error {
	if _, err := lookupEnum(f.EnumID); err != nil {
		return err
	}
	return requireTexts(requiredText{"InvalidOption", f.InvalidOption})
}

func (f *SingleSelect) Parse(env Env, msg Message) (any, error) {
	o, ok := matchOption(f.enum().Options, msg.Text, env.Lang)
	if !ok {
		return nil, BadValue(f.InvalidOption)
	}
	return o.ID, nil
}

func (f *SingleSelect) Markup(env Env, p Pending) Markup {
	return ReplyKeyboard(optionLabels(f.enum().Options, env.Lang), f.RowWidth)
}

func (f *SingleSelect) FormatValue(v any, l lang.Language) string {
	return formatOptionID(f.enum().Options, v, l)
}

func (f *SingleSelect) ValueType() reflect.Type { return typeOf[string]() }

func (f *SingleSelect) checkValue(v any) error {
	return checkOptionID(f.enum().Options, f.EnumID, v)
}

func (f *SingleSelect) Texts() []lang.Text {
	texts := append(f.FieldBase.Texts(), nonZero(f.InvalidOption)...)
	if e, ok := LookupEnum(f.EnumID); ok {
		texts = append(texts, e.Texts()...)
	}
	return texts
}

func (f *SingleSelect) Clone() Field {
	c := *f
	c.FieldBase = f.FieldBase.clone()
	return &c
}

// DynamicSingleSelect picks from options supplied when the session starts.
type DynamicSingleSelect struct {
	FieldBase
	InvalidOption lang.Text
	RowWidth      int
}

func (f *DynamicSingleSelect) validate() error {
	return requireTexts(requiredText{"InvalidOption", f.InvalidOption})
}

func (f *DynamicSingleSelect) options(env Env) ([]Option, error) {
	options, ok := env.Dynamic[f.Name]
	if !ok || len(options) == 0 {
		return nil, fmt.Errorf("no dynamic options for field %q", f.Name)
	}
	return options, nil
}

func (f *DynamicSingleSelect) Parse(env Env, msg Message) (any, error) {
	options, err := f.options(env)
	if err != nil {
		return nil, err
	}
	o, ok := matchOption(options, msg.Text, env.Lang)
	if !ok {
		return nil, BadValue(f.InvalidOption)
	}
	return o.ID, nil
}

func (f *DynamicSingleSelect) Markup(env Env, p Pending) Markup {
	options, err := f.options(env)
	if err != nil {
		return Markup{Kind: MarkupRemove}
	}
	return ReplyKeyboard(optionLabels(options, env.Lang), f.RowWidth)
}

func (f *DynamicSingleSelect) ValueType() reflect.Type { return typeOf[string]() }

func (f *DynamicSingleSelect) Texts() []lang.Text {
	return append(f.FieldBase.Texts(), nonZero(f.InvalidOption)...)
}

func (f *DynamicSingleSelect) Clone() Field {
	c := *f
	c.FieldBase = f.FieldBase.clone()
	return &c
}

// SearchableSingleSelect narrows a large enum by free-text search. An exact
// label or a single partial match selects; several matches are offered as a
// keyboard.
type SearchableSingleSelect struct {
	FieldBase
	EnumID            string
	NoMatches         lang.Text
	ChooseFromMatches lang.Text
	MaxMatches        int
	RowWidth          int
}

func (f *SearchableSingleSelect) enum() *Enum {
	e, err := lookupEnum(f.EnumID)
	if err != nil {
		panic(err)
	}
	return e
}

func (f *SearchableSingleSelect) validate() error {
	if _, err := lookupEnum(f.EnumID); err != nil {
		return err
	}
	return requireTexts(requiredText{"NoMatches", f.NoMatches})
}

func (f *SearchableSingleSelect) Parse(env Env, msg Message) (any, error) {
	o, ok := matchOption(f.enum().Options, msg.Text, env.Lang)
	if !ok {
		return nil, BadValue(f.NoMatches)
	}
	return o.ID, nil
}

func (f *SearchableSingleSelect) Accumulate(env Env, msg Message, p Pending) (CallbackResult, error) {
	options := f.enum().Options
	if o, ok := matchOption(options, msg.Text, env.Lang); ok {
		return CallbackResult{Value: o.ID, Complete: true}, nil
	}
	query := strings.ToLower(strings.TrimSpace(msg.Text))
	if query == "" {
		return CallbackResult{}, BadValue(f.NoMatches)
	}
	var matches []string
	for _, o := range options {
		if strings.Contains(strings.ToLower(o.Label.String(env.Lang)), query) {
			matches = append(matches, o.ID)
		}
	}
	switch {
	case len(matches) == 0:
		return CallbackResult{}, BadValue(f.NoMatches)
	case len(matches) == 1:
		return CallbackResult{Value: matches[0], Complete: true}, nil
	}
	if f.MaxMatches > 0 && len(matches) > f.MaxMatches {
		matches = matches[:f.MaxMatches]
	}
	return CallbackResult{
		Pending: Pending{Items: matches},
		Reply:   f.ChooseFromMatches.String(env.Lang),
	}, nil
}

func (f *SearchableSingleSelect) Markup(env Env, p Pending) Markup {
	if len(p.Items) == 0 {
		return Markup{Kind: MarkupRemove}
	}
	e := f.enum()
	labels := make([]string, 0, len(p.Items))
	for _, id := range p.Items {
		if o, ok := e.Option(id); ok {
			labels = append(labels, o.Label.String(env.Lang))
		}
	}
	return ReplyKeyboard(labels, f.RowWidth)
}

func (f *SearchableSingleSelect) FormatValue(v any, l lang.Language) string {
	return formatOptionID(f.enum().Options, v, l)
}

func (f *SearchableSingleSelect) ValueType() reflect.Type { return typeOf[string]() }

func (f *SearchableSingleSelect) checkValue(v any) error {
	return checkOptionID(f.enum().Options, f.EnumID, v)
}

func (f *SearchableSingleSelect) Texts() []lang.Text {
	texts := append(f.FieldBase.Texts(), nonZero(f.NoMatches, f.ChooseFromMatches)...)
	if e, ok := LookupEnum(f.EnumID); ok {
		texts = append(texts, e.Texts()...)
	}
	return texts
}

func (f *SearchableSingleSelect) Clone() Field {
	c := *f
	c.FieldBase = f.FieldBase.clone()
	return &c
}

func formatOptionID(options []Option, v any, l lang.Language) string {
	id, _ := v.(string)
	if o, ok := findOption(options, id); ok {
		return o.Label.String(l)
	}
	return fmt.Sprint(v)
}

func checkOptionID(options []Option, enumID string, v any) error {
	id, _ := v.(string)
	if _, ok := findOption(options, id); !ok {
		return fmt.Errorf("%q is not an option of enum %q", id, enumID)
	}
	return nil
}
