package form

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/tbxark/tgform/lang"
)

// Item is an element of a branching form definition: a Field or a Branch.
type Item interface {
	formItem()
}

// Field is one question of a form.
type Field interface {
	Item
	Base() *FieldBase
	// Parse turns a message into the field value or returns a BadFieldValueError.
	Parse(env Env, msg Message) (any, error)
	Markup(env Env, p Pending) Markup
	FormatValue(v any, l lang.Language) string
	// ValueID is the stable identifier of a value used by branch conditions
	// and export mappings.
	ValueID(v any) string
	ValueType() reflect.Type
	Texts() []lang.Text
	Clone() Field
}

// CallbackResult is the outcome of feeding a button press or an accumulating
// message into a field.
type CallbackResult struct {
	Pending  Pending
	Value    any
	Complete bool
	Reply    string
	Redraw   bool
}

// InlineField accepts button presses on its inline keyboard.
type InlineField interface {
	Field
	HandleCallback(env Env, payload string, p Pending) (CallbackResult, error)
}

// Accumulator consumes messages one by one until its value is complete.
// When a field implements it, messages are routed here instead of Parse.
type Accumulator interface {
	Field
	Accumulate(env Env, msg Message, p Pending) (CallbackResult, error)
}

type validator interface {
	validate() error
}

type valueChecker interface {
	checkValue(v any) error
}

type valueNormalizer interface {
	normalize(v any) any
}

type Formatting struct {
	Descr     lang.Text
	Multiline bool
	// Value overrides the field's own value rendering.
	Value func(v any, l lang.Language) string
}

type Export struct {
	Column string
	// Mapping is keyed by value id and takes precedence over Process.
	Mapping map[string]string
	Process func(s string) string
}

type FieldBase struct {
	Name     string
	Required bool
	Query    lang.Text
	// Echo is a template with one %s for the formatted value.
	Echo       lang.Text
	Next       *NextFieldGetter
	Formatting *Formatting
	Export     *Export
	// Suggest offers the user's previous answers as a keyboard.
	Suggest bool
}

func (b *FieldBase) formItem() {}

func (b *FieldBase) Base() *FieldBase { return b }

func (b *FieldBase) Markup(env Env, p Pending) Markup {
	return Markup{Kind: MarkupRemove}
}

func (b *FieldBase) FormatValue(v any, l lang.Language) string {
	return fmt.Sprint(v)
}

func (b *FieldBase) ValueID(v any) string {
	return fmt.Sprint(v)
}

func (b *FieldBase) Texts() []lang.Text {
	texts := append([]lang.Text{b.Query}, nonZero(b.Echo)...)
	if b.Formatting != nil {
		texts = append(texts, nonZero(b.Formatting.Descr)...)
	}
	return texts
}

func (b FieldBase) clone() FieldBase {
	c := b
	if b.Formatting != nil {
		f := *b.Formatting
		c.Formatting = &f
	}
	if b.Export != nil {
		e := *b.Export
		e.Mapping = make(map[string]string, len(b.Export.Mapping))
		for k, v := range b.Export.Mapping {
			e.Mapping[k] = v
		}
		c.Export = &e
	}
	return c
}

// requiredText pairs a message a field may reply with and its field name.
type requiredText struct {
	name string
	text lang.Text
}

func requireTexts(texts ...requiredText) error {
	var missing []string
	for _, t := range texts {
		if t.text.IsZero() {
			missing = append(missing, t.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing texts: %s", strings.Join(missing, ", "))
	}
	return nil
}

func nonZero(texts ...lang.Text) []lang.Text {
	return slices.DeleteFunc(slices.Clone(texts), lang.Text.IsZero)
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeFor[T]()
}
