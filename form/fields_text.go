package form

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/tbxark/tgform/lang"
)

type PlainText struct {
	FieldBase
	EmptyTextError lang.Text
}

func (f *PlainText) validate() error {
	return requireTexts(requiredText{"EmptyTextError", f.EmptyTextError})
}

func (f *PlainText) Parse(env Env, msg Message) (any, error) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return nil, BadValue(f.EmptyTextError)
	}
	return text, nil
}

func (f *PlainText) ValueType() reflect.Type { return typeOf[string]() }

func (f *PlainText) Texts() []lang.Text {
	return append(f.FieldBase.Texts(), nonZero(f.EmptyTextError)...)
}

func (f *PlainText) Clone() Field {
	c := *f
	c.FieldBase = f.FieldBase.clone()
	return &c
}

type Integer struct {
	FieldBase
	NotAnInteger lang.Text
	Min, Max     *int
	// OutOfRange has two %d verbs for the bounds and is used when both are
	// set. TooSmall and TooLarge take the single bound.
	OutOfRange lang.Text
	TooSmall   lang.Text
	TooLarge   lang.Text
}

func (f *Integer) validate() error {
	texts := []requiredText{{"NotAnInteger", f.NotAnInteger}}
	switch {
	case f.Min != nil && f.Max != nil:
		if *f.Min > *f.Max {
			return fmt.Errorf("min %d exceeds max %d", *f.Min, *f.Max)
		}
		texts = append(texts, requiredText{"OutOfRange", f.OutOfRange})
	case f.Min != nil:
		texts = append(texts, requiredText{"TooSmall", f.TooSmall})
	case f.Max != nil:
		texts = append(texts, requiredText{"TooLarge", f.TooLarge})
	}
	return requireTexts(texts...)
}

func (f *Integer) Parse(env Env, msg Message) (any, error) {
	n, err := strconv.Atoi(strings.TrimSpace(msg.Text))
	if err != nil {
		return nil, BadValue(f.NotAnInteger)
	}
	low := f.Min != nil && n < *f.Min
	high := f.Max != nil && n > *f.Max
	switch {
	case (low || high) && f.Min != nil && f.Max != nil:
		return nil, BadValue(f.OutOfRange, *f.Min, *f.Max)
	case low:
		return nil, BadValue(f.TooSmall, *f.Min)
	case high:
		return nil, BadValue(f.TooLarge, *f.Max)
	}
	return n, nil
}

func (f *Integer) ValueType() reflect.Type { return typeOf[int]() }

func (f *Integer) ValueID(v any) string {
	if n, ok := v.(int); ok {
		return strconv.Itoa(n)
	}
	return fmt.Sprint(v)
}

func (f *Integer) Texts() []lang.Text {
	return append(f.FieldBase.Texts(), nonZero(f.NotAnInteger, f.OutOfRange, f.TooSmall, f.TooLarge)...)
}

func (f *Integer) Clone() Field {
	c := *f
	c.FieldBase = f.FieldBase.clone()
	return &c
}

const (
	dateDisplayLayout = "02.01.2006"
	dateIDLayout      = "2006-01-02"
)

// Date reads "d", "d.m" or "d.m.y"; missing parts default to today.
type Date struct {
	FieldBase
	BadFormat lang.Text
	NoPast    bool
	PastError lang.Text
	Location  *time.Location
}

func (f *Date) location() *time.Location {
	if f.Location == nil {
		return time.UTC
	}
	return f.Location
}

// normalize restores the field's location on a decoded date.
func (f *Date) normalize(v any) any {
	if t, ok := v.(time.Time); ok {
		return t.In(f.location())
	}
	return v
}

func (f *Date) validate() error {
	texts := []requiredText{{"BadFormat", f.BadFormat}}
	if f.NoPast {
		texts = append(texts, requiredText{"PastError", f.PastError})
	}
	return requireTexts(texts...)
}

func (f *Date) Parse(env Env, msg Message) (any, error) {
	today := truncateDay(env.now().In(f.location()))
	d, ok := parseDate(strings.TrimSpace(msg.Text), today)
	if !ok {
		return nil, BadValue(f.BadFormat)
	}
	if f.NoPast && d.Before(today) {
		return nil, BadValue(f.PastError)
	}
	return d, nil
}

func parseDate(s string, today time.Time) (time.Time, bool) {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '.' || r == '/' || r == '-' })
	if len(parts) == 0 || len(parts) > 3 {
		return time.Time{}, false
	}
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return time.Time{}, false
		}
		nums[i] = n
	}
	day, month, year := nums[0], int(today.Month()), today.Year()
	if len(nums) > 1 {
		month = nums[1]
	}
	if len(nums) > 2 {
		year = nums[2]
		if len(parts[2]) <= 2 {
			year += today.Year() / 100 * 100
		}
	}
	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, today.Location())
	if d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func (f *Date) ValueType() reflect.Type { return typeOf[time.Time]() }

func (f *Date) FormatValue(v any, l lang.Language) string {
	if t, ok := v.(time.Time); ok {
		return t.Format(dateDisplayLayout)
	}
	return fmt.Sprint(v)
}

func (f *Date) ValueID(v any) string {
	if t, ok := v.(time.Time); ok {
		return t.Format(dateIDLayout)
	}
	return fmt.Sprint(v)
}

func (f *Date) Texts() []lang.Text {
	return append(f.FieldBase.Texts(), nonZero(f.BadFormat, f.PastError)...)
}

func (f *Date) Clone() Field {
	c := *f
	c.FieldBase = f.FieldBase.clone()
	return &c
}
