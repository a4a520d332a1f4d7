package form

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/tbxark/tgform/lang"
)

type SelectableDates int

const (
	SelectPast SelectableDates = 1 << iota
	SelectToday
	SelectFuture
	SelectAny = SelectPast | SelectToday | SelectFuture
)

const (
	payloadMonth  = "m:"
	payloadSelect = "s:"
	monthLayout   = "2006-01"
)

type Calendar struct {
	PrevMonth   string
	NextMonth   string
	Weekdays    []lang.Text
	Months      []lang.Text
	TodayFormat string
	SundayFirst bool
}

func (c Calendar) texts() []lang.Text {
	return append(nonZero(c.Weekdays...), nonZero(c.Months...)...)
}

func (c Calendar) monthTitle(month time.Time, l lang.Language) string {
	name := month.Month().String()
	if len(c.Months) == 12 {
		name = c.Months[month.Month()-1].String(l)
	}
	return fmt.Sprintf("%s %d", name, month.Year())
}

func (c Calendar) weekdayRow(l lang.Language) []Button {
	names := []string{"Mo", "Tu", "We", "Th", "Fr", "Sa", "Su"}
	if len(c.Weekdays) == 7 {
		for i, w := range c.Weekdays {
			names[i] = w.String(l)
		}
	}
	if c.SundayFirst {
		names = append(names[6:], names[:6]...)
	}
	row := make([]Button, 0, 7)
	for _, n := range names {
		row = append(row, Button{Label: n, Payload: payloadNoop})
	}
	return row
}

func (c Calendar) markup(month, today time.Time, selectable SelectableDates, l lang.Language) Markup {
	first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, today.Location())
	prevLabel, nextLabel := c.PrevMonth, c.NextMonth
	if prevLabel == "" {
		prevLabel = "<"
	}
	if nextLabel == "" {
		nextLabel = ">"
	}
	thisMonth := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
	nav := []Button{{Label: " ", Payload: payloadNoop}, {Label: c.monthTitle(first, l), Payload: payloadNoop}, {Label: " ", Payload: payloadNoop}}
	if selectable&SelectPast != 0 || first.After(thisMonth) {
		nav[0] = Button{Label: prevLabel, Payload: payloadMonth + first.AddDate(0, -1, 0).Format(monthLayout)}
	}
	if selectable&SelectFuture != 0 || first.Before(thisMonth) {
		nav[2] = Button{Label: nextLabel, Payload: payloadMonth + first.AddDate(0, 1, 0).Format(monthLayout)}
	}
	rows := [][]Button{nav, c.weekdayRow(l)}

	offset := int(first.Weekday()+6) % 7
	if c.SundayFirst {
		offset = int(first.Weekday())
	}
	week := make([]Button, 0, 7)
	for i := 0; i < offset; i++ {
		week = append(week, Button{Label: " ", Payload: payloadNoop})
	}
	todayFormat := c.TodayFormat
	if todayFormat == "" {
		todayFormat = "[%d]"
	}
	for d := first; d.Month() == first.Month(); d = d.AddDate(0, 0, 1) {
		b := Button{Label: " ", Payload: payloadNoop}
		if isSelectable(d, today, selectable) {
			b = Button{Label: strconv.Itoa(d.Day()), Payload: payloadSelect + d.Format(dateIDLayout)}
			if d.Equal(today) {
				b.Label = fmt.Sprintf(todayFormat, d.Day())
			}
		}
		week = append(week, b)
		if len(week) == 7 {
			rows = append(rows, week)
			week = make([]Button, 0, 7)
		}
	}
	if len(week) > 0 {
		for len(week) < 7 {
			week = append(week, Button{Label: " ", Payload: payloadNoop})
		}
		rows = append(rows, week)
	}
	return InlineKeyboard(rows...)
}

func isSelectable(d, today time.Time, selectable SelectableDates) bool {
	switch {
	case d.Before(today):
		return selectable&SelectPast != 0
	case d.Equal(today):
		return selectable&SelectToday != 0
	default:
		return selectable&SelectFuture != 0
	}
}

// DateMenu picks a date on an inline calendar.
type DateMenu struct {
	FieldBase
	Calendar            Calendar
	Selectable          SelectableDates
	PleaseUseInlineMenu lang.Text
	NotSelectable       lang.Text
	Location            *time.Location
}

func (f *DateMenu) validate() error {
	if f.Selectable&SelectAny == 0 {
		return fmt.Errorf("field %q: no selectable dates", f.Name)
	}
	texts := []requiredText{{"PleaseUseInlineMenu", f.PleaseUseInlineMenu}}
	if f.Selectable&SelectAny != SelectAny {
		texts = append(texts, requiredText{"NotSelectable", f.NotSelectable})
	}
	return requireTexts(texts...)
}

func (f *DateMenu) location() *time.Location {
	if f.Location == nil {
		return time.UTC
	}
	return f.Location
}

func (f *DateMenu) today(env Env) time.Time {
	return truncateDay(env.now().In(f.location()))
}

func (f *DateMenu) normalize(v any) any {
	if t, ok := v.(time.Time); ok {
		return t.In(f.location())
	}
	return v
}

func (f *DateMenu) Parse(env Env, msg Message) (any, error) {
	return nil, BadValue(f.PleaseUseInlineMenu)
}

func (f *DateMenu) Markup(env Env, p Pending) Markup {
	today := f.today(env)
	month := today
	if p.Month != "" {
		if m, err := time.ParseInLocation(monthLayout, p.Month, today.Location()); err == nil {
			month = m
		}
	}
	return f.Calendar.markup(month, today, f.Selectable, env.Lang)
}

func (f *DateMenu) HandleCallback(env Env, payload string, p Pending) (CallbackResult, error) {
	today := f.today(env)
	switch {
	case payload == payloadNoop:
		return CallbackResult{Pending: p}, nil
	case strings.HasPrefix(payload, payloadMonth):
		month := strings.TrimPrefix(payload, payloadMonth)
		if _, err := time.Parse(monthLayout, month); err != nil {
			return CallbackResult{}, fmt.Errorf("bad month payload %q", payload)
		}
		p.Month = month
		return CallbackResult{Pending: p, Redraw: true}, nil
	case strings.HasPrefix(payload, payloadSelect):
		d, err := time.ParseInLocation(dateIDLayout, strings.TrimPrefix(payload, payloadSelect), today.Location())
		if err != nil {
			return CallbackResult{}, fmt.Errorf("bad date payload %q", payload)
		}
		if !isSelectable(d, today, f.Selectable) {
			return CallbackResult{Pending: p, Reply: f.NotSelectable.String(env.Lang)}, nil
		}
		return CallbackResult{Value: d, Complete: true}, nil
	}
	return CallbackResult{}, fmt.Errorf("unexpected payload %q", payload)
}

func (f *DateMenu) FormatValue(v any, l lang.Language) string {
	if t, ok := v.(time.Time); ok {
		return t.Format(dateDisplayLayout)
	}
	return fmt.Sprint(v)
}

func (f *DateMenu) ValueID(v any) string {
	if t, ok := v.(time.Time); ok {
		return t.Format(dateIDLayout)
	}
	return fmt.Sprint(v)
}

func (f *DateMenu) ValueType() reflect.Type { return typeOf[time.Time]() }

func (f *DateMenu) Texts() []lang.Text {
	texts := append(f.FieldBase.Texts(), nonZero(f.PleaseUseInlineMenu, f.NotSelectable)...)
	return append(texts, f.Calendar.texts()...)
}

func (f *DateMenu) Clone() Field {
	c := *f
	c.FieldBase = f.FieldBase.clone()
	return &c
}
