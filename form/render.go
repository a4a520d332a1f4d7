package form

import (
	"fmt"
	"html"
	"strings"

	"github.com/tbxark/tgform/lang"
)

func (f *Form) formatValue(fld Field, v any, l lang.Language) string {
	if fo := fld.Base().Formatting; fo != nil && fo.Value != nil {
		return fo.Value(v, l)
	}
	return fld.FormatValue(v, l)
}

// ResultToHTML renders answered fields with formatting options as Telegram
// HTML, one per line, followed by the number of answered fields without them.
func (f *Form) ResultToHTML(r *Result, l lang.Language) (string, error) {
	var lines []string
	omitted := 0
	for _, name := range f.walkOrder() {
		v, ok := r.Get(name)
		if !ok {
			if f.required[name] {
				return "", fmt.Errorf("globally required field %q is missing from the result", name)
			}
			continue
		}
		if v == nil {
			continue
		}
		fld := f.byName[name]
		fo := fld.Base().Formatting
		if fo == nil {
			omitted++
			continue
		}
		label := html.EscapeString(fo.Descr.String(l))
		value := html.EscapeString(f.formatValue(fld, v, l))
		if fo.Multiline {
			lines = append(lines, "<b>"+label+"</b>\n"+value)
		} else {
			lines = append(lines, "<b>"+label+"</b>: "+value)
		}
	}
	if omitted > 0 {
		lines = append(lines, fmt.Sprintf("<i>+%d omitted</i>", omitted))
	}
	return strings.Join(lines, "\n"), nil
}

// ResultToExport flattens the result into columns for fields with export
// options. Skipped fields export as an empty string.
func (f *Form) ResultToExport(r *Result) map[string]string {
	out := make(map[string]string)
	for _, name := range f.walkOrder() {
		fld := f.byName[name]
		ex := fld.Base().Export
		if ex == nil {
			continue
		}
		col := ex.Column
		if col == "" {
			col = name
		}
		v, ok := r.Get(name)
		if !ok {
			continue
		}
		if v == nil {
			out[col] = ""
			continue
		}
		if mapped, ok := ex.Mapping[fld.ValueID(v)]; ok {
			out[col] = mapped
			continue
		}
		s := fld.FormatValue(v, lang.None)
		if ex.Process != nil {
			s = ex.Process(s)
		}
		out[col] = s
	}
	return out
}
