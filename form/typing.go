package form

import (
	"bytes"
	"fmt"
	"go/format"
	"reflect"
	"sort"
	"strings"
	"unicode"
)

// resultFieldType is the Go type a result struct uses for fld. Fields that are
// always answered hold plain values; others may be absent and use pointers.
// Slices and maps are nil when absent and stay unwrapped.
func (f *Form) resultFieldType(fld Field) (reflect.Type, bool) {
	t := fld.ValueType()
	optional := !(fld.Base().Required && f.required[fld.Base().Name])
	if !optional {
		return t, false
	}
	switch t.Kind() {
	case reflect.Slice, reflect.Map, reflect.Pointer, reflect.Interface:
		return t, true
	}
	return reflect.PointerTo(t), true
}

// GenerateResultType returns Go source of a struct matching the form's result.
func (f *Form) GenerateResultType(name string) (string, error) {
	var body bytes.Buffer
	imports := map[string]bool{}
	for _, fld := range f.fields {
		t, optional := f.resultFieldType(fld)
		typ := t.String()
		for _, pkg := range []struct{ prefix, path string }{
			{"time.", "time"},
			{"form.", "github.com/tbxark/tgform/form"},
		} {
			if strings.Contains(typ, pkg.prefix) {
				imports[pkg.path] = true
			}
		}
		tag := fld.Base().Name
		if optional {
			tag += ",omitempty"
		}
		fmt.Fprintf(&body, "\t%s %s `json:%q`\n", goIdent(fld.Base().Name), typ, tag)
	}

	var src bytes.Buffer
	if len(imports) > 0 {
		src.WriteString("import (\n")
		for _, path := range []string{"time", "github.com/tbxark/tgform/form"} {
			if imports[path] {
				fmt.Fprintf(&src, "\t%q\n", path)
			}
		}
		src.WriteString(")\n\n")
	}
	fmt.Fprintf(&src, "type %s struct {\n%s}\n", goIdent(name), body.String())

	// format.Source needs a package clause.
	out, err := format.Source(append([]byte("package p\n\n"), src.Bytes()...))
	if err != nil {
		return "", fmt.Errorf("format result type: %w", err)
	}
	return strings.TrimPrefix(string(out), "package p\n\n"), nil
}

// ValidateResultType checks that v, a struct or pointer to struct, has exactly
// one json-tagged field per form field with the type GenerateResultType uses.
func (f *Form) ValidateResultType(v any) error {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return fmt.Errorf("result type must be a struct, got %v", t)
	}
	byTag := make(map[string]reflect.StructField, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
		if tag == "" || tag == "-" {
			continue
		}
		byTag[tag] = sf
	}
	var problems []string
	for _, fld := range f.fields {
		name := fld.Base().Name
		want, _ := f.resultFieldType(fld)
		sf, ok := byTag[name]
		if !ok {
			problems = append(problems, fmt.Sprintf("missing field %q", name))
			continue
		}
		delete(byTag, name)
		if sf.Type != want {
			problems = append(problems, fmt.Sprintf("field %q has type %v, want %v", name, sf.Type, want))
		}
	}
	unknown := make([]string, 0, len(byTag))
	for tag := range byTag {
		unknown = append(unknown, tag)
	}
	sort.Strings(unknown)
	for _, tag := range unknown {
		problems = append(problems, fmt.Sprintf("unknown field %q", tag))
	}
	if len(problems) > 0 {
		return fmt.Errorf("result type %s does not match form: %s", t.Name(), strings.Join(problems, "; "))
	}
	return nil
}

func goIdent(s string) string {
	var b strings.Builder
	upper := true
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if b.Len() == 0 && unicode.IsDigit(r) {
			b.WriteRune('F')
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	if b.Len() == 0 {
		return "Field"
	}
	return b.String()
}
