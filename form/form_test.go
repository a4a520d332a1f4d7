package form

import (
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbxark/tgform/lang"
)

func textField(name string) *PlainText {
	return &PlainText{FieldBase: FieldBase{Name: name, Required: true, Query: lang.Plain(name)}, EmptyTextError: lang.Plain("empty")}
}

func withNext(f *PlainText, next *NextFieldGetter) *PlainText {
	f.Next = next
	return f
}

func TestNewDefaultsToDeclarationOrder(t *testing.T) {
	f, err := New([]Field{textField("a"), textField("b"), textField("c")})
	require.NoError(t, err)

	assert.Equal(t, "a", f.Start().Base().Name)
	assert.Equal(t, []string{"b"}, f.NextFieldNames("a"))
	assert.Equal(t, []string{"c"}, f.NextFieldNames("b"))
	assert.Equal(t, []string{End}, f.NextFieldNames("c"))
	assert.Equal(t, []string{"a"}, f.PrevFieldNames("b"))
	assert.Equal(t, []string{"a", "b", "c"}, f.TopologicalOrder())
	assert.Equal(t, []string{"a", "b", "c"}, f.GloballyRequired())
}

func TestNewCopiesFields(t *testing.T) {
	src := textField("a")
	f, err := New([]Field{src})
	require.NoError(t, err)

	src.Query = lang.Plain("changed")
	src.Next = Next("nowhere")
	fld, ok := f.Field("a")
	require.True(t, ok)
	assert.Equal(t, "a", fld.Base().Query.String(lang.None))
	assert.Equal(t, []string{End}, f.NextFieldNames("a"))
}

func TestNewRejectsInvalidGraphs(t *testing.T) {
	tests := []struct {
		name   string
		fields []Field
		opts   []FormOption
	}{
		{"empty", nil, nil},
		{"duplicate name", []Field{textField("a"), textField("a")}, nil},
		{"missing name", []Field{textField("")}, nil},
		{"missing query", []Field{&PlainText{FieldBase: FieldBase{Name: "a"}}}, nil},
		{"unknown successor", []Field{withNext(textField("a"), Next("zzz"))}, nil},
		{"self loop", []Field{withNext(textField("a"), Switch(End, When(Equals("x"), "a")))}, nil},
		{"cycle", []Field{
			textField("a"),
			withNext(textField("b"), Next("c")),
			withNext(textField("c"), Switch(End, When(Equals("again"), "b"))),
		}, nil},
		{"start has incoming edges", []Field{
			textField("a"),
			withNext(textField("b"), Switch(End, When(Equals("back"), "a"))),
		}, nil},
		{"unreachable field", []Field{
			withNext(textField("a"), FormEnd()),
			textField("b"),
		}, nil},
		{"end unreachable", []Field{
			withNext(textField("a"), Next("b")),
			withNext(textField("b"), Next("c")),
			withNext(textField("c"), Next("b")),
		}, nil},
		{"unknown start", []Field{textField("a")}, []FormOption{WithStartField("b")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.fields, tt.opts...)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidForm), err)
		})
	}
}

func TestAllowCyclic(t *testing.T) {
	f, err := New([]Field{
		textField("a"),
		withNext(textField("b"), Switch(End, When(Equals("again"), "a"))),
	}, AllowCyclic())
	require.NoError(t, err)
	assert.True(t, f.Cyclic())
	assert.Nil(t, f.TopologicalOrder())
	assert.False(t, f.IsGloballyRequired("a"))

	b, _ := f.Field("b")
	next, err := f.Resolve(b, 1, "again")
	require.NoError(t, err)
	assert.Equal(t, "a", next.Base().Name)
}

func TestResolve(t *testing.T) {
	pick := ByPredicate([]string{"b", End}, func(userID int64, value any) string {
		if userID == 42 {
			return "b"
		}
		if value == "bogus" {
			return "c"
		}
		return End
	})
	f, err := New([]Field{withNext(textField("a"), pick), textField("b")})
	require.NoError(t, err)
	a, _ := f.Field("a")

	next, err := f.Resolve(a, 42, "x")
	require.NoError(t, err)
	assert.Equal(t, "b", next.Base().Name)

	next, err = f.Resolve(a, 1, "x")
	require.NoError(t, err)
	assert.Nil(t, next)

	_, err = f.Resolve(a, 1, "bogus")
	assert.Error(t, err)
}

func TestBranching(t *testing.T) {
	f, err := Branching([]Item{
		textField("A"),
		textField("B"),
		OnValue("branch-1", textField("C"), textField("D"), textField("E")),
		OnValue("branch-2", textField("F"), textField("G")),
		OnValue("branch-3",
			textField("foo"),
			OnValue("sub-branch-3-1", textField("foo-sub-1"), textField("foo-sub-2")),
			textField("bar"),
		),
		textField("final field 1"),
		textField("final field 2"),
	})
	require.NoError(t, err)

	want := map[string][]string{
		"A":             {"B"},
		"B":             {"foo", "F", "C", "final field 1"},
		"C":             {"D"},
		"D":             {"E"},
		"E":             {"final field 1"},
		"F":             {"G"},
		"G":             {"final field 1"},
		"foo":           {"bar", "foo-sub-1"},
		"foo-sub-1":     {"foo-sub-2"},
		"foo-sub-2":     {"bar"},
		"bar":           {"final field 1"},
		"final field 1": {"final field 2"},
		"final field 2": {End},
	}
	require.Len(t, f.Fields(), len(want))
	for name, next := range want {
		assert.ElementsMatch(t, next, f.NextFieldNames(name), name)
	}
	assert.Equal(t, []string{"A", "B", "final field 1", "final field 2"}, f.GloballyRequired())

	b, _ := f.Field("B")
	for value, wantNext := range map[string]string{
		"branch-1": "C",
		"branch-2": "F",
		"branch-3": "foo",
		"other":    "final field 1",
	} {
		next, err := f.Resolve(b, 1, value)
		require.NoError(t, err)
		assert.Equal(t, wantNext, next.Base().Name)
	}
}

func TestBranchingRejectsLeadingBranch(t *testing.T) {
	_, err := Branching([]Item{OnValue("x", textField("a")), textField("b")})
	assert.ErrorIs(t, err, ErrInvalidForm)

	_, err = Branching([]Item{textField("a"), OnValue("x")})
	assert.ErrorIs(t, err, ErrInvalidForm)
}

func globallyRequiredFixture(t *testing.T) *Form {
	t.Helper()
	f, err := New([]Field{
		textField("a"),
		withNext(textField("b"), ByValue(map[string]string{"one": "c1", "two": "c2"}, "c3")),
		withNext(textField("c1"), Next("d")),
		withNext(textField("c2"), Next("c4")),
		withNext(textField("c3"), Next("d")),
		withNext(textField("c4"), Next("c5")),
		withNext(textField("c5"), Next("d")),
		textField("d"),
		textField("e"),
	})
	require.NoError(t, err)
	return f
}

func TestGloballyRequired(t *testing.T) {
	f := globallyRequiredFixture(t)
	assert.Equal(t, []string{"a", "b", "d", "e"}, f.GloballyRequired())
	for _, name := range []string{"c1", "c2", "c3", "c4", "c5"} {
		assert.False(t, f.IsGloballyRequired(name), name)
	}
}

func TestGenerateResultType(t *testing.T) {
	f := globallyRequiredFixture(t)
	src, err := f.GenerateResultType("ab result")
	require.NoError(t, err)

	assert.Contains(t, src, "type AbResult struct {")
	for _, name := range []string{"a", "b", "d", "e"} {
		re := regexp.MustCompile(strings.ToUpper(name) + `\s+string\s+` + "`json:\"" + name + "\"`")
		assert.Regexp(t, re, src)
	}
	for _, name := range []string{"c1", "c2", "c3", "c4", "c5"} {
		re := regexp.MustCompile(strings.ToUpper(name) + `\s+\*string\s+` + "`json:\"" + name + ",omitempty\"`")
		assert.Regexp(t, re, src)
	}
}

type abResult struct {
	A  string  `json:"a"`
	B  string  `json:"b"`
	C1 *string `json:"c1,omitempty"`
	C2 *string `json:"c2,omitempty"`
	C3 *string `json:"c3,omitempty"`
	C4 *string `json:"c4,omitempty"`
	C5 *string `json:"c5,omitempty"`
	D  string  `json:"d"`
	E  string  `json:"e"`
}

func TestValidateResultType(t *testing.T) {
	f := globallyRequiredFixture(t)
	require.NoError(t, f.ValidateResultType(abResult{}))
	require.NoError(t, f.ValidateResultType(&abResult{}))

	type wrong struct {
		A     *string `json:"a"`
		B     string  `json:"b"`
		Extra string  `json:"extra"`
	}
	err := f.ValidateResultType(wrong{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `field "a" has type *string, want string`)
	assert.Contains(t, err.Error(), `missing field "c1"`)
	assert.Contains(t, err.Error(), `unknown field "extra"`)

	assert.Error(t, f.ValidateResultType(42))
}

func TestResultInto(t *testing.T) {
	f := globallyRequiredFixture(t)
	r := NewResult()
	r.Set("a", "1")
	r.Set("b", "two")
	r.Set("c2", "x")
	r.Set("c4", nil)
	r.Set("c5", "y")
	r.Set("d", "4")
	r.Set("e", "5")

	var out abResult
	require.NoError(t, f.ResultInto(r, &out))
	assert.Equal(t, "1", out.A)
	assert.Equal(t, "two", out.B)
	require.NotNil(t, out.C2)
	assert.Equal(t, "x", *out.C2)
	assert.Nil(t, out.C1)
	assert.Nil(t, out.C4)
	assert.Equal(t, "5", out.E)
}

func formattingFixture(t *testing.T) *Form {
	t.Helper()
	MustRegisterEnum("test-gdpr", NewOption("ok", "Yes"), NewOption("no", "No"))
	f, err := New([]Field{
		&PlainText{FieldBase: FieldBase{
			Name: "message", Required: true, Query: lang.Plain("Message?"),
			Formatting: &Formatting{Descr: lang.Plain("Message")},
			Export:     &Export{Column: "A"},
		}, EmptyTextError: lang.Plain("empty")},
		&PlainText{FieldBase: FieldBase{
			Name: "name", Required: true, Query: lang.Plain("Name?"),
			Formatting: &Formatting{Descr: lang.Plain("Name")},
			Export:     &Export{Column: "B", Process: strings.ToUpper},
		}, EmptyTextError: lang.Plain("empty")},
		&SingleSelect{FieldBase: FieldBase{
			Name: "gdpr", Required: true, Query: lang.Plain("OK?"),
			Formatting: &Formatting{Descr: lang.Plain("GDRP OK?"), Value: func(v any, l lang.Language) string { return "🧐" }},
			Export:     &Export{Column: "C", Mapping: map[string]string{"ok": "?"}},
		}, EnumID: "test-gdpr", InvalidOption: lang.Plain("pick one")},
		&PlainText{FieldBase: FieldBase{
			Name: "description", Query: lang.Plain("Describe"),
			Formatting: &Formatting{Descr: lang.Plain("Description"), Multiline: true},
		}, EmptyTextError: lang.Plain("empty")},
		&PlainText{FieldBase: FieldBase{Name: "unformatted", Query: lang.Plain("Anything else?")}, EmptyTextError: lang.Plain("empty")},
		&PlainText{FieldBase: FieldBase{
			Name: "skipped", Query: lang.Plain("Optional"),
			Formatting: &Formatting{Descr: lang.Plain("Skipped")},
		}, EmptyTextError: lang.Plain("empty")},
	})
	require.NoError(t, err)
	return f
}

func TestResultToHTML(t *testing.T) {
	f := formattingFixture(t)
	r := NewResult()
	r.Set("message", "Hello world")
	r.Set("name", "Igor")
	r.Set("gdpr", "ok")
	r.Set("description", "Lorem ipsum\ndolor sit amet")
	r.Set("unformatted", "whatever")
	r.Set("skipped", nil)

	html, err := f.ResultToHTML(r, lang.None)
	require.NoError(t, err)
	assert.Equal(t, "<b>Message</b>: Hello world\n"+
		"<b>Name</b>: Igor\n"+
		"<b>GDRP OK?</b>: 🧐\n"+
		"<b>Description</b>\nLorem ipsum\ndolor sit amet\n"+
		"<i>+1 omitted</i>", html)

	assert.Equal(t, map[string]string{"A": "Hello world", "B": "IGOR", "C": "?"}, f.ResultToExport(r))
}

func TestResultToHTMLEscapes(t *testing.T) {
	f, err := New([]Field{
		&PlainText{FieldBase: FieldBase{Name: "name", Query: lang.Plain("q"), Formatting: &Formatting{Descr: lang.Plain("your name")}}, EmptyTextError: lang.Plain("empty")},
		&PlainText{FieldBase: FieldBase{Name: "food", Query: lang.Plain("q"), Formatting: &Formatting{Descr: lang.Plain("your favourite food")}}, EmptyTextError: lang.Plain("empty")},
	})
	require.NoError(t, err)
	r := NewResult()
	r.Set("name", "test user")
	r.Set("food", "pizza (<b>)")

	html, err := f.ResultToHTML(r, lang.None)
	require.NoError(t, err)
	assert.Equal(t, "<b>your name</b>: test user\n<b>your favourite food</b>: pizza (&lt;b&gt;)", html)
}

func TestResultToHTMLMissingRequired(t *testing.T) {
	f := formattingFixture(t)
	r := NewResult()
	r.Set("message", "Hello world")
	_, err := f.ResultToHTML(r, lang.None)
	assert.Error(t, err)
}

func TestResultCodecRoundTrip(t *testing.T) {
	MustRegisterEnum("test-pets", NewOption("cats", "Cats"), NewOption("dogs", "Dogs"))
	f, err := New([]Field{
		textField("name"),
		&Integer{FieldBase: FieldBase{Name: "age", Query: lang.Plain("age")}, NotAnInteger: lang.Plain("nan")},
		&Date{FieldBase: FieldBase{Name: "born", Query: lang.Plain("born")}, BadFormat: lang.Plain("bad date")},
		&MultipleSelect{FieldBase: FieldBase{Name: "pets", Query: lang.Plain("pets")}, EnumID: "test-pets", PleaseUseInlineMenu: lang.Plain("use the menu")},
		&Attachments{FieldBase: FieldBase{Name: "photos", Query: lang.Plain("photos")}, SendFiles: lang.Plain("send files"), TooFew: lang.Plain("at least %d")},
		textField("nothing"),
	})
	require.NoError(t, err)

	born := time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC)
	r := NewResult()
	r.Set("photos", []Attachment{{Kind: AttachmentPhoto, FileID: "abc", Size: 10}})
	r.Set("name", "Alice")
	r.Set("age", 33)
	r.Set("born", born)
	r.Set("pets", []string{"dogs"})
	r.Set("nothing", nil)

	entries, err := f.EncodeResult(r)
	require.NoError(t, err)
	assert.Equal(t, "photos", entries[0].Field)
	assert.JSONEq(t, "null", string(entries[5].Value))

	got, err := f.DecodeResult(entries)
	require.NoError(t, err)
	assert.Equal(t, r.Keys(), got.Keys())

	name, _ := got.Get("name")
	assert.Equal(t, "Alice", name)
	age, _ := got.Get("age")
	assert.Equal(t, 33, age)
	gotBorn, _ := got.Get("born")
	assert.True(t, born.Equal(gotBorn.(time.Time)))
	pets, _ := got.Get("pets")
	assert.Equal(t, []string{"dogs"}, pets)
	photos, _ := got.Get("photos")
	assert.Equal(t, []Attachment{{Kind: AttachmentPhoto, FileID: "abc", Size: 10}}, photos)
	nothing, ok := got.Get("nothing")
	assert.True(t, ok)
	assert.Nil(t, nothing)
}

func TestDecodeDateKeepsLocation(t *testing.T) {
	cet := time.FixedZone("CET", 3600)
	fields := []Field{
		&Date{FieldBase: FieldBase{Name: "date"}, BadFormat: lang.Plain("bad date"), Location: cet},
		&DateMenu{FieldBase: FieldBase{Name: "menu"}, Selectable: SelectAny, PleaseUseInlineMenu: lang.Plain("use the menu"), Location: cet},
	}
	day := time.Date(2026, 11, 3, 0, 0, 0, 0, cet)
	for _, fld := range fields {
		raw, err := EncodeValue(fld, day)
		require.NoError(t, err)
		got, err := DecodeValue(fld, raw)
		require.NoError(t, err)
		assert.Equal(t, day, got, fld.Base().Name)
	}
}

func TestDecodeRejectsUnknownValues(t *testing.T) {
	MustRegisterEnum("test-pets", NewOption("cats", "Cats"), NewOption("dogs", "Dogs"))
	f, err := New([]Field{
		&MultipleSelect{FieldBase: FieldBase{Name: "pets", Query: lang.Plain("pets")}, EnumID: "test-pets", PleaseUseInlineMenu: lang.Plain("use the menu")},
	})
	require.NoError(t, err)

	_, err = f.DecodeResult([]Entry{{Field: "pets", Value: []byte(`["hamsters"]`)}})
	assert.Error(t, err)
	_, err = f.DecodeResult([]Entry{{Field: "unknown", Value: []byte(`1`)}})
	assert.Error(t, err)
	_, err = f.DecodeResult([]Entry{{Field: "pets", Value: []byte(`42`)}})
	assert.Error(t, err)
}

func TestResultFromMap(t *testing.T) {
	f, err := New([]Field{textField("a"), &Integer{FieldBase: FieldBase{Name: "n", Query: lang.Plain("n")}, NotAnInteger: lang.Plain("nan")}})
	require.NoError(t, err)

	r, err := f.ResultFromMap(map[string]any{"n": 7, "a": "x"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "n"}, r.Keys())

	_, err = f.ResultFromMap(map[string]any{"zzz": 1})
	assert.Error(t, err)
}

func TestDescribe(t *testing.T) {
	f := globallyRequiredFixture(t)
	rows := f.Describe()
	require.Len(t, rows, 9)
	assert.Equal(t, "a", rows[0].Name)
	assert.Equal(t, "PlainText", rows[0].Kind)
	assert.Equal(t, "string", rows[0].ValueType)
	assert.True(t, rows[0].GloballyRequired)
	assert.Equal(t, []string{"c1", "c2", "c3"}, rows[1].Next)
	assert.Equal(t, "(end)", rows[len(rows)-1].Next[0])

	table := f.FormatGraph()
	assert.Contains(t, table, "c4")
	assert.Contains(t, table, "(end)")
}
