package lang

import (
	"fmt"
	"slices"

	"github.com/bytedance/sonic"
)

// Language is a supported interface language code such as "en".
// The empty Language is used by single-language bots.
type Language string

const None Language = ""

// Text is either a literal string or a set of per-language variants.
type Text struct {
	plain  string
	byLang map[Language]string
}

func Plain(s string) Text {
	return Text{plain: s}
}

func Multi(variants map[Language]string) Text {
	m := make(map[Language]string, len(variants))
	for k, v := range variants {
		m[k] = v
	}
	return Text{byLang: m}
}

func (t Text) IsZero() bool {
	return t.plain == "" && len(t.byLang) == 0
}

func (t Text) IsMulti() bool {
	return t.byLang != nil
}

// String renders the variant for l. Literal texts ignore l.
func (t Text) String(l Language) string {
	if t.byLang == nil {
		return t.plain
	}
	return t.byLang[l]
}

// Sprintf renders the variant for l and formats it with args.
func (t Text) Sprintf(l Language, args ...any) string {
	return fmt.Sprintf(t.String(l), args...)
}

// Missing lists the languages from langs without a variant. A literal text is
// valid only when no languages are configured.
func (t Text) Missing(langs []Language) []Language {
	if len(langs) == 0 {
		if t.byLang != nil {
			return []Language{None}
		}
		return nil
	}
	if t.byLang == nil {
		return slices.Clone(langs)
	}
	var missing []Language
	for _, l := range langs {
		if _, ok := t.byLang[l]; !ok {
			missing = append(missing, l)
		}
	}
	return missing
}

// Validate reports a missing variant.
func (t Text) Validate(langs []Language) error {
	missing := t.Missing(langs)
	if len(missing) == 0 {
		return nil
	}
	if len(langs) == 0 {
		return fmt.Errorf("text %q: multilingual text used without configured languages", t.String(firstKey(t.byLang)))
	}
	return fmt.Errorf("text %q: missing languages %v", t.String(langs[0]), missing)
}

func firstKey(m map[Language]string) Language {
	keys := make([]Language, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	if len(keys) == 0 {
		return None
	}
	return keys[0]
}

func (t Text) MarshalJSON() ([]byte, error) {
	if t.byLang == nil {
		return sonic.Marshal(t.plain)
	}
	return sonic.Marshal(t.byLang)
}

func (t *Text) UnmarshalJSON(data []byte) error {
	var s string
	if err := sonic.Unmarshal(data, &s); err == nil {
		*t = Plain(s)
		return nil
	}
	var m map[Language]string
	if err := sonic.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("text must be a string or a language map: %w", err)
	}
	*t = Multi(m)
	return nil
}
