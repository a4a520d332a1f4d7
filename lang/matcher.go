package lang

import (
	"golang.org/x/text/language"
)

// Matcher maps a Telegram client language code onto a supported language.
type Matcher struct {
	supported []Language
	fallback  Language
	matcher   language.Matcher
}

func NewMatcher(supported []Language, fallback Language) *Matcher {
	tags := make([]language.Tag, 0, len(supported))
	for _, l := range supported {
		tags = append(tags, language.Make(string(l)))
	}
	return &Matcher{
		supported: supported,
		fallback:  fallback,
		matcher:   language.NewMatcher(tags),
	}
}

func (m *Matcher) Supported() []Language {
	return m.supported
}

func (m *Matcher) Match(code string) Language {
	if code == "" || len(m.supported) == 0 {
		return m.fallback
	}
	tag, err := language.Parse(code)
	if err != nil {
		return m.fallback
	}
	_, idx, conf := m.matcher.Match(tag)
	if conf == language.No || idx < 0 || idx >= len(m.supported) {
		return m.fallback
	}
	return m.supported[idx]
}
