package lang

import (
	"fmt"
	"io/fs"

	"github.com/bytedance/sonic"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// LoadBundle reads go-i18n message files (json or yaml) from fsys.
func LoadBundle(fsys fs.FS, def Language, paths ...string) (*i18n.Bundle, error) {
	tag, err := language.Parse(string(def))
	if err != nil {
		return nil, fmt.Errorf("parse default language %q: %w", def, err)
	}
	bundle := i18n.NewBundle(tag)
	bundle.RegisterUnmarshalFunc("json", sonic.Unmarshal)
	bundle.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)
	bundle.RegisterUnmarshalFunc("yml", yaml.Unmarshal)
	for _, p := range paths {
		if _, err := bundle.LoadMessageFileFS(fsys, p); err != nil {
			return nil, fmt.Errorf("load message file %s: %w", p, err)
		}
	}
	return bundle, nil
}

// FromBundle collects the variants of a message for every language in langs.
// A message missing in some language is an error, so forms fail at startup.
func FromBundle(bundle *i18n.Bundle, messageID string, langs []Language) (Text, error) {
	variants := make(map[Language]string, len(langs))
	for _, l := range langs {
		localizer := i18n.NewLocalizer(bundle, string(l))
		msg, tag, err := localizer.LocalizeWithTag(&i18n.LocalizeConfig{MessageID: messageID})
		if err != nil {
			return Text{}, fmt.Errorf("localize %s for %s: %w", messageID, l, err)
		}
		if base, _ := tag.Base(); base.String() != baseOf(l) {
			return Text{}, fmt.Errorf("localize %s for %s: only %s available", messageID, l, tag)
		}
		variants[l] = msg
	}
	return Multi(variants), nil
}

// MustFromBundle is FromBundle for package-level form definitions.
func MustFromBundle(bundle *i18n.Bundle, messageID string, langs []Language) Text {
	t, err := FromBundle(bundle, messageID, langs)
	if err != nil {
		panic(err)
	}
	return t
}

func baseOf(l Language) string {
	tag, err := language.Parse(string(l))
	if err != nil {
		return string(l)
	}
	base, _ := tag.Base()
	return base.String()
}
