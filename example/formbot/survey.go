package main

import (
	"embed"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"

	"github.com/tbxark/tgform/form"
	"github.com/tbxark/tgform/handler"
	"github.com/tbxark/tgform/lang"
)

//go:embed locales/*.yaml
var locales embed.FS

var languages = []lang.Language{"en", "ru"}

// catalog looks texts up in the bundle and keeps the first error.
type catalog struct {
	bundle *i18n.Bundle
	err    error
}

func (c *catalog) text(id string) lang.Text {
	if c.err != nil {
		return lang.Text{}
	}
	t, err := lang.FromBundle(c.bundle, id, languages)
	if err != nil {
		c.err = err
	}
	return t
}

func (c *catalog) option(id, messageID string) form.Option {
	return form.Option{ID: id, Label: c.text(messageID)}
}

type survey struct {
	form   *form.Form
	config *handler.Config
	msgs   *catalog
}

func newSurvey(bundle *i18n.Bundle) (*survey, error) {
	c := &catalog{bundle: bundle}
	cfg := &handler.Config{
		EchoFilledField:                  true,
		EchoTemplate:                     c.text("echo"),
		RetryFieldMsg:                    c.text("retry"),
		UnsupportedCommandTemplate:       c.text("unsupported"),
		CancellingBecauseOfErrorTemplate: c.text("cancelling"),
		FormStartingTemplate:             c.text("form_start"),
		CanSkipFieldTemplate:             c.text("can_skip"),
		CantSkipFieldMsg:                 c.text("cant_skip"),
		KeepExistingFieldValueTemplate:   c.text("keep_existing"),
		CancelledMsg:                     c.text("cancelled"),
		CancelCommand:                    "/cancel",
		CancelAliases:                    []string{"/stop"},
		SkipCommand:                      "/skip",
		KeepCommand:                      "/keep",
		PassthroughCommands:              []string{"/help", "/language"},
		Suggestions:                      &handler.SuggestionsConfig{Count: 3},
	}

	if _, err := form.RegisterEnum("formbot-pets",
		c.option("cat", "pet_cat"), c.option("dog", "pet_dog"), c.option("none", "pet_none"),
	); err != nil {
		return nil, err
	}
	if _, err := form.RegisterEnum("formbot-hobbies",
		c.option("music", "hobby_music"), c.option("sport", "hobby_sport"),
		c.option("books", "hobby_books"), c.option("games", "hobby_games"),
	); err != nil {
		return nil, err
	}

	minAge, maxAge := 1, 120
	items := []form.Item{
		&form.PlainText{
			FieldBase: form.FieldBase{
				Name: "name", Required: true, Suggest: true,
				Query:      c.text("name_query"),
				Formatting: &form.Formatting{Descr: c.text("name_descr")},
				Export:     &form.Export{Column: "Name", Process: strings.TrimSpace},
			},
			EmptyTextError: c.text("name_empty"),
		},
		&form.Date{
			FieldBase: form.FieldBase{
				Name:       "birthday",
				Query:      c.text("birthday_query"),
				Formatting: &form.Formatting{Descr: c.text("birthday_descr")},
				Export:     &form.Export{Column: "Birthday"},
			},
			BadFormat: c.text("birthday_bad"),
		},
		&form.Integer{
			FieldBase: form.FieldBase{
				Name:       "age",
				Query:      c.text("age_query"),
				Formatting: &form.Formatting{Descr: c.text("age_descr")},
			},
			NotAnInteger: c.text("age_nan"),
			Min:          &minAge,
			Max:          &maxAge,
			OutOfRange:   c.text("age_range"),
		},
		&form.SingleSelect{
			FieldBase: form.FieldBase{
				Name: "pet", Required: true,
				Query:      c.text("pet_query"),
				Formatting: &form.Formatting{Descr: c.text("pet_descr")},
				Export:     &form.Export{Column: "Pet", Mapping: map[string]string{"none": "-"}},
			},
			EnumID:        "formbot-pets",
			InvalidOption: c.text("pet_invalid"),
			RowWidth:      3,
		},
		form.OnValue("cat", &form.PlainText{
			FieldBase: form.FieldBase{
				Name: "cat_name", Required: true,
				Query:      c.text("cat_query"),
				Formatting: &form.Formatting{Descr: c.text("cat_descr")},
			},
			EmptyTextError: c.text("name_empty"),
		}),
		form.OnValue("dog", &form.PlainText{
			FieldBase: form.FieldBase{
				Name: "dog_breed", Suggest: true,
				Query:      c.text("dog_query"),
				Formatting: &form.Formatting{Descr: c.text("dog_descr")},
			},
			EmptyTextError: c.text("name_empty"),
		}),
		&form.MultipleSelect{
			FieldBase: form.FieldBase{
				Name:       "hobbies",
				Query:      c.text("hobbies_query"),
				Formatting: &form.Formatting{Descr: c.text("hobbies_descr")},
				Export:     &form.Export{Column: "Hobbies"},
			},
			EnumID:              "formbot-hobbies",
			PleaseUseInlineMenu: c.text("use_menu"),
			FinishCaption:       c.text("done"),
			NextPageCaption:     c.text("next_page"),
			PrevPageCaption:     c.text("prev_page"),
			RowWidth:            2,
			MinSelected:         1,
			TooFew:              c.text("too_few"),
		},
		&form.DateMenu{
			FieldBase: form.FieldBase{
				Name:       "visit",
				Query:      c.text("visit_query"),
				Formatting: &form.Formatting{Descr: c.text("visit_descr")},
			},
			Calendar:            form.Calendar{PrevMonth: "«", NextMonth: "»"},
			Selectable:          form.SelectToday | form.SelectFuture,
			PleaseUseInlineMenu: c.text("use_menu"),
			NotSelectable:       c.text("visit_not_selectable"),
		},
		&form.Attachments{
			FieldBase: form.FieldBase{
				Name:  "photo",
				Query: c.text("photo_query"),
			},
			Allowed:       []form.AttachmentKind{form.AttachmentPhoto},
			Min:           1,
			Max:           3,
			SendFiles:     c.text("photo_send"),
			NotAllowed:    c.text("photo_not_allowed"),
			TooMany:       c.text("photo_too_many"),
			TooFew:        c.text("photo_too_few"),
			FinishCaption: c.text("done"),
		},
	}
	// Touch the remaining messages so a missing translation fails here.
	for _, id := range []string{"summary_title", "help", "language_set", "language_unknown"} {
		c.text(id)
	}
	if c.err != nil {
		return nil, c.err
	}
	f, err := form.Branching(items)
	if err != nil {
		return nil, err
	}
	return &survey{form: f, config: cfg, msgs: c}, nil
}
