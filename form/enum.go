package form

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/tbxark/tgform/lang"
)

// Enum is a named, ordered set of options. Enums live in a process-wide
// registry so stored values can be checked against them after a restart.
type Enum struct {
	ID      string
	Options []Option
}

var registry = struct {
	sync.RWMutex
	enums map[string]*Enum
}{enums: map[string]*Enum{}}

// RegisterEnum adds an enum. Registering the same id twice with identical
// option ids returns the existing enum.
func RegisterEnum(id string, options ...Option) (*Enum, error) {
	if id == "" {
		return nil, fmt.Errorf("enum id is empty")
	}
	if len(options) == 0 {
		return nil, fmt.Errorf("enum %q has no options", id)
	}
	seen := make(map[string]bool, len(options))
	for _, o := range options {
		if o.ID == "" {
			return nil, fmt.Errorf("enum %q has an option without id", id)
		}
		if seen[o.ID] {
			return nil, fmt.Errorf("enum %q has duplicate option %q", id, o.ID)
		}
		seen[o.ID] = true
	}
	registry.Lock()
	defer registry.Unlock()
	if existing, ok := registry.enums[id]; ok {
		if slices.Equal(existing.ids(), optionIDs(options)) {
			return existing, nil
		}
		return nil, fmt.Errorf("enum %q is already registered with other options", id)
	}
	e := &Enum{ID: id, Options: slices.Clone(options)}
	registry.enums[id] = e
	return e, nil
}

func MustRegisterEnum(id string, options ...Option) *Enum {
	e, err := RegisterEnum(id, options...)
	if err != nil {
		panic(err)
	}
	return e
}

func LookupEnum(id string) (*Enum, bool) {
	registry.RLock()
	defer registry.RUnlock()
	e, ok := registry.enums[id]
	return e, ok
}

func lookupEnum(id string) (*Enum, error) {
	e, ok := LookupEnum(id)
	if !ok {
		return nil, fmt.Errorf("enum %q is not registered", id)
	}
	return e, nil
}

func optionIDs(options []Option) []string {
	ids := make([]string, 0, len(options))
	for _, o := range options {
		ids = append(ids, o.ID)
	}
	return ids
}

func (e *Enum) ids() []string {
	return optionIDs(e.Options)
}

func (e *Enum) Option(id string) (Option, bool) {
	return findOption(e.Options, id)
}

func (e *Enum) Texts() []lang.Text {
	return optionTexts(e.Options)
}

func findOption(options []Option, id string) (Option, bool) {
	for _, o := range options {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}

// matchOption finds an option by its label in l, or by id.
func matchOption(options []Option, text string, l lang.Language) (Option, bool) {
	text = strings.TrimSpace(text)
	for _, o := range options {
		if o.Label.String(l) == text {
			return o, true
		}
	}
	return findOption(options, text)
}

func optionTexts(options []Option) []lang.Text {
	texts := make([]lang.Text, 0, len(options))
	for _, o := range options {
		texts = append(texts, o.Label)
	}
	return texts
}

func optionLabels(options []Option, l lang.Language) []string {
	labels := make([]string, 0, len(options))
	for _, o := range options {
		labels = append(labels, o.Label.String(l))
	}
	return labels
}
