package lang

import (
	"context"
	"slices"
	"strconv"

	"github.com/tbxark/tgform/store"
)

// Store remembers users' explicit language choices and falls back to
// matching the client language code.
type Store struct {
	choices store.Store[Language]
	matcher *Matcher
}

func NewStore(kv store.KV, prefix string, matcher *Matcher) *Store {
	return &Store{
		choices: store.New[Language](kv, nil, prefix+":language", 0),
		matcher: matcher,
	}
}

func (s *Store) Languages() []Language {
	return s.matcher.Supported()
}

func (s *Store) Set(ctx context.Context, userID int64, l Language) error {
	if !slices.Contains(s.matcher.Supported(), l) {
		return &UnsupportedError{Language: l}
	}
	return s.choices.Set(ctx, strconv.FormatInt(userID, 10), l)
}

func (s *Store) Resolve(ctx context.Context, userID int64, hint string) (Language, error) {
	l, ok, err := s.choices.Get(ctx, strconv.FormatInt(userID, 10))
	if err != nil {
		return s.matcher.fallback, err
	}
	if ok && slices.Contains(s.matcher.Supported(), l) {
		return l, nil
	}
	return s.matcher.Match(hint), nil
}

type UnsupportedError struct {
	Language Language
}

func (e *UnsupportedError) Error() string {
	return "unsupported language " + strconv.Quote(string(e.Language))
}
