package handler

import (
	"context"

	"github.com/tbxark/tgform/form"
	"github.com/tbxark/tgform/lang"
)

// Gateway delivers messages to a chat platform. Inline button payloads it
// receives are complete callback data.
type Gateway interface {
	Send(ctx context.Context, userID int64, text string, markup form.Markup) (messageID int, err error)
	EditMarkup(ctx context.Context, userID int64, messageID int, markup form.Markup) error
	AnswerCallback(ctx context.Context, callbackID string, text string) error
}

// LanguageResolver picks the language of a user's session. Without one the
// handler runs in single-language mode.
type LanguageResolver interface {
	Resolve(ctx context.Context, userID int64, hint string) (lang.Language, error)
	Languages() []lang.Language
}

// Callback is an inline button press.
type Callback struct {
	ID           string
	UserID       int64
	MessageID    int
	Data         string
	LanguageCode string
	Raw          any
}

// ExitContext is handed to completion and cancellation callbacks. Exactly one
// of Message and Callback is set, the update that ended the session.
type ExitContext struct {
	Message  *form.Message
	Callback *Callback
	UserID   int64
	Language lang.Language
	Result   *form.Result
	Dynamic  map[string][]form.Option
}

type ExitFunc func(ctx context.Context, ec ExitContext) error
