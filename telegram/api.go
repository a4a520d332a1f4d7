package telegram

import (
	"context"

	"github.com/mymmrac/telego"
)

// BotAPI is the subset of *telego.Bot the adapter uses, so tests can mock it.
type BotAPI interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
	EditMessageReplyMarkup(ctx context.Context, params *telego.EditMessageReplyMarkupParams) (*telego.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *telego.AnswerCallbackQueryParams) error
	GetFile(ctx context.Context, params *telego.GetFileParams) (*telego.File, error)
	FileDownloadURL(filepath string) string
}

var _ BotAPI = (*telego.Bot)(nil)
