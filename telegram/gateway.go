package telegram

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"go.uber.org/ratelimit"

	"github.com/tbxark/tgform/form"
	"github.com/tbxark/tgform/handler"
)

// DefaultRate is the number of outgoing requests per second. Telegram allows
// about 30 messages per second across chats.
const DefaultRate = 20

var _ handler.Gateway = (*Gateway)(nil)

// Gateway sends form prompts as HTML messages to private chats.
type Gateway struct {
	bot     BotAPI
	limiter ratelimit.Limiter
}

func NewGateway(bot BotAPI, limiter ratelimit.Limiter) *Gateway {
	if limiter == nil {
		limiter = ratelimit.New(DefaultRate)
	}
	return &Gateway{bot: bot, limiter: limiter}
}

func (g *Gateway) Send(ctx context.Context, userID int64, text string, markup form.Markup) (int, error) {
	g.limiter.Take()
	params := tu.Message(tu.ID(userID), text).WithParseMode(telego.ModeHTML)
	if rm := replyMarkup(markup); rm != nil {
		params = params.WithReplyMarkup(rm)
	}
	msg, err := g.bot.SendMessage(ctx, params)
	if err != nil {
		return 0, err
	}
	if msg == nil {
		return 0, nil
	}
	return msg.MessageID, nil
}

// EditMarkup replaces the inline keyboard of a sent message. An empty markup
// removes it.
func (g *Gateway) EditMarkup(ctx context.Context, userID int64, messageID int, markup form.Markup) error {
	if messageID == 0 {
		return nil
	}
	g.limiter.Take()
	_, err := g.bot.EditMessageReplyMarkup(ctx, &telego.EditMessageReplyMarkupParams{
		ChatID:      tu.ID(userID),
		MessageID:   messageID,
		ReplyMarkup: inlineKeyboard(markup),
	})
	return err
}

func (g *Gateway) AnswerCallback(ctx context.Context, callbackID string, text string) error {
	params := &telego.AnswerCallbackQueryParams{CallbackQueryID: callbackID}
	if text != "" {
		params.Text = text
	}
	return g.bot.AnswerCallbackQuery(ctx, params)
}

// FileURL resolves a file id, e.g. from an Attachments answer, to a download URL.
func (g *Gateway) FileURL(ctx context.Context, fileID string) (string, error) {
	file, err := g.bot.GetFile(ctx, &telego.GetFileParams{FileID: fileID})
	if err != nil {
		return "", fmt.Errorf("get file %s: %w", fileID, err)
	}
	if file.FilePath == "" {
		return "", fmt.Errorf("file %s has no download path", fileID)
	}
	return g.bot.FileDownloadURL(file.FilePath), nil
}

func replyMarkup(m form.Markup) telego.ReplyMarkup {
	switch m.Kind {
	case form.MarkupRemove:
		return tu.ReplyKeyboardRemove()
	case form.MarkupReply:
		if m.Empty() {
			return tu.ReplyKeyboardRemove()
		}
		rows := make([][]telego.KeyboardButton, 0, len(m.Rows))
		for _, row := range m.Rows {
			buttons := make([]telego.KeyboardButton, 0, len(row))
			for _, b := range row {
				buttons = append(buttons, tu.KeyboardButton(b.Label))
			}
			rows = append(rows, tu.KeyboardRow(buttons...))
		}
		return tu.Keyboard(rows...).WithResizeKeyboard().WithOneTimeKeyboard()
	case form.MarkupInline:
		return inlineKeyboard(m)
	}
	return nil
}

func inlineKeyboard(m form.Markup) *telego.InlineKeyboardMarkup {
	rows := make([][]telego.InlineKeyboardButton, 0, len(m.Rows))
	for _, row := range m.Rows {
		if len(row) == 0 {
			continue
		}
		buttons := make([]telego.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tu.InlineKeyboardButton(b.Label).WithCallbackData(b.Payload))
		}
		rows = append(rows, tu.InlineKeyboardRow(buttons...))
	}
	return &telego.InlineKeyboardMarkup{InlineKeyboard: rows}
}
