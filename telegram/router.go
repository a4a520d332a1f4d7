package telegram

import (
	"context"
	"errors"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	"go.uber.org/zap"

	"github.com/tbxark/tgform/handler"
)

// Router feeds updates to form handlers before any other bot handler sees
// them. Updates no form claims continue down the handler chain.
type Router struct {
	forms  []*handler.Handler
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger, forms ...*handler.Handler) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{forms: forms, logger: logger}
}

// Register installs the router as middleware of bh.
func (r *Router) Register(bh *th.BotHandler) {
	bh.Use(r.Middleware)
}

func (r *Router) Middleware(ctx *th.Context, update telego.Update) error {
	handled, err := r.Dispatch(ctx, update)
	if err != nil {
		r.logger.Error("form update failed", zap.Int("update_id", update.UpdateID), zap.Error(err))
	}
	if handled {
		return nil
	}
	return ctx.Next(update)
}

// Dispatch offers update to every form in turn and reports whether one
// consumed it. Forms only answer in private chats. Updates racing with an
// unfinished one of the same user are dropped.
func (r *Router) Dispatch(ctx context.Context, update telego.Update) (bool, error) {
	switch {
	case update.Message != nil:
		if update.Message.Chat.Type != telego.ChatTypePrivate {
			return false, nil
		}
		msg := Message(*update.Message)
		for _, h := range r.forms {
			handled, err := h.HandleMessage(ctx, msg)
			if errors.Is(err, handler.ErrBusy) {
				r.logger.Debug("dropping message of busy user", zap.Int64("user_id", msg.UserID))
				return true, nil
			}
			if handled || err != nil {
				return handled, err
			}
		}
	case update.CallbackQuery != nil:
		cb := Callback(*update.CallbackQuery)
		for _, h := range r.forms {
			handled, err := h.HandleCallback(ctx, cb)
			if errors.Is(err, handler.ErrBusy) {
				return true, nil
			}
			if handled || err != nil {
				return handled, err
			}
		}
	}
	return false, nil
}

// StartOn starts h when a user sends command, e.g. "start".
func StartOn(bh *th.BotHandler, command string, h *handler.Handler, opts ...handler.StartOption) {
	bh.HandleMessage(func(ctx *th.Context, message telego.Message) error {
		if message.Chat.Type != telego.ChatTypePrivate {
			return nil
		}
		msg := Message(message)
		_, err := h.Start(ctx, msg.UserID, append([]handler.StartOption{handler.WithLanguageHint(msg.LanguageCode)}, opts...)...)
		return err
	}, th.CommandEqual(command))
}
