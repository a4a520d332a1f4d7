package telegram

import (
	"context"
	"testing"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/ratelimit"
	"go.uber.org/zap"

	"github.com/tbxark/tgform/form"
	"github.com/tbxark/tgform/handler"
	"github.com/tbxark/tgform/lang"
	"github.com/tbxark/tgform/store"
)

type MockBot struct {
	mock.Mock
}

func (m *MockBot) SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error) {
	args := m.Called(ctx, params)
	if msg, ok := args.Get(0).(*telego.Message); ok {
		return msg, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBot) EditMessageReplyMarkup(ctx context.Context, params *telego.EditMessageReplyMarkupParams) (*telego.Message, error) {
	args := m.Called(ctx, params)
	if msg, ok := args.Get(0).(*telego.Message); ok {
		return msg, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBot) AnswerCallbackQuery(ctx context.Context, params *telego.AnswerCallbackQueryParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

func (m *MockBot) GetFile(ctx context.Context, params *telego.GetFileParams) (*telego.File, error) {
	args := m.Called(ctx, params)
	if f, ok := args.Get(0).(*telego.File); ok {
		return f, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBot) FileDownloadURL(filepath string) string {
	return m.Called(filepath).String(0)
}

func (m *MockBot) sent() []*telego.SendMessageParams {
	var out []*telego.SendMessageParams
	for _, c := range m.Calls {
		if c.Method == "SendMessage" {
			out = append(out, c.Arguments.Get(1).(*telego.SendMessageParams))
		}
	}
	return out
}

func TestGatewaySend(t *testing.T) {
	bot := &MockBot{}
	bot.On("SendMessage", mock.Anything, mock.Anything).Return(&telego.Message{MessageID: 42}, nil)
	gw := NewGateway(bot, ratelimit.NewUnlimited())
	ctx := context.Background()

	id, err := gw.Send(ctx, 7, "<b>Pick</b>", form.ReplyKeyboard([]string{"A", "B", "C"}, 2))
	require.NoError(t, err)
	assert.Equal(t, 42, id)

	_, err = gw.Send(ctx, 7, "Done", form.Markup{Kind: form.MarkupRemove})
	require.NoError(t, err)
	_, err = gw.Send(ctx, 7, "Toggle", form.InlineKeyboard([]form.Button{{Label: "x", Payload: "f:x\x1ft:x"}}))
	require.NoError(t, err)
	_, err = gw.Send(ctx, 7, "Plain", form.Markup{Kind: form.MarkupNone})
	require.NoError(t, err)

	sent := bot.sent()
	require.Len(t, sent, 4)
	assert.Equal(t, telego.ModeHTML, sent[0].ParseMode)
	assert.Equal(t, int64(7), sent[0].ChatID.ID)

	kb, ok := sent[0].ReplyMarkup.(*telego.ReplyKeyboardMarkup)
	require.True(t, ok)
	assert.True(t, kb.ResizeKeyboard)
	assert.True(t, kb.OneTimeKeyboard)
	require.Len(t, kb.Keyboard, 2)
	assert.Equal(t, "C", kb.Keyboard[1][0].Text)

	rm, ok := sent[1].ReplyMarkup.(*telego.ReplyKeyboardRemove)
	require.True(t, ok)
	assert.True(t, rm.RemoveKeyboard)

	ik, ok := sent[2].ReplyMarkup.(*telego.InlineKeyboardMarkup)
	require.True(t, ok)
	assert.Equal(t, "f:x\x1ft:x", ik.InlineKeyboard[0][0].CallbackData)

	assert.Nil(t, sent[3].ReplyMarkup)
}

func TestGatewayEditAndAnswer(t *testing.T) {
	bot := &MockBot{}
	bot.On("EditMessageReplyMarkup", mock.Anything, mock.Anything).Return(&telego.Message{}, nil)
	bot.On("AnswerCallbackQuery", mock.Anything, mock.Anything).Return(nil)
	gw := NewGateway(bot, ratelimit.NewUnlimited())
	ctx := context.Background()

	require.NoError(t, gw.EditMarkup(ctx, 7, 3, form.Markup{Kind: form.MarkupInline}))
	require.NoError(t, gw.EditMarkup(ctx, 7, 0, form.Markup{Kind: form.MarkupInline}))
	bot.AssertNumberOfCalls(t, "EditMessageReplyMarkup", 1)
	params := bot.Calls[0].Arguments.Get(1).(*telego.EditMessageReplyMarkupParams)
	assert.Equal(t, 3, params.MessageID)
	require.NotNil(t, params.ReplyMarkup)
	assert.NotNil(t, params.ReplyMarkup.InlineKeyboard)
	assert.Empty(t, params.ReplyMarkup.InlineKeyboard)

	require.NoError(t, gw.AnswerCallback(ctx, "cb1", "Too many"))
	bot.AssertCalled(t, "AnswerCallbackQuery", mock.Anything, &telego.AnswerCallbackQueryParams{CallbackQueryID: "cb1", Text: "Too many"})
}

func TestGatewayFileURL(t *testing.T) {
	bot := &MockBot{}
	bot.On("GetFile", mock.Anything, &telego.GetFileParams{FileID: "f1"}).Return(&telego.File{FileID: "f1", FilePath: "photos/1.jpg"}, nil)
	bot.On("GetFile", mock.Anything, &telego.GetFileParams{FileID: "f2"}).Return(&telego.File{FileID: "f2"}, nil)
	bot.On("FileDownloadURL", "photos/1.jpg").Return("https://example.org/photos/1.jpg")
	gw := NewGateway(bot, ratelimit.NewUnlimited())

	url, err := gw.FileURL(context.Background(), "f1")
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/photos/1.jpg", url)

	_, err = gw.FileURL(context.Background(), "f2")
	assert.Error(t, err)
}

func TestMessageConversion(t *testing.T) {
	m := telego.Message{
		MessageID:    5,
		Chat:         telego.Chat{ID: 100},
		From:         &telego.User{ID: 100, LanguageCode: "ru"},
		Caption:      "holiday",
		MediaGroupID: "g1",
		Photo: []telego.PhotoSize{
			{FileID: "small", FileSize: 10},
			{FileID: "large", FileSize: 1000},
		},
		Document: &telego.Document{FileID: "doc", FileName: "a.pdf", MimeType: "application/pdf"},
	}
	msg := Message(m)
	assert.EqualValues(t, 100, msg.UserID)
	assert.Equal(t, 5, msg.MessageID)
	assert.Equal(t, "ru", msg.LanguageCode)
	assert.Equal(t, "holiday", msg.Caption)
	assert.Equal(t, "g1", msg.MediaGroupID)
	assert.Equal(t, []form.Attachment{
		{Kind: form.AttachmentPhoto, FileID: "large", Size: 1000},
		{Kind: form.AttachmentDocument, FileID: "doc", FileName: "a.pdf", MimeType: "application/pdf"},
	}, msg.Attachments)

	anon := Message(telego.Message{Chat: telego.Chat{ID: 9}, Text: "hi"})
	assert.EqualValues(t, 9, anon.UserID)
	assert.Empty(t, anon.Attachments)
}

func TestCallbackConversion(t *testing.T) {
	cb := Callback(telego.CallbackQuery{
		ID:      "q",
		From:    telego.User{ID: 3, LanguageCode: "en"},
		Data:    "x",
		Message: &telego.Message{MessageID: 11, Chat: telego.Chat{ID: 3}},
	})
	assert.Equal(t, "q", cb.ID)
	assert.EqualValues(t, 3, cb.UserID)
	assert.Equal(t, 11, cb.MessageID)
	assert.Equal(t, "en", cb.LanguageCode)
}

func TestRouterDispatch(t *testing.T) {
	bot := &MockBot{}
	bot.On("SendMessage", mock.Anything, mock.Anything).Return(&telego.Message{MessageID: 1}, nil)
	bot.On("AnswerCallbackQuery", mock.Anything, mock.Anything).Return(nil)
	gw := NewGateway(bot, ratelimit.NewUnlimited())

	f, err := form.New([]form.Field{
		&form.PlainText{FieldBase: form.FieldBase{Name: "name", Required: true, Query: lang.Plain("Name?")}, EmptyTextError: lang.Plain("empty")},
		&form.PlainText{FieldBase: form.FieldBase{Name: "city", Required: true, Query: lang.Plain("City?")}, EmptyTextError: lang.Plain("empty")},
	})
	require.NoError(t, err)
	h, err := handler.New(handler.Options{Name: "router", Form: f, KV: store.NewMemoryKV(0), Gateway: gw})
	require.NoError(t, err)
	var done []map[string]any
	h.OnCompleted(func(ctx context.Context, ec handler.ExitContext) error {
		done = append(done, ec.Result.Map())
		return nil
	})

	r := NewRouter(zap.NewNop(), h)
	ctx := context.Background()
	text := func(s string) telego.Update {
		return telego.Update{Message: &telego.Message{Chat: telego.Chat{ID: 1, Type: telego.ChatTypePrivate}, From: &telego.User{ID: 1}, Text: s}}
	}

	handled, err := r.Dispatch(ctx, text("hello"))
	require.NoError(t, err)
	assert.False(t, handled, "no session yet")

	_, err = h.Start(ctx, 1)
	require.NoError(t, err)
	handled, err = r.Dispatch(ctx, text("Alice"))
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, "City?", bot.sent()[len(bot.sent())-1].Text)

	group := telego.Update{Message: &telego.Message{
		Chat: telego.Chat{ID: -100, Type: telego.ChatTypeSupergroup},
		From: &telego.User{ID: 1},
		Text: "chatting in a group",
	}}
	sentBefore := len(bot.sent())
	handled, err = r.Dispatch(ctx, group)
	require.NoError(t, err)
	assert.False(t, handled, "group messages are not form answers")
	assert.Len(t, bot.sent(), sentBefore)
	st, err := h.Session(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "city", st.Field)
	assert.Equal(t, map[string]any{"name": "Alice"}, st.Result.Map())

	handled, err = r.Dispatch(ctx, text("/help"))
	require.NoError(t, err)
	assert.False(t, handled)

	handled, err = r.Dispatch(ctx, telego.Update{CallbackQuery: &telego.CallbackQuery{ID: "q", From: telego.User{ID: 1}, Data: "unrelated"}})
	require.NoError(t, err)
	assert.False(t, handled)

	handled, err = r.Dispatch(ctx, telego.Update{CallbackQuery: &telego.CallbackQuery{ID: "q", From: telego.User{ID: 1}, Data: h.CallbackData("name", "x")}})
	require.NoError(t, err)
	assert.True(t, handled)
	bot.AssertCalled(t, "AnswerCallbackQuery", mock.Anything, &telego.AnswerCallbackQueryParams{CallbackQueryID: "q"})

	handled, err = r.Dispatch(ctx, text("Paris"))
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, []map[string]any{{"name": "Alice", "city": "Paris"}}, done)

	handled, err = r.Dispatch(ctx, telego.Update{})
	require.NoError(t, err)
	assert.False(t, handled)
}
