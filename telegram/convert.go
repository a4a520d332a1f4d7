package telegram

import (
	"github.com/mymmrac/telego"

	"github.com/tbxark/tgform/form"
	"github.com/tbxark/tgform/handler"
)

// Message converts a telego message. The sender is the user; in private chats
// it equals the chat.
func Message(m telego.Message) form.Message {
	msg := form.Message{
		UserID:       m.Chat.ID,
		MessageID:    m.MessageID,
		Text:         m.Text,
		Caption:      m.Caption,
		MediaGroupID: m.MediaGroupID,
		Attachments:  attachments(m),
		Raw:          m,
	}
	if m.From != nil {
		msg.UserID = m.From.ID
		msg.LanguageCode = m.From.LanguageCode
	}
	return msg
}

func Callback(q telego.CallbackQuery) handler.Callback {
	cb := handler.Callback{
		ID:           q.ID,
		UserID:       q.From.ID,
		Data:         q.Data,
		LanguageCode: q.From.LanguageCode,
		Raw:          q,
	}
	if q.Message != nil {
		cb.MessageID = q.Message.GetMessageID()
	}
	return cb
}

func attachments(m telego.Message) []form.Attachment {
	var out []form.Attachment
	if n := len(m.Photo); n > 0 {
		// Sizes are ascending; keep the largest.
		p := m.Photo[n-1]
		out = append(out, form.Attachment{Kind: form.AttachmentPhoto, FileID: p.FileID, Size: int64(p.FileSize)})
	}
	if d := m.Document; d != nil {
		out = append(out, form.Attachment{Kind: form.AttachmentDocument, FileID: d.FileID, FileName: d.FileName, MimeType: d.MimeType, Size: int64(d.FileSize)})
	}
	if v := m.Video; v != nil {
		out = append(out, form.Attachment{Kind: form.AttachmentVideo, FileID: v.FileID, FileName: v.FileName, MimeType: v.MimeType, Size: int64(v.FileSize)})
	}
	if a := m.Audio; a != nil {
		out = append(out, form.Attachment{Kind: form.AttachmentAudio, FileID: a.FileID, FileName: a.FileName, MimeType: a.MimeType, Size: int64(a.FileSize)})
	}
	if v := m.Voice; v != nil {
		out = append(out, form.Attachment{Kind: form.AttachmentVoice, FileID: v.FileID, MimeType: v.MimeType, Size: int64(v.FileSize)})
	}
	if a := m.Animation; a != nil {
		out = append(out, form.Attachment{Kind: form.AttachmentAnimation, FileID: a.FileID, FileName: a.FileName, MimeType: a.MimeType, Size: int64(a.FileSize)})
	}
	return out
}
