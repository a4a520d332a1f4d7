package form

import (
	"time"

	"github.com/tiendc/go-deepcopy"

	"github.com/tbxark/tgform/lang"
)

type AttachmentKind string

const (
	AttachmentPhoto     AttachmentKind = "photo"
	AttachmentDocument  AttachmentKind = "document"
	AttachmentVideo     AttachmentKind = "video"
	AttachmentAudio     AttachmentKind = "audio"
	AttachmentVoice     AttachmentKind = "voice"
	AttachmentAnimation AttachmentKind = "animation"
)

type Attachment struct {
	Kind     AttachmentKind `json:"kind"`
	FileID   string         `json:"file_id"`
	FileName string         `json:"file_name,omitempty"`
	MimeType string         `json:"mime_type,omitempty"`
	Size     int64          `json:"size,omitempty"`
}

// Message is an inbound chat message, independent of the bot framework.
type Message struct {
	UserID       int64
	MessageID    int
	Text         string
	Caption      string
	LanguageCode string
	Attachments  []Attachment
	MediaGroupID string
	Raw          any
}

// Env carries the per-update context a field needs to parse and render.
type Env struct {
	Lang    lang.Language
	UserID  int64
	Now     time.Time
	Dynamic map[string][]Option
}

func (e Env) now() time.Time {
	if e.Now.IsZero() {
		return time.Now()
	}
	return e.Now
}

// Pending is the partial answer of a field filled over several updates:
// selected or typed items, the visible menu page, the calendar month, or
// files received so far.
type Pending struct {
	Items []string     `json:"items,omitempty"`
	Page  int          `json:"page,omitempty"`
	Month string       `json:"month,omitempty"`
	Files []Attachment `json:"files,omitempty"`
}

func (p Pending) IsZero() bool {
	return len(p.Items) == 0 && p.Page == 0 && p.Month == "" && len(p.Files) == 0
}

func (p Pending) Clone() Pending {
	var c Pending
	if err := deepcopy.Copy(&c, &p); err != nil {
		c = Pending{Page: p.Page, Month: p.Month}
		c.Items = append(c.Items, p.Items...)
		c.Files = append(c.Files, p.Files...)
	}
	return c
}

type Option struct {
	ID    string    `json:"id"`
	Label lang.Text `json:"label"`
}

func NewOption(id string, label string) Option {
	return Option{ID: id, Label: lang.Plain(label)}
}
