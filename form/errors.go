package form

import (
	"errors"

	"github.com/tbxark/tgform/lang"
)

// ErrInvalidForm is wrapped by every form construction failure.
var ErrInvalidForm = errors.New("invalid form")

// BadFieldValueError rejects a user's answer. The user sees Msg and is asked
// to try again; it never ends the session.
type BadFieldValueError struct {
	Msg  lang.Text
	Args []any
}

func BadValue(msg lang.Text, args ...any) error {
	return &BadFieldValueError{Msg: msg, Args: args}
}

func (e *BadFieldValueError) Render(l lang.Language) string {
	if len(e.Args) == 0 {
		return e.Msg.String(l)
	}
	return e.Msg.Sprintf(l, e.Args...)
}

func (e *BadFieldValueError) Error() string {
	return "bad field value: " + e.Render(lang.None)
}
