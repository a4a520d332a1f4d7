package handler

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/tbxark/tgform/command"
	"github.com/tbxark/tgform/form"
	"github.com/tbxark/tgform/types"
)

type Action int

const (
	KeepGoing Action = iota
	Completed
	Cancelled
	// Passthrough leaves the message to other bot handlers.
	Passthrough
)

func (a Action) String() string {
	switch a {
	case KeepGoing:
		return "keep_going"
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	case Passthrough:
		return "passthrough"
	}
	return fmt.Sprintf("action(%d)", int(a))
}

type Response struct {
	Text   string
	Markup form.Markup
}

// Effect is the outcome of one transition.
type Effect struct {
	Action   Action
	Response *Response
	// Answer is shown as the callback query notification.
	Answer string
	// Redraw replaces the inline keyboard of the message the callback came from.
	Redraw *form.Markup
	// Stale marks a callback that does not apply to the session. The state
	// is untouched.
	Stale bool
	// Rejected is set when the answer was refused and the field asked again.
	Rejected bool
	// Committed names the field whose value was stored.
	Committed string
	// Err is the unexpected error that cancelled the session, or the reason
	// a callback was ignored.
	Err error
}

// SuggestFunc returns previous answers to offer for a field.
type SuggestFunc func(ctx context.Context, userID int64, field string) []string

// Machine is the transition function of a form session. It mutates the
// State it is given and never performs I/O except through SuggestFunc.
type Machine struct {
	form    *form.Form
	cfg     *Config
	parser  *command.LocalParser
	suggest SuggestFunc
}

func NewMachine(f *form.Form, cfg *Config, suggest SuggestFunc) *Machine {
	return &Machine{form: f, cfg: cfg, parser: cfg.parser(), suggest: suggest}
}

// Start returns a collecting state at the start field and its opening prompt.
// The initial result, if any, provides values the user may keep.
func (m *Machine) Start(ctx context.Context, st *State, userID int64) Response {
	start := m.form.Start()
	st.Field = start.Base().Name
	st.Phase = types.PhaseCollecting
	st.Pending = form.Pending{}
	if st.Result == nil {
		st.Result = form.NewResult()
	}
	l := st.Language
	paragraphs := append([]string{m.cfg.FormStartingTemplate.Sprintf(l, m.cfg.CancelCommand)}, m.prompt(st, start)...)
	return Response{Text: join(paragraphs), Markup: m.markup(ctx, st, userID, start)}
}

// Update feeds a message to the current field.
func (m *Machine) Update(ctx context.Context, st *State, userID int64, msg form.Message) (eff Effect) {
	defer func() {
		if r := recover(); r != nil {
			eff = m.fail(ctx, st, fmt.Errorf("panic: %v", r))
		}
	}()
	fld, ok := m.form.Field(st.Field)
	if !ok || st.Phase != types.PhaseCollecting {
		return m.fail(ctx, st, fmt.Errorf("session is at field %q in phase %s", st.Field, st.Phase))
	}
	l := st.Language

	cmd, err := m.parser.ParseCommand(ctx, msg.Text)
	if err != nil {
		return m.fail(ctx, st, err)
	}
	switch cmd {
	case command.Cancel:
		return m.cancel(ctx, st)
	case command.Passthrough:
		return Effect{Action: Passthrough}
	case command.Skip:
		if fld.Base().Required {
			return m.retry(ctx, st, userID, fld, m.cfg.CantSkipFieldMsg.String(l))
		}
		return m.commit(ctx, st, userID, fld, nil)
	case command.Keep:
		if v, ok := m.existing(st, fld); ok {
			return m.commit(ctx, st, userID, fld, v)
		}
		return m.unsupported(ctx, st, userID, fld)
	case command.Unknown:
		return m.unsupported(ctx, st, userID, fld)
	}

	env := st.env(userID)
	if acc, ok := fld.(form.Accumulator); ok {
		res, err := acc.Accumulate(env, msg, st.Pending.Clone())
		if err != nil {
			return m.rejected(ctx, st, userID, fld, err)
		}
		if res.Complete {
			return m.commit(ctx, st, userID, fld, res.Value)
		}
		st.Pending = res.Pending
		text := res.Reply
		if text == "" {
			text = fld.Base().Query.String(l)
		}
		return Effect{Action: KeepGoing, Response: &Response{Text: text, Markup: m.markup(ctx, st, userID, fld)}}
	}
	v, err := fld.Parse(env, msg)
	if err != nil {
		return m.rejected(ctx, st, userID, fld, err)
	}
	return m.commit(ctx, st, userID, fld, v)
}

// HandleCallback feeds an inline button press addressed to field.
func (m *Machine) HandleCallback(ctx context.Context, st *State, userID int64, field, payload string) (eff Effect) {
	defer func() {
		if r := recover(); r != nil {
			eff = m.fail(ctx, st, fmt.Errorf("panic: %v", r))
		}
	}()
	if st.Phase != types.PhaseCollecting || field != st.Field {
		return Effect{Stale: true}
	}
	fld, ok := m.form.Field(field)
	if !ok {
		return Effect{Stale: true}
	}
	inl, ok := fld.(form.InlineField)
	if !ok {
		return Effect{Stale: true}
	}
	res, err := inl.HandleCallback(st.env(userID), payload, st.Pending.Clone())
	if err != nil {
		var bad *form.BadFieldValueError
		if errors.As(err, &bad) {
			return Effect{Action: KeepGoing, Answer: bad.Render(st.Language), Rejected: true}
		}
		return Effect{Stale: true, Err: err}
	}
	if res.Complete {
		eff := m.commit(ctx, st, userID, fld, res.Value)
		eff.Answer = res.Reply
		eff.Redraw = &form.Markup{Kind: form.MarkupInline}
		return eff
	}
	st.Pending = res.Pending
	eff = Effect{Action: KeepGoing, Answer: res.Reply}
	if res.Redraw {
		mk := m.markup(ctx, st, userID, fld)
		eff.Redraw = &mk
	}
	return eff
}

func (m *Machine) commit(ctx context.Context, st *State, userID int64, fld form.Field, value any) Effect {
	name := fld.Base().Name
	st.Result.Set(name, value)
	st.Pending = form.Pending{}

	var paragraphs []string
	if value != nil {
		if echo := m.echo(fld, value, st); echo != "" {
			paragraphs = append(paragraphs, echo)
		}
	}
	next, err := m.form.Resolve(fld, userID, value)
	if err != nil {
		return m.fail(ctx, st, err)
	}
	eff := Effect{Action: KeepGoing, Committed: name}
	if next == nil {
		if err := advance(ctx, st, eventComplete); err != nil {
			return m.fail(ctx, st, err)
		}
		eff.Action = Completed
		if len(paragraphs) > 0 {
			eff.Response = &Response{Text: join(paragraphs), Markup: form.Markup{Kind: form.MarkupRemove}}
		}
		return eff
	}
	st.Field = next.Base().Name
	paragraphs = append(paragraphs, m.prompt(st, next)...)
	eff.Response = &Response{Text: join(paragraphs), Markup: m.markup(ctx, st, userID, next)}
	return eff
}

func (m *Machine) echo(fld form.Field, value any, st *State) string {
	tmpl := fld.Base().Echo
	if tmpl.IsZero() {
		if !m.cfg.EchoFilledField {
			return ""
		}
		tmpl = m.cfg.EchoTemplate
	}
	return tmpl.Sprintf(st.Language, html.EscapeString(fld.FormatValue(value, st.Language)))
}

func (m *Machine) prompt(st *State, fld form.Field) []string {
	l := st.Language
	b := fld.Base()
	query := b.Query.String(l)
	if !b.Required {
		query += " " + m.cfg.CanSkipFieldTemplate.Sprintf(l, m.cfg.SkipCommand)
	}
	paragraphs := []string{query}
	if v, ok := m.existing(st, fld); ok {
		paragraphs = append(paragraphs, m.cfg.KeepExistingFieldValueTemplate.Sprintf(l, html.EscapeString(fld.FormatValue(v, l)), m.cfg.KeepCommand))
	}
	return paragraphs
}

func (m *Machine) existing(st *State, fld form.Field) (any, bool) {
	if m.cfg.KeepCommand == "" {
		return nil, false
	}
	v, ok := st.Result.Get(fld.Base().Name)
	return v, ok && v != nil
}

func (m *Machine) markup(ctx context.Context, st *State, userID int64, fld form.Field) form.Markup {
	mk := fld.Markup(st.env(userID), st.Pending)
	if mk.Kind == form.MarkupRemove && fld.Base().Suggest && m.suggest != nil {
		if prev := m.suggest(ctx, userID, fld.Base().Name); len(prev) > 0 {
			return form.ReplyKeyboard(prev, 1)
		}
	}
	return mk
}

func (m *Machine) available(st *State, fld form.Field) []string {
	var cmds []string
	if !fld.Base().Required {
		cmds = append(cmds, m.cfg.SkipCommand)
	}
	if _, ok := m.existing(st, fld); ok {
		cmds = append(cmds, m.cfg.KeepCommand)
	}
	cmds = append(cmds, m.cfg.CancelCommand)
	return append(cmds, m.cfg.CancelAliases...)
}

func (m *Machine) unsupported(ctx context.Context, st *State, userID int64, fld form.Field) Effect {
	text := m.cfg.UnsupportedCommandTemplate.Sprintf(st.Language, strings.Join(m.available(st, fld), ", "))
	return Effect{Action: KeepGoing, Response: &Response{Text: text, Markup: m.markup(ctx, st, userID, fld)}}
}

func (m *Machine) rejected(ctx context.Context, st *State, userID int64, fld form.Field, err error) Effect {
	var bad *form.BadFieldValueError
	if !errors.As(err, &bad) {
		return m.fail(ctx, st, err)
	}
	return m.retry(ctx, st, userID, fld, bad.Render(st.Language))
}

func (m *Machine) retry(ctx context.Context, st *State, userID int64, fld form.Field, msg string) Effect {
	paragraphs := []string{msg, m.cfg.RetryFieldMsg.String(st.Language)}
	return Effect{
		Action:   KeepGoing,
		Rejected: true,
		Response: &Response{Text: join(paragraphs), Markup: m.markup(ctx, st, userID, fld)},
	}
}

func (m *Machine) cancel(ctx context.Context, st *State) Effect {
	if err := advance(ctx, st, eventCancel); err != nil {
		return m.fail(ctx, st, err)
	}
	eff := Effect{Action: Cancelled}
	if !m.cfg.CancelledMsg.IsZero() {
		eff.Response = &Response{Text: m.cfg.CancelledMsg.String(st.Language), Markup: form.Markup{Kind: form.MarkupRemove}}
	}
	return eff
}

// fail cancels the session so a broken field cannot trap the user.
func (m *Machine) fail(ctx context.Context, st *State, err error) Effect {
	if advance(ctx, st, eventCancel) != nil {
		st.Phase = types.PhaseCancelled
	}
	text := m.cfg.CancellingBecauseOfErrorTemplate.Sprintf(st.Language, html.EscapeString(err.Error()))
	return Effect{
		Action:   Cancelled,
		Response: &Response{Text: text, Markup: form.Markup{Kind: form.MarkupRemove}},
		Err:      err,
	}
}

func join(paragraphs []string) string {
	return strings.Join(paragraphs, "\n\n")
}
