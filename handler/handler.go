package handler

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/EagleChen/mapmutex"
	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"github.com/tbxark/tgform/form"
	"github.com/tbxark/tgform/lang"
	"github.com/tbxark/tgform/patch"
	"github.com/tbxark/tgform/store"
)

var (
	ErrBusy      = errors.New("another update of this user is being processed")
	ErrNoSession = errors.New("no active form session")
)

const defaultPrefix = "tgform"

type Options struct {
	// Name identifies the form in storage keys, callback data and metrics.
	Name    string
	Prefix  string
	Form    *form.Form
	Config  *Config
	KV      store.KV
	Gateway Gateway
	// Languages is optional; nil means single-language mode.
	Languages LanguageResolver
	Logger    *zap.Logger
}

// Handler runs sessions of one form: it persists each user's State, feeds it
// updates and hands finished results to the exit callbacks.
type Handler struct {
	name           string
	form           *form.Form
	cfg            *Config
	machine        *Machine
	sessions       store.Store[record]
	suggestions    store.Store[[]string]
	gateway        Gateway
	languages      LanguageResolver
	logger         *zap.Logger
	locks          *mapmutex.Mutex
	callbackPrefix string
	onCompleted    ExitFunc
	onCancelled    ExitFunc
}

func New(opts Options) (*Handler, error) {
	switch {
	case opts.Name == "":
		return nil, fmt.Errorf("handler name is required")
	case strings.ContainsAny(opts.Name, ":"+callbackSep):
		return nil, fmt.Errorf("handler name %q must not contain ':'", opts.Name)
	case opts.Form == nil:
		return nil, fmt.Errorf("form is required")
	case opts.KV == nil:
		return nil, fmt.Errorf("kv store is required")
	case opts.Gateway == nil:
		return nil, fmt.Errorf("gateway is required")
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	namespace := prefix + ":" + opts.Name
	h := &Handler{
		name:           opts.Name,
		form:           opts.Form,
		cfg:            cfg,
		sessions:       store.New[record](opts.KV, nil, namespace, cfg.TTL),
		gateway:        opts.Gateway,
		languages:      opts.Languages,
		logger:         logger.With(zap.String("form", opts.Name)),
		locks:          mapmutex.NewCustomizedMapMutex(800, 100000000, 10, 1.1, 0.2),
		callbackPrefix: opts.Name + ":",
	}
	var suggest SuggestFunc
	if cfg.Suggestions != nil {
		h.suggestions = store.New[[]string](opts.KV, nil, namespace+":suggest", cfg.Suggestions.TTL)
		suggest = h.suggest
	}
	h.machine = NewMachine(opts.Form, cfg, suggest)
	if err := h.preflight(); err != nil {
		return nil, err
	}
	return h, nil
}

// preflight checks every text for every configured language and the size of
// every callback payload, so misconfiguration fails at startup.
func (h *Handler) preflight() error {
	var langs []lang.Language
	if h.languages != nil {
		langs = h.languages.Languages()
	}
	var problems []error
	check := func(where string, t lang.Text) {
		if err := t.Validate(langs); err != nil {
			problems = append(problems, fmt.Errorf("%s: %w", where, err))
		}
	}
	for _, t := range h.cfg.texts() {
		check("config", t)
	}
	for _, fld := range h.form.Fields() {
		name := fld.Base().Name
		for _, t := range fld.Texts() {
			check("field "+name, t)
		}
		if n := form.MaxPayloadLen(fld); n > 0 {
			if size := len(h.CallbackData(name, strings.Repeat("x", n))); size > maxCallbackData {
				problems = append(problems, fmt.Errorf("field %s: callback data may take %d bytes, limit is %d", name, size, maxCallbackData))
			}
		}
	}
	return errors.Join(problems...)
}

func (h *Handler) Form() *form.Form {
	return h.form
}

func (h *Handler) OnCompleted(fn ExitFunc) {
	h.onCompleted = fn
}

func (h *Handler) OnCancelled(fn ExitFunc) {
	h.onCancelled = fn
}

type startOptions struct {
	initial map[string]any
	dynamic map[string][]form.Option
	hint    string
}

type StartOption func(*startOptions)

// WithInitialResult seeds the session with values the user may keep.
func WithInitialResult(values map[string]any) StartOption {
	return func(o *startOptions) {
		o.initial = values
	}
}

// WithDynamicOptions supplies options of DynamicSingleSelect fields.
func WithDynamicOptions(options map[string][]form.Option) StartOption {
	return func(o *startOptions) {
		o.dynamic = options
	}
}

// WithLanguageHint passes the client's language code to the resolver.
func WithLanguageHint(code string) StartOption {
	return func(o *startOptions) {
		o.hint = code
	}
}

func (h *Handler) key(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

func (h *Handler) lock(userID int64) (func(), error) {
	key := h.sessions.Key(h.key(userID))
	if !h.locks.TryLock(key) {
		return nil, ErrBusy
	}
	return func() { h.locks.Unlock(key) }, nil
}

func (h *Handler) userLogger(userID int64) *zap.Logger {
	return h.logger.With(zap.Int64("user_id", userID))
}

// Start begins a new session for userID, replacing any session in progress,
// and sends the opening prompt.
func (h *Handler) Start(ctx context.Context, userID int64, opts ...StartOption) (Response, error) {
	var o startOptions
	for _, opt := range opts {
		opt(&o)
	}
	unlock, err := h.lock(userID)
	if err != nil {
		return Response{}, err
	}
	defer unlock()

	l := lang.None
	if h.languages != nil {
		if l, err = h.languages.Resolve(ctx, userID, o.hint); err != nil {
			return Response{}, fmt.Errorf("resolve language: %w", err)
		}
	}
	st := &State{Language: l, Result: form.NewResult()}
	if len(o.dynamic) > 0 {
		st.Dynamic = make(map[string][]form.Option, len(o.dynamic))
		for k, v := range o.dynamic {
			st.Dynamic[k] = slices.Clone(v)
		}
	}
	if o.initial != nil {
		if st.Result, err = h.form.ResultFromMap(o.initial); err != nil {
			return Response{}, fmt.Errorf("initial result: %w", err)
		}
	}
	resp := h.machine.Start(ctx, st, userID)
	if err := h.save(ctx, userID, st); err != nil {
		return Response{}, err
	}
	sessionsStarted.WithLabelValues(h.name).Inc()
	h.userLogger(userID).Info("form started", zap.String("field", st.Field), zap.String("language", string(l)))
	if err := h.send(ctx, userID, st.Field, &resp); err != nil {
		return resp, err
	}
	return resp, nil
}

func (h *Handler) IsActive(ctx context.Context, userID int64) (bool, error) {
	return h.sessions.Exists(ctx, h.key(userID))
}

// Session returns a copy of the user's state.
func (h *Handler) Session(ctx context.Context, userID int64) (*State, error) {
	st, ok, err := h.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoSession
	}
	return st, nil
}

// HandleMessage processes msg if its sender has an active session. It reports
// false for users without one and for passthrough commands.
func (h *Handler) HandleMessage(ctx context.Context, msg form.Message) (bool, error) {
	unlock, err := h.lock(msg.UserID)
	if err != nil {
		return false, err
	}
	defer unlock()

	st, ok, err := h.load(ctx, msg.UserID)
	if err != nil || !ok {
		return false, err
	}
	before := st.Result.Map()
	eff := h.machine.Update(ctx, st, msg.UserID, msg)
	if eff.Action == Passthrough {
		return false, nil
	}
	h.logDelta(msg.UserID, before, st, eff)
	if eff.Committed != "" && h.cfg.Suggestions != nil {
		h.rememberAnswer(ctx, msg, eff.Committed)
	}
	return true, h.apply(ctx, msg.UserID, st, eff, ExitContext{Message: &msg})
}

func (h *Handler) rememberAnswer(ctx context.Context, msg form.Message, field string) {
	fld, ok := h.form.Field(field)
	if !ok || !fld.Base().Suggest {
		return
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" || strings.HasPrefix(text, "/") {
		return
	}
	h.remember(ctx, msg.UserID, field, text)
}

// HandleCallback processes an inline button press. It reports false when the
// data does not belong to this handler.
func (h *Handler) HandleCallback(ctx context.Context, cb Callback) (bool, error) {
	field, payload, ok := h.ParseCallbackData(cb.Data)
	if !ok {
		return false, nil
	}
	unlock, err := h.lock(cb.UserID)
	if err != nil {
		return true, err
	}
	defer unlock()

	logger := h.userLogger(cb.UserID)
	st, ok, err := h.load(ctx, cb.UserID)
	if err != nil {
		return true, err
	}
	if !ok {
		return true, h.gateway.AnswerCallback(ctx, cb.ID, "")
	}
	before := st.Result.Map()
	eff := h.machine.HandleCallback(ctx, st, cb.UserID, field, payload)
	if eff.Stale {
		if eff.Err != nil {
			logger.Warn("ignored callback", zap.String("field", field), zap.String("payload", payload), zap.Error(eff.Err))
		}
		return true, h.gateway.AnswerCallback(ctx, cb.ID, "")
	}
	h.logDelta(cb.UserID, before, st, eff)
	if err := h.gateway.AnswerCallback(ctx, cb.ID, eff.Answer); err != nil {
		logger.Warn("answer callback", zap.Error(err))
	}
	if eff.Redraw != nil {
		if err := h.gateway.EditMarkup(ctx, cb.UserID, cb.MessageID, h.wrap(*eff.Redraw, field)); err != nil {
			logger.Warn("redraw inline keyboard", zap.Error(err))
		}
	}
	return true, h.apply(ctx, cb.UserID, st, eff, ExitContext{Callback: &cb})
}

func (h *Handler) apply(ctx context.Context, userID int64, st *State, eff Effect, ec ExitContext) error {
	logger := h.userLogger(userID).With(zap.String("field", st.Field))
	if eff.Rejected {
		fieldRejections.WithLabelValues(h.name, st.Field).Inc()
	}
	if eff.Action == KeepGoing {
		if err := h.save(ctx, userID, st); err != nil {
			return err
		}
		return h.send(ctx, userID, st.Field, eff.Response)
	}

	if eff.Err != nil {
		internalErrors.WithLabelValues(h.name).Inc()
		sentry.CaptureException(eff.Err)
		logger.Error("form cancelled by error", zap.Error(eff.Err))
	}
	if err := h.sessions.Del(ctx, h.key(userID)); err != nil {
		return err
	}
	outcome, fn := "completed", h.onCompleted
	if eff.Action == Cancelled {
		outcome, fn = "cancelled", h.onCancelled
	}
	sessionsFinished.WithLabelValues(h.name, outcome).Inc()
	logger.Info("form finished", zap.String("outcome", outcome), zap.Int("answers", st.Result.Len()))
	if err := h.send(ctx, userID, st.Field, eff.Response); err != nil {
		return err
	}
	if fn == nil {
		return nil
	}
	ec.UserID = userID
	ec.Language = st.Language
	ec.Result = st.Result
	ec.Dynamic = st.Dynamic
	if err := fn(ctx, ec); err != nil {
		return fmt.Errorf("%s callback: %w", outcome, err)
	}
	return nil
}

func (h *Handler) send(ctx context.Context, userID int64, field string, resp *Response) error {
	if resp == nil || resp.Text == "" {
		return nil
	}
	if _, err := h.gateway.Send(ctx, userID, resp.Text, h.wrap(resp.Markup, field)); err != nil {
		return fmt.Errorf("send response: %w", err)
	}
	return nil
}

func (h *Handler) load(ctx context.Context, userID int64) (*State, bool, error) {
	rec, ok, err := h.sessions.Get(ctx, h.key(userID))
	if err != nil {
		var de *store.DecodeError
		if !errors.As(err, &de) {
			return nil, false, err
		}
		h.drop(ctx, userID, err)
		return nil, false, nil
	}
	if !ok {
		return nil, false, nil
	}
	st, err := decodeState(h.form, rec)
	if err != nil {
		h.drop(ctx, userID, err)
		return nil, false, nil
	}
	return st, true, nil
}

// drop forgets a session that can no longer be restored, e.g. after the
// form definition changed.
func (h *Handler) drop(ctx context.Context, userID int64, cause error) {
	logger := h.userLogger(userID)
	logger.Warn("dropping unreadable form session", zap.Error(cause))
	if err := h.sessions.Del(ctx, h.key(userID)); err != nil {
		logger.Error("delete unreadable form session", zap.Error(err))
	}
}

func (h *Handler) save(ctx context.Context, userID int64, st *State) error {
	rec, err := encodeState(h.form, st)
	if err != nil {
		return err
	}
	if err := h.sessions.Set(ctx, h.key(userID), rec); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (h *Handler) logDelta(userID int64, before map[string]any, st *State, eff Effect) {
	if !h.logger.Core().Enabled(zap.DebugLevel) {
		return
	}
	after := st.Result.Map()
	if len(before) == 0 && len(after) == 0 {
		return
	}
	ops, err := patch.Diff(before, after)
	if err != nil {
		h.userLogger(userID).Debug("diff result", zap.Error(err))
		return
	}
	h.userLogger(userID).Debug("transition",
		zap.Stringer("action", eff.Action),
		zap.String("field", st.Field),
		zap.String("phase", string(st.Phase)),
		zap.Any("ops", ops),
	)
}
