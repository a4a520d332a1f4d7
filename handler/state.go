package handler

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"

	"github.com/tbxark/tgform/form"
	"github.com/tbxark/tgform/lang"
	"github.com/tbxark/tgform/types"
)

// State is one user's position in a form.
type State struct {
	Field    string
	Phase    types.Phase
	Result   *form.Result
	Pending  form.Pending
	Dynamic  map[string][]form.Option
	Language lang.Language
}

func (s *State) env(userID int64) form.Env {
	return form.Env{Lang: s.Language, UserID: userID, Dynamic: s.Dynamic}
}

type record struct {
	Field    string                   `json:"field"`
	Phase    types.Phase              `json:"phase"`
	Result   []form.Entry             `json:"result"`
	Pending  form.Pending             `json:"pending"`
	Dynamic  map[string][]form.Option `json:"dynamic,omitempty"`
	Language lang.Language            `json:"language,omitempty"`
}

func encodeState(f *form.Form, s *State) (record, error) {
	entries, err := f.EncodeResult(s.Result)
	if err != nil {
		return record{}, err
	}
	return record{
		Field:    s.Field,
		Phase:    s.Phase,
		Result:   entries,
		Pending:  s.Pending,
		Dynamic:  s.Dynamic,
		Language: s.Language,
	}, nil
}

func decodeState(f *form.Form, r record) (*State, error) {
	if r.Phase == "" {
		r.Phase = types.PhaseCollecting
	}
	if r.Phase == types.PhaseCollecting {
		if _, ok := f.Field(r.Field); !ok {
			return nil, fmt.Errorf("stored session points to unknown field %q", r.Field)
		}
	}
	result, err := f.DecodeResult(r.Result)
	if err != nil {
		return nil, err
	}
	return &State{
		Field:    r.Field,
		Phase:    r.Phase,
		Result:   result,
		Pending:  r.Pending,
		Dynamic:  r.Dynamic,
		Language: r.Language,
	}, nil
}

const (
	eventComplete = "complete"
	eventCancel   = "cancel"
)

func newLifecycle(phase types.Phase) *fsm.FSM {
	return fsm.NewFSM(
		string(phase),
		fsm.Events{
			{Name: eventComplete, Src: []string{string(types.PhaseCollecting)}, Dst: string(types.PhaseCompleted)},
			{Name: eventCancel, Src: []string{string(types.PhaseCollecting)}, Dst: string(types.PhaseCancelled)},
		},
		fsm.Callbacks{},
	)
}

// advance moves s to the phase reached by event. Terminal phases accept no
// further events.
func advance(ctx context.Context, s *State, event string) error {
	lc := newLifecycle(s.Phase)
	if err := lc.Event(ctx, event); err != nil {
		return fmt.Errorf("%s session in phase %s: %w", event, s.Phase, err)
	}
	s.Phase = types.Phase(lc.Current())
	return nil
}
