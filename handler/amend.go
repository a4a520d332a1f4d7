package handler

import (
	"context"
	"encoding/json"
		"slices"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/tbxark/tgform/form"
	"github.com/tbxark/tgform/patch"
)

// Amend applies RFC 6902 operations to the result of an active session.
// Paths address field names, e.g. "/name" or "/pets/0". Changed values are
// decoded with the field's codec, so they must fit its value type.
func (h *Handler) Amend(ctx context.Context, userID int64, ops []patch.Operation) error {
	unlock, err := h.lock(userID)
	if err != nil {
		return err
	}
	defer unlock()

	st, ok, err := h.load(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoSession
	}

	allowed := make(map[string]bool)
	for _, fld := range h.form.Fields() {
		p := "/" + patch.Escape(fld.Base().Name)
		allowed[p] = true
		allowed[p+"/*"] = true
		allowed[p+"/*/*"] = true
	}
	if err := patch.ValidatePaths(ops, allowed); err != nil {
		return err
	}

	encoded, err := h.form.EncodeResult(st.Result)
	if err != nil {
		return err
	}
	current := make(map[string]json.RawMessage, len(encoded))
	for _, e := range encoded {
		current[e.Field] = e.Value
	}
	values, err := patch.Apply(current, ops)
	if err != nil {
		return err
	}

	// Keep the visiting order of surviving answers; new ones follow in
	// declaration order.
	entries := make([]form.Entry, 0, len(values))
	for _, name := range st.Result.Keys() {
		if raw, ok := values[name]; ok {
			entries = append(entries, form.Entry{Field: name, Value: raw})
		}
	}
	for _, fld := range h.form.Fields() {
		name := fld.Base().Name
		if raw, ok := values[name]; ok && !st.Result.Has(name) {
			entries = append(entries, form.Entry{Field: name, Value: raw})
		}
	}
	result, err := h.form.DecodeResult(entries)
	if err != nil {
		return err
	}
	st.Result = result
	if err := h.save(ctx, userID, st); err != nil {
		return err
	}

	var touched []string
	for _, op := range ops {
		if name := patch.Root(op.Path); !slices.Contains(touched, name) {
			touched = append(touched, name)
		}
	}
	logger := h.userLogger(userID)
	merge, err := mergePatch(current, values)
	if err != nil {
		logger.Warn("merge patch of amended result", zap.Error(err))
	}
	logger.Info("form result amended", zap.Strings("fields", touched), zap.ByteString("merge", merge))
	return nil
}

func mergePatch(before, after map[string]json.RawMessage) ([]byte, error) {
	b, err := sonic.Marshal(before)
	if err != nil {
		return nil, err
	}
	a, err := sonic.Marshal(after)
	if err != nil {
		return nil, err
	}
	return patch.Merge(b, a)
}
