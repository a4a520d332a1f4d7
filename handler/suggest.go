package handler

import (
	"context"
	"slices"
	"strconv"

	"go.uber.org/zap"
)

func suggestionKey(userID int64, field string) string {
	return strconv.FormatInt(userID, 10) + ":" + field
}

func (h *Handler) suggest(ctx context.Context, userID int64, field string) []string {
	prev, _, err := h.suggestions.Get(ctx, suggestionKey(userID, field))
	if err != nil {
		h.logger.Warn("load suggestions", zap.Int64("user_id", userID), zap.String("field", field), zap.Error(err))
		return nil
	}
	return prev
}

// remember puts answer first in the field's suggestions, keeping the newest
// Count distinct answers.
func (h *Handler) remember(ctx context.Context, userID int64, field, answer string) {
	prev := h.suggest(ctx, userID, field)
	next := append([]string{answer}, slices.DeleteFunc(prev, func(s string) bool { return s == answer })...)
	if len(next) > h.cfg.Suggestions.Count {
		next = next[:h.cfg.Suggestions.Count]
	}
	if err := h.suggestions.Set(ctx, suggestionKey(userID, field), next); err != nil {
		h.logger.Warn("save suggestions", zap.Int64("user_id", userID), zap.String("field", field), zap.Error(err))
	}
}
