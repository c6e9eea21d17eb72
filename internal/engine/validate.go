package engine

import (
	"strings"
	"unicode/utf8"

	"github.com/roach88/reel/internal/ir"
)

// Invariant checks. Each returns nil or a *LedgerError; callers run them in
// the order the operation defines and stop at the first failure.

// requireText rejects a value that is blank after trimming whitespace or
// longer than limit bytes. The value itself is stored untrimmed.
func requireText(field, value string, limit int, empty ErrorCode) error {
	if strings.TrimSpace(value) == "" {
		e := newError(empty)
		e.Field = field
		return e
	}
	return requireLength(field, value, limit)
}

// requireLength bounds optional fields, which may be empty. Invalid UTF-8
// is rejected because the record encoder would replace it with U+FFFD.
func requireLength(field, value string, limit int) error {
	if !utf8.ValidString(value) {
		return invalidText(field)
	}
	if len(value) > limit {
		return textTooLong(field, len(value), limit)
	}
	return nil
}

func requireCaller(caller ir.Identity) error {
	if caller == "" {
		return newError(CodeMissingCaller)
	}
	if !utf8.ValidString(string(caller)) {
		return invalidText("caller")
	}
	return nil
}

func requireOwner(v *ir.Video, caller ir.Identity) error {
	if v.Owner != caller {
		return newError(CodeUnauthorizedAction).at(v.Address())
	}
	return nil
}

func requireVisible(v *ir.Video) error {
	if !v.Visible() {
		return newError(CodeVideoRemoved).at(v.Address())
	}
	return nil
}

func requireLikeCapacity(v *ir.Video) error {
	if v.LikeCount >= ir.MaxLikes {
		return newError(CodeMaxLikesReached).at(v.Address())
	}
	return nil
}

func requireNotLiked(v *ir.Video, caller ir.Identity) error {
	if v.HasLiked(caller) {
		return newError(CodeAlreadyLiked).at(v.Address())
	}
	return nil
}
