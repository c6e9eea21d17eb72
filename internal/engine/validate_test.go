package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reel/internal/ir"
)

func TestRequireText(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  ErrorCode
	}{
		{"plain", "hello", ""},
		{"padded", "  hello  ", ""},
		{"empty", "", CodeEmptyCommentText},
		{"spaces", "    ", CodeEmptyCommentText},
		{"mixed whitespace", "\t\n\r ", CodeEmptyCommentText},
		{"at limit", strings.Repeat("x", 10), ""},
		{"over limit", strings.Repeat("x", 11), CodeTextTooLong},
		{"padding counts toward limit", " " + strings.Repeat("x", 10), CodeTextTooLong},
		{"multibyte at limit", "héllo wor", ""},
		{"invalid utf-8", "ok\xff", CodeInvalidText},
		{"truncated rune", "caf\xc3", CodeInvalidText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := requireText("text", tt.value, 10, CodeEmptyCommentText)
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.want, CodeOf(err))
		})
	}
}

func TestRequireLength_AllowsEmpty(t *testing.T) {
	assert.NoError(t, requireLength("creator_url", "", ir.MaxURLLength))
	assert.NoError(t, requireLength("creator_url", "   ", ir.MaxURLLength))
	assert.Error(t, requireLength("creator_url", strings.Repeat("u", ir.MaxURLLength+1), ir.MaxURLLength))
	assert.Equal(t, CodeInvalidText, CodeOf(requireLength("creator_url", "\xff", ir.MaxURLLength)))
}

func TestRequireCaller(t *testing.T) {
	assert.NoError(t, requireCaller(alice))
	assert.Equal(t, CodeMissingCaller, CodeOf(requireCaller("")))

	err := requireCaller("bad\xfe")
	var le *LedgerError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, CodeInvalidText, le.Code)
	assert.Equal(t, "caller", le.Field)
}

func TestRequireOwner(t *testing.T) {
	v := &ir.Video{Owner: alice, SequenceIndex: 2}
	assert.NoError(t, requireOwner(v, alice))

	err := requireOwner(v, bob)
	assert.Equal(t, CodeUnauthorizedAction, CodeOf(err))
	var le *LedgerError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ir.VideoAddress(2), le.Address)
}

func TestRequireVisible(t *testing.T) {
	assert.NoError(t, requireVisible(&ir.Video{ModerationScore: -499}))
	assert.Equal(t, CodeVideoRemoved, CodeOf(requireVisible(&ir.Video{ModerationScore: -500})))
	assert.Equal(t, CodeVideoRemoved, CodeOf(requireVisible(&ir.Video{ModerationScore: -501})))
}

func TestRequireLikes(t *testing.T) {
	v := &ir.Video{LikeCount: 1, Likers: []ir.Identity{alice}}
	assert.NoError(t, requireLikeCapacity(v))
	assert.NoError(t, requireNotLiked(v, bob))
	assert.Equal(t, CodeAlreadyLiked, CodeOf(requireNotLiked(v, alice)))

	v.LikeCount = ir.MaxLikes
	assert.Equal(t, CodeMaxLikesReached, CodeOf(requireLikeCapacity(v)))
}
