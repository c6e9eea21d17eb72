package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventIDDeterminism(t *testing.T) {
	ev := NewEvent("alice", 1700000000, VideoLiked{VideoIndex: 0, Liker: "alice", LikeCount: 1})
	ev.Seq = 3

	id1, err := ev.ComputeID()
	require.NoError(t, err)
	id2, err := ev.ComputeID()
	require.NoError(t, err)

	assert.Equal(t, id1, id2)
	assert.Len(t, id1, 64)
}

func TestEventIDIgnoresFlowToken(t *testing.T) {
	a := NewEvent("alice", 1, StateCreated{Owner: "alice"})
	b := a
	a.FlowToken = "flow-a"
	b.FlowToken = "flow-b"

	idA, err := a.ComputeID()
	require.NoError(t, err)
	idB, err := b.ComputeID()
	require.NoError(t, err)
	assert.Equal(t, idA, idB)
}

func TestEventIDChangesWithInput(t *testing.T) {
	base := NewEvent("alice", 1, VideoModerated{VideoIndex: 0, ModerationScore: 1, Approved: true})
	other := base
	other.Seq = 2
	flipped := NewEvent("alice", 1, VideoModerated{VideoIndex: 0, ModerationScore: 1, Approved: false})

	id1, err := base.ComputeID()
	require.NoError(t, err)
	id2, err := other.ComputeID()
	require.NoError(t, err)
	id3, err := flipped.ComputeID()
	require.NoError(t, err)

	assert.NotEqual(t, id1, id2)
	assert.NotEqual(t, id1, id3)
}

func TestEventComputeIDMissingPayload(t *testing.T) {
	ev := Event{Type: EventStateCreated}
	_, err := ev.ComputeID()
	require.Error(t, err)
}

func TestNewEventSetsType(t *testing.T) {
	ev := NewEvent("bob", 5, CommentCreated{VideoIndex: 1, CommentIndex: 2, Commenter: "bob"})
	assert.Equal(t, EventCommentCreated, ev.Type)
	assert.Equal(t, Identity("bob"), ev.Caller)
	assert.Equal(t, int64(5), ev.Timestamp)
}

func TestDecodePayload(t *testing.T) {
	payloads := []Payload{
		StateCreated{Owner: "alice"},
		UserCreated{Owner: "alice", DisplayName: "Alice"},
		VideoCreated{VideoIndex: 2, Creator: "alice"},
		CommentCreated{VideoIndex: 2, CommentIndex: 1, Commenter: "bob"},
		VideoModerated{VideoIndex: 2, ModerationScore: -1, Approved: false},
		VideoLiked{VideoIndex: 2, Liker: "bob", LikeCount: 4},
	}

	for _, p := range payloads {
		t.Run(string(p.EventType()), func(t *testing.T) {
			data, err := json.Marshal(p)
			require.NoError(t, err)

			got, err := DecodePayload(p.EventType(), data)
			require.NoError(t, err)
			assert.Equal(t, p, got)
		})
	}
}

func TestDecodePayloadUnknownType(t *testing.T) {
	_, err := DecodePayload("video.deleted", []byte(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown event type")
}
