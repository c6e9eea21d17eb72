package ir

import (
	"encoding/json"
	"fmt"
)

// EventType names the kind of operation an event reports.
type EventType string

const (
	EventStateCreated   EventType = "state.created"
	EventUserCreated    EventType = "user.created"
	EventVideoCreated   EventType = "video.created"
	EventCommentCreated EventType = "comment.created"
	EventVideoModerated EventType = "video.moderated"
	EventVideoLiked     EventType = "video.liked"
)

// EventTypes lists every event type in declaration order.
var EventTypes = []EventType{
	EventStateCreated,
	EventUserCreated,
	EventVideoCreated,
	EventCommentCreated,
	EventVideoModerated,
	EventVideoLiked,
}

// Payload is the operation-specific body of an event.
type Payload interface {
	EventType() EventType
	// Fields returns the payload as a canonical object for hashing.
	Fields() Object
}

// Event is the immutable notification appended for each committed operation.
type Event struct {
	ID        string    `json:"id"`         // Content-addressed hash
	Seq       int64     `json:"seq"`        // Assigned by the store, strictly increasing
	FlowToken string    `json:"flow_token"` // Correlation token of the request
	Type      EventType `json:"type"`
	Caller    Identity  `json:"caller"`
	Timestamp int64     `json:"timestamp"` // Unix seconds from the ledger clock
	Data      Payload   `json:"data"`
}

// NewEvent creates an event with Seq and ID left for the store to assign.
func NewEvent(caller Identity, ts int64, data Payload) Event {
	return Event{
		Type:      data.EventType(),
		Caller:    caller,
		Timestamp: ts,
		Data:      data,
	}
}

// ComputeID returns the content-addressed ID of the event.
//
// FlowToken is excluded: the ID describes what happened, not which request
// carried it, so replaying the same operations yields the same IDs.
func (e *Event) ComputeID() (string, error) {
	if e.Data == nil {
		return "", fmt.Errorf("event %d: missing payload", e.Seq)
	}
	obj := Object{
		"type":      String(e.Type),
		"seq":       Int(e.Seq),
		"caller":    String(e.Caller),
		"timestamp": Int(e.Timestamp),
		"data":      e.Data.Fields(),
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("event id: %w", err)
	}
	return hashWithDomain(DomainEvent, canonical), nil
}

// StateCreated reports CreateState.
type StateCreated struct {
	Owner Identity `json:"owner"`
}

func (StateCreated) EventType() EventType { return EventStateCreated }

func (p StateCreated) Fields() Object {
	return Object{"owner": String(p.Owner)}
}

// UserCreated reports CreateUser.
type UserCreated struct {
	Owner       Identity `json:"owner"`
	DisplayName string   `json:"display_name"`
}

func (UserCreated) EventType() EventType { return EventUserCreated }

func (p UserCreated) Fields() Object {
	return Object{
		"owner":        String(p.Owner),
		"display_name": String(p.DisplayName),
	}
}

// VideoCreated reports CreateVideo.
type VideoCreated struct {
	VideoIndex uint64   `json:"video_index"`
	Creator    Identity `json:"creator"`
}

func (VideoCreated) EventType() EventType { return EventVideoCreated }

func (p VideoCreated) Fields() Object {
	return Object{
		"video_index": Int(p.VideoIndex),
		"creator":     String(p.Creator),
	}
}

// CommentCreated reports CreateComment.
type CommentCreated struct {
	VideoIndex   uint64   `json:"video_index"`
	CommentIndex uint64   `json:"comment_index"`
	Commenter    Identity `json:"commenter"`
}

func (CommentCreated) EventType() EventType { return EventCommentCreated }

func (p CommentCreated) Fields() Object {
	return Object{
		"video_index":   Int(p.VideoIndex),
		"comment_index": Int(p.CommentIndex),
		"commenter":     String(p.Commenter),
	}
}

// VideoModerated reports Approve (Approved=true) and Disapprove.
type VideoModerated struct {
	VideoIndex      uint64 `json:"video_index"`
	ModerationScore int64  `json:"moderation_score"`
	Approved        bool   `json:"approved"`
}

func (VideoModerated) EventType() EventType { return EventVideoModerated }

func (p VideoModerated) Fields() Object {
	return Object{
		"video_index":      Int(p.VideoIndex),
		"moderation_score": Int(p.ModerationScore),
		"approved":         Bool(p.Approved),
	}
}

// VideoLiked reports LikeVideo.
type VideoLiked struct {
	VideoIndex uint64   `json:"video_index"`
	Liker      Identity `json:"liker"`
	LikeCount  uint8    `json:"like_count"`
}

func (VideoLiked) EventType() EventType { return EventVideoLiked }

func (p VideoLiked) Fields() Object {
	return Object{
		"video_index": Int(p.VideoIndex),
		"liker":       String(p.Liker),
		"like_count":  Int(p.LikeCount),
	}
}

// DecodePayload parses a stored payload body for the given event type.
func DecodePayload(t EventType, data []byte) (Payload, error) {
	var (
		p   Payload
		err error
	)
	switch t {
	case EventStateCreated:
		p, err = decodeAs[StateCreated](data)
	case EventUserCreated:
		p, err = decodeAs[UserCreated](data)
	case EventVideoCreated:
		p, err = decodeAs[VideoCreated](data)
	case EventCommentCreated:
		p, err = decodeAs[CommentCreated](data)
	case EventVideoModerated:
		p, err = decodeAs[VideoModerated](data)
	case EventVideoLiked:
		p, err = decodeAs[VideoLiked](data)
	default:
		return nil, fmt.Errorf("unknown event type %q", t)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", t, err)
	}
	return p, nil
}

func decodeAs[T Payload](data []byte) (Payload, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}
