package ir

import "slices"

// Persisted field limits, in bytes.
const (
	MaxTextLength = 1024 // video description, comment text
	MaxNameLength = 100  // display names
	MaxURLLength  = 255  // profile, media and creator URLs
	MaxLikes      = 5    // likers set capacity

	// CensorshipThreshold is the moderation score at or below which a video
	// is frozen.
	CensorshipThreshold int64 = -500
)

// Kind identifies the record type stored at an address.
type Kind string

const (
	KindState   Kind = "state"
	KindUser    Kind = "user"
	KindVideo   Kind = "video"
	KindComment Kind = "comment"
)

// PlatformState is the singleton holding the global video counter.
// VideoCount doubles as the sequence index of the next video.
type PlatformState struct {
	Owner      Identity `json:"owner"`
	VideoCount uint64   `json:"video_count"`
}

// User is a profile record, one per identity. Immutable once created.
type User struct {
	Owner       Identity `json:"owner"`
	DisplayName string   `json:"display_name"`
	ProfileURL  string   `json:"profile_url"`
}

// Video is a published video. Owner, Description, MediaURL, the creator
// fields, SequenceIndex and CreatedAt never change after creation.
type Video struct {
	Owner              Identity   `json:"owner"`
	Description        string     `json:"description"`
	MediaURL           string     `json:"media_url"`
	CreatorDisplayName string     `json:"creator_display_name"`
	CreatorURL         string     `json:"creator_url"`
	SequenceIndex      uint64     `json:"sequence_index"`
	CreatedAt          int64      `json:"created_at"`
	CommentCount       uint64     `json:"comment_count"`
	ModerationScore    int64      `json:"moderation_score"`
	LikeCount          uint8      `json:"like_count"`
	Likers             []Identity `json:"likers"`
}

// Comment is an immutable comment on a video.
type Comment struct {
	Owner                Identity `json:"owner"`
	VideoIndex           uint64   `json:"video_index"`
	Text                 string   `json:"text"`
	CommenterDisplayName string   `json:"commenter_display_name"`
	CommenterURL         string   `json:"commenter_url"`
	SequenceIndex        uint64   `json:"sequence_index"`
	CreatedAt            int64    `json:"created_at"`
}

// ModerationStatus is derived from a video's moderation score.
type ModerationStatus string

const (
	StatusVisible ModerationStatus = "visible"
	StatusFrozen  ModerationStatus = "frozen"
)

// Status reports whether the video still accepts comments and likes.
func (v *Video) Status() ModerationStatus {
	if v.ModerationScore > CensorshipThreshold {
		return StatusVisible
	}
	return StatusFrozen
}

// Visible is shorthand for Status() == StatusVisible.
func (v *Video) Visible() bool {
	return v.Status() == StatusVisible
}

// HasLiked reports whether id is already in the likers set.
func (v *Video) HasLiked(id Identity) bool {
	return slices.Contains(v.Likers, id)
}

// Address returns the derived address of the video.
func (v *Video) Address() Address {
	return VideoAddress(v.SequenceIndex)
}

// Address returns the derived address of the comment.
func (c *Comment) Address() Address {
	return CommentAddress(c.VideoIndex, c.SequenceIndex)
}
