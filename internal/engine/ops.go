package engine

import (
	"context"

	"github.com/roach88/reel/internal/ir"
	"github.com/roach88/reel/internal/store"
)

// Operation names, used in errors, logs, metrics and spans.
const (
	OpCreateState   = "CreateState"
	OpCreateUser    = "CreateUser"
	OpCreateVideo   = "CreateVideo"
	OpCreateComment = "CreateComment"
	OpApprove       = "Approve"
	OpDisapprove    = "Disapprove"
	OpLikeVideo     = "LikeVideo"
)

// Operations lists every mutating operation.
var Operations = []string{
	OpCreateState,
	OpCreateUser,
	OpCreateVideo,
	OpCreateComment,
	OpApprove,
	OpDisapprove,
	OpLikeVideo,
}

// CreateUserRequest holds the inputs of CreateUser.
type CreateUserRequest struct {
	DisplayName string
	ProfileURL  string
}

// CreateVideoRequest holds the inputs of CreateVideo.
type CreateVideoRequest struct {
	Description        string
	MediaURL           string
	CreatorDisplayName string
	CreatorURL         string
}

// CreateCommentRequest holds the inputs of CreateComment.
type CreateCommentRequest struct {
	VideoIndex           uint64
	Text                 string
	CommenterDisplayName string
	CommenterURL         string
}

// CreateState initialises the platform singleton with caller as owner.
func (e *Engine) CreateState(ctx context.Context, caller ir.Identity) (ir.PlatformState, error) {
	var state ir.PlatformState
	_, err := e.apply(ctx, OpCreateState, caller, func(txn store.Txn, _ int64) (ir.Payload, error) {
		state = ir.PlatformState{Owner: caller}
		if err := insert(txn, ir.KindState, ir.StateAddress(), state); err != nil {
			return nil, err
		}
		return ir.StateCreated{Owner: caller}, nil
	})
	if err != nil {
		return ir.PlatformState{}, err
	}
	e.metrics.setVideos(0)
	return state, nil
}

// CreateUser creates the profile record of caller.
func (e *Engine) CreateUser(ctx context.Context, caller ir.Identity, req CreateUserRequest) (ir.User, error) {
	var user ir.User
	_, err := e.apply(ctx, OpCreateUser, caller, func(txn store.Txn, _ int64) (ir.Payload, error) {
		addr := ir.UserAddress(caller)
		if err := requireFree(txn, addr); err != nil {
			return nil, err
		}
		if err := requireText("display_name", req.DisplayName, ir.MaxNameLength, CodeEmptyUsername); err != nil {
			return nil, err
		}
		if err := requireText("profile_url", req.ProfileURL, ir.MaxURLLength, CodeEmptyProfileURL); err != nil {
			return nil, err
		}

		user = ir.User{
			Owner:       caller,
			DisplayName: req.DisplayName,
			ProfileURL:  req.ProfileURL,
		}
		if err := insert(txn, ir.KindUser, addr, user); err != nil {
			return nil, err
		}
		return ir.UserCreated{Owner: caller, DisplayName: req.DisplayName}, nil
	})
	if err != nil {
		return ir.User{}, err
	}
	return user, nil
}

// CreateVideo publishes a video at the next global sequence index.
func (e *Engine) CreateVideo(ctx context.Context, caller ir.Identity, req CreateVideoRequest) (ir.Video, error) {
	var (
		video ir.Video
		count uint64
	)
	_, err := e.apply(ctx, OpCreateVideo, caller, func(txn store.Txn, now int64) (ir.Payload, error) {
		state, err := load[ir.PlatformState](txn, ir.KindState, ir.StateAddress(), "platform state")
		if err != nil {
			return nil, err
		}
		addr := ir.VideoAddress(state.VideoCount)
		if err := requireFree(txn, addr); err != nil {
			return nil, err
		}
		if err := requireText("description", req.Description, ir.MaxTextLength, CodeEmptyDescription); err != nil {
			return nil, err
		}
		if err := requireText("media_url", req.MediaURL, ir.MaxURLLength, CodeEmptyVideoURL); err != nil {
			return nil, err
		}
		if err := requireLength("creator_display_name", req.CreatorDisplayName, ir.MaxNameLength); err != nil {
			return nil, err
		}
		if err := requireLength("creator_url", req.CreatorURL, ir.MaxURLLength); err != nil {
			return nil, err
		}

		video = ir.Video{
			Owner:              caller,
			Description:        req.Description,
			MediaURL:           req.MediaURL,
			CreatorDisplayName: req.CreatorDisplayName,
			CreatorURL:         req.CreatorURL,
			SequenceIndex:      state.VideoCount,
			CreatedAt:          now,
			Likers:             []ir.Identity{},
		}
		if err := insert(txn, ir.KindVideo, addr, video); err != nil {
			return nil, err
		}
		state.VideoCount++
		if err := store.Put(txn, ir.KindState, ir.StateAddress(), state); err != nil {
			return nil, err
		}
		count = state.VideoCount
		return ir.VideoCreated{VideoIndex: video.SequenceIndex, Creator: caller}, nil
	})
	if err != nil {
		return ir.Video{}, err
	}
	e.metrics.setVideos(count)
	return video, nil
}

// CreateComment appends a comment to a visible video.
func (e *Engine) CreateComment(ctx context.Context, caller ir.Identity, req CreateCommentRequest) (ir.Comment, error) {
	var comment ir.Comment
	_, err := e.apply(ctx, OpCreateComment, caller, func(txn store.Txn, now int64) (ir.Payload, error) {
		videoAddr := ir.VideoAddress(req.VideoIndex)
		video, err := load[ir.Video](txn, ir.KindVideo, videoAddr, "video")
		if err != nil {
			return nil, err
		}
		addr := ir.CommentAddress(video.SequenceIndex, video.CommentCount)
		if err := requireFree(txn, addr); err != nil {
			return nil, err
		}
		if err := requireVisible(&video); err != nil {
			return nil, err
		}
		if err := requireText("text", req.Text, ir.MaxTextLength, CodeEmptyCommentText); err != nil {
			return nil, err
		}
		if err := requireLength("commenter_display_name", req.CommenterDisplayName, ir.MaxNameLength); err != nil {
			return nil, err
		}
		if err := requireLength("commenter_url", req.CommenterURL, ir.MaxURLLength); err != nil {
			return nil, err
		}

		comment = ir.Comment{
			Owner:                caller,
			VideoIndex:           video.SequenceIndex,
			Text:                 req.Text,
			CommenterDisplayName: req.CommenterDisplayName,
			CommenterURL:         req.CommenterURL,
			SequenceIndex:        video.CommentCount,
			CreatedAt:            now,
		}
		if err := insert(txn, ir.KindComment, addr, comment); err != nil {
			return nil, err
		}
		video.CommentCount++
		if err := store.Put(txn, ir.KindVideo, videoAddr, video); err != nil {
			return nil, err
		}
		return ir.CommentCreated{
			VideoIndex:   comment.VideoIndex,
			CommentIndex: comment.SequenceIndex,
			Commenter:    caller,
		}, nil
	})
	if err != nil {
		return ir.Comment{}, err
	}
	return comment, nil
}

// Approve raises a video's moderation score by one. Owner only.
func (e *Engine) Approve(ctx context.Context, caller ir.Identity, videoIndex uint64) (ir.Video, error) {
	return e.moderate(ctx, OpApprove, caller, videoIndex, true)
}

// Disapprove lowers a video's moderation score by one. Owner only.
func (e *Engine) Disapprove(ctx context.Context, caller ir.Identity, videoIndex uint64) (ir.Video, error) {
	return e.moderate(ctx, OpDisapprove, caller, videoIndex, false)
}

// moderate applies one approval or disapproval. It works on frozen videos
// too: a frozen video can be approved back above the threshold.
func (e *Engine) moderate(ctx context.Context, op string, caller ir.Identity, videoIndex uint64, approved bool) (ir.Video, error) {
	var video ir.Video
	_, err := e.apply(ctx, op, caller, func(txn store.Txn, _ int64) (ir.Payload, error) {
		addr := ir.VideoAddress(videoIndex)
		v, err := load[ir.Video](txn, ir.KindVideo, addr, "video")
		if err != nil {
			return nil, err
		}
		if err := requireOwner(&v, caller); err != nil {
			return nil, err
		}

		if approved {
			v.ModerationScore++
		} else {
			v.ModerationScore--
		}
		if err := store.Put(txn, ir.KindVideo, addr, v); err != nil {
			return nil, err
		}
		video = v
		return ir.VideoModerated{
			VideoIndex:      v.SequenceIndex,
			ModerationScore: v.ModerationScore,
			Approved:        approved,
		}, nil
	})
	if err != nil {
		return ir.Video{}, err
	}
	return video, nil
}

// LikeVideo records caller's like on a visible video.
func (e *Engine) LikeVideo(ctx context.Context, caller ir.Identity, videoIndex uint64) (ir.Video, error) {
	var video ir.Video
	_, err := e.apply(ctx, OpLikeVideo, caller, func(txn store.Txn, _ int64) (ir.Payload, error) {
		addr := ir.VideoAddress(videoIndex)
		v, err := load[ir.Video](txn, ir.KindVideo, addr, "video")
		if err != nil {
			return nil, err
		}
		if err := requireLikeCapacity(&v); err != nil {
			return nil, err
		}
		if err := requireVisible(&v); err != nil {
			return nil, err
		}
		if err := requireNotLiked(&v, caller); err != nil {
			return nil, err
		}

		v.LikeCount++
		v.Likers = append(v.Likers, caller)
		if err := store.Put(txn, ir.KindVideo, addr, v); err != nil {
			return nil, err
		}
		video = v
		return ir.VideoLiked{
			VideoIndex: v.SequenceIndex,
			Liker:      caller,
			LikeCount:  v.LikeCount,
		}, nil
	})
	if err != nil {
		return ir.Video{}, err
	}
	return video, nil
}
