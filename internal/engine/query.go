package engine

import (
	"context"

	"github.com/roach88/reel/internal/ir"
	"github.com/roach88/reel/internal/store"
)

// Reads run in read-only transactions. They never mutate and never emit.

// GetState returns the platform singleton.
func (e *Engine) GetState(ctx context.Context) (ir.PlatformState, error) {
	return view(ctx, e, func(txn store.Txn) (ir.PlatformState, error) {
		return load[ir.PlatformState](txn, ir.KindState, ir.StateAddress(), "platform state")
	})
}

// GetUser returns the profile of id.
func (e *Engine) GetUser(ctx context.Context, id ir.Identity) (ir.User, error) {
	return view(ctx, e, func(txn store.Txn) (ir.User, error) {
		return load[ir.User](txn, ir.KindUser, ir.UserAddress(id), "user")
	})
}

// GetVideo returns the video at sequence index seq.
func (e *Engine) GetVideo(ctx context.Context, seq uint64) (ir.Video, error) {
	return view(ctx, e, func(txn store.Txn) (ir.Video, error) {
		return load[ir.Video](txn, ir.KindVideo, ir.VideoAddress(seq), "video")
	})
}

// GetComment returns one comment of a video.
func (e *Engine) GetComment(ctx context.Context, videoSeq, commentSeq uint64) (ir.Comment, error) {
	return view(ctx, e, func(txn store.Txn) (ir.Comment, error) {
		return load[ir.Comment](txn, ir.KindComment, ir.CommentAddress(videoSeq, commentSeq), "comment")
	})
}

// ListComments returns the comments of a video ordered by sequence index.
// Comments are enumerated by deriving addresses 0..comment_count-1, so the
// listing and the video counter come from the same snapshot.
func (e *Engine) ListComments(ctx context.Context, videoSeq uint64) ([]ir.Comment, error) {
	return view(ctx, e, func(txn store.Txn) ([]ir.Comment, error) {
		video, err := load[ir.Video](txn, ir.KindVideo, ir.VideoAddress(videoSeq), "video")
		if err != nil {
			return nil, err
		}
		comments := make([]ir.Comment, 0, video.CommentCount)
		for i := range video.CommentCount {
			c, err := load[ir.Comment](txn, ir.KindComment, ir.CommentAddress(videoSeq, i), "comment")
			if err != nil {
				return nil, err
			}
			comments = append(comments, c)
		}
		return comments, nil
	})
}

// Events returns up to limit committed events with seq > after.
func (e *Engine) Events(ctx context.Context, after int64, limit int) ([]ir.Event, error) {
	return e.backend.ReadEvents(ctx, after, limit)
}

func view[T any](ctx context.Context, e *Engine, fn func(store.Txn) (T, error)) (T, error) {
	var out T
	err := e.backend.View(ctx, func(txn store.Txn) error {
		v, err := fn(txn)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
