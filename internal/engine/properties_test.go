package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reel/internal/ir"
)

func TestVideoIndices_AreMonotonic(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		f.initState(t)

		var last int64
		for i := range 6 {
			v := f.publish(t, alice)
			assert.Equal(t, uint64(i), v.SequenceIndex)
			assert.Greater(t, v.CreatedAt, last, "created_at must increase")
			last = v.CreatedAt
		}

		state, err := f.eng.GetState(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(6), state.VideoCount)
	})
}

func TestCommentIndices_ArePerVideo(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		f.initState(t)
		f.publish(t, alice)
		f.publish(t, bob)

		comment := func(video uint64) uint64 {
			c, err := f.eng.CreateComment(ctx, carol, CreateCommentRequest{VideoIndex: video, Text: "c"})
			require.NoError(t, err)
			return c.SequenceIndex
		}

		assert.Equal(t, uint64(0), comment(0))
		assert.Equal(t, uint64(1), comment(0))
		assert.Equal(t, uint64(0), comment(1))
		assert.Equal(t, uint64(2), comment(0))
		assert.Equal(t, uint64(1), comment(1))

		assert.Equal(t, uint64(3), f.video(t, 0).CommentCount)
		assert.Equal(t, uint64(2), f.video(t, 1).CommentCount)

		c, err := f.eng.GetComment(ctx, 1, 1)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), c.VideoIndex)
	})
}

func TestLikeCap(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		f.initState(t)
		f.publish(t, alice)

		for i := range ir.MaxLikes {
			v, err := f.eng.LikeVideo(ctx, ir.Identity(fmt.Sprintf("fan-%d", i)), 0)
			require.NoError(t, err)
			assert.Equal(t, uint8(i+1), v.LikeCount)
			assert.Len(t, v.Likers, int(v.LikeCount))
		}

		_, err := f.eng.LikeVideo(ctx, "fan-extra", 0)
		requireCode(t, err, CodeMaxLikesReached)
		assert.True(t, IsKind(err, KindCapacity))

		// A previous liker hits the cap check first.
		_, err = f.eng.LikeVideo(ctx, "fan-0", 0)
		requireCode(t, err, CodeMaxLikesReached)

		v := f.video(t, 0)
		assert.Equal(t, uint8(ir.MaxLikes), v.LikeCount)
		assert.Len(t, v.Likers, ir.MaxLikes)
	})
}

// disapprove lowers the score of video seq n times.
func disapprove(t *testing.T, f *fixture, owner ir.Identity, seq uint64, n int) {
	t.Helper()
	for range n {
		_, err := f.eng.Disapprove(context.Background(), owner, seq)
		require.NoError(t, err)
	}
}

func TestModerationThreshold(t *testing.T) {
	f := newFixture(t, openBadger(t))
	ctx := context.Background()
	f.initState(t)
	f.publish(t, alice)

	disapprove(t, f, alice, 0, 499)
	v := f.video(t, 0)
	assert.Equal(t, int64(-499), v.ModerationScore)
	assert.Equal(t, ir.StatusVisible, v.Status())

	v, err := f.eng.Disapprove(ctx, alice, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(-500), v.ModerationScore)
	assert.Equal(t, ir.StatusFrozen, v.Status(), "-500 is not above the threshold")

	_, err = f.eng.LikeVideo(ctx, bob, 0)
	requireCode(t, err, CodeVideoRemoved)
	assert.True(t, IsKind(err, KindState))
}

func TestFreezeUnfreezeRoundTrip(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		f.initState(t)
		f.publish(t, alice)

		_, err := f.eng.LikeVideo(ctx, carol, 0)
		require.NoError(t, err)

		disapprove(t, f, alice, 0, 501)
		assert.Equal(t, int64(-501), f.video(t, 0).ModerationScore)

		v, err := f.eng.Approve(ctx, alice, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(-500), v.ModerationScore)
		assert.Equal(t, ir.StatusFrozen, v.Status())

		_, err = f.eng.CreateComment(ctx, bob, CreateCommentRequest{VideoIndex: 0, Text: "hello"})
		requireCode(t, err, CodeVideoRemoved)

		// Frozen is reported before an empty comment.
		_, err = f.eng.CreateComment(ctx, bob, CreateCommentRequest{VideoIndex: 0, Text: " "})
		requireCode(t, err, CodeVideoRemoved)

		_, err = f.eng.LikeVideo(ctx, bob, 0)
		requireCode(t, err, CodeVideoRemoved)

		// Frozen is reported before a duplicate like.
		_, err = f.eng.LikeVideo(ctx, carol, 0)
		requireCode(t, err, CodeVideoRemoved)

		v, err = f.eng.Approve(ctx, alice, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(-499), v.ModerationScore)
		assert.Equal(t, ir.StatusVisible, v.Status())

		_, err = f.eng.CreateComment(ctx, bob, CreateCommentRequest{VideoIndex: 0, Text: "hello"})
		require.NoError(t, err)
		_, err = f.eng.LikeVideo(ctx, bob, 0)
		require.NoError(t, err)
	})
}

func TestFullFrozenVideo_ReportsCapacityFirst(t *testing.T) {
	f := newFixture(t, openBadger(t))
	ctx := context.Background()
	f.initState(t)
	f.publish(t, alice)
	for i := range ir.MaxLikes {
		_, err := f.eng.LikeVideo(ctx, ir.Identity(fmt.Sprintf("fan-%d", i)), 0)
		require.NoError(t, err)
	}
	disapprove(t, f, alice, 0, 500)

	_, err := f.eng.LikeVideo(ctx, bob, 0)
	requireCode(t, err, CodeMaxLikesReached)
}

func TestVideoLifecycle(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		f.initState(t)

		v, err := f.eng.CreateVideo(ctx, alice, CreateVideoRequest{Description: "hi", MediaURL: "http://x"})
		require.NoError(t, err)
		assert.Equal(t, uint64(0), v.SequenceIndex)
		assert.Equal(t, uint64(0), v.CommentCount)
		assert.Equal(t, uint8(0), v.LikeCount)
		assert.Equal(t, int64(0), v.ModerationScore)

		const a ir.Identity = "A"
		v, err = f.eng.LikeVideo(ctx, a, 0)
		require.NoError(t, err)
		assert.Equal(t, uint8(1), v.LikeCount)

		_, err = f.eng.LikeVideo(ctx, a, 0)
		requireCode(t, err, CodeAlreadyLiked)
		assert.Equal(t, uint8(1), f.video(t, 0).LikeCount)

		for _, id := range []ir.Identity{"B", "C", "D", "E"} {
			_, err := f.eng.LikeVideo(ctx, id, 0)
			require.NoError(t, err)
		}
		assert.Equal(t, uint8(5), f.video(t, 0).LikeCount)

		_, err = f.eng.LikeVideo(ctx, "F", 0)
		requireCode(t, err, CodeMaxLikesReached)

		// state, video, five likes
		assert.Equal(t, 7, f.eventCount(t))
		assert.Len(t, f.emitted(), 7)
	})
}

func TestRejectedOperations_EmitNothing(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		f.initState(t)
		f.publish(t, alice)
		before := f.eventCount(t)

		_, err := f.eng.CreateState(ctx, admin)
		require.Error(t, err)
		_, err = f.eng.CreateUser(ctx, bob, CreateUserRequest{"", "x"})
		require.Error(t, err)
		_, err = f.eng.CreateVideo(ctx, bob, CreateVideoRequest{"", "x", "", ""})
		require.Error(t, err)
		_, err = f.eng.CreateComment(ctx, bob, CreateCommentRequest{VideoIndex: 0})
		require.Error(t, err)
		_, err = f.eng.Approve(ctx, bob, 0)
		require.Error(t, err)
		_, err = f.eng.Disapprove(ctx, bob, 0)
		require.Error(t, err)
		_, err = f.eng.LikeVideo(ctx, bob, 9)
		require.Error(t, err)

		assert.Equal(t, before, f.eventCount(t))
		assert.Len(t, f.emitted(), before)
	})
}

func TestConcurrentLikes_RespectCap(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		f.initState(t)
		f.publish(t, alice)

		const fans = 8
		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			ok, full int
		)
		for i := range fans {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := f.eng.LikeVideo(ctx, ir.Identity(fmt.Sprintf("fan-%d", i)), 0)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					ok++
				case CodeOf(err) == CodeMaxLikesReached:
					full++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}(i)
		}
		wg.Wait()

		assert.Equal(t, ir.MaxLikes, ok)
		assert.Equal(t, fans-ir.MaxLikes, full)

		v := f.video(t, 0)
		assert.Equal(t, uint8(ir.MaxLikes), v.LikeCount)
		assert.Len(t, v.Likers, ir.MaxLikes)
		seen := make(map[ir.Identity]bool)
		for _, id := range v.Likers {
			assert.False(t, seen[id], "duplicate liker %s", id)
			seen[id] = true
		}
	})
}

func TestConcurrentDuplicateLikes(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		f.initState(t)
		f.publish(t, alice)

		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			errs []error
		)
		for range 6 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.eng.LikeVideo(ctx, bob, 0)
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}()
		}
		wg.Wait()

		var ok int
		for _, err := range errs {
			if err == nil {
				ok++
				continue
			}
			assert.Equal(t, CodeAlreadyLiked, CodeOf(err))
		}
		assert.Equal(t, 1, ok)
		assert.Equal(t, uint8(1), f.video(t, 0).LikeCount)
	})
}

func TestConcurrentVideos_GetDistinctIndices(t *testing.T) {
	forEachBackend(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		f.initState(t)

		const n = 10
		indices := make(chan uint64, n)
		var wg sync.WaitGroup
		for i := range n {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				v, err := f.eng.CreateVideo(ctx, ir.Identity(fmt.Sprintf("creator-%d", i)), CreateVideoRequest{
					Description: "clip",
					MediaURL:    "http://x",
				})
				if !assert.NoError(t, err) {
					return
				}
				indices <- v.SequenceIndex
			}(i)
		}
		wg.Wait()
		close(indices)

		seen := make(map[uint64]bool)
		for idx := range indices {
			assert.False(t, seen[idx], "index %d assigned twice", idx)
			seen[idx] = true
		}
		assert.Len(t, seen, n)
		for i := range uint64(n) {
			assert.True(t, seen[i], "missing index %d", i)
		}

		state, err := f.eng.GetState(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(n), state.VideoCount)
	})
}
