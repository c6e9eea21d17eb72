package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/reel/internal/engine"
)

// NewInitCommand creates the init command.
func NewInitCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the platform state",
		Long: `Create the platform state singleton with the caller as owner.

Fails with AddressAlreadyInUse if the ledger is already initialised.

Example:
  reel init --as admin --db ./reel.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLedger(opts, cmd, func(ctx context.Context, l *ledger) (any, error) {
				s, err := l.eng.CreateState(ctx, opts.caller())
				if err != nil {
					return nil, err
				}
				return stateView(s), nil
			})
		},
	}
}

// NewUserCommand creates the user command group.
func NewUserCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user profiles",
	}
	cmd.AddCommand(newUserCreateCommand(opts))
	return cmd
}

func newUserCreateCommand(opts *RootOptions) *cobra.Command {
	var req engine.CreateUserRequest
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create the caller's profile",
		Long: `Create the caller's profile. Each identity has at most one.

Example:
  reel user create --as alice --name Alice --url https://example.com/alice`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLedger(opts, cmd, func(ctx context.Context, l *ledger) (any, error) {
				u, err := l.eng.CreateUser(ctx, opts.caller(), req)
				if err != nil {
					return nil, err
				}
				return userView(u), nil
			})
		},
	}
	cmd.Flags().StringVar(&req.DisplayName, "name", "", "display name")
	cmd.Flags().StringVar(&req.ProfileURL, "url", "", "profile picture URL")
	return cmd
}

// NewVideoCommand creates the video command group.
func NewVideoCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "video",
		Short: "Publish videos",
	}
	cmd.AddCommand(newVideoCreateCommand(opts))
	return cmd
}

func newVideoCreateCommand(opts *RootOptions) *cobra.Command {
	var req engine.CreateVideoRequest
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Publish a video",
		Long: `Publish a video at the next sequence index.

Example:
  reel video create --as alice --description "First clip" --media https://cdn.example.com/1.mp4`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLedger(opts, cmd, func(ctx context.Context, l *ledger) (any, error) {
				v, err := l.eng.CreateVideo(ctx, opts.caller(), req)
				if err != nil {
					return nil, err
				}
				return videoView(v), nil
			})
		},
	}
	cmd.Flags().StringVar(&req.Description, "description", "", "video description")
	cmd.Flags().StringVar(&req.MediaURL, "media", "", "video media URL")
	cmd.Flags().StringVar(&req.CreatorDisplayName, "creator-name", "", "creator display name")
	cmd.Flags().StringVar(&req.CreatorURL, "creator-url", "", "creator profile URL")
	return cmd
}

// NewCommentCommand creates the comment command.
func NewCommentCommand(opts *RootOptions) *cobra.Command {
	var req engine.CreateCommentRequest
	cmd := &cobra.Command{
		Use:   "comment <video>",
		Short: "Comment on a video",
		Long: `Append a comment to a visible video.

Example:
  reel comment 0 --as bob --text "Nice"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			video, err := parseIndex("video", args[0])
			if err != nil {
				return err
			}
			req.VideoIndex = video
			return withLedger(opts, cmd, func(ctx context.Context, l *ledger) (any, error) {
				c, err := l.eng.CreateComment(ctx, opts.caller(), req)
				if err != nil {
					return nil, err
				}
				return commentView(c), nil
			})
		},
	}
	cmd.Flags().StringVar(&req.Text, "text", "", "comment text")
	cmd.Flags().StringVar(&req.CommenterDisplayName, "name", "", "commenter display name")
	cmd.Flags().StringVar(&req.CommenterURL, "url", "", "commenter profile URL")
	return cmd
}

// NewModerateCommand creates the approve (approve=true) or disapprove
// command.
func NewModerateCommand(opts *RootOptions, approve bool) *cobra.Command {
	use, short, delta := "disapprove", "Lower a video's moderation score", "-1"
	if approve {
		use, short, delta = "approve", "Raise a video's moderation score", "+1"
	}
	return &cobra.Command{
		Use:   use + " <video>",
		Short: short,
		Long: fmt.Sprintf(`%s by one (%s). Only the video's owner may moderate it.

A video at or below -500 is frozen: it rejects likes and comments until
approved back above the threshold.

Example:
  reel %s 0 --as alice`, short, delta, use),
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			video, err := parseIndex("video", args[0])
			if err != nil {
				return err
			}
			return withLedger(opts, cmd, func(ctx context.Context, l *ledger) (any, error) {
				moderate := l.eng.Disapprove
				if approve {
					moderate = l.eng.Approve
				}
				v, err := moderate(ctx, opts.caller(), video)
				if err != nil {
					return nil, err
				}
				return videoView(v), nil
			})
		},
	}
}

// NewLikeCommand creates the like command.
func NewLikeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "like <video>",
		Short: "Like a video",
		Long: `Like a visible video. Each identity may like a video once and a video
holds at most five likes.

Example:
  reel like 0 --as bob`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			video, err := parseIndex("video", args[0])
			if err != nil {
				return err
			}
			return withLedger(opts, cmd, func(ctx context.Context, l *ledger) (any, error) {
				v, err := l.eng.LikeVideo(ctx, opts.caller(), video)
				if err != nil {
					return nil, err
				}
				return videoView(v), nil
			})
		},
	}
}

func parseIndex(name, s string) (uint64, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid %s index %q", name, s))
	}
	return n, nil
}
