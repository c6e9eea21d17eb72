package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/roach88/reel/internal/ir"
)

// NewShowCommand creates the show command group for reading records.
func NewShowCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Read records",
		Long: `Read records from the ledger. Reads never modify state.

Examples:
  reel show state
  reel show user alice
  reel show video 0
  reel show comment 0 2
  reel show comments 0 --format json`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:           "state",
		Short:         "Show the platform state",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLedger(opts, cmd, func(ctx context.Context, l *ledger) (any, error) {
				s, err := l.eng.GetState(ctx)
				if err != nil {
					return nil, err
				}
				return stateView(s), nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:           "user <identity>",
		Short:         "Show a user profile",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLedger(opts, cmd, func(ctx context.Context, l *ledger) (any, error) {
				u, err := l.eng.GetUser(ctx, ir.Identity(args[0]))
				if err != nil {
					return nil, err
				}
				return userView(u), nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:           "video <video>",
		Short:         "Show a video",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			video, err := parseIndex("video", args[0])
			if err != nil {
				return err
			}
			return withLedger(opts, cmd, func(ctx context.Context, l *ledger) (any, error) {
				v, err := l.eng.GetVideo(ctx, video)
				if err != nil {
					return nil, err
				}
				return videoView(v), nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:           "comment <video> <comment>",
		Short:         "Show one comment",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			video, err := parseIndex("video", args[0])
			if err != nil {
				return err
			}
			comment, err := parseIndex("comment", args[1])
			if err != nil {
				return err
			}
			return withLedger(opts, cmd, func(ctx context.Context, l *ledger) (any, error) {
				c, err := l.eng.GetComment(ctx, video, comment)
				if err != nil {
					return nil, err
				}
				return commentView(c), nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:           "comments <video>",
		Short:         "List the comments of a video",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			video, err := parseIndex("video", args[0])
			if err != nil {
				return err
			}
			return withLedger(opts, cmd, func(ctx context.Context, l *ledger) (any, error) {
				comments, err := l.eng.ListComments(ctx, video)
				if err != nil {
					return nil, err
				}
				views := make(recordList, len(comments))
				for i, c := range comments {
					views[i] = commentView(c)
				}
				return views, nil
			})
		},
	})

	return cmd
}
