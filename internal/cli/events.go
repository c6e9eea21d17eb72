package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/roach88/reel/internal/ir"
)

// EventsOptions holds flags for the events command.
type EventsOptions struct {
	*RootOptions
	After int64
	Limit int
}

// NewEventsCommand creates the events command.
func NewEventsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EventsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List committed events",
		Long: `List events from the ledger's log in commit order.

Examples:
  reel events
  reel events --after 120 --limit 20
  reel events --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.After < 0 || opts.Limit < 0 {
				return NewExitError(ExitCommandError, "--after and --limit must be non-negative")
			}
			return withLedger(opts.RootOptions, cmd, func(ctx context.Context, l *ledger) (any, error) {
				events, err := l.eng.Events(ctx, opts.After, opts.Limit)
				if err != nil {
					return nil, err
				}
				if events == nil {
					events = []ir.Event{}
				}
				return eventList(events), nil
			})
		},
	}

	cmd.Flags().Int64Var(&opts.After, "after", 0, "only events with seq greater than this")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of events (0 = all)")

	return cmd
}
