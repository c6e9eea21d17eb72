package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/reel/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	ConfigPath string
	Database   string // overrides config databasePath
	Backend    string // overrides config backend
	As         string // caller identity for mutating commands
	Tracing    bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the reel CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "reel",
		Short: "reel - a content-sharing ledger",
		Long: `A ledger of users, videos and comments with community moderation.

Records live at derived addresses and are never overwritten. Every
committed operation appends one event to the ledger's log.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if opts.Backend != "" && opts.Backend != config.BackendSQLite && opts.Backend != config.BackendBadger {
				return fmt.Errorf("invalid backend %q: must be %s or %s", opts.Backend, config.BackendSQLite, config.BackendBadger)
			}
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVarP(&opts.ConfigPath, "config", "c", "", "path to YAML config file")
	flags.StringVar(&opts.Database, "db", "", "database path (sqlite file or badger directory)")
	flags.StringVar(&opts.Backend, "backend", "", "storage backend (sqlite|badger)")
	flags.StringVar(&opts.As, "as", "", "caller identity")
	flags.BoolVar(&opts.Tracing, "trace", false, "print OpenTelemetry spans to stderr")

	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewUserCommand(opts))
	cmd.AddCommand(NewVideoCommand(opts))
	cmd.AddCommand(NewCommentCommand(opts))
	cmd.AddCommand(NewModerateCommand(opts, true))
	cmd.AddCommand(NewModerateCommand(opts, false))
	cmd.AddCommand(NewLikeCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewEventsCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
