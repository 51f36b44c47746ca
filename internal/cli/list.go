package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Day   string
	Limit int
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the scan history, most recent first",
		Example: `  scanledger list
  scanledger list --day 2025-03-14
  scanledger list --limit 10 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Day, "day", "", "only entries of this day (YYYY-MM-DD)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum entries to show (0 = all)")
	return cmd
}

func runList(cmd *cobra.Command, opts *ListOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := openApp(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer a.Close()

	entries, err := a.engine.Snapshot(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read history", err)
	}

	loc := a.engine.Location()
	list := EntryList{Entries: []EntryView{}}
	for _, e := range entries {
		if opts.Day != "" && e.DayKey(loc) != opts.Day {
			continue
		}
		list.Total++
		if opts.Limit > 0 && len(list.Entries) >= opts.Limit {
			continue
		}
		list.Entries = append(list.Entries, viewEntry(e, loc))
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return out.Success(list)
}
