package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Interval time.Duration
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Keep the history in sync with the remote log",
		Long: `Start the engine and run a push-then-pull sync round every --interval
until interrupted. Sync warnings are logged and do not stop the loop.

Example:
  scanledger run --interval 5m
  scanledger run --root /tmp/ledger --config ledger.yaml --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(opts, cmd)
		},
	}

	cmd.Flags().DurationVar(&opts.Interval, "interval", 5*time.Minute, "time between sync rounds")
	return cmd
}

func runDaemon(opts *RunOptions, cmd *cobra.Command) error {
	if opts.Interval <= 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid --interval %s", opts.Interval))
	}

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	a, err := openApp(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			slog.Error("error closing store", "error", closeErr)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "Syncing every %s. Press Ctrl-C to stop.\n", opts.Interval)

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()
	for {
		if err := syncRound(ctx, a); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			slog.Info("sync loop stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// syncRound runs one round and logs its outcome. Only configuration errors
// end the loop.
func syncRound(ctx context.Context, a *app) error {
	res, err := syncOnce(ctx, a)
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		return nil
	}
	for _, w := range res.Warnings {
		slog.Warn("sync round warning", "warning", w, "event", "sync_warning")
	}
	attrs := []any{"queued", res.Queued, "warnings", len(res.Warnings)}
	if res.Pull != nil {
		attrs = append(attrs, "merged", res.Pull.Merged, "synthesized", res.Pull.Synthesized, "changed", res.Pull.Changed)
	}
	slog.Info("sync round complete", attrs...)
	return nil
}
