package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/scanledger/internal/syncer"
)

// SyncOutput reports one push-then-pull round.
type SyncOutput struct {
	Queued   int              `json:"queued"`
	Pull     *ReconcileOutput `json:"pull,omitempty"`
	Warnings []string         `json:"warnings"`
}

// RenderText prints the round summary and any warnings.
func (o SyncOutput) RenderText(w io.Writer) {
	fmt.Fprintf(w, "pushed: %d task(s) queued\n", o.Queued)
	if o.Pull != nil {
		fmt.Fprintf(w, "pulled: merged=%d synthesized=%d changed=%t\n",
			o.Pull.Merged, o.Pull.Synthesized, o.Pull.Changed)
	}
	for _, msg := range o.Warnings {
		fmt.Fprintf(w, "warning: %s\n", msg)
	}
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push local entries to the remote log, then pull and reconcile",
		Long: `Push every local entry to the configured remote impact log, upload
pending captures, then fetch the remote log and reconcile it locally.

Failures are retried and then reported as warnings; the local history is
never rolled back.

Exit codes:
  0 - Round completed without warnings
  1 - Round completed with warnings, or the pull failed
  2 - Command error (no remote configured, bad config)`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			a, err := openApp(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := syncOnce(ctx, a)
			if err != nil {
				return err
			}
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			if err := out.Success(res); err != nil {
				return err
			}
			if len(res.Warnings) > 0 {
				return NewExitError(ExitFailure, fmt.Sprintf("%d sync warning(s)", len(res.Warnings)))
			}
			return nil
		},
	}
}

// syncOnce runs one push-then-pull round against the configured remote.
func syncOnce(ctx context.Context, a *app) (SyncOutput, error) {
	store, closeRemote, err := openRemote(ctx, a.cfg)
	if err != nil {
		if errors.Is(err, errNoRemote) {
			return SyncOutput{}, WrapExitError(ExitCommandError, "sync", err)
		}
		return SyncOutput{}, notConfigured("remote", err)
	}
	defer closeRemote()

	uploader, err := openUploader(ctx, a.cfg)
	if err != nil {
		return SyncOutput{}, notConfigured("image uploader", err)
	}

	warnings := newWarningLog()
	s := syncer.New(store, uploader, a.engine, syncerConfig(a.cfg), syncer.WithWarningHandler(warnings.handle))

	entries, err := a.engine.Snapshot(ctx)
	if err != nil {
		return SyncOutput{}, WrapExitError(ExitFailure, "failed to read history", err)
	}

	wait := runSyncer(ctx, s)
	queued, err := s.EnqueueEntries(ctx, entries, a.engine.Location(), a.engine.Policy())
	wait()

	res := SyncOutput{Queued: queued, Warnings: []string{}}
	if err != nil {
		res.Warnings = append(warnings.drain(), fmt.Sprintf("queueing stopped after %d task(s): %v", queued, err))
		return res, nil
	}
	pulled, err := s.Pull(ctx)
	if err != nil {
		res.Warnings = append(warnings.drain(), fmt.Sprintf("pull failed: %v", err))
		return res, nil
	}
	p := reconcileOutput(0, pulled)
	res.Pull = &p
	res.Warnings = append(res.Warnings, warnings.drain()...)
	return res, nil
}
