package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/scanledger/internal/engine"
	"github.com/roach88/scanledger/internal/remote"
)

// ReconcileOutput summarizes one applied batch.
type ReconcileOutput struct {
	Records     int    `json:"records,omitempty"`
	Merged      int    `json:"merged"`
	Synthesized int    `json:"synthesized"`
	Collapsed   int    `json:"collapsed"`
	Changed     bool   `json:"changed"`
	Digest      string `json:"digest"`
}

func reconcileOutput(records int, r engine.ReconcileResult) ReconcileOutput {
	return ReconcileOutput{
		Records:     records,
		Merged:      r.Merged,
		Synthesized: r.Synthesized,
		Collapsed:   r.Collapsed,
		Changed:     r.Changed,
		Digest:      r.Digest,
	}
}

// RenderText prints the counts.
func (o ReconcileOutput) RenderText(w io.Writer) {
	fmt.Fprintf(w, "records=%d merged=%d synthesized=%d collapsed=%d changed=%t\n",
		o.Records, o.Merged, o.Synthesized, o.Collapsed, o.Changed)
	fmt.Fprintf(w, "digest: %s\n", o.Digest)
}

// NewReconcileCommand creates the reconcile command.
func NewReconcileCommand(rootOpts *RootOptions) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Merge an exported batch of remote records into the history",
		Long: `Merge remote impact-log records read from a JSON or YAML file.

Records matching a local entry of the same day are folded into it; the rest
become new entries. Applying the same batch twice leaves the history
unchanged.

Example:
  scanledger reconcile --records impact_log.json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(cmd, rootOpts, path)
		},
	}

	cmd.Flags().StringVar(&path, "records", "", "JSON or YAML file of remote records (required)")
	_ = cmd.MarkFlagRequired("records")
	return cmd
}

func runReconcile(cmd *cobra.Command, opts *RootOptions, path string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	records, err := remote.NewFile(path).Fetch(ctx, 0)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read records", err)
	}

	a, err := openApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.engine.Reconcile(ctx, records)
	var persistErr *engine.PersistError
	if err != nil && !errors.As(err, &persistErr) {
		return WrapExitError(ExitFailure, "reconcile failed", err)
	}
	if persistErr != nil {
		slog.Warn("reconciled log kept in memory only", "error", persistErr)
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if err := out.Success(reconcileOutput(len(records), res)); err != nil {
		return err
	}
	if persistErr != nil {
		return WrapExitError(ExitFailure, "reconciled but not saved", persistErr)
	}
	return nil
}
