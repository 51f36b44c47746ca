package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/scanledger/internal/canon"
)

// DigestOutput identifies the current history content.
type DigestOutput struct {
	Digest  string `json:"digest"`
	Entries int    `json:"entries"`
}

// RenderText prints the digest.
func (o DigestOutput) RenderText(w io.Writer) {
	fmt.Fprintf(w, "%s (%d entries)\n", o.Digest, o.Entries)
}

// NewDigestCommand creates the digest command.
func NewDigestCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "digest",
		Short: "Print the content digest of the history",
		Long: `Print a digest of the history's canonical form. Two devices holding the
same entries print the same digest.`,
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

			entries, err := a.engine.Snapshot(ctx)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to read history", err)
			}
			digest, err := canon.Digest(entries)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to digest history", err)
			}

			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return out.Success(DigestOutput{Digest: digest, Entries: len(entries)})
		},
	}
}
