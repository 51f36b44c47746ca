package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/scanledger/internal/engine"
)

// MarkedOutput is the result of mark-recycled.
type MarkedOutput struct {
	Entry EntryView `json:"entry"`
}

// RenderText prints the updated entry.
func (o MarkedOutput) RenderText(w io.Writer) {
	fmt.Fprintf(w, "%s %s is now %s\n", o.Entry.ID, o.Entry.Item, o.Entry.Status)
}

// NewMarkRecycledCommand creates the mark-recycled command.
func NewMarkRecycledCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mark-recycled <entry-id>",
		Short: "Record that an item marked for recycling was recycled",
		Long: `Move an entry from marked_for_recycle to recycled.

Exit codes:
  0 - Entry updated
  1 - Entry not found, or not marked for recycling
  2 - Command error`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMarkRecycled(cmd, rootOpts, args[0])
		},
	}
}

func runMarkRecycled(cmd *cobra.Command, opts *RootOptions, id string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := openApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	entry, err := a.engine.MarkRecycled(ctx, id)
	switch {
	case errors.Is(err, engine.ErrEntryNotFound):
		_ = out.Error(ErrCodeNotFound, fmt.Sprintf("no entry with id %s", id), nil)
		return WrapExitError(ExitFailure, "mark recycled", err)
	case errors.Is(err, engine.ErrInvalidTransition):
		_ = out.Error(ErrCodeTransition, err.Error(), nil)
		return WrapExitError(ExitFailure, "mark recycled", err)
	case err != nil && !engine.IsPersistError(err):
		return WrapExitError(ExitFailure, "mark recycled", err)
	}

	if werr := out.Success(MarkedOutput{Entry: viewEntry(entry, a.engine.Location())}); werr != nil {
		return werr
	}
	if err != nil {
		return WrapExitError(ExitFailure, "status changed but not saved", err)
	}
	return nil
}
