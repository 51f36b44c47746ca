package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/scanledger/internal/classify"
	"github.com/roach88/scanledger/internal/engine"
	"github.com/roach88/scanledger/internal/history"
	"github.com/roach88/scanledger/internal/ingest"
	"github.com/roach88/scanledger/internal/syncer"
)

// IngestOptions holds flags for the ingest command.
type IngestOptions struct {
	*RootOptions
	Item          string
	Material      string
	Bin           string
	Notes         string
	Recyclable    bool
	CarbonSavedKg float64
	Source        string
	Image         string
	Status        string
	At            string
	Raw           string
}

// IngestOutput is the result of one ingest.
type IngestOutput struct {
	Outcome string    `json:"outcome"`
	Entry   EntryView `json:"entry"`

	// Strategy is set when the scan came from --raw.
	Strategy string `json:"strategy,omitempty"`

	// Upload is set when an image upload was attempted.
	Upload string `json:"upload,omitempty"`
}

// RenderText prints a one-line summary.
func (o IngestOutput) RenderText(w io.Writer) {
	fmt.Fprintf(w, "%s %s (%s, %s) scans=%d id=%s\n",
		o.Outcome, o.Entry.Item, o.Entry.Material, o.Entry.Status, o.Entry.ScanCount, o.Entry.ID)
	if o.Upload != "" {
		fmt.Fprintf(w, "image: %s\n", o.Upload)
	}
}

// NewIngestCommand creates the ingest command.
func NewIngestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IngestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Record one classified scan",
		Long: `Record one classification result in the local history.

A scan of an item already seen today increments that entry's scan count
instead of adding a new one. The classification comes either from flags or
from a raw model reply passed with --raw (use - for stdin).

Examples:
  scanledger ingest --item "Water bottle" --material PET --bin recycling --recyclable
  scanledger ingest --raw reply.txt --source photo --image ./capture.jpg`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.Item, "item", "", "item name")
	f.StringVar(&opts.Material, "material", "", "material")
	f.StringVar(&opts.Bin, "bin", "", "disposal bin")
	f.StringVar(&opts.Notes, "notes", "", "disposal notes")
	f.BoolVar(&opts.Recyclable, "recyclable", false, "item is recyclable")
	f.Float64Var(&opts.CarbonSavedKg, "carbon", 0, "carbon saved in kg")
	f.StringVar(&opts.Source, "source", "text", "how the scan was produced (photo|text)")
	f.StringVar(&opts.Image, "image", "", "path of the captured image")
	f.StringVar(&opts.Status, "status", "", "requested status for recyclable items (marked_for_recycle|recycled)")
	f.StringVar(&opts.At, "at", "", "scan time (RFC3339), default now")
	f.StringVar(&opts.Raw, "raw", "", "file holding a raw classifier reply, - for stdin")

	return cmd
}

func runIngest(cmd *cobra.Command, opts *IngestOptions) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	in, strategy, err := ingestInputFromFlags(cmd, opts)
	if err != nil {
		if errors.Is(err, classify.ErrParseFailed) {
			_ = out.Error(ErrCodeParseFailed, err.Error(), nil)
		}
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := openApp(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.engine.Ingest(ctx, in)
	var persistErr *engine.PersistError
	if err != nil && !errors.As(err, &persistErr) {
		return WrapExitError(ExitFailure, "ingest failed", err)
	}
	if persistErr != nil {
		slog.Warn("scan kept in memory only", "error", persistErr)
	}

	result := IngestOutput{
		Outcome:  res.Kind.String(),
		Entry:    viewEntry(res.Entry, a.engine.Location()),
		Strategy: strategy,
	}
	if res.Entry.HasLocalImage() && res.Entry.RemoteImagePath == "" {
		result.Upload = uploadImage(ctx, a, res.Entry)
	}

	if err := out.Success(result); err != nil {
		return err
	}
	if persistErr != nil {
		return WrapExitError(ExitFailure, "scan recorded but not saved", persistErr)
	}
	return nil
}

// uploadImage pushes the entry's capture through the sync pipeline when an
// uploader is configured. It returns the upload outcome for display.
func uploadImage(ctx context.Context, a *app, e history.Entry) string {
	uploader, err := openUploader(ctx, a.cfg)
	if err != nil {
		slog.Warn("image uploader unavailable", "error", err)
		return "unavailable"
	}
	if uploader == nil {
		return ""
	}

	warnings := newWarningLog()
	s := syncer.New(nil, uploader, a.engine, syncerConfig(a.cfg), syncer.WithWarningHandler(warnings.handle))
	wait := runSyncer(ctx, s)
	if err := s.EnqueueUpload(e.ID, e.LocalImagePath); err != nil {
		slog.Warn("image upload not queued", "entry_id", e.ID, "error", err)
	}
	wait()

	if w := warnings.drain(); len(w) > 0 {
		return "failed: " + w[0]
	}
	return "uploaded"
}

func ingestInputFromFlags(cmd *cobra.Command, opts *IngestOptions) (ingest.Input, string, error) {
	at := time.Time{}
	if opts.At != "" {
		t, err := time.Parse(time.RFC3339, opts.At)
		if err != nil {
			return ingest.Input{}, "", WrapExitError(ExitCommandError, "invalid --at", err)
		}
		at = t
	}

	var requested history.Status
	if opts.Status != "" {
		if err := requested.UnmarshalText([]byte(opts.Status)); err != nil {
			return ingest.Input{}, "", WrapExitError(ExitCommandError, "invalid --status", err)
		}
	}

	source := history.ParseSource(opts.Source)

	if opts.Raw != "" {
		content, err := readInput(cmd, opts.Raw)
		if err != nil {
			return ingest.Input{}, "", WrapExitError(ExitCommandError, "failed to read --raw", err)
		}
		res, err := classify.Parse(content)
		if err != nil {
			return ingest.Input{}, "", WrapExitError(ExitFailure, "unreadable classifier reply", err)
		}
		return ingest.Input{
			Scan:      res.Scan(at, source, opts.Image, content),
			Requested: requested,
		}, classify.ParseStrategy(content), nil
	}

	if opts.Item == "" {
		return ingest.Input{}, "", NewExitError(ExitCommandError, "either --item or --raw is required")
	}
	scan := history.Scan{
		At:             at,
		Item:           opts.Item,
		Material:       opts.Material,
		Bin:            opts.Bin,
		Notes:          opts.Notes,
		Recyclable:     opts.Recyclable,
		CarbonSavedKg:  opts.CarbonSavedKg,
		Source:         source,
		LocalImagePath: opts.Image,
	}
	return ingest.Input{Scan: scan.Normalized(), Requested: requested}, "", nil
}

// readInput reads path, or the command's stdin when path is "-".
func readInput(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}
