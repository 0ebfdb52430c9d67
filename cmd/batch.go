package main

import (
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/sells-group/billscan/internal/export"
	"github.com/sells-group/billscan/internal/ingest"
	"github.com/sells-group/billscan/internal/model"
)

var (
	batchProvider    string
	batchConcurrency int
	batchYear        int
	batchFile        bool
	batchSave        bool
	batchXLSX        string
	batchCSV         string
	batchNoProgress  bool
)

var batchCmd = &cobra.Command{
	Use:   "batch <dir>",
	Short: "Parse every bill PDF in a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if batchConcurrency > 0 {
			cfg.Batch.Concurrency = batchConcurrency
		}
		env, err := initPipeline(ctx, "batch", envOptions{Storage: batchFile, Store: batchSave})
		if err != nil {
			return err
		}
		defer env.Close()

		paths, err := ingest.ListPDFs(args[0])
		if err != nil {
			return err
		}

		var progress ingest.Progress
		if !batchNoProgress {
			bar := newProgressBar(cmd.ErrOrStderr(), len(paths), "parsing "+args[0])
			progress = func(path string, _ *ingest.Result, _ error) {
				bar.Describe(color.BlueString(filepath.Base(path)))
				_ = bar.Add(1)
			}
			defer bar.Finish() //nolint:errcheck
		}

		out, err := env.Pipeline.ParseDir(ctx, batchProvider, args[0], cfg.Batch.Concurrency, ingest.Options{
			ReferenceYear: batchYear,
			File:          batchFile,
			Save:          batchSave,
		}, progress)
		if err != nil {
			return err
		}

		printBatchSummary(cmd.ErrOrStderr(), out)

		records := out.Records()
		wrote := false
		if batchXLSX != "" {
			if err := writeFile(batchXLSX, records, export.WriteXLSX); err != nil {
				return err
			}
			wrote = true
		}
		if batchCSV != "" {
			if err := writeFile(batchCSV, records, export.WriteCSV); err != nil {
				return err
			}
			wrote = true
		}
		if !wrote {
			return writeJSON(cmd.OutOrStdout(), records)
		}
		return nil
	},
}

func newProgressBar(w io.Writer, total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("bills"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func printBatchSummary(w io.Writer, out *ingest.BatchResult) {
	_, _ = color.New(color.FgGreen).Fprintf(w, "\n✓ Parsed %d bills\n", len(out.Results))
	if n := out.Attention(); n > 0 {
		_, _ = color.New(color.FgYellow).Fprintf(w, "! %d need attention\n", n)
		for _, r := range out.Results {
			if r.Record.RequiresAttention {
				_, _ = color.New(color.FgYellow).Fprintf(w, "  %s: %s\n", r.Record.SourcePath, r.Record.Reason())
			}
		}
	}
	for _, fe := range out.Errors {
		_, _ = color.New(color.FgRed).Fprintf(w, "✗ %s\n", fe.Error())
	}
}

// writeFile creates path and streams records into it with write.
func writeFile(path string, records []model.BillRecord, write func(io.Writer, []model.BillRecord) error) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	if err := write(f, records); err != nil {
		_ = f.Close()
		return err
	}
	return eris.Wrapf(f.Close(), "close %s", path)
}

func init() {
	batchCmd.Flags().StringVarP(&batchProvider, "provider", "p", "", "provider name or slug (required)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "files parsed in parallel (default from config)")
	batchCmd.Flags().IntVar(&batchYear, "year", 0, "reference year for dates printed without one")
	batchCmd.Flags().BoolVar(&batchFile, "file", false, "file each PDF into storage")
	batchCmd.Flags().BoolVar(&batchSave, "save", false, "save records to the store")
	batchCmd.Flags().StringVar(&batchXLSX, "xlsx", "", "write records to this Excel workbook")
	batchCmd.Flags().StringVar(&batchCSV, "csv", "", "write records to this CSV file")
	batchCmd.Flags().BoolVar(&batchNoProgress, "no-progress", false, "disable the progress bar")
	_ = batchCmd.MarkFlagRequired("provider")
	rootCmd.AddCommand(batchCmd)
}
