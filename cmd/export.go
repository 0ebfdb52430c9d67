package main

import (
	"io"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/billscan/internal/export"
	"github.com/sells-group/billscan/internal/model"
	"github.com/sells-group/billscan/internal/store"
)

var (
	exportFormat    string
	exportOut       string
	exportProvider  string
	exportAccount   string
	exportType      string
	exportAttention bool
	exportLimit     int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export saved bill records to Excel or CSV",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		write, err := exportWriter(exportFormat)
		if err != nil {
			return err
		}
		filter, err := exportFilter(cmd)
		if err != nil {
			return err
		}

		if err := cfg.Validate("export"); err != nil {
			return err
		}
		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return eris.Wrap(err, "init store")
		}
		defer st.Close() //nolint:errcheck

		stored, err := st.ListRecords(ctx, filter)
		if err != nil {
			return err
		}
		records := make([]model.BillRecord, len(stored))
		for i, s := range stored {
			records[i] = s.Record
		}

		zap.L().Info("exporting records",
			zap.Int("count", len(records)),
			zap.String("format", exportFormat),
		)
		if exportOut == "" || exportOut == "-" {
			return write(cmd.OutOrStdout(), records)
		}
		return writeFile(exportOut, records, write)
	},
}

func exportWriter(format string) (func(io.Writer, []model.BillRecord) error, error) {
	switch format {
	case "xlsx":
		return export.WriteXLSX, nil
	case "csv":
		return export.WriteCSV, nil
	default:
		return nil, eris.Errorf("unknown export format %q (want xlsx or csv)", format)
	}
}

func exportFilter(cmd *cobra.Command) (store.RecordFilter, error) {
	f := store.RecordFilter{
		Provider:      exportProvider,
		AccountNumber: exportAccount,
		Limit:         exportLimit,
	}
	if exportType != "" {
		dt, ok := model.ParseDocumentType(exportType)
		if !ok {
			return f, eris.Errorf("unknown document type %q", exportType)
		}
		f.DocumentType = dt
	}
	if cmd.Flags().Changed("attention") {
		v := exportAttention
		f.RequiresAttention = &v
	}
	return f, nil
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "xlsx", "output format: xlsx or csv")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default stdout)")
	exportCmd.Flags().StringVar(&exportProvider, "provider", "", "only this provider slug")
	exportCmd.Flags().StringVar(&exportAccount, "account", "", "only this account number")
	exportCmd.Flags().StringVar(&exportType, "type", "", "only this document type (bill, disconnect_notice, unknown)")
	exportCmd.Flags().BoolVar(&exportAttention, "attention", false, "only records that do (or with =false, do not) need attention")
	exportCmd.Flags().IntVar(&exportLimit, "limit", 1000, "maximum records")
	rootCmd.AddCommand(exportCmd)
}
