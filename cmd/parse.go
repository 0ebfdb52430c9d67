package main

import (
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/billscan/internal/ingest"
	"github.com/sells-group/billscan/internal/model"
)

var (
	parseProvider string
	parseAccount  string
	parseAddress  string
	parseYear     int
	parseTextIn   bool
	parseFile     bool
	parseSave     bool
	parseExplain  bool
)

var parseCmd = &cobra.Command{
	Use:   "parse <file>",
	Short: "Parse one bill PDF (or extracted text) into a JSON record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, "parse", envOptions{Storage: parseFile, Store: parseSave})
		if err != nil {
			return err
		}
		defer env.Close()

		opts := ingest.Options{
			Account:       accountInfo(parseAccount, parseAddress),
			ReferenceYear: parseYear,
			File:          parseFile,
			Save:          parseSave,
		}

		var res *ingest.Result
		if parseTextIn {
			text, rerr := readInput(cmd, args[0])
			if rerr != nil {
				return rerr
			}
			res, err = env.Pipeline.ParseText(ctx, parseProvider, text, args[0], opts)
		} else {
			res, err = env.Pipeline.ParseFile(ctx, parseProvider, args[0], opts)
		}
		if err != nil {
			return err
		}

		if parseExplain {
			return writeJSON(cmd.OutOrStdout(), res)
		}
		return writeJSON(cmd.OutOrStdout(), res.Record)
	},
}

// accountInfo returns portal-known identity when either value is set.
func accountInfo(number, address string) *model.AccountInfo {
	if number == "" && address == "" {
		return nil
	}
	return &model.AccountInfo{AccountNumber: number, ServiceAddress: address}
}

// readInput reads path, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		return string(b), eris.Wrap(err, "read stdin")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", eris.Wrapf(err, "read %s", path)
	}
	return string(b), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "encode json")
}

func init() {
	parseCmd.Flags().StringVarP(&parseProvider, "provider", "p", "", "provider name or slug (required)")
	parseCmd.Flags().StringVar(&parseAccount, "account", "", "known account number from the provider portal")
	parseCmd.Flags().StringVar(&parseAddress, "address", "", "known service address from the provider portal")
	parseCmd.Flags().IntVar(&parseYear, "year", 0, "reference year for dates printed without one")
	parseCmd.Flags().BoolVar(&parseTextIn, "text", false, "treat input as already-extracted text (- for stdin)")
	parseCmd.Flags().BoolVar(&parseFile, "file", false, "file the PDF into storage")
	parseCmd.Flags().BoolVar(&parseSave, "save", false, "save the record to the store")
	parseCmd.Flags().BoolVar(&parseExplain, "explain", false, "include classifier scores and per-field resolution")
	_ = parseCmd.MarkFlagRequired("provider")
	rootCmd.AddCommand(parseCmd)
}
