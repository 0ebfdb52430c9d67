package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/billscan/internal/model"
)

type providerSummary struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name"`
	Service     string   `json:"service"`
	Required    []string `json:"required"`
	BillFields  []string `json:"bill_fields"`
}

var providersJSON bool

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List the providers billscan can parse",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		reg, err := loadRegistry()
		if err != nil {
			return err
		}

		var out []providerSummary
		for _, p := range reg.All() {
			out = append(out, providerSummary{
				Name:        p.Slug,
				DisplayName: p.DisplayName,
				Service:     string(p.Service),
				Required:    p.Required,
				BillFields:  p.FieldNames(model.DocumentBill),
			})
		}
		if providersJSON {
			return writeJSON(cmd.OutOrStdout(), out)
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tDISPLAY NAME\tSERVICE\tFIELDS")
		for _, p := range out {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", p.Name, p.DisplayName, p.Service, len(p.BillFields))
		}
		return tw.Flush()
	},
}

func init() {
	providersCmd.Flags().BoolVar(&providersJSON, "json", false, "print as JSON")
	rootCmd.AddCommand(providersCmd)
}
