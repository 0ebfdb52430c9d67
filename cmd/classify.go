package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/billscan/internal/classify"
	"github.com/sells-group/billscan/internal/model"
)

var (
	classifyProvider string
	classifyTextIn   bool
)

type classifyOutput struct {
	Provider     string             `json:"provider"`
	DocumentType model.DocumentType `json:"document_type"`
	Scores       classify.Scores    `json:"scores"`
}

var classifyCmd = &cobra.Command{
	Use:   "classify <file>",
	Short: "Report the document type of a bill without extracting fields",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, "parse", envOptions{})
		if err != nil {
			return err
		}
		defer env.Close()

		prov, err := env.Pipeline.Registry.Get(classifyProvider)
		if err != nil {
			return err
		}

		var text string
		if classifyTextIn {
			text, err = readInput(cmd, args[0])
		} else {
			text, err = env.Pipeline.Extractor.ExtractText(ctx, args[0])
		}
		if err != nil {
			return err
		}

		c := prov.Classifier()
		scores := c.Score(text)
		return writeJSON(cmd.OutOrStdout(), classifyOutput{
			Provider:     prov.Slug,
			DocumentType: c.Decide(scores),
			Scores:       scores,
		})
	},
}

func init() {
	classifyCmd.Flags().StringVarP(&classifyProvider, "provider", "p", "", "provider name or slug (required)")
	classifyCmd.Flags().BoolVar(&classifyTextIn, "text", false, "treat input as already-extracted text (- for stdin)")
	_ = classifyCmd.MarkFlagRequired("provider")
	rootCmd.AddCommand(classifyCmd)
}
