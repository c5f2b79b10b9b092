package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flowcanvas/flowcanvas/internal/docs"
)

var docsOutput string

var docsCmd = &cobra.Command{
	Use:   "docs <flow-id>",
	Short: "Generate markdown and HTML documentation for a flow",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := apiClient()
		if err != nil {
			return err
		}

		flow, err := client.GetFlow(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("fetching flow %s: %w", args[0], err)
		}

		if err := docs.Write(flow, docsOutput); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Wrote flow.md and flow.html to %s\n", docsOutput)
		return nil
	},
}

func init() {
	docsCmd.Flags().StringVarP(&docsOutput, "output", "o", "docs", "Output directory")
	rootCmd.AddCommand(docsCmd)
}
