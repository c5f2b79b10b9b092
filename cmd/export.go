package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flowcanvas/flowcanvas/internal/export"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export <flow-id>",
	Short: "Export a flow as a portable JSON document",
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

		data, err := export.FromFlow(flow).Marshal()
		if err != nil {
			return err
		}

		if exportOutput == "" || exportOutput == "-" {
			_, err = os.Stdout.Write(data)
			return err
		}
		if err := os.WriteFile(exportOutput, data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", exportOutput, err)
		}
		fmt.Fprintf(os.Stderr, "Exported %q to %s\n", flow.Name, exportOutput)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default stdout)")
	rootCmd.AddCommand(exportCmd)
}
