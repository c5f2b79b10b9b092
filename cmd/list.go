package cmd

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var listQuery string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List flows on the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := apiClient()
		if err != nil {
			return err
		}

		flows, err := client.ListFlows(context.Background(), listQuery)
		if err != nil {
			return fmt.Errorf("listing flows: %w", err)
		}
		if len(flows) == 0 {
			fmt.Println("No flows found.")
			return nil
		}

		name := color.New(color.FgHiGreen, color.Bold)
		subtle := color.New(color.FgHiBlack)

		for _, f := range flows {
			name.Printf("%s", f.Name)
			fmt.Printf("  (%d nodes)\n", f.NodeCount)
			if f.Description != "" {
				fmt.Printf("  %s\n", f.Description)
			}
			subtle.Printf("  %s  updated %s\n", f.ID, f.UpdatedAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

func init() {
	listCmd.Flags().StringVarP(&listQuery, "search", "s", "", "Filter flows by name or description")
	rootCmd.AddCommand(listCmd)
}
