package cmd

import (
	"github.com/spf13/cobra"

	"github.com/flowcanvas/flowcanvas/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize flowcanvas configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure flowcanvas and generates a .flowcanvas.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard()
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
