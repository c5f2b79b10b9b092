package cmd

import (
	"github.com/spf13/cobra"

	"github.com/flowcanvas/flowcanvas/internal/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "flowcanvas",
	Short: "Visual conversational flow editor and persistence server",
	Long: `Flowcanvas edits conversational flow graphs: message, condition,
input, action and API nodes wired together with directed connections.
It ships the persistence server the editor syncs against, plus tools
to list, export, import and document flows.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
