package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/flowcanvas/flowcanvas/internal/config"
	"github.com/flowcanvas/flowcanvas/internal/live"
)

var watchCmd = &cobra.Command{
	Use:   "watch <flow-id>",
	Short: "Stream live mutation events for a flow",
	Long: `Connects to the server's WebSocket feed and prints every graph
mutation (node and connection changes) for the given flow as it lands.
Interrupt with Ctrl-C.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		events, err := live.Watch(ctx, cfg.ServerURL, args[0])
		if err != nil {
			return fmt.Errorf("watching flow %s: %w", args[0], err)
		}
		fmt.Fprintf(os.Stderr, "Watching flow %s (Ctrl-C to stop)\n", args[0])

		evColor := color.New(color.FgHiCyan)
		for ev := range events {
			switch {
			case ev.Node != nil:
				evColor.Printf("%s", ev.Type)
				fmt.Printf("  %s (%s) at (%.0f, %.0f)\n",
					ev.Node.ID, ev.Node.Type, ev.Node.Position.X, ev.Node.Position.Y)
			case ev.Connection != nil:
				evColor.Printf("%s", ev.Type)
				fmt.Printf("  %s: %s -> %s\n",
					ev.Connection.ID, ev.Connection.SourceID, ev.Connection.TargetID)
			case ev.DeletedID != "":
				evColor.Printf("%s", ev.Type)
				fmt.Printf("  %s\n", ev.DeletedID)
			default:
				evColor.Printf("%s", ev.Type)
				fmt.Println()
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
