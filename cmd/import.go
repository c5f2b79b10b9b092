package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/flowcanvas/flowcanvas/internal/export"
	"github.com/flowcanvas/flowcanvas/internal/progress"
)

var importYes bool

var importCmd = &cobra.Command{
	Use:   "import <glob>...",
	Short: "Import flow documents from JSON files",
	Long: `Imports one or more exported flow documents. Each import creates a
brand-new flow; existing flows are never overwritten. Arguments are
glob patterns with ** support, e.g. 'backups/**/*.json'.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var paths []string
		seen := map[string]bool{}
		for _, pattern := range args {
			matches, err := doublestar.FilepathGlob(pattern)
			if err != nil {
				return fmt.Errorf("bad pattern %q: %w", pattern, err)
			}
			for _, m := range matches {
				if !seen[m] {
					seen[m] = true
					paths = append(paths, m)
				}
			}
		}
		if len(paths) == 0 {
			return fmt.Errorf("no files match %v", args)
		}

		// Parse everything up front so a bad file aborts before any
		// flow is created.
		docs := make([]*export.Document, len(paths))
		for i, path := range paths {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			doc, err := export.Parse(data)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			docs[i] = doc
		}

		if !importYes {
			prompt := promptui.Prompt{
				Label:     fmt.Sprintf("Import %d flow(s) as new flows", len(docs)),
				IsConfirm: true,
			}
			if _, err := prompt.Run(); err != nil {
				fmt.Fprintln(os.Stderr, "Import cancelled.")
				return nil
			}
		}

		client, err := apiClient()
		if err != nil {
			return err
		}

		ctx := context.Background()
		reporter := progress.NewReporter("Importing flows")
		reporter.Start(len(docs))
		for i, doc := range docs {
			reporter.Update(i, doc.Name)
			if _, err := export.Import(ctx, client, doc); err != nil {
				reporter.Finish()
				return fmt.Errorf("importing %s: %w", paths[i], err)
			}
		}
		reporter.Update(len(docs), "done")
		reporter.Finish()

		fmt.Fprintf(os.Stderr, "Imported %d flow(s)\n", len(docs))
		return nil
	},
}

func init() {
	importCmd.Flags().BoolVarP(&importYes, "yes", "y", false, "Skip the confirmation prompt")
	rootCmd.AddCommand(importCmd)
}
