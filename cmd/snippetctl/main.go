package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/GriffinCanCode/snippetlab/internal/catalog"
	"github.com/GriffinCanCode/snippetlab/internal/infrastructure/config"
)

var rootCmd = &cobra.Command{
	Use:           "snippetctl",
	Short:         "Inspect and evaluate snippets from the terminal",
	Long:          `snippetctl lists a snippet tree, prints sources and evaluates snippets the same way the server does`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		mode, err := cmd.Flags().GetString("color")
		if err != nil {
			return err
		}
		switch mode {
		case "on":
			color.NoColor = false
		case "off":
			color.NoColor = true
		case "auto":
			color.NoColor = !isTerminal(os.Stdout)
		default:
			return fmt.Errorf("invalid --color value %q (auto|on|off)", mode)
		}
		return nil
	},
}

func init() {
	cfg := config.LoadOrDefault()

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(sourceCmd)

	rootCmd.PersistentFlags().String("dir", cfg.Snippets.Dir, "snippet directory")
	rootCmd.PersistentFlags().String("manifest", cfg.Snippets.Manifest, "manifest file name inside the snippet directory")
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().String("server", "", "base URL of a running snippet server; overrides --dir")
}

func main() {
	// Interrupt cancels a running evaluation
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		os.Exit(1)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func openCatalog(cmd *cobra.Command) (*catalog.Catalog, error) {
	dir, err := cmd.Flags().GetString("dir")
	if err != nil {
		return nil, fmt.Errorf("failed to get dir flag: %w", err)
	}
	manifest, err := cmd.Flags().GetString("manifest")
	if err != nil {
		return nil, fmt.Errorf("failed to get manifest flag: %w", err)
	}
	return catalog.Open(cmd.Context(), catalog.Config{Root: dir, Manifest: manifest}, nil)
}
