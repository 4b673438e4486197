package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/snippetlab/internal/catalog"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List snippets in the catalog",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().String("category", "", "only list this category (script|component)")
}

func runList(cmd *cobra.Command, args []string) error {
	category, err := cmd.Flags().GetString("category")
	if err != nil {
		return fmt.Errorf("failed to get category flag: %w", err)
	}
	list, err := listSnippets(cmd, category)
	if err != nil {
		return err
	}

	idColor := color.New(color.FgCyan, color.Bold)
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, s := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\n", idColor.Sprint(s.ID), s.Category, s.Title)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.ErrOrStderr(), color.HiBlackString("%d snippets", len(list)))
	return nil
}

func listSnippets(cmd *cobra.Command, category string) ([]catalog.Snippet, error) {
	rem, err := remoteFor(cmd)
	if err != nil {
		return nil, err
	}
	if rem != nil {
		return rem.list(cmd.Context(), category)
	}

	cat, err := openCatalog(cmd)
	if err != nil {
		return nil, err
	}
	switch c := catalog.Category(category); c {
	case "":
		return cat.List(), nil
	case catalog.Script, catalog.Component:
		return cat.ByCategory(c), nil
	default:
		return nil, fmt.Errorf("unknown category %q", category)
	}
}
