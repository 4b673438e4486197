package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sourceCmd = &cobra.Command{
	Use:   "source <id>",
	Short: "Print the exact source text of a snippet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := readSource(cmd, args[0])
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), src)
		return err
	},
}

func readSource(cmd *cobra.Command, id string) (string, error) {
	rem, err := remoteFor(cmd)
	if err != nil {
		return "", err
	}
	if rem != nil {
		return rem.source(cmd.Context(), id)
	}

	cat, err := openCatalog(cmd)
	if err != nil {
		return "", err
	}
	return cat.Source(cmd.Context(), id)
}
