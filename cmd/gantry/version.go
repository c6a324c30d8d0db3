package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/gantry"
	"github.com/aretw0/gantry/internal/presentation/tui"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of gantry",
		Run: func(cmd *cobra.Command, args []string) {
			if isTTY(cmd) {
				tui.PrintBanner(cmd.OutOrStdout())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "gantry version %s\n", strings.TrimSpace(gantry.Version))
		},
	}
}
