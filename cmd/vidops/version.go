package main

import (
	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"
)

// NewVersionCmd creates the version subcommand.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the banner and version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			displayAppname(cmd, "vidops")
			cmd.Printf("vidops %s (commit: %s, built: %s)\n", version, commit, date)
			return nil
		},
	}
}

func displayAppname(cmd *cobra.Command, appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	cmd.Println(myFigure.String())
}
