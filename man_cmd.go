package main

import (
	"fmt"
	"os"

	mcobra "github.com/muesli/mango-cobra"
	"github.com/muesli/roff"
	"github.com/spf13/cobra"
)

var manCmd = &cobra.Command{
	Use:                   "man",
	Short:                 "Generate man pages",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Hidden:                true,
	Args:                  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		manPage, err := mcobra.NewManPage(1, rootCmd)
		if err != nil {
			return fmt.Errorf("unable to build man page: %w", err)
		}

		manPage = manPage.WithSection("Environment", "READALONG_API_KEY or OPENAI_API_KEY holds the speech service key.\n"+
			"READALONG_CONFIG_HOME overrides the configuration directory.\n"+
			"READALONG_DEBUG enables debug logging.")

		_, err = fmt.Fprint(os.Stdout, manPage.Build(roff.NewDocument()))
		return err //nolint:wrapcheck
	},
}
