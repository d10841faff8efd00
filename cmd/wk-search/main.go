package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// @title wk-search
// @version 0.1.0
// @description Incremental subject search and suggestions over the local study store
// @BasePath /api/v1
// @schemes http

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "wk-search",
		Short:         "Incremental subject search and suggestions",
		Long:          "wk-search serves type-ahead suggestions from a local store of study subjects.\nConfiguration is read from the environment and an optional .env file.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newServeCommand(),
		newImportCommand(),
		newSuggestCommand(),
		newPropCommand(),
	)
	return root
}
