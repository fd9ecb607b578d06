package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var envFileFlag string

	ctx := newCommandContext(&envFileFlag)

	rootCmd := &cobra.Command{
		Use:           "catalog",
		Short:         "Movie catalog administration",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&envFileFlag, "env-file", "", "Environment file to load before reading configuration")

	rootCmd.AddCommand(newMigrateCommand(ctx))
	rootCmd.AddCommand(newImportCommand(ctx))
	rootCmd.AddCommand(newTokenCommand(ctx))

	return rootCmd
}
