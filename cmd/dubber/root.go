package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var addressFlag string

	ctx := newCommandContext(&configFlag, &addressFlag)

	rootCmd := &cobra.Command{
		Use:           "dubber",
		Short:         "Video dubbing service CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&addressFlag, "address", "", "Daemon API address (host:port)")

	rootCmd.AddCommand(newConfigCommand())
	rootCmd.AddCommand(newLanguagesCommand())
	rootCmd.AddCommand(newHealthCommand(ctx))
	rootCmd.AddCommand(newUploadCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newDashboardCommand(ctx))

	return rootCmd
}
