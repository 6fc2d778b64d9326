package main

import (
	"os"

	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var profileFlag string

	rootCmd := &cobra.Command{
		Use:           "camclip",
		Short:         "Record short camera clips",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configFlag != "" {
				if err := os.Setenv("CAMCLIP_CONFIG", configFlag); err != nil {
					return err
				}
			}
			if profileFlag != "" {
				if err := os.Setenv("CAMCLIP_PROFILE", profileFlag); err != nil {
					return err
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVarP(&profileFlag, "profile", "p", "", "Recorder profile (standard, narrow, split)")

	rootCmd.AddCommand(newRecordCommand())
	rootCmd.AddCommand(newProfilesCommand())
	rootCmd.AddCommand(newConfigCommand())

	return rootCmd
}
