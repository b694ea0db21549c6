package main

import (
	"github.com/spf13/cobra"

	"github.com/DoyleJ11/trivia-hub/internal/config"
)

func newCmd(cfg *config.Config) *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:     "trivia-hub",
		Short:   "Live trivia sessions pushed to hosts and displays over websockets.",
		Args:    cobra.ExactArgs(0),
		Version: releaseVersion,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.ApplyEnv(cmd.Flags(), envFile); err != nil {
				return err
			}
			return cfg.Validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()
	config.BindFlags(fs, cfg)
	fs.StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading TRIVIA_* variables")

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("trivia-hub v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
