package main

import (
	"github.com/spf13/cobra"

	"codeworkspace/internal/config"
)

type rootOptions struct {
	configPath string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "workspacectl",
		Short:         "Manage workspace projects and serve editor sessions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", config.DefaultPath(), "path to the YAML config file")

	root.AddCommand(
		newConfigCommand(opts),
		newProjectsCommand(opts),
		newExportCommand(opts),
		newSearchCommand(opts),
		newServeCommand(opts),
	)
	return root
}
