package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"codeworkspace/internal/project"
	"codeworkspace/internal/template"
)

func newProjectsCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "projects",
		Aliases: []string{"project"},
		Short:   "List, create and delete projects",
	}
	cmd.AddCommand(newProjectsListCommand(opts), newProjectsCreateCommand(opts), newProjectsDeleteCommand(opts))
	return cmd
}

func newProjectsListCommand(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects in storage order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := loadEnv(cmd.Context(), opts.configPath)
			if err != nil {
				return err
			}
			defer e.close()

			projects, err := e.store.List(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(projects)
			}
			if len(projects) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No projects found")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tLAST MODIFIED")
			for _, p := range projects {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", p.ID, p.Name, p.LastModified.Local().Format(time.DateTime))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the stored JSON records")
	return cmd
}

func newProjectsCreateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "create NAME",
		Short: "Create a project seeded from the configured template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd.Context(), opts.configPath)
			if err != nil {
				return err
			}
			defer e.close()

			seed := template.SeedOrEmpty(cmd.Context(), e.template)
			p, err := e.store.Create(cmd.Context(), args[0], seed)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p.ID)
			return nil
		},
	}
}

func newProjectsDeleteCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd.Context(), opts.configPath)
			if err != nil {
				return err
			}
			defer e.close()

			if _, err := e.store.Get(cmd.Context(), args[0]); err != nil {
				return err
			}
			return e.store.Delete(cmd.Context(), args[0])
		},
	}
}

// loadProject opens the environment and returns the project with id.
// The caller closes the env.
func loadProject(cmd *cobra.Command, opts *rootOptions, id string) (*env, *project.Project, error) {
	e, err := loadEnv(cmd.Context(), opts.configPath)
	if err != nil {
		return nil, nil, err
	}
	p, err := e.store.Get(cmd.Context(), id)
	if err != nil {
		e.close()
		return nil, nil, err
	}
	return e, p, nil
}
