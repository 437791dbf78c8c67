package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"codeworkspace/internal/search"
)

func newSearchCommand(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "search ID QUERY",
		Short: "Search a project's file contents line by line",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, p, err := loadProject(cmd, opts, args[0])
			if err != nil {
				return err
			}
			defer e.close()

			results := search.Search(p.Root, args[1])
			if asJSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(results)
			}
			for _, r := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "%s:%d: %s\n", r.FileName, r.Line, r.Text)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")
	return cmd
}
