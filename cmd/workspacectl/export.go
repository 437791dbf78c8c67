package main

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"codeworkspace/internal/archive"
	"codeworkspace/internal/atomicfile"
)

func newExportCommand(opts *rootOptions) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export ID",
		Short: "Write a project's files to a zip archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, p, err := loadProject(cmd, opts, args[0])
			if err != nil {
				return err
			}
			defer e.close()

			if out == "-" {
				return archive.WriteZip(cmd.OutOrStdout(), p)
			}
			if out == "" {
				out = archive.FileName(p)
			}
			var buf bytes.Buffer
			if err := archive.WriteZip(&buf, p); err != nil {
				return err
			}
			if err := atomicfile.Write(out, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write archive: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", `output path ("-" for stdout, default <name>.zip)`)
	return cmd
}
