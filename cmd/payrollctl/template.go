package main

import (
	"os"

	"github.com/spf13/cobra"

	"phpayroll/internal/export"
)

func templateCmd() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "template [sheet.yaml]",
		Short: "Write an attendance CSV template for the sheet's employees",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSheet(args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return export.WriteAttendanceTemplate(w, s.orgSettings(), s.entries())
		},
	}
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "write to this file instead of stdout")
	return cmd
}
