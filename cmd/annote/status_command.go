package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"annote/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check directories, free space, and external binaries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			rows := [][]string{}
			failed := false
			for _, result := range preflight.RunAll(cmd.Context(), cfg) {
				status := "ok"
				if !result.Passed {
					status = "FAIL"
					failed = true
				}
				rows = append(rows, []string{result.Name, status, result.Detail})
			}
			for _, dep := range preflight.CheckSystemDeps(cfg) {
				status := "ok"
				switch {
				case dep.Available:
				case dep.Optional:
					status = "missing (optional)"
				default:
					status = "FAIL"
					failed = true
				}
				detail := dep.Detail
				if detail == "" {
					detail = dep.Command
				}
				rows = append(rows, []string{dep.Name, status, detail})
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Check", "Status", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			))
			if failed {
				return fmt.Errorf("one or more preflight checks failed")
			}
			return nil
		},
	}
}
