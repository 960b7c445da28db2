package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"annote/internal/manager"
	"annote/internal/session"
)

var labelTitle = cases.Title(language.English, cases.NoLower)

func newLabelCommand(ctx *commandContext) *cobra.Command {
	labelCmd := &cobra.Command{
		Use:   "label",
		Short: "Manage a session's label set",
	}

	labelCmd.AddCommand(newLabelAddCommand(ctx))
	labelCmd.AddCommand(newLabelRenameCommand(ctx))
	labelCmd.AddCommand(newLabelRemoveCommand(ctx))
	labelCmd.AddCommand(newLabelListCommand(ctx))

	return labelCmd
}

func parseLabelNumber(arg string) (int, error) {
	number, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("label number must be an integer, got %q", arg)
	}
	return number, nil
}

func newLabelAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <slug> <number> <name>",
		Short: "Add a label to a session",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := parseLabelNumber(args[1])
			if err != nil {
				return err
			}
			return ctx.withSession(cmd, args[0], func(m *manager.Manager, _ *session.Session) error {
				label, err := m.AddLabel(number, args[2])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added label %d %q (color %s)\n",
					label.Number, label.Name, label.Color())
				return nil
			})
		},
	}
}

func newLabelRenameCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <slug> <number> <name>",
		Short: "Rename a label without touching its annotations",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := parseLabelNumber(args[1])
			if err != nil {
				return err
			}
			return ctx.withSession(cmd, args[0], func(m *manager.Manager, _ *session.Session) error {
				if err := m.RenameLabel(number, args[2]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Renamed label %d to %q\n", number, args[2])
				return nil
			})
		},
	}
}

func newLabelRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <slug> <number>",
		Short: "Remove a label that no annotation references",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := parseLabelNumber(args[1])
			if err != nil {
				return err
			}
			return ctx.withSession(cmd, args[0], func(m *manager.Manager, _ *session.Session) error {
				if err := m.DeleteLabel(number); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed label %d\n", number)
				return nil
			})
		},
	}
}

func newLabelListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list <slug>",
		Short: "List a session's labels",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, args[0], func(_ *manager.Manager, sess *session.Session) error {
				labels := sess.Annotations.Labels()
				if len(labels) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No labels defined")
					return nil
				}

				counts := map[int]int{}
				for _, a := range sess.Annotations.All() {
					counts[a.LabelNumber]++
				}

				rows := make([][]string, 0, len(labels))
				for _, label := range labels {
					rows = append(rows, []string{
						strconv.Itoa(label.Number),
						labelTitle.String(label.Name),
						label.Color(),
						strconv.Itoa(counts[label.Number]),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Number", "Name", "Color", "Annotations"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}
}
