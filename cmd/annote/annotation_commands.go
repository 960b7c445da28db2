package main

import (
	"fmt"
	"math"
	"strconv"

	"github.com/spf13/cobra"

	"annote/internal/annotations"
	"annote/internal/manager"
	"annote/internal/session"
	"annote/internal/timeutil"
)

// annotationRange widens an open-ended --from filter to the end of time, so
// "--from 5" means from five seconds onward rather than between zero and five.
func annotationRange(from, to float64, haveTo bool) (float64, float64) {
	if !haveTo {
		to = math.Inf(1)
	}
	return from, to
}

func newAnnotationCommand(ctx *commandContext) *cobra.Command {
	annotationCmd := &cobra.Command{
		Use:     "annotation",
		Aliases: []string{"ann"},
		Short:   "Add, edit, and list annotations",
	}

	annotationCmd.AddCommand(newAnnotationAddCommand(ctx))
	annotationCmd.AddCommand(newAnnotationEditCommand(ctx))
	annotationCmd.AddCommand(newAnnotationRemoveCommand(ctx))
	annotationCmd.AddCommand(newAnnotationListCommand(ctx))

	return annotationCmd
}

func newAnnotationAddCommand(ctx *commandContext) *cobra.Command {
	var confidence int
	var notes string

	cmd := &cobra.Command{
		Use:   "add <slug> <label-number> <start-seconds> <end-seconds>",
		Short: "Add an annotation interval",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := parseLabelNumber(args[1])
			if err != nil {
				return err
			}
			start, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("start must be seconds, got %q", args[2])
			}
			end, err := strconv.ParseFloat(args[3], 64)
			if err != nil {
				return fmt.Errorf("end must be seconds, got %q", args[3])
			}
			return ctx.withSession(cmd, args[0], func(m *manager.Manager, _ *session.Session) error {
				annotation, err := m.AddAnnotation(number, start, end, confidence, notes)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added annotation %s (label %d, %s - %s)\n",
					annotation.ID, annotation.LabelNumber,
					timeutil.FormatSeconds(annotation.Start), timeutil.FormatSeconds(annotation.End))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&confidence, "confidence", 0, "Confidence 1-10 (default 5)")
	cmd.Flags().StringVar(&notes, "notes", "", "Free-form notes")
	return cmd
}

func newAnnotationEditCommand(ctx *commandContext) *cobra.Command {
	var labelNumber int
	var start, end float64
	var confidence int
	var notes string

	cmd := &cobra.Command{
		Use:   "edit <slug> <annotation-id>",
		Short: "Edit an annotation's mutable fields",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			edit := annotations.Edit{}
			if cmd.Flags().Changed("label") {
				edit.LabelNumber = &labelNumber
			}
			if cmd.Flags().Changed("start") {
				edit.Start = &start
			}
			if cmd.Flags().Changed("end") {
				edit.End = &end
			}
			if cmd.Flags().Changed("confidence") {
				edit.Confidence = &confidence
			}
			if cmd.Flags().Changed("notes") {
				edit.Notes = &notes
			}
			return ctx.withSession(cmd, args[0], func(m *manager.Manager, _ *session.Session) error {
				annotation, err := m.EditAnnotation(args[1], edit)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated annotation %s (label %d, %.3f - %.3f)\n",
					annotation.ID, annotation.LabelNumber, annotation.Start, annotation.End)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&labelNumber, "label", 0, "New label number")
	cmd.Flags().Float64Var(&start, "start", 0, "New start in seconds")
	cmd.Flags().Float64Var(&end, "end", 0, "New end in seconds")
	cmd.Flags().IntVar(&confidence, "confidence", 0, "New confidence 1-10")
	cmd.Flags().StringVar(&notes, "notes", "", "New notes")
	return cmd
}

func newAnnotationRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <slug> <annotation-id>",
		Short: "Remove an annotation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, args[0], func(m *manager.Manager, _ *session.Session) error {
				if err := m.DeleteAnnotation(args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed annotation %s\n", args[1])
				return nil
			})
		},
	}
}

func newAnnotationListCommand(ctx *commandContext) *cobra.Command {
	var labelFilter int
	var rangeStart, rangeEnd float64

	cmd := &cobra.Command{
		Use:   "list <slug>",
		Short: "List annotations, optionally filtered by label or time range",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, args[0], func(_ *manager.Manager, sess *session.Session) error {
				var listed []annotations.Annotation
				switch {
				case cmd.Flags().Changed("label"):
					for a := range sess.Annotations.QueryByLabel(labelFilter) {
						listed = append(listed, a)
					}
				case cmd.Flags().Changed("from") || cmd.Flags().Changed("to"):
					from, to := annotationRange(rangeStart, rangeEnd, cmd.Flags().Changed("to"))
					for a := range sess.Annotations.QueryInRange(from, to) {
						listed = append(listed, a)
					}
				default:
					listed = sess.Annotations.All()
				}
				if len(listed) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No annotations")
					return nil
				}

				rows := make([][]string, 0, len(listed))
				for _, a := range listed {
					name := ""
					if label, ok := sess.Annotations.Label(a.LabelNumber); ok {
						name = label.Name
					}
					rows = append(rows, []string{
						a.ID,
						strconv.Itoa(a.LabelNumber),
						name,
						fmt.Sprintf("%.3f", a.Start),
						fmt.Sprintf("%.3f", a.End),
						strconv.Itoa(a.Confidence),
						a.Notes,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Label", "Name", "Start", "End", "Confidence", "Notes"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignLeft, alignRight, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&labelFilter, "label", 0, "Only annotations with this label number")
	cmd.Flags().Float64Var(&rangeStart, "from", 0, "Range start in seconds")
	cmd.Flags().Float64Var(&rangeEnd, "to", 0, "Range end in seconds")
	return cmd
}
