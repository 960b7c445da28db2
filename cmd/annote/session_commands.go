package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"annote/internal/manager"
	"annote/internal/session"
	"annote/internal/timeutil"
)

func newSessionCommand(ctx *commandContext) *cobra.Command {
	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Create, list, and inspect annotation sessions",
	}

	sessionCmd.AddCommand(newSessionCreateCommand(ctx))
	sessionCmd.AddCommand(newSessionListCommand(ctx))
	sessionCmd.AddCommand(newSessionShowCommand(ctx))

	return sessionCmd
}

func newSessionCreateCommand(ctx *commandContext) *cobra.Command {
	var sources []string

	cmd := &cobra.Command{
		Use:   "create <slug>",
		Short: "Create a new session, optionally importing sources",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, cleanup, err := ctx.newManager()
			if err != nil {
				return err
			}
			defer cleanup()

			sess, err := m.CreateSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer func() { _ = m.Close() }()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created session %s at %s\n", sess.Slug, sess.Dir)
			for _, source := range sources {
				ref, err := m.ImportVideo(cmd.Context(), source)
				if err != nil {
					return fmt.Errorf("import %s: %w", source, err)
				}
				fmt.Fprintf(out, "Imported %s as %s (%s, decodable: %s)\n",
					source, ref.ID, timeutil.FormatSeconds(ref.DurationSeconds), yesNo(ref.Decodable))
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&sources, "video", "v", nil, "Video file or URL to import (repeatable)")
	return cmd
}

func newSessionListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List sessions under the data root",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, cleanup, err := ctx.newManager()
			if err != nil {
				return err
			}
			defer cleanup()

			infos, err := m.ListSessions()
			if err != nil {
				return err
			}
			if len(infos) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No sessions found")
				return nil
			}

			rows := make([][]string, 0, len(infos))
			for _, info := range infos {
				rows = append(rows, []string{
					info.Slug,
					info.Path,
					info.ModifiedAt.Format("2006-01-02 15:04:05"),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Session", "Path", "Modified"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
}

func newSessionShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <slug>",
		Short: "Show a session's videos, sources, and annotation counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, args[0], func(m *manager.Manager, sess *session.Session) error {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Session: %s\n", sess.Slug)
				fmt.Fprintf(out, "Directory: %s\n", sess.Dir)
				fmt.Fprintf(out, "Time source: %s  Audio source: %s\n", sess.TimeSourceID, sess.AudioSourceID)
				fmt.Fprintf(out, "Labels: %d  Annotations: %d\n\n",
					len(sess.Annotations.Labels()), sess.Annotations.Count())

				rows := make([][]string, 0, len(sess.Videos))
				for _, v := range sess.Videos {
					rows = append(rows, []string{
						v.ID,
						v.Filename,
						string(v.Origin),
						timeutil.FormatSeconds(v.DurationSeconds),
						strconv.FormatFloat(v.FrameRate, 'f', 2, 64),
						yesNo(v.Decodable),
						yesNo(sess.IsVisible(v.ID)),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Video", "File", "Origin", "Duration", "FPS", "Decodable", "Visible"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
}
