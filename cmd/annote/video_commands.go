package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"annote/internal/manager"
	"annote/internal/session"
	"annote/internal/timeutil"
)

func newVideoCommand(ctx *commandContext) *cobra.Command {
	videoCmd := &cobra.Command{
		Use:   "video",
		Short: "Manage a session's video sources",
	}

	videoCmd.AddCommand(newVideoAddCommand(ctx))
	videoCmd.AddCommand(newVideoRefreshCommand(ctx))
	videoCmd.AddCommand(newVideoSourcesCommand(ctx))
	videoCmd.AddCommand(newVideoViewsCommand(ctx))

	return videoCmd
}

func newVideoAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <slug> <file-or-url>",
		Short: "Import a video file or URL into a session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, args[0], func(m *manager.Manager, _ *session.Session) error {
				ref, err := m.ImportVideo(cmd.Context(), args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %s (%s, %.2f fps, decodable: %s)\n",
					ref.ID, timeutil.FormatSeconds(ref.DurationSeconds), ref.FrameRate, yesNo(ref.Decodable))
				return nil
			})
		},
	}
}

func newVideoRefreshCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh <slug>",
		Short: "Re-probe all sources and update cached metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, args[0], func(m *manager.Manager, sess *session.Session) error {
				if err := m.RefreshMetadata(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Refreshed metadata for %d videos\n", len(sess.Videos))
				return nil
			})
		},
	}
}

func newVideoSourcesCommand(ctx *commandContext) *cobra.Command {
	var timeSource, audioSource string

	cmd := &cobra.Command{
		Use:   "sources <slug>",
		Short: "Set the session's Time Source and Audio Source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, args[0], func(m *manager.Manager, sess *session.Session) error {
				if timeSource != "" {
					if err := m.SetTimeSource(timeSource); err != nil {
						return err
					}
				}
				if audioSource != "" {
					if err := m.SetAudioSource(audioSource); err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Time source: %s  Audio source: %s\n",
					sess.TimeSourceID, sess.AudioSourceID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&timeSource, "time", "", "Video id for the authoritative clock")
	cmd.Flags().StringVar(&audioSource, "audio", "", "Video id for the audible stream")
	return cmd
}

func newVideoViewsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "views <slug> <video-id>...",
		Short: "Set the visible video set",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, args[0], func(m *manager.Manager, sess *session.Session) error {
				if err := m.SetVisible(args[1:]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Visible: %s\n", session.EncodeViews(sess.VisibleIDs))
				return nil
			})
		},
	}
}
