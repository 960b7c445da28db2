package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"annote/internal/logging"
	"annote/internal/probe"
	"annote/internal/timeutil"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "probe <file-or-url>",
		Short: "Inspect a video source with ffprobe",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.logger()

			var prober probe.Prober = probe.NewFFprobe(cfg, logger)
			if cfg.Probe.CacheEnabled {
				cache, cacheErr := probe.OpenCache(cfg, prober, logger)
				if cacheErr != nil {
					logger.Warn("probe cache unavailable", logging.Error(cacheErr))
				} else {
					defer cache.Close()
					prober = cache
				}
			}

			result, err := prober.Probe(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Duration:  %s (%.3fs)\n",
				timeutil.FormatSeconds(result.DurationSeconds), result.DurationSeconds)
			fmt.Fprintf(out, "Framerate: %.3f fps\n", result.FrameRate)
			fmt.Fprintf(out, "Decodable: %s\n", yesNo(result.Decodable))
			return nil
		},
	}
}
