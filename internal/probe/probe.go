package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"annote/internal/config"
	"annote/internal/logging"
	"annote/internal/media/ffprobe"
)

// ErrProbe marks failures to inspect a source. Callers classify with errors.Is.
var ErrProbe = errors.New("probe failure")

// Result carries the metadata the import pipeline needs from a source.
type Result struct {
	DurationSeconds float64
	FrameRate       float64
	Decodable       bool
}

// Prober inspects a single source path or URL.
type Prober interface {
	Probe(ctx context.Context, path string) (Result, error)
}

// FFprobe inspects sources by shelling out to the ffprobe binary.
type FFprobe struct {
	binary  string
	timeout time.Duration
	logger  *slog.Logger
}

// NewFFprobe builds a prober from application config.
func NewFFprobe(cfg *config.Config, logger *slog.Logger) *FFprobe {
	binary := "ffprobe"
	timeout := 30 * time.Second
	if cfg != nil {
		if cfg.Probe.FFprobeBinary != "" {
			binary = cfg.Probe.FFprobeBinary
		}
		if cfg.Probe.TimeoutSeconds > 0 {
			timeout = time.Duration(cfg.Probe.TimeoutSeconds) * time.Second
		}
	}
	return &FFprobe{
		binary:  binary,
		timeout: timeout,
		logger:  logging.NewComponentLogger(logger, "probe"),
	}
}

// Probe runs ffprobe and reduces the container metadata to a Result. A source
// with no video stream is reported undecodable rather than as an error.
func (p *FFprobe) Probe(ctx context.Context, path string) (Result, error) {
	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	inspection, err := ffprobe.Inspect(probeCtx, p.binary, path)
	if err != nil {
		return Result{}, fmt.Errorf("%w: inspect %s: %w", ErrProbe, path, err)
	}

	result := Result{
		DurationSeconds: inspection.DurationSeconds(),
		FrameRate:       inspection.FrameRate(),
		Decodable:       inspection.VideoStreamCount() > 0,
	}
	p.logger.Debug("source probed",
		logging.String("path", path),
		logging.Float64("duration", result.DurationSeconds),
		logging.Float64("fps", result.FrameRate),
		logging.Bool("decodable", result.Decodable))
	return result, nil
}
