package config

const (
	defaultDataRoot           = "~/.local/share/annote/sessions"
	defaultLogDir             = "~/.local/share/annote/logs"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultTickIntervalMS     = 200
	defaultDriftToleranceMS   = 200
	defaultSeekTimeoutSeconds = 10
	defaultAutosaveSeconds    = 30
	defaultFFprobeBinary      = "ffprobe"
	defaultProbeTimeout       = 30
	defaultProbeCachePath     = "~/.cache/annote/probe_cache.db"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataRoot: defaultDataRoot,
			LogDir:   defaultLogDir,
		},
		Playback: Playback{
			TickIntervalMS:     defaultTickIntervalMS,
			DriftToleranceMS:   defaultDriftToleranceMS,
			SeekTimeoutSeconds: defaultSeekTimeoutSeconds,
		},
		Autosave: Autosave{
			IntervalSeconds: defaultAutosaveSeconds,
		},
		Probe: Probe{
			FFprobeBinary:  defaultFFprobeBinary,
			TimeoutSeconds: defaultProbeTimeout,
			CacheEnabled:   true,
			CachePath:      defaultProbeCachePath,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
