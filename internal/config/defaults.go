package config

const (
	defaultScratchDir          = "~/.cache/mediasieve/scratch"
	defaultLogDir              = "~/.local/share/mediasieve/logs"
	defaultFFmpegBinary        = "ffmpeg"
	defaultFFprobeBinary       = "ffprobe"
	defaultProbeTimeoutSeconds = 5
	defaultCacheSize           = 10
	defaultReadIntervals       = "%+#10"
	defaultProgressEveryFrames = 250
	defaultProbeStorePath      = "~/.cache/mediasieve/probes.db"
	defaultProbeStoreMax       = 5000
	defaultStaleAfterHours     = 24
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ScratchDir: defaultScratchDir,
			LogDir:     defaultLogDir,
		},
		FFmpeg: FFmpeg{
			Binary:                 defaultFFmpegBinary,
			ProgressLogEveryFrames: defaultProgressEveryFrames,
		},
		FFprobe: FFprobe{
			Binary:         defaultFFprobeBinary,
			TimeoutSeconds: defaultProbeTimeoutSeconds,
			CacheSize:      defaultCacheSize,
		},
		FieldMode: FieldMode{
			ReadIntervals: defaultReadIntervals,
			CacheSize:     defaultCacheSize,
		},
		Metadata: Metadata{
			CacheSize: defaultCacheSize,
		},
		ProbeStore: ProbeStore{
			Path:       defaultProbeStorePath,
			MaxEntries: defaultProbeStoreMax,
		},
		Staging: Staging{
			StaleAfterHours: defaultStaleAfterHours,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
