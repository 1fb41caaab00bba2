package config

const (
	defaultDataDir            = "~/.local/share/lecturesync"
	defaultLogDir             = "~/.local/share/lecturesync/logs"
	defaultAPIBind            = "127.0.0.1:7523"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultDownloadTimeout    = 600
	defaultRasterizerTimeout  = 120
	defaultTranscribeTimeout  = 600
	defaultRetryAttempts      = 1
	defaultRetryBackoff       = 5
	defaultTranscribeLanguage = "en"
	defaultDetector           = "orb"
	defaultMaxFeatures        = 2000
	defaultRatioThreshold     = 0.75
	defaultMinMatchCount      = 10
	defaultMinMargin          = 5
	defaultSampleInterval     = 2.0
	defaultDebounceVotes      = 3
	defaultMatchWorkers       = 4
	defaultQueuePollInterval  = 5
	defaultErrorRetryInterval = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Acquisition: Acquisition{
			FFmpegBinary:    "ffmpeg",
			FFprobeBinary:   "ffprobe",
			YtDlpBinary:     "yt-dlp",
			DownloadTimeout: defaultDownloadTimeout,
		},
		Rasterizer: Rasterizer{
			RequestTimeout: defaultRasterizerTimeout,
		},
		Transcription: Transcription{
			Language:       defaultTranscribeLanguage,
			RequestTimeout: defaultTranscribeTimeout,
			RetryAttempts:  defaultRetryAttempts,
			RetryBackoff:   defaultRetryBackoff,
		},
		Matching: Matching{
			Detector:       defaultDetector,
			MaxFeatures:    defaultMaxFeatures,
			RatioThreshold: defaultRatioThreshold,
			MinMatchCount:  defaultMinMatchCount,
			MinMargin:      defaultMinMargin,
			SampleInterval: defaultSampleInterval,
			DebounceVotes:  defaultDebounceVotes,
			Workers:        defaultMatchWorkers,
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
