package config

const (
	defaultStateFile    = "~/.local/share/inkcast/state.json"
	defaultEpisodesFile = "~/.local/share/inkcast/episodes.json"
	defaultWorkDir      = "~/.local/share/inkcast/work"
	defaultLogDir       = "~/.local/share/inkcast/logs"

	defaultReadwiseBaseURL = "https://readwise.io/api/v3"
	defaultRequestTimeout  = 30

	defaultAudioLanguage = "en"
	defaultPollInterval  = 60
	defaultPollWindow    = 1200
	defaultJobMaxAge     = 3600
	// Driver waits this long before the first poll of a job it just started;
	// generation rarely finishes sooner.
	defaultInitialWait = 600

	defaultFeedKey       = "feed.xml"
	defaultArtworkKey    = "artwork.jpg"
	defaultEpisodePrefix = "episodes"
	defaultFeedLanguage  = "en"

	defaultMaxPerRun     = 5
	defaultMinAudioBytes = 100_000
	defaultRetentionDays = 180

	defaultNtfyTimeout = 10

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateFile:    defaultStateFile,
			EpisodesFile: defaultEpisodesFile,
			WorkDir:      defaultWorkDir,
			LogDir:       defaultLogDir,
		},
		Readwise: Readwise{
			BaseURL:        defaultReadwiseBaseURL,
			RequestTimeout: defaultRequestTimeout,
		},
		NotebookLM: NotebookLM{
			Language:       defaultAudioLanguage,
			InitialWait:    defaultInitialWait,
			PollInterval:   defaultPollInterval,
			PollWindow:     defaultPollWindow,
			MaxAge:         defaultJobMaxAge,
			RequestTimeout: defaultRequestTimeout,
		},
		Feed: Feed{
			Title:         "Inkcast",
			Description:   "AI-generated podcast episodes from saved articles.",
			Language:      defaultFeedLanguage,
			Category:      "Technology",
			FeedKey:       defaultFeedKey,
			ArtworkKey:    defaultArtworkKey,
			EpisodePrefix: defaultEpisodePrefix,
		},
		Pipeline: Pipeline{
			MaxPerRun:     defaultMaxPerRun,
			MinAudioBytes: defaultMinAudioBytes,
			RetentionDays: defaultRetentionDays,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
