package config

// Storage backends.
const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

const (
	defaultDataDir                  = "~/.local/share/folio"
	defaultIssuer                   = "folio"
	defaultAudience                 = "folio-cli"
	defaultTokenTTLMinutes          = 24 * 60
	defaultWritingCompletionRatio   = 0.9
	defaultChapterCompletionRatio   = 0.8
	defaultPublishQualityThreshold  = 70.0
	defaultPlagiarismWeight         = 0.30
	defaultGrammarWeight            = 0.25
	defaultReadabilityWeight        = 0.20
	defaultAccessibilityWeight      = 0.25
	defaultProviderTimeoutSeconds   = 30
	defaultShingleSize              = 5
	defaultMaxSentenceWords         = 40
	defaultMinCredibility           = 0.5
	defaultMaxCandidates            = 5
	defaultMediaResults             = 10
	defaultExportWorkers            = 2
	defaultPollIntervalSeconds      = 5
	defaultHeartbeatIntervalSeconds = 15
	defaultHeartbeatTimeoutSeconds  = 120
	defaultRenderTimeoutSeconds     = 600
	defaultExportLanguage           = "en"
	defaultS3Region                 = "us-east-1"
	defaultNtfyTimeoutSeconds       = 10
	defaultServiceName              = "folio"
	defaultSampleRatio              = 1.0
	defaultLogFormat                = "auto"
	defaultLogLevel                 = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
		},
		Identity: Identity{
			Issuer:          defaultIssuer,
			Audience:        defaultAudience,
			TokenTTLMinutes: defaultTokenTTLMinutes,
		},
		Lifecycle: Lifecycle{
			WritingCompletionRatio:  defaultWritingCompletionRatio,
			ChapterCompletionRatio:  defaultChapterCompletionRatio,
			PublishQualityThreshold: defaultPublishQualityThreshold,
		},
		Quality: Quality{
			Weights: QualityWeights{
				Plagiarism:    defaultPlagiarismWeight,
				Grammar:       defaultGrammarWeight,
				Readability:   defaultReadabilityWeight,
				Accessibility: defaultAccessibilityWeight,
			},
			ProviderTimeoutSeconds: defaultProviderTimeoutSeconds,
			ShingleSize:            defaultShingleSize,
			MaxSentenceWords:       defaultMaxSentenceWords,
		},
		Research: Research{
			MinCredibility: defaultMinCredibility,
			MaxCandidates:  defaultMaxCandidates,
			MediaResults:   defaultMediaResults,
		},
		Export: Export{
			Workers:                  defaultExportWorkers,
			PollIntervalSeconds:      defaultPollIntervalSeconds,
			HeartbeatIntervalSeconds: defaultHeartbeatIntervalSeconds,
			HeartbeatTimeoutSeconds:  defaultHeartbeatTimeoutSeconds,
			RenderTimeoutSeconds:     defaultRenderTimeoutSeconds,
			Language:                 defaultExportLanguage,
		},
		Storage: Storage{
			Backend:  StorageLocal,
			S3Region: defaultS3Region,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeoutSeconds,
		},
		Telemetry: Telemetry{
			ServiceName: defaultServiceName,
			SampleRatio: defaultSampleRatio,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
