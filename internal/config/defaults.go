package config

const (
	defaultConfigPath              = "~/.config/sideline/config.toml"
	defaultDataDir                 = "~/.local/share/sideline"
	defaultLogDir                  = "~/.local/share/sideline/logs"
	defaultAudioDir                = "~/.local/share/sideline/audio"
	defaultInboxDir                = "~/.local/share/sideline/inbox"
	defaultAPIBind                 = "127.0.0.1:7491"
	defaultOpenRouterBaseURL       = "https://openrouter.ai/api/v1/chat/completions"
	defaultOpenRouterReferer       = "https://github.com/sideline-app/sideline"
	defaultOpenRouterTitle         = "Sideline Insights"
	defaultOpenAIBaseURL           = "https://api.openai.com/v1"
	defaultProviderTimeoutSeconds  = 60
	defaultProviderRPS             = 2.0
	defaultProviderBurst           = 4
	defaultRouterCacheTTLSeconds   = 60
	defaultExtractionMinConfidence = 0.2
	defaultExtractionMaxClaims     = 25
	defaultMaxTranscriptChars      = 20000
	defaultResolverMinConfidence   = 0.6
	defaultResolverTieEpsilon      = 0.02
	defaultDraftRetentionDays      = 7
	defaultDraftThreshold          = 0.9
	defaultRejectionPenalty        = 0.1
	defaultMaxTrustBoost           = 0.5
	defaultSweepIntervalMinutes    = 30
	defaultRosterCacheTTLSeconds   = 300
	defaultInboxChannel            = "inbox"
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
	defaultQueuePollInterval       = 2
	defaultErrorRetryInterval      = 10
	defaultHeartbeatInterval       = 15
	defaultHeartbeatTimeout        = 120
	defaultMaxAttempts             = 3
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:  defaultDataDir,
			LogDir:   defaultLogDir,
			AudioDir: defaultAudioDir,
			InboxDir: defaultInboxDir,
			APIBind:  defaultAPIBind,
		},
		Providers: Providers{
			OpenRouter: Provider{
				BaseURL:           defaultOpenRouterBaseURL,
				Referer:           defaultOpenRouterReferer,
				Title:             defaultOpenRouterTitle,
				TimeoutSeconds:    defaultProviderTimeoutSeconds,
				RequestsPerSecond: defaultProviderRPS,
				Burst:             defaultProviderBurst,
			},
			OpenAI: Provider{
				BaseURL:           defaultOpenAIBaseURL,
				TimeoutSeconds:    defaultProviderTimeoutSeconds,
				RequestsPerSecond: defaultProviderRPS,
				Burst:             defaultProviderBurst,
			},
		},
		Router: Router{CacheTTLSeconds: defaultRouterCacheTTLSeconds},
		Extraction: Extraction{
			MinConfidence:      defaultExtractionMinConfidence,
			MaxClaims:          defaultExtractionMaxClaims,
			MaxTranscriptChars: defaultMaxTranscriptChars,
		},
		Resolver: Resolver{
			MinConfidence: defaultResolverMinConfidence,
			TieEpsilon:    defaultResolverTieEpsilon,
			ModelHints:    true,
		},
		Drafts: Drafts{
			RetentionDays:        defaultDraftRetentionDays,
			DefaultThreshold:     defaultDraftThreshold,
			RejectionPenalty:     defaultRejectionPenalty,
			MaxTrustBoost:        defaultMaxTrustBoost,
			AutoApply:            true,
			SweepIntervalMinutes: defaultSweepIntervalMinutes,
		},
		Roster: Roster{CacheTTLSeconds: defaultRosterCacheTTLSeconds},
		Inbox:  Inbox{Channel: defaultInboxChannel},
		Workflow: Workflow{
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			HeartbeatInterval:  defaultHeartbeatInterval,
			HeartbeatTimeout:   defaultHeartbeatTimeout,
			MaxAttempts:        defaultMaxAttempts,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
