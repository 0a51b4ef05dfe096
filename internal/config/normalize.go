package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeProviders()
	c.normalizeInbox()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.AudioDir) == "" {
		c.Paths.AudioDir = defaultAudioDir
	}
	if c.Paths.AudioDir, err = expandPath(c.Paths.AudioDir); err != nil {
		return fmt.Errorf("paths.audio_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.InboxDir) == "" {
		c.Paths.InboxDir = defaultInboxDir
	}
	if c.Paths.InboxDir, err = expandPath(c.Paths.InboxDir); err != nil {
		return fmt.Errorf("paths.inbox_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("SIDELINE_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeProviders() {
	normalizeProvider(&c.Providers.OpenRouter, defaultOpenRouterBaseURL, "OPENROUTER_API_KEY")
	if strings.TrimSpace(c.Providers.OpenRouter.Referer) == "" {
		c.Providers.OpenRouter.Referer = defaultOpenRouterReferer
	}
	if strings.TrimSpace(c.Providers.OpenRouter.Title) == "" {
		c.Providers.OpenRouter.Title = defaultOpenRouterTitle
	}
	normalizeProvider(&c.Providers.OpenAI, defaultOpenAIBaseURL, "OPENAI_API_KEY")
}

func normalizeProvider(p *Provider, baseURL, envKey string) {
	p.APIKey = strings.TrimSpace(p.APIKey)
	if p.APIKey == "" {
		if value, ok := os.LookupEnv(envKey); ok {
			p.APIKey = strings.TrimSpace(value)
		}
	}
	p.BaseURL = strings.TrimSpace(p.BaseURL)
	if p.BaseURL == "" {
		p.BaseURL = baseURL
	}
	p.Referer = strings.TrimSpace(p.Referer)
	p.Title = strings.TrimSpace(p.Title)
	if p.TimeoutSeconds <= 0 {
		p.TimeoutSeconds = defaultProviderTimeoutSeconds
	}
	if p.RequestsPerSecond <= 0 {
		p.RequestsPerSecond = defaultProviderRPS
	}
	if p.Burst <= 0 {
		p.Burst = defaultProviderBurst
	}
}

func (c *Config) normalizeInbox() {
	c.Inbox.OrgID = strings.TrimSpace(c.Inbox.OrgID)
	c.Inbox.CoachID = strings.TrimSpace(c.Inbox.CoachID)
	c.Inbox.Channel = strings.ToLower(strings.TrimSpace(c.Inbox.Channel))
	if c.Inbox.Channel == "" {
		c.Inbox.Channel = defaultInboxChannel
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
