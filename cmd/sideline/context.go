package main

import (
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"sideline/internal/api"
	"sideline/internal/config"
	"sideline/internal/ingest"
	"sideline/internal/logging"
	"sideline/internal/pipeline"
	"sideline/internal/store"
)

type commandContext struct {
	configFlag *string
	orgFlag    *string
	coachFlag  *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag, orgFlag, coachFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		orgFlag:    orgFlag,
		coachFlag:  coachFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

func (c *commandContext) orgID() string {
	if c.orgFlag != nil {
		if org := strings.TrimSpace(*c.orgFlag); org != "" {
			return org
		}
	}
	if c.config != nil {
		return c.config.Inbox.OrgID
	}
	return ""
}

// explicitOrgID ignores the inbox default so route commands address the
// platform default unless --org is given.
func (c *commandContext) explicitOrgID() string {
	if c.orgFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.orgFlag)
}

func (c *commandContext) coachID() (string, error) {
	if c.coachFlag != nil {
		if coach := strings.TrimSpace(*c.coachFlag); coach != "" {
			return coach, nil
		}
	}
	if c.config != nil && c.config.Inbox.CoachID != "" {
		return c.config.Inbox.CoachID, nil
	}
	return "", errors.New("coach is required: pass --coach or set inbox.coach_id")
}

// cliLogger surfaces warnings from the pipeline packages on stderr without
// the daemon's info-level chatter.
func cliLogger() *slog.Logger {
	logger, err := logging.New(logging.Options{
		Level:       "warn",
		Format:      "console",
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

func (c *commandContext) withStore(fn func(*store.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}

// withService opens the store and wires the same service the daemon serves.
func (c *commandContext) withService(fn func(*api.Service) error) error {
	return c.withStore(func(st *store.Store) error {
		logger := cliLogger()
		components, err := pipeline.Build(c.config, st, logger)
		if err != nil {
			return err
		}
		submissions := ingest.NewService(c.config, st, logger)
		return fn(api.NewService(st, components, submissions))
	})
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func actorName() string {
	if user := strings.TrimSpace(os.Getenv("USER")); user != "" {
		return user
	}
	return "cli"
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
