package main

import (
	"errors"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"folio/internal/config"
	"folio/internal/services"
)

type commandContext struct {
	configFlag *string
	tokenFlag  *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, tokenFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		tokenFlag:  tokenFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// withApp opens the application services for the duration of fn.
func (c *commandContext) withApp(cmd *cobra.Command, fn func(*app) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	a, err := openApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

// withCaller is withApp plus an authenticated caller.
func (c *commandContext) withCaller(cmd *cobra.Command, fn func(*app, services.Identity) error) error {
	return c.withApp(cmd, func(a *app) error {
		caller, err := a.tokens.Authenticate(cmd.Context(), c.credential())
		if err != nil {
			return err
		}
		return fn(a, caller)
	})
}

func (c *commandContext) credential() string {
	if c.tokenFlag != nil {
		if token := strings.TrimSpace(*c.tokenFlag); token != "" {
			return token
		}
	}
	return strings.TrimSpace(os.Getenv("FOLIO_TOKEN"))
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

// readText returns --text, or the contents of --file ("-" reads stdin).
func readText(cmd *cobra.Command, text, file string) (string, error) {
	switch {
	case file == "" && !cmd.Flags().Changed("text"):
		return "", errors.New("provide --text or --file")
	case file == "":
		return text, nil
	case file == "-":
		data, err := readAll(cmd.InOrStdin())
		if err != nil {
			return "", err
		}
		return data, nil
	default:
		data, err := os.ReadFile(file) //nolint:gosec
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
