package main

import (
	"fmt"
	"strings"
	"sync"

	"dubber/internal/config"
)

// commandContext lazily loads configuration shared by the commands that talk
// to the daemon.
type commandContext struct {
	configFlag  *string
	addressFlag *string

	once sync.Once
	cfg  *config.Config
	err  error
}

func newCommandContext(configFlag, addressFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag, addressFlag: addressFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.once.Do(func() {
		path := ""
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.err = fmt.Errorf("load config: %w", err)
			return
		}
		c.cfg = cfg
	})
	return c.cfg, c.err
}

// apiBaseURL resolves the daemon address, preferring the --address flag.
func (c *commandContext) apiBaseURL() (string, error) {
	if c.addressFlag != nil {
		if address := strings.TrimSpace(*c.addressFlag); address != "" {
			return normalizeBaseURL(address), nil
		}
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	return normalizeBaseURL(cfg.Paths.APIBind), nil
}

func normalizeBaseURL(address string) string {
	if strings.HasPrefix(address, "http://") || strings.HasPrefix(address, "https://") {
		return strings.TrimRight(address, "/")
	}
	return "http://" + strings.TrimRight(address, "/")
}
