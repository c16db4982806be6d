package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDBus()
	c.normalizeLogging()
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyTimeout
	}
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.RuntimeDir) == "" {
		c.Paths.RuntimeDir = defaultRuntimeDir
	}
	if c.Paths.RuntimeDir, err = expandPath(c.Paths.RuntimeDir); err != nil {
		return fmt.Errorf("paths.runtime_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeDBus() {
	c.DBus.Bus = strings.ToLower(strings.TrimSpace(c.DBus.Bus))
	if c.DBus.Bus == "" {
		c.DBus.Bus = defaultBus
	}
	c.DBus.Address = strings.TrimSpace(c.DBus.Address)
	c.DBus.Service = strings.TrimSpace(c.DBus.Service)
	if c.DBus.Service == "" {
		c.DBus.Service = defaultService
	}
	c.DBus.RootPath = strings.TrimSpace(c.DBus.RootPath)
	if c.DBus.RootPath == "" {
		c.DBus.RootPath = defaultRootPath
	}
	if len(c.DBus.RootPath) > 1 {
		c.DBus.RootPath = strings.TrimRight(c.DBus.RootPath, "/")
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
