package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeSign(); err != nil {
		return err
	}
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizePresets(); err != nil {
		return err
	}
	if err := c.normalizeHistory(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeSign() error {
	c.Sign.Address = strings.ToUpper(strings.TrimSpace(c.Sign.Address))
	c.Sign.DeviceName = strings.TrimSpace(c.Sign.DeviceName)
	c.Sign.BlankAnimation = strings.TrimSpace(c.Sign.BlankAnimation)
	if c.Sign.BlankAnimation == "" {
		c.Sign.BlankAnimation = defaultBlankAnimation
	}
	c.Sign.HelperBinary = strings.TrimSpace(c.Sign.HelperBinary)
	if c.Sign.HelperBinary == "" {
		c.Sign.HelperBinary = defaultHelperBinary
	}
	var err error
	if c.Sign.AnimationsDir, err = expandPath(c.Sign.AnimationsDir); err != nil {
		return fmt.Errorf("sign.animations_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("MARQUEE_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizePresets() error {
	c.Presets.File = strings.TrimSpace(c.Presets.File)
	if c.Presets.File == "" {
		c.Presets.File = defaultPresetsFile
	}
	var err error
	if c.Presets.File, err = expandPath(c.Presets.File); err != nil {
		return fmt.Errorf("presets.file: %w", err)
	}
	return nil
}

func (c *Config) normalizeHistory() error {
	c.History.Path = strings.TrimSpace(c.History.Path)
	if c.History.Path == "" {
		c.History.Path = filepath.Join(c.Paths.DataDir, "history.db")
	}
	var err error
	if c.History.Path, err = expandPath(c.History.Path); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	if c.History.Keep <= 0 {
		c.History.Keep = defaultHistoryKeep
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("MARQUEE_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
	if c.Notifications.DedupWindow <= 0 {
		c.Notifications.DedupWindow = defaultNotifyDedupWindow
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
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
