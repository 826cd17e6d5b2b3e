package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSign(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSign() error {
	if c.Sign.Address == "" && c.Sign.DeviceName == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/marquee/config.toml"
		}
		return fmt.Errorf("sign.address or sign.device_name is required. Edit %s (create with 'marquee config init')", defaultPath)
	}
	if c.Sign.Address != "" {
		if _, err := net.ParseMAC(c.Sign.Address); err != nil {
			return fmt.Errorf("sign.address %q is not a valid MAC address", c.Sign.Address)
		}
	}
	if strings.TrimSpace(c.Sign.AnimationsDir) == "" {
		return errors.New("sign.animations_dir must be set")
	}
	if err := ensurePositiveMap(map[string]int{
		"sign.connect_timeout": c.Sign.ConnectTimeout,
		"sign.connect_retries": c.Sign.ConnectRetries,
		"sign.reconnect_delay": c.Sign.ReconnectDelay,
		"sign.send_timeout":    c.Sign.SendTimeout,
		"sign.stop_timeout":    c.Sign.StopTimeout,
	}); err != nil {
		return err
	}
	if c.Sign.QueueLimit < 0 {
		return errors.New("sign.queue_limit must be zero or positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
