package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/godbus/dbus/v5"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDBus(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic == "" {
		return nil
	}
	parsed, err := url.Parse(topic)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("notifications.ntfy_topic: expected an http(s) topic URL, got %q", topic)
	}
	return nil
}

func (c *Config) validateDBus() error {
	switch c.DBus.Bus {
	case BusAddress:
		if c.DBus.Address == "" {
			return errors.New("dbus.address must be set when dbus.bus is \"address\"")
		}
	case BusSystem, BusSession:
	default:
		return fmt.Errorf("dbus.bus: unsupported value %q (want address, system or session)", c.DBus.Bus)
	}
	if !validBusName(c.DBus.Service) {
		return fmt.Errorf("dbus.service: invalid bus name %q", c.DBus.Service)
	}
	if !dbus.ObjectPath(c.DBus.RootPath).IsValid() {
		return fmt.Errorf("dbus.root_path: invalid object path %q", c.DBus.RootPath)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func validBusName(name string) bool {
	if name == "" || len(name) > 255 || strings.HasPrefix(name, ":") {
		return false
	}
	elements := strings.Split(name, ".")
	if len(elements) < 2 {
		return false
	}
	for _, element := range elements {
		if element == "" || (element[0] >= '0' && element[0] <= '9') {
			return false
		}
		for _, r := range element {
			if !isNameRune(r) && r != '-' {
				return false
			}
		}
	}
	return true
}

func isNameRune(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
