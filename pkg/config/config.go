// Package config loads settings for programs that allocate access addresses
// from an HCI controller.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/muxable/lapis/pkg/addr"
	"gopkg.in/yaml.v3"
)

type CodedPHY string

const (
	// CodedPHYAuto asks the controller for its LE feature mask.
	CodedPHYAuto CodedPHY = "auto"
	CodedPHYOn   CodedPHY = "on"
	CodedPHYOff  CodedPHY = "off"
)

type Entropy string

const (
	EntropyController Entropy = "controller"
	EntropySystem     Entropy = "system"
)

type Config struct {
	// Device is the HCI device id, -1 for the first available one.
	Device      int      `yaml:"device"`
	Entropy     Entropy  `yaml:"entropy"`
	CodedPHY    CodedPHY `yaml:"coded_phy"`
	MaxAttempts uint32   `yaml:"max_attempts"`
	Count       int      `yaml:"count"`
	LogLevel    string   `yaml:"log_level"`

	// StaticAddress, if set, is programmed as the random device address.
	StaticAddress *addr.DeviceAddress `yaml:"static_address"`

	Advertise struct {
		Enabled bool   `yaml:"enabled"`
		Name    string `yaml:"name"`
	} `yaml:"advertise"`
}

func Default() *Config {
	c := &Config{
		Device:      -1,
		Entropy:     EntropyController,
		CodedPHY:    CodedPHYAuto,
		MaxAttempts: 64,
		Count:       1,
		LogLevel:    "info",
	}
	c.Advertise.Name = "lapis"
	return c
}

// Load overlays the YAML file at path on Default. An empty path returns the
// defaults.
func Load(path string) (*Config, error) {
	c := Default()
	if strings.TrimSpace(path) == "" {
		return c, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func (c *Config) Validate() error {
	switch c.Entropy {
	case EntropyController, EntropySystem:
	default:
		return fmt.Errorf("unknown entropy source %q", c.Entropy)
	}
	switch c.CodedPHY {
	case CodedPHYAuto, CodedPHYOn, CodedPHYOff:
	default:
		return fmt.Errorf("unknown coded_phy setting %q", c.CodedPHY)
	}
	if c.Entropy == EntropySystem && c.CodedPHY == CodedPHYAuto {
		return errors.New("coded_phy must be on or off without a controller")
	}
	if c.MaxAttempts == 0 {
		return errors.New("max_attempts must be positive")
	}
	if c.Count < 0 {
		return errors.New("count must not be negative")
	}
	if c.StaticAddress != nil && c.StaticAddress.Kind() != addr.KindStatic {
		return fmt.Errorf("static_address %v is %v", *c.StaticAddress, c.StaticAddress.Kind())
	}
	if c.Advertise.Enabled && c.Entropy == EntropySystem {
		return errors.New("advertising requires a controller")
	}
	return nil
}

// UsesController reports whether an HCI device has to be opened.
func (c *Config) UsesController() bool {
	return c.Entropy == EntropyController || c.CodedPHY == CodedPHYAuto || c.StaticAddress != nil || c.Advertise.Enabled
}
