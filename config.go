package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Title        string `yaml:"title"`
	Root         string `yaml:"root"`
	SidebarWidth int    `yaml:"sidebar_width"`
	Theme        string `yaml:"theme"`
	EnvProfile   string `yaml:"env_profile"`
	GitLabURL    string `yaml:"gitlab_url"`
	GitLabToken  string `yaml:"gitlab_token"`
}

func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) normalize() {
	c.Root = strings.TrimSpace(c.Root)
	if c.Root == "" {
		c.Root = "."
	}
	if abs, err := filepath.Abs(c.Root); err == nil {
		c.Root = abs
	}

	if strings.TrimSpace(c.Title) == "" {
		title := filepath.Base(c.Root)
		if title == "" || title == "." || title == string(filepath.Separator) {
			title = "termdeck"
		}
		c.Title = title
	}

	if c.SidebarWidth == 0 {
		c.SidebarWidth = 32
	}
	c.Theme = strings.ToLower(strings.TrimSpace(c.Theme))
	c.EnvProfile = strings.ToLower(strings.TrimSpace(c.EnvProfile))
	if c.EnvProfile == "" {
		c.EnvProfile = "dev"
	}

	c.GitLabURL = strings.TrimSpace(c.GitLabURL)
	c.GitLabToken = strings.TrimSpace(c.GitLabToken)
	if c.GitLabToken == "" {
		c.GitLabToken = strings.TrimSpace(os.Getenv("GITLAB_TOKEN"))
	}
}

func (c Config) validate() error {
	if c.Theme != "" && c.Theme != "auto" && c.Theme != "light" && c.Theme != "dark" {
		return fmt.Errorf("theme must be one of auto, light, or dark")
	}
	if _, ok := ParseEnvProfile(c.EnvProfile); !ok {
		return fmt.Errorf("env_profile must be one of dev, staging, or prod")
	}
	if c.SidebarWidth < 0 {
		return fmt.Errorf("sidebar_width must not be negative")
	}
	return nil
}

// Profile returns the parsed env profile; the zero value is dev.
func (c Config) Profile() EnvProfile {
	p, _ := ParseEnvProfile(c.EnvProfile)
	return p
}
