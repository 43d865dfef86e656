// Package config loads inventory configuration and resolves account targets.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cloudtally/cloudtally/types"
)

const (
	defaultRegion      = "ap-northeast-2"
	defaultSessionName = "cloudtally"
	defaultWorkers     = 4
	defaultStorePath   = "cloudtally.db"
)

// defaultRegions are inventoried when the config names none.
var defaultRegions = []string{"us-east-1", "ap-northeast-2"}

// defaultServices are inventoried when the config names none.
var defaultServices = []string{"workspaces", "ec2", "s3", "rds"}

// Config is the root configuration structure.
type Config struct {
	DefaultRegion string          `yaml:"default_region"`
	Regions       []string        `yaml:"regions"`
	Services      []string        `yaml:"services"`
	SessionName   string          `yaml:"session_name"`
	ExternalID    string          `yaml:"external_id"`
	Workers       int             `yaml:"workers"`
	Accounts      []AccountConfig `yaml:"accounts"`

	// AccountsSpec is the legacy "id:arn,id:arn" form. Used only when the
	// structured list is empty.
	AccountsSpec string `yaml:"accounts_spec"`

	Output OutputConfig `yaml:"output"`
}

// AccountConfig is one structured account entry.
type AccountConfig struct {
	AccountID  string `yaml:"account_id"`
	RoleARN    string `yaml:"role_arn"`
	ExternalID string `yaml:"external_id"`
}

// OutputConfig holds sink settings.
type OutputConfig struct {
	Path      string `yaml:"path"`
	StorePath string `yaml:"store_path"`
}

// Load reads and parses a YAML config file, then applies environment
// overrides and defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is intentional user input
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnv(cfg)
	applyDefaults(cfg)

	return cfg, nil
}

// Default returns a configuration built purely from environment and defaults.
func Default() *Config {
	cfg := &Config{}
	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("CLOUDTALLY_SERVICES"); v != "" {
		cfg.Services = splitList(v)
	}
	if v := os.Getenv("CLOUDTALLY_ACCOUNTS"); v != "" {
		cfg.AccountsSpec = v
	}
	if v := os.Getenv("CLOUDTALLY_EXTERNAL_ID"); v != "" {
		cfg.ExternalID = v
	}
	if v := os.Getenv("CLOUDTALLY_REGION"); v != "" {
		cfg.DefaultRegion = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.DefaultRegion == "" {
		cfg.DefaultRegion = defaultRegion
	}
	if len(cfg.Regions) == 0 {
		cfg.Regions = append([]string(nil), defaultRegions...)
	}
	if len(cfg.Services) == 0 {
		cfg.Services = append([]string(nil), defaultServices...)
	}
	if cfg.SessionName == "" {
		cfg.SessionName = defaultSessionName
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.Output.StorePath == "" {
		cfg.Output.StorePath = defaultStorePath
	}
}

// Validate checks the configuration is usable for a run.
func (c *Config) Validate() error {
	if len(c.Regions) == 0 {
		return &types.ConfigurationError{Reason: "at least one region required"}
	}
	if len(c.Accounts) == 0 && c.AccountsSpec == "" {
		return &types.ConfigurationError{Reason: "no accounts configured"}
	}
	return nil
}

// AccountTargets resolves both account forms into the normalized target
// list the orchestrator consumes. The structured list wins when present.
func (c *Config) AccountTargets() ([]types.AccountTarget, error) {
	var targets []types.AccountTarget

	if len(c.Accounts) > 0 {
		for _, account := range c.Accounts {
			externalID := account.ExternalID
			if externalID == "" {
				externalID = c.ExternalID
			}
			targets = append(targets, types.AccountTarget{
				AccountID:   account.AccountID,
				RoleARN:     account.RoleARN,
				SessionName: c.SessionName,
				ExternalID:  externalID,
			})
		}
	} else if c.AccountsSpec != "" {
		targets = ParseAccountsSpec(c.AccountsSpec, c.SessionName, c.ExternalID)
	}

	if len(targets) == 0 {
		return nil, &types.ConfigurationError{Reason: "no accounts configured"}
	}

	for _, target := range targets {
		if err := target.Validate(); err != nil {
			return nil, &types.ConfigurationError{Reason: err.Error()}
		}
	}
	return targets, nil
}

// ParseAccountsSpec parses the legacy comma-separated account form:
// "123456789012:arn:aws:iam::123456789012:role/Role1,987654321098:arn:...".
// Entries without an embedded role ARN are skipped.
func ParseAccountsSpec(spec, sessionName, externalID string) []types.AccountTarget {
	var targets []types.AccountTarget

	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if !strings.Contains(entry, ":arn:aws:iam::") {
			continue
		}
		parts := strings.SplitN(entry, ":", 2)
		if len(parts) != 2 {
			continue
		}
		targets = append(targets, types.AccountTarget{
			AccountID:   strings.TrimSpace(parts[0]),
			RoleARN:     strings.TrimSpace(parts[1]),
			SessionName: sessionName,
			ExternalID:  externalID,
		})
	}
	return targets
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
