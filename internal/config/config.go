package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "METRICS_"

// MaxPageSize is the largest page GitHub GraphQL accepts.
const MaxPageSize = 100

// DefaultFiles are read in order when no explicit config file is given.
var DefaultFiles = []string{"settings.yaml", ".secrets.yaml"}

// ReviewerTeams names the GitHub team slugs holding each reviewer tier.
type ReviewerTeams struct {
	Tier1 string `yaml:"tier1"`
	Tier2 string `yaml:"tier2"`
}

type Config struct {
	Token        string                   `yaml:"gh_token"`
	Org          string                   `yaml:"gh_org"`
	Repo         string                   `yaml:"gh_repo"`
	APIURL       string                   `yaml:"api_url"`
	PageSize     int                      `yaml:"page_size"`
	PRCount      int                      `yaml:"pr_count"`
	OutputPrefix string                   `yaml:"metrics_output_file_prefix"`
	OutputDir    string                   `yaml:"output_dir"`
	Listen       string                   `yaml:"listen_addr"`
	IgnoredUsers []string                 `yaml:"ignored_logins"`
	Teams        map[string]ReviewerTeams `yaml:"reviewer_teams"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Org:          "SatelliteQE",
		Repo:         "robottelo",
		PageSize:     MaxPageSize,
		PRCount:      100,
		OutputPrefix: "gathered-metrics",
		OutputDir:    "metrics_output",
		Listen:       ":8080",
		Teams: map[string]ReviewerTeams{
			"SatelliteQE/robottelo": {Tier1: "tier-1-reviewers", Tier2: "tier-2-reviewers"},
		},
	}
}

// Load builds the configuration from defaults, the given YAML files and the
// environment. Missing files are skipped unless named explicitly.
func Load(filename string) (*Config, error) {
	cfg := Default()

	if filename != "" {
		if err := cfg.merge(filename); err != nil {
			return nil, err
		}
	} else {
		for _, f := range DefaultFiles {
			err := cfg.merge(f)
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			if err != nil {
				return nil, err
			}
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) merge(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// Team maps from separate files merge key by key.
	teams := c.Teams
	c.Teams = nil
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}
	merged := make(map[string]ReviewerTeams, len(teams)+len(c.Teams))
	for k, v := range teams {
		merged[k] = v
	}
	for k, v := range c.Teams {
		merged[k] = v
	}
	c.Teams = merged
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"GH_TOKEN":           &c.Token,
		"GH_ORG":             &c.Org,
		"GH_REPO":            &c.Repo,
		"API_URL":            &c.APIURL,
		"OUTPUT_FILE_PREFIX": &c.OutputPrefix,
		"OUTPUT_DIR":         &c.OutputDir,
		"LISTEN_ADDR":        &c.Listen,
	}
	for key, dst := range str {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	if c.Token == "" {
		if v, ok := lookup("GITHUB_TOKEN"); ok {
			c.Token = v
		}
	}

	ints := map[string]*int{
		"PAGE_SIZE": &c.PageSize,
		"PR_COUNT":  &c.PRCount,
	}
	for key, dst := range ints {
		v, ok := lookup(EnvPrefix + key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s%s: %w", EnvPrefix, key, err)
		}
		*dst = n
	}

	if v, ok := lookup(EnvPrefix + "IGNORED_LOGINS"); ok && v != "" {
		c.IgnoredUsers = strings.Split(v, ",")
	}
	return nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.PageSize <= 0 || c.PageSize > MaxPageSize {
		return fmt.Errorf("page_size must be between 1 and %d, got %d", MaxPageSize, c.PageSize)
	}
	if c.PRCount <= 0 {
		return fmt.Errorf("pr_count must be positive, got %d", c.PRCount)
	}
	return nil
}

// ReviewerTeams returns the tier team slugs configured for org/repo.
// ok is false when the pair is missing or names only one tier.
func (c *Config) ReviewerTeams(org, repo string) (teams ReviewerTeams, ok bool) {
	key := org + "/" + repo
	for k, t := range c.Teams {
		if strings.EqualFold(k, key) {
			return t, t.Tier1 != "" && t.Tier2 != ""
		}
	}
	return ReviewerTeams{}, false
}
