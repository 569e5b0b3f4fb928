// Package config handles configuration loading for stigmergy projects.
// It layers built-in defaults, a project config file, and environment
// variables.
package config

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	// StateFileName is the canonical name of the shared state document.
	StateFileName = "PROJECT_SPEC.json"
	// configName is the project config file, resolved inside ProjectDir.
	configName = ".stigmergy"
)

// Config holds all configuration for a stigmergy project.
type Config struct {
	Project   ProjectConfig   `mapstructure:"project"`
	Agent     AgentConfig     `mapstructure:"agent"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Watch     WatchConfig     `mapstructure:"watch"`
}

// ProjectConfig holds the shared-state location settings.
type ProjectConfig struct {
	// Dir is the project root holding the state document and views.
	Dir string `mapstructure:"dir"`
	// Name overrides the project name recorded in a new document;
	// empty means the directory name.
	Name string `mapstructure:"name"`
	// Backend selects the store: "file" or "sqlite".
	Backend string `mapstructure:"backend"`
}

// AgentConfig holds per-agent settings.
type AgentConfig struct {
	// Identity is the default agent identity for work cycles.
	Identity string `mapstructure:"identity"`
	// LogPath is the local debug log file; empty disables logging.
	LogPath string `mapstructure:"log_path"`
	// CapabilitiesFile optionally replaces the compiled capability
	// table; resolved relative to the project dir when not absolute.
	CapabilitiesFile string `mapstructure:"capabilities_file"`
	// Tester is the identity that receives synthesized testing tasks.
	Tester string `mapstructure:"tester"`
}

// DiscoveryConfig holds opportunistic work discovery settings.
type DiscoveryConfig struct {
	// Enabled toggles opportunistic discovery in idle cycles.
	Enabled bool `mapstructure:"enabled"`
	// Pattern is the file glob scanned inside the project dir.
	Pattern string `mapstructure:"pattern"`
	// MinSizeBytes is the smallest file worth a review task.
	MinSizeBytes int64 `mapstructure:"min_size_bytes"`
}

// WatchConfig holds settings for the watch loop.
type WatchConfig struct {
	// DebounceMillis collapses bursts of filesystem events.
	DebounceMillis int `mapstructure:"debounce_millis"`
}

// Load reads configuration for the given project directory.
// Precedence (highest to lowest): STIGMERGY_* environment variables,
// <projectDir>/.stigmergy.yaml, built-in defaults.
func Load(projectDir string) (*Config, error) {
	v := viper.New()
	setDefaults(v, projectDir)

	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath(projectDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading project config: %w", err)
		}
	}

	v.SetEnvPrefix("STIGMERGY")
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if cfg.Project.Name == "" {
		cfg.Project.Name = filepath.Base(cfg.Project.Dir)
	}
	if cfg.Agent.CapabilitiesFile != "" && !filepath.IsAbs(cfg.Agent.CapabilitiesFile) {
		cfg.Agent.CapabilitiesFile = filepath.Join(cfg.Project.Dir, cfg.Agent.CapabilitiesFile)
	}
	return cfg, nil
}

// StatePath returns the path of the state document for this config.
func (c *Config) StatePath() string {
	return filepath.Join(c.Project.Dir, StateFileName)
}

func setDefaults(v *viper.Viper, projectDir string) {
	v.SetDefault("project.dir", projectDir)
	v.SetDefault("project.backend", "file")
	v.SetDefault("agent.tester", "codebuddy")
	v.SetDefault("discovery.enabled", false)
	v.SetDefault("discovery.pattern", "*.py")
	v.SetDefault("discovery.min_size_bytes", 200)
	v.SetDefault("watch.debounce_millis", 250)
}
