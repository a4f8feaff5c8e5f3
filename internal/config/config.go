// Package config handles Valet configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./valet.yaml, ~/.config/valet/config.yaml, /etc/valet/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"valet.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "valet", "config.yaml"))
	}

	paths = append(paths, "/etc/valet/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all Valet configuration.
type Config struct {
	Listen    ListenConfig    `yaml:"listen"`
	Anthropic AnthropicConfig `yaml:"anthropic"`
	Models    ModelsConfig    `yaml:"models"`
	Mail      MailConfig      `yaml:"mail"`
	Uploads   UploadsConfig   `yaml:"uploads"`
	ShellExec ShellExecConfig `yaml:"shell_exec"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	History   HistoryConfig   `yaml:"history"`
	DataDir   string          `yaml:"data_dir"`
	AdminIDs  []string        `yaml:"admin_ids"`
	LogLevel  string          `yaml:"log_level"`
}

// ListenConfig defines the webhook server settings.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`
}

// AnthropicConfig defines Anthropic API settings.
type AnthropicConfig struct {
	APIKey string `yaml:"api_key"`
}

// ModelsConfig defines the fast/complex model tiers used by the router.
type ModelsConfig struct {
	Fast    string `yaml:"fast"`    // low-latency tier for simple requests
	Complex string `yaml:"complex"` // high-quality tier for multi-step work
}

// MailConfig defines the optional linked IMAP account. When Host is
// empty, mail tools are not exposed to the model.
type MailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	TLS      bool   `yaml:"tls"`
}

// Linked reports whether a mail account is configured.
func (m MailConfig) Linked() bool {
	return m.Host != "" && m.Username != ""
}

// UploadsConfig defines the per-caller file sandbox root. Each caller
// gets its own subdirectory under Root; file tool paths resolve inside
// it for non-admin callers.
type UploadsConfig struct {
	Root string `yaml:"root"`
}

// ShellExecConfig defines shell execution capabilities.
type ShellExecConfig struct {
	// Enabled allows shell command execution. Disabled by default for safety.
	Enabled bool `yaml:"enabled"`
	// WorkingDir sets the default working directory for commands.
	WorkingDir string `yaml:"working_dir"`
	// DeniedPatterns are command patterns to block (e.g., "rm -rf /").
	DeniedPatterns []string `yaml:"denied_patterns"`
	// DefaultTimeoutSec is the default timeout in seconds (default 30).
	DefaultTimeoutSec int `yaml:"default_timeout_sec"`
}

// SchedulerConfig defines the reminder scheduler.
type SchedulerConfig struct {
	Enabled bool `yaml:"enabled"`
	// PollIntervalSec is how often one-shot reminders are checked (default 30).
	PollIntervalSec int `yaml:"poll_interval_sec"`
}

// HistoryConfig controls conversation history retention and compression.
type HistoryConfig struct {
	// KeepRecent is the number of recent turns kept verbatim (default 10).
	KeepRecent int `yaml:"keep_recent"`
	// CompressThreshold is the minimum size of the older segment before
	// summarization kicks in (default 15).
	CompressThreshold int `yaml:"compress_threshold"`
}

// Load reads configuration from a YAML file. Environment variables in
// the file body (e.g. ${ANTHROPIC_API_KEY}) are expanded before parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		Listen:  ListenConfig{Port: 8080},
		DataDir: "data",
		Models: ModelsConfig{
			Fast:    "claude-haiku-3-20240307",
			Complex: "claude-sonnet-4-20250514",
		},
		Mail: MailConfig{Port: 993, TLS: true},
		ShellExec: ShellExecConfig{
			DefaultTimeoutSec: 30,
		},
		Scheduler: SchedulerConfig{
			Enabled:         true,
			PollIntervalSec: 30,
		},
		History: HistoryConfig{
			KeepRecent:        10,
			CompressThreshold: 15,
		},
	}
}

// Validate checks configuration consistency beyond YAML shape.
func (c *Config) Validate() error {
	if c.Anthropic.APIKey == "" {
		return fmt.Errorf("anthropic.api_key is required")
	}
	if c.Models.Fast == "" || c.Models.Complex == "" {
		return fmt.Errorf("models.fast and models.complex are required")
	}
	if c.Listen.Port <= 0 || c.Listen.Port > 65535 {
		return fmt.Errorf("listen.port %d out of range", c.Listen.Port)
	}
	return nil
}
