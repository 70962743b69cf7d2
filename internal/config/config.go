package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ResistanceIsUseless/StatusHawk/internal/proxyroute"
)

// Config represents the main application configuration
type Config struct {
	// Requester settings
	Timeout           float64 `yaml:"timeout"` // seconds
	MaxHTTPRetries    int     `yaml:"max_http_retries"`
	MaxRedirects      int     `yaml:"max_redirects"`
	VerifyCertificate bool    `yaml:"verify_ssl_certificate"`
	UserAgent         string  `yaml:"user_agent"`
	UserAgentsFile    string  `yaml:"user_agents_file"`

	// Proxy routing, keyed by target TLD
	Proxy proxyroute.Pattern `yaml:"proxy"`

	// DNS resolution settings
	DNS DNSConfig `yaml:"dns"`

	// Probe selection and ordering flags
	Lookup LookupConfig `yaml:"lookup"`

	// HTTP status code classification
	HTTPCodes HTTPCodesConfig `yaml:"http_codes"`

	// Extra rules
	ExtraRulesFile string             `yaml:"extra_rules_file"`
	BuiltinRules   BuiltinRulesConfig `yaml:"builtin_rules"`

	// Reputation dataset
	ReputationFile string `yaml:"reputation_file"`

	// Worker pool
	Concurrency int `yaml:"concurrency"`

	// Metrics exposition
	Metrics MetricsConfig `yaml:"metrics"`
}

// DNSConfig contains resolver configuration
type DNSConfig struct {
	Nameservers []string `yaml:"nameservers"`
	MaxRetries  int      `yaml:"max_retries"`
	UseCache    bool     `yaml:"use_cache"`
}

// LookupConfig enables or disables individual probe stages. The probe
// order itself is fixed; these flags only skip stages.
type LookupConfig struct {
	UseReputation      bool `yaml:"use_reputation"`
	UseHTTPCode        bool `yaml:"use_http_code"`
	UseExtraRules      bool `yaml:"use_extra_rules"`
	DoSyntaxCheckFirst bool `yaml:"do_syntax_check_first"`
}

// HTTPCodesConfig classifies HTTP status codes for the HTTP probe
type HTTPCodesConfig struct {
	Up            []int `yaml:"up"`
	PotentiallyUp []int `yaml:"potentially_up"`
}

// BuiltinRulesConfig toggles the built-in extra-rule handlers
type BuiltinRulesConfig struct {
	Parked        bool `yaml:"parked"`
	SubjectSwitch bool `yaml:"subject_switch"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(filename string) (*Config, error) {
	// Check if file exists, if not, return default config
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return GetDefaultConfig(), nil
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	// Merge with defaults for any missing fields
	defaults := GetDefaultConfig()
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.MaxHTTPRetries <= 0 {
		config.MaxHTTPRetries = defaults.MaxHTTPRetries
	}
	if config.MaxRedirects <= 0 {
		config.MaxRedirects = defaults.MaxRedirects
	}
	if config.Concurrency <= 0 {
		config.Concurrency = defaults.Concurrency
	}
	if len(config.DNS.Nameservers) == 0 {
		config.DNS.Nameservers = defaults.DNS.Nameservers
	}
	if config.DNS.MaxRetries <= 0 {
		config.DNS.MaxRetries = defaults.DNS.MaxRetries
	}
	if len(config.HTTPCodes.Up) == 0 {
		config.HTTPCodes.Up = defaults.HTTPCodes.Up
	}
	if len(config.HTTPCodes.PotentiallyUp) == 0 {
		config.HTTPCodes.PotentiallyUp = defaults.HTTPCodes.PotentiallyUp
	}
	if config.UserAgent == "" {
		config.UserAgent = defaults.UserAgent
	}

	return &config, nil
}

// GetDefaultConfig returns a configuration with default values
func GetDefaultConfig() *Config {
	return &Config{
		Timeout:           3.0,
		MaxHTTPRetries:    3,
		MaxRedirects:      60,
		VerifyCertificate: false,
		UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",

		DNS: DNSConfig{
			Nameservers: []string{"8.8.8.8:53", "1.1.1.1:53"},
			MaxRetries:  3,
			UseCache:    true,
		},

		Lookup: LookupConfig{
			UseReputation:      false,
			UseHTTPCode:        true,
			UseExtraRules:      true,
			DoSyntaxCheckFirst: true,
		},

		HTTPCodes: HTTPCodesConfig{
			Up: []int{
				100, 101, 102,
				200, 201, 202, 203, 204, 205, 206, 207, 208, 226,
			},
			PotentiallyUp: []int{
				300, 301, 302, 303, 304, 305, 307, 308,
				403, 405, 406, 407, 408, 411, 413, 417,
				500, 502, 503, 504,
			},
		},

		BuiltinRules: BuiltinRulesConfig{
			Parked:        false,
			SubjectSwitch: false,
		},

		Concurrency: 10,

		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
		},
	}
}
