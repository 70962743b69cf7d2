package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationResult represents the result of configuration validation
type ValidationResult struct {
	Valid    bool
	Errors   []ConfigValidationError
	Warnings []string
}

// ConfigValidationError represents a configuration validation error
type ConfigValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ConfigValidationError) Error() string {
	return fmt.Sprintf("config validation error in %s: %s (value: %v)", e.Field, e.Message, e.Value)
}

// ValidateConfig performs comprehensive validation on a configuration
func ValidateConfig(config *Config) *ValidationResult {
	result := &ValidationResult{
		Valid:    true,
		Errors:   []ConfigValidationError{},
		Warnings: []string{},
	}

	// Validate timeout
	if config.Timeout < 0 {
		result.Valid = false
		result.Errors = append(result.Errors, ConfigValidationError{
			Field:   "timeout",
			Value:   config.Timeout,
			Message: "timeout must not be negative",
		})
	} else if config.Timeout > 300 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("timeout of %.1f seconds is very high, may cause long delays", config.Timeout))
	}

	// Validate retries
	if config.MaxHTTPRetries < 0 {
		result.Valid = false
		result.Errors = append(result.Errors, ConfigValidationError{
			Field:   "max_http_retries",
			Value:   config.MaxHTTPRetries,
			Message: "max retries must not be negative",
		})
	}

	// Validate redirects
	if config.MaxRedirects < 1 {
		result.Valid = false
		result.Errors = append(result.Errors, ConfigValidationError{
			Field:   "max_redirects",
			Value:   config.MaxRedirects,
			Message: "max redirects must be at least 1",
		})
	}

	// Validate concurrency
	if config.Concurrency <= 0 {
		result.Valid = false
		result.Errors = append(result.Errors, ConfigValidationError{
			Field:   "concurrency",
			Value:   config.Concurrency,
			Message: "concurrency must be positive",
		})
	} else if config.Concurrency > 100 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("concurrency of %d is very high, may overwhelm target servers", config.Concurrency))
	}

	validateNameservers(config, result)
	validateProxyPattern(config, result)
	validateMetricsSettings(config, result)

	return result
}

func validateNameservers(config *Config, result *ValidationResult) {
	for _, ns := range config.DNS.Nameservers {
		if !strings.Contains(ns, ":") {
			result.Warnings = append(result.Warnings, fmt.Sprintf("nameserver %q has no port, expected host:port", ns))
		}
	}
}

func validateProxyPattern(config *Config, result *ValidationResult) {
	validateEndpoint := func(field, endpoint string) {
		if endpoint == "" {
			return
		}
		parsed, err := url.Parse(endpoint)
		if err != nil || parsed.Host == "" {
			result.Valid = false
			result.Errors = append(result.Errors, ConfigValidationError{
				Field:   field,
				Value:   endpoint,
				Message: "proxy endpoint is not a valid URL",
			})
			return
		}
		switch parsed.Scheme {
		case "http", "https", "socks4", "socks4a", "socks5":
		default:
			result.Valid = false
			result.Errors = append(result.Errors, ConfigValidationError{
				Field:   field,
				Value:   endpoint,
				Message: "unsupported proxy scheme",
			})
		}
	}

	if config.Proxy.Global != nil {
		validateEndpoint("proxy.global.http", config.Proxy.Global.HTTP)
		validateEndpoint("proxy.global.https", config.Proxy.Global.HTTPS)
	}

	for i, rule := range config.Proxy.Rules {
		validateEndpoint(fmt.Sprintf("proxy.rules[%d].http", i), rule.HTTP)
		validateEndpoint(fmt.Sprintf("proxy.rules[%d].https", i), rule.HTTPS)

		if len(rule.TLDs) == 0 {
			result.Warnings = append(result.Warnings, fmt.Sprintf("proxy rule %d has no TLDs and will never match", i))
		}
		if rule.HTTP == "" && rule.HTTPS == "" {
			result.Warnings = append(result.Warnings, fmt.Sprintf("proxy rule %d has no endpoints and will be skipped", i))
		}
	}
}

func validateMetricsSettings(config *Config, result *ValidationResult) {
	if !config.Metrics.Enabled {
		return
	}
	if config.Metrics.Port <= 0 || config.Metrics.Port > 65535 {
		result.Valid = false
		result.Errors = append(result.Errors, ConfigValidationError{
			Field:   "metrics.port",
			Value:   config.Metrics.Port,
			Message: "metrics port must be between 1 and 65535",
		})
	}
}
