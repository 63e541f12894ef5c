package jokes

import (
	"strings"
	"time"
)

const (
	DefaultBaseURL    = "https://official-joke-api.onrender.com"
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryDelay = 2 * time.Second

	RandomJokePath = "/jokes/programming/random"
	TenJokesPath   = "/jokes/programming/ten"
)

// Endpoint names accepted by Client.Fetch.
const (
	EndpointRandom = "random"
	EndpointTen    = "ten"
)

// Config controls the joke client transport and retry policy.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// DefaultConfig returns the stock client settings.
func DefaultConfig() Config {
	return Config{
		BaseURL:    DefaultBaseURL,
		Timeout:    DefaultTimeout,
		MaxRetries: DefaultMaxRetries,
		RetryDelay: DefaultRetryDelay,
	}
}

func normalizeConfig(cfg Config) Config {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = 0
	}
	return cfg
}

// ExpectedCount reports how many jokes an endpoint returns, or -1 when unknown.
func ExpectedCount(endpoint string) int {
	switch strings.ToLower(strings.TrimSpace(endpoint)) {
	case EndpointRandom:
		return 1
	case EndpointTen:
		return 10
	default:
		return -1
	}
}
