package config

import "time"

// RetryConfig governs re-attempts of the booking persistence step
// when the store reports a version conflict despite lock protection.
// The retry layer is a correctness backstop behind the distributed
// lock, not the primary mechanism.
type RetryConfig struct {
	MaxAttempts int           // total attempts including the first
	BaseDelay   time.Duration // backoff base; delay doubles per attempt
}

// LoadRetryConfig reads environment variables to build a RetryConfig
// with sane bounds.
func LoadRetryConfig() RetryConfig {
	cfg := RetryConfig{
		MaxAttempts: envInt("BOOKING_RETRY_ATTEMPTS", 3),
		BaseDelay:   envDur("BOOKING_RETRY_BASE_DELAY", 50*time.Millisecond),
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 50 * time.Millisecond
	}
	return cfg
}
