package config

import "time"

// LockConfig defines timing bounds for the distributed lock layer.
// WaitTime bounds how long an acquisition may block before failing;
// LeaseTime is the TTL after which an unreleased lock is force-expired
// so a crashed holder cannot block the system forever.  RetryInterval
// is how long an acquirer sleeps between polls while within WaitTime.
type LockConfig struct {
	WaitTime      time.Duration // max time to wait for all locks
	LeaseTime     time.Duration // auto-expiry lease on each lock
	RetryInterval time.Duration // polling interval while waiting
}

// LoadLockConfig reads environment variables to build a LockConfig.
// Defaults match the values the booking engine was tuned with: a 10s
// wait bound and a 30s lease.
func LoadLockConfig() LockConfig {
	cfg := LockConfig{
		WaitTime:      envDur("LOCK_WAIT_TIME", 10*time.Second),
		LeaseTime:     envDur("LOCK_LEASE_TIME", 30*time.Second),
		RetryInterval: envDur("LOCK_RETRY_INTERVAL", 50*time.Millisecond),
	}
	if cfg.WaitTime <= 0 {
		cfg.WaitTime = 10 * time.Second
	}
	if cfg.LeaseTime <= 0 {
		cfg.LeaseTime = 30 * time.Second
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 50 * time.Millisecond
	}
	return cfg
}
