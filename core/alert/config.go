package alert

import "time"

// Config defines alert engine thresholds.
type Config struct {
	// ScanIntervalSeconds is the period of the background evaluation
	// loop.
	ScanIntervalSeconds int `json:"scan_interval_seconds"`
	// LicenseLookaheadDays is how far ahead of a license expiry the
	// warning is raised.
	LicenseLookaheadDays int `json:"license_lookahead_days"`
	// PendingWarnMinutes is how long a request may stay pending before
	// a warning alert.
	PendingWarnMinutes int `json:"pending_warn_minutes"`
	// PendingHighMinutes is the second threshold after which the
	// pending alert escalates to high severity.
	PendingHighMinutes int `json:"pending_high_minutes"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.ScanIntervalSeconds <= 0 {
		c.ScanIntervalSeconds = 30
	}
	if c.LicenseLookaheadDays <= 0 {
		c.LicenseLookaheadDays = 30
	}
	if c.PendingWarnMinutes <= 0 {
		c.PendingWarnMinutes = 15
	}
	if c.PendingHighMinutes <= c.PendingWarnMinutes {
		c.PendingHighMinutes = c.PendingWarnMinutes * 3
	}
}

// ScanInterval returns the loop period as a duration.
func (c Config) ScanInterval() time.Duration {
	return time.Duration(c.ScanIntervalSeconds) * time.Second
}
