package config

import "time"

// RateLimitConfig tunes the Redis token bucket in front of the login and
// registration routes. Fields are read from RATE_LIMIT_* variables.
type RateLimitConfig struct {
	Enabled        bool          `default:"true"`
	Capacity       int           `default:"10"`
	RefillTokens   int           `split_words:"true" default:"1"`
	RefillInterval time.Duration `split_words:"true" default:"6s"`
	TTL            time.Duration `default:"10m"`
	KeyStrategy    string        `split_words:"true" default:"ip_route"`
	Prefix         string        `default:"rl"`
	Debug          bool          `default:"false"`
}

// normalize clamps values the limiter script cannot work with.
func (c *RateLimitConfig) normalize() {
	if c.Capacity < 1 {
		c.Capacity = 1
	}
	if c.RefillTokens < 1 {
		c.RefillTokens = 1
	}
	if c.RefillInterval <= 0 {
		c.RefillInterval = time.Second
	}
	if minTTL := 5 * c.RefillInterval; c.TTL < minTTL {
		c.TTL = minTTL
	}
}
