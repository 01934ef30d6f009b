package config

import (
    "os"
    "strconv"
    "strings"
    "time"
)

// RateLimitConfig configures the Redis token bucket.  Booking routes use
// Capacity; the seat-holding and payment routes draw from a tighter
// WriteCapacity bucket so one client cannot sweep a seat map.
type RateLimitConfig struct {
    Enabled          bool
    Capacity         int
    WriteCapacity    int
    RefillTokens     int
    RefillInterval   time.Duration
    TTL              time.Duration
    KeyStrategy      string
    WriteKeyStrategy string // keys the write bucket, per booking session by default
    Prefix           string
    Debug            bool
}

func LoadRateLimitConfig() RateLimitConfig {
    def := RateLimitConfig{
        Enabled:          envBool("RATE_LIMIT_ENABLED", true),
        Capacity:         envInt("RATE_LIMIT_CAPACITY", 60),
        WriteCapacity:    envInt("RATE_LIMIT_WRITE_CAPACITY", 20),
        RefillTokens:     envInt("RATE_LIMIT_REFILL_TOKENS", 1),
        RefillInterval:   envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
        TTL:              envDur("RATE_LIMIT_TTL", 10*time.Minute),
        KeyStrategy:      envStr("RATE_LIMIT_KEY_STRATEGY", "ip_user_route"),
        WriteKeyStrategy: envStr("RATE_LIMIT_WRITE_KEY_STRATEGY", "ip_session_route"),
        Prefix:           envStr("RATE_LIMIT_PREFIX", "booking:rl"),
        Debug:            envBool("RATE_LIMIT_DEBUG", false),
    }
    if b := envInt("RATE_LIMIT_BURST", -1); b > 0 { def.Capacity = b }
    if every := envDur("RATE_LIMIT_REFILL_EVERY", 0); every > 0 {
        def.RefillTokens = 1
        def.RefillInterval = every
    }
    if def.Capacity < 1 { def.Capacity = 1 }
    if def.WriteCapacity < 1 || def.WriteCapacity > def.Capacity { def.WriteCapacity = def.Capacity }
    if def.RefillTokens < 1 { def.RefillTokens = 1 }
    if def.RefillInterval <= 0 { def.RefillInterval = time.Second }
    minTTL := 5 * def.RefillInterval
    if def.TTL < minTTL { def.TTL = minTTL }
    return def
}

// Write returns a copy limited to WriteCapacity and keyed by
// WriteKeyStrategy under its own key prefix.
func (c RateLimitConfig) Write() RateLimitConfig {
    c.Capacity = c.WriteCapacity
    if c.WriteKeyStrategy != "" {
        c.KeyStrategy = c.WriteKeyStrategy
    }
    c.Prefix += ":w"
    return c
}

func envStr(k, d string) string { if v := os.Getenv(k); v != "" { return v }; return d }
func envBool(k string, d bool) bool {
    v := strings.ToLower(os.Getenv(k))
    if v == "" { return d }
    switch v {
    case "1", "true", "yes", "on": return true
    case "0", "false", "no", "off": return false
    }
    return d
}
func envInt(k string, d int) int {
    v := os.Getenv(k); if v == "" { return d }
    if n, err := strconv.Atoi(v); err == nil { return n }
    return d
}
func envDur(k string, d time.Duration) time.Duration {
    v := os.Getenv(k); if v == "" { return d }
    if dur, err := time.ParseDuration(v); err == nil { return dur }
    return d
}
