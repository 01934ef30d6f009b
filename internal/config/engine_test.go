package config

import (
    "testing"
    "time"
)

func TestLoadEngineDefaults(t *testing.T) {
    c, err := LoadEngine()
    if err != nil {
        t.Fatalf("LoadEngine: %v", err)
    }
    if c.SessionStore != "redis" || c.SessionTTL != 15*time.Minute || c.FulfillmentQueue != "tickets.issued" {
        t.Fatalf("defaults = %+v", c)
    }
    if !c.PaymentDeclineAbove.IsZero() || c.GuestTokenCost != 10 || !c.FulfillmentEnabled {
        t.Fatalf("defaults = %+v", c)
    }
}

func TestLoadEngineOverridesAndErrors(t *testing.T) {
    t.Setenv("SESSION_STORE", "Memory")
    t.Setenv("SESSION_TTL", "5m")
    t.Setenv("PAYMENT_DECLINE_ABOVE", "1500.50")
    c, err := LoadEngine()
    if err != nil {
        t.Fatalf("LoadEngine: %v", err)
    }
    if c.SessionStore != "memory" || c.SessionTTL != 5*time.Minute || c.PaymentDeclineAbove.String() != "1500.5" {
        t.Fatalf("overrides = %+v", c)
    }

    tests := []struct{ key, value string }{
        {"SESSION_STORE", "disk"},
        {"SESSION_TTL", "0s"},
        {"PAYMENT_DECLINE_ABOVE", "-1"},
        {"GUEST_TOKEN_COST", "2"},
        {"GUEST_TOKEN_COST", "many"},
    }
    for _, tt := range tests {
        t.Run(tt.key+"="+tt.value, func(t *testing.T) {
            t.Setenv(tt.key, tt.value)
            if _, err := LoadEngine(); err == nil {
                t.Fatalf("LoadEngine accepted %s=%s", tt.key, tt.value)
            }
        })
    }
}

func TestLoadRateLimitConfigClamps(t *testing.T) {
    t.Setenv("RATE_LIMIT_CAPACITY", "0")
    t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
    t.Setenv("RATE_LIMIT_TTL", "1s")
    c := LoadRateLimitConfig()
    if c.Capacity != 1 {
        t.Fatalf("capacity = %d, want clamped to 1", c.Capacity)
    }
    if c.TTL != 10*time.Second {
        t.Fatalf("ttl = %s, want 5 refill intervals", c.TTL)
    }
}

func TestRateLimitWriteBucket(t *testing.T) {
    t.Setenv("RATE_LIMIT_CAPACITY", "30")
    t.Setenv("RATE_LIMIT_WRITE_CAPACITY", "50")
    w := LoadRateLimitConfig().Write()
    if w.Capacity != 30 {
        t.Fatalf("write capacity = %d, want clamped to 30", w.Capacity)
    }
    if w.KeyStrategy != "ip_session_route" || w.Prefix != "booking:rl:w" {
        t.Fatalf("write bucket = %+v", w)
    }
}
