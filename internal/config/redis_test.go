package config

import (
    "testing"

    "github.com/alicebob/miniredis/v2"
)

func TestNewRedisClient(t *testing.T) {
    mr := miniredis.RunT(t)
    t.Setenv("REDIS_ADDR", mr.Addr())
    t.Setenv("REDIS_DB", "2")
    client, err := NewRedisClient()
    if err != nil {
        t.Fatalf("NewRedisClient: %v", err)
    }
    defer client.Close()
    if client.Options().DB != 2 {
        t.Fatalf("db = %d, want 2", client.Options().DB)
    }

    t.Setenv("REDIS_URL", "redis://"+mr.Addr()+"/1")
    opt, err := RedisOptions()
    if err != nil {
        t.Fatalf("RedisOptions: %v", err)
    }
    if opt.Addr != mr.Addr() || opt.DB != 1 {
        t.Fatalf("url options = %s db %d", opt.Addr, opt.DB)
    }

    mr.Close()
    t.Setenv("REDIS_URL", "")
    if _, err := NewRedisClient(); err == nil {
        t.Fatalf("NewRedisClient succeeded against a closed server")
    }
}
