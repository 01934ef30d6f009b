package config

// Redis backs booking sessions, distributed rate limiting and the catalog
// response cache.  The engine keeps working without it: sessions fall back
// to process memory and the middlewares turn themselves off.

import (
    "context"
    "crypto/tls"
    "fmt"
    "os"
    "strconv"
    "strings"
    "time"

    "github.com/redis/go-redis/v9"
)

// RedisOptions builds client options from the environment:
//   REDIS_URL – redis:// or rediss:// URL; wins over everything below
//   REDIS_HOST and REDIS_PORT – hostname and port of the Redis server
//   REDIS_ADDR – host:port shorthand, used when host/port are not both set
//   REDIS_PASSWORD – optional password
//   REDIS_DB – database number (default 0)
//   REDIS_TLS – enable TLS when "true" or "1"
func RedisOptions() (*redis.Options, error) {
    if url := os.Getenv("REDIS_URL"); url != "" {
        opt, err := redis.ParseURL(url)
        if err != nil {
            return nil, fmt.Errorf("REDIS_URL: %w", err)
        }
        return opt, nil
    }
    host := os.Getenv("REDIS_HOST")
    port := os.Getenv("REDIS_PORT")
    addr := os.Getenv("REDIS_ADDR")
    if host != "" && port != "" {
        addr = host + ":" + port
    }
    if addr == "" {
        addr = "localhost:6379"
    }
    dbNum := 0
    if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
        n, err := strconv.Atoi(dbStr)
        if err != nil {
            return nil, fmt.Errorf("REDIS_DB: %w", err)
        }
        dbNum = n
    }
    var tlsConf *tls.Config
    if tlsEnv := os.Getenv("REDIS_TLS"); strings.EqualFold(tlsEnv, "true") || tlsEnv == "1" {
        tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
    }
    return &redis.Options{
        Addr:      addr,
        Password:  os.Getenv("REDIS_PASSWORD"),
        DB:        dbNum,
        TLSConfig: tlsConf,
    }, nil
}

// NewRedisClient connects using RedisOptions and pings the server with a
// short timeout.  On any failure the error is returned with a nil client
// and callers degrade gracefully.
func NewRedisClient() (*redis.Client, error) {
    opt, err := RedisOptions()
    if err != nil {
        return nil, err
    }
    client := redis.NewClient(opt)
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        _ = client.Close()
        return nil, fmt.Errorf("redis ping %s: %w", opt.Addr, err)
    }
    return client, nil
}
