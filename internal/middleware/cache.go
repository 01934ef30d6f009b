package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/binary"
    "encoding/json"
    "fmt"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/cinema-booking-engine/internal/config"
)

// captureWriter forwards the response while keeping up to limit bytes of
// the body.  size counts every byte written so oversize bodies can be
// detected.
type captureWriter struct {
    http.ResponseWriter
    status int
    buf    bytes.Buffer
    size   int64
    limit  int64
}

func (cw *captureWriter) WriteHeader(code int) { cw.status = code; cw.ResponseWriter.WriteHeader(code) }

func (cw *captureWriter) Write(b []byte) (int, error) {
    if cw.limit <= 0 {
        cw.buf.Write(b)
    } else if remain := cw.limit - cw.size; remain > 0 {
        if int64(len(b)) <= remain {
            cw.buf.Write(b)
        } else {
            cw.buf.Write(b[:remain])
        }
    }
    cw.size += int64(len(b))
    return cw.ResponseWriter.Write(b)
}

// cacheGroup names the invalidation group of a request: every response
// under /screenings/:id belongs to that screening, everything else to the
// shared catalog group.
func cacheGroup(c echo.Context) string {
    if id := c.Param("id"); id != "" && strings.Contains(c.Path(), "/screenings/:id") {
        return "screening:" + id
    }
    return "catalog"
}

// cacheKey is <prefix>:<group>:<sha1 of the strategy parts>.  The
// concrete request path is always part of the hash so /screenings/1 and
// /screenings/2 never share an entry.
func (rc *ResponseCache) cacheKey(c echo.Context) string {
    r := c.Request()
    parts := []string{"path", r.URL.Path}
    switch strings.ToLower(rc.cfg.KeyStrategy) {
    case "route":
    case "method_route":
        parts = append(parts, "method", r.Method)
    case "method_route_query":
        parts = append(parts, "method", r.Method, "q", r.URL.RawQuery)
    default: // "route_query"
        parts = append(parts, "q", r.URL.RawQuery)
    }
    sum := sha1.Sum([]byte(strings.Join(parts, ":")))
    return fmt.Sprintf("%s:%s:%x", rc.cfg.Prefix, cacheGroup(c), sum[:])
}

// encodePayload packs: [4 bytes status][4 bytes headerLen][headerJSON][body]
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
    hdrJSON, err := json.Marshal(header)
    if err != nil {
        return nil, err
    }
    total := 4 + 4 + len(hdrJSON) + len(body)
    out := make([]byte, total)
    binary.BigEndian.PutUint32(out[0:4], uint32(status))
    binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
    copy(out[8:8+len(hdrJSON)], hdrJSON)
    copy(out[8+len(hdrJSON):], body)
    return out, nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
    if len(bs) < 8 {
        return 0, nil, nil, false
    }
    status = int(binary.BigEndian.Uint32(bs[0:4]))
    hlen := int(binary.BigEndian.Uint32(bs[4:8]))
    if 8+hlen > len(bs) || hlen < 0 {
        return 0, nil, nil, false
    }
    var hdr http.Header
    if hlen > 0 {
        if err := json.Unmarshal(bs[8:8+hlen], &hdr); err != nil {
            return 0, nil, nil, false
        }
    } else {
        hdr = make(http.Header)
    }
    body = bs[8+hlen:]
    return status, hdr, body, true
}

// ResponseCache stores successful catalog responses in Redis.  Seat maps
// go stale with every booking, so entries are grouped per screening and
// dropped by InvalidateScreening.
type ResponseCache struct {
    cfg config.CacheConfig
    rdb *redis.Client
    ttl time.Duration
}

// NewResponseCache returns a cache over rdb.  A nil client or a disabled
// config yields a cache whose middleware passes every request through.
func NewResponseCache(cfg config.CacheConfig, rdb *redis.Client) *ResponseCache {
    ttl := cfg.TTL
    if ttl <= 0 {
        ttl = 5 * time.Second
    }
    return &ResponseCache{cfg: cfg, rdb: rdb, ttl: ttl}
}

func (rc *ResponseCache) enabled() bool { return rc != nil && rc.cfg.Enabled && rc.rdb != nil }

// InvalidateScreening drops every cached response of one screening.
func (rc *ResponseCache) InvalidateScreening(ctx context.Context, screeningID uint64) error {
    if !rc.enabled() {
        return nil
    }
    pattern := fmt.Sprintf("%s:screening:%d:*", rc.cfg.Prefix, screeningID)
    iter := rc.rdb.Scan(ctx, 0, pattern, 100).Iterator()
    var keys []string
    for iter.Next(ctx) {
        keys = append(keys, iter.Val())
    }
    if err := iter.Err(); err != nil {
        return err
    }
    if len(keys) == 0 {
        return nil
    }
    return rc.rdb.Del(ctx, keys...).Err()
}

// Middleware caches 200 responses of the configured methods, headers
// included.  Requests carrying credentials bypass the cache, as do
// responses larger than MaxBodyBytes.
func (rc *ResponseCache) Middleware() echo.MiddlewareFunc {
    if !rc.enabled() {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    maxBody := int64(rc.cfg.MaxBodyBytes)

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            req := c.Request()
            if !rc.cfg.Methods[strings.ToUpper(req.Method)] || req.Header.Get("Authorization") != "" {
                return next(c)
            }
            ctx := req.Context()
            key := rc.cacheKey(c)

            if bs, err := rc.rdb.Get(ctx, key).Bytes(); err == nil {
                if status, hdr, body, ok := decodePayload(bs); ok {
                    replay(c, status, hdr, body)
                    return nil
                }
            }

            cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: maxBody}
            c.Response().Writer = cw
            c.Response().Header().Set("X-Cache", "MISS")
            if err := next(c); err != nil {
                return err
            }
            if cw.status != http.StatusOK || (maxBody > 0 && cw.size > maxBody) {
                return nil
            }
            hdr := make(http.Header, len(c.Response().Header()))
            for k, vals := range c.Response().Header() {
                if strings.EqualFold(k, "X-Cache") {
                    continue
                }
                hdr[k] = append([]string(nil), vals...)
            }
            if payload, err := encodePayload(cw.status, hdr, cw.buf.Bytes()); err == nil {
                _ = rc.rdb.Set(context.Background(), key, payload, rc.ttl).Err()
            }
            return nil
        }
    }
}

// replay writes a cached response.  Length and request id are per
// response and never replayed.
func replay(c echo.Context, status int, hdr http.Header, body []byte) {
    for k, vals := range hdr {
        if strings.EqualFold(k, "Content-Length") || strings.EqualFold(k, echo.HeaderXRequestID) {
            continue
        }
        for _, v := range vals {
            c.Response().Header().Add(k, v)
        }
    }
    c.Response().Header().Set("X-Cache", "HIT")
    c.Response().WriteHeader(status)
    if len(body) > 0 {
        _, _ = c.Response().Write(body)
    }
}
