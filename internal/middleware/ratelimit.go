package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/campuswork/marketplace/internal/config"
	"github.com/campuswork/marketplace/internal/logger"
	"github.com/campuswork/marketplace/internal/utils"
)

// tokenBucket keeps a bucket at KEYS[1] as a fractional level that refills
// continuously at refill/interval tokens per millisecond. One request takes
// one token. It returns {allowed, whole tokens left, retry_after_ms}.
var tokenBucket = redis.NewScript(`
local now = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill = tonumber(ARGV[3])
local interval = tonumber(ARGV[4])
local ttl_ms = tonumber(ARGV[5])

local b = redis.call('HMGET', KEYS[1], 'level', 'at')
local level = tonumber(b[1]) or capacity
local at = tonumber(b[2]) or now
level = math.min(capacity, level + math.max(0, now - at) * refill / interval)

local ok, wait = 0, 0
if level >= 1 then
  ok = 1
  level = level - 1
else
  wait = math.ceil((1 - level) * interval / refill)
end

redis.call('HSET', KEYS[1], 'level', tostring(level), 'at', now)
redis.call('PEXPIRE', KEYS[1], ttl_ms)
return { ok, math.floor(level), wait }
`)

// RateLimit applies a Redis token bucket per caller, keyed by
// cfg.KeyStrategy. It is a no-op when disabled or when rdb is nil. Redis
// errors let the request through.
func RateLimit(cfg config.RateLimitConfig, rdb *redis.Client, log *zap.Logger) echo.MiddlewareFunc {
	return bucket(cfg, rdb, log, func(c echo.Context) string { return rateKey(cfg, c) })
}

// AccountRateLimit keys the bucket on the email in the JSON body, so
// password guessing against one account is limited however many addresses
// it comes from. Requests without an email fall back to the caller's IP.
func AccountRateLimit(cfg config.RateLimitConfig, rdb *redis.Client, log *zap.Logger) echo.MiddlewareFunc {
	return bucket(cfg, rdb, log, func(c echo.Context) string {
		subject := "ip:" + c.RealIP()
		if email := peekEmail(c); email != "" {
			subject = "account:" + email
		}
		return strings.Join([]string{cfg.Prefix, subject, "route", c.Path()}, ":")
	})
}

func bucket(cfg config.RateLimitConfig, rdb *redis.Client, log *zap.Logger, keyOf func(echo.Context) string) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	log = logger.OrNop(log)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := keyOf(c)
			vals, err := tokenBucket.Run(c.Request().Context(), rdb, []string{key},
				time.Now().UnixMilli(),
				cfg.Capacity,
				cfg.RefillTokens,
				cfg.RefillInterval.Milliseconds(),
				cfg.TTL.Milliseconds(),
			).Int64Slice()
			if err != nil || len(vals) != 3 {
				log.Warn("rate limit script failed", zap.String("key", key), zap.Error(err))
				return next(c)
			}
			allowed, remaining, retryMs := vals[0] == 1, vals[1], vals[2]

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if !allowed {
				secs := int(math.Ceil(float64(retryMs) / 1000.0))
				h.Set("Retry-After", strconv.Itoa(secs))
				log.Debug("rate limited", zap.String("key", key), zap.Int64("retry_ms", retryMs))
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error":       "rate limit exceeded",
					"code":        "too_many_requests",
					"retry_after": secs,
				})
			}
			return next(c)
		}
	}
}

// peekEmail reads the "email" field of a JSON body and puts the body back
// for the handler.
func peekEmail(c echo.Context) string {
	req := c.Request()
	if req.Body == nil {
		return ""
	}
	raw, err := io.ReadAll(io.LimitReader(req.Body, maxPeekBody))
	_ = req.Body.Close()
	req.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil {
		return ""
	}
	var body struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(raw, &body) != nil {
		return ""
	}
	return utils.NormalizeEmail(body.Email)
}

// maxPeekBody caps how much of a login body is buffered for keying.
const maxPeekBody = 64 << 10

func rateKey(cfg config.RateLimitConfig, c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	uid := rateSubject(c)
	route := c.Request().Method + " " + c.Path()

	parts := []string{cfg.Prefix}
	switch strings.ToLower(cfg.KeyStrategy) {
	case "ip":
		parts = append(parts, "ip", ip)
	case "user":
		parts = append(parts, "user", uid)
	case "route":
		parts = append(parts, "route", route)
	case "ip_route":
		parts = append(parts, "ip", ip, "route", route)
	case "user_route":
		parts = append(parts, "user", uid, "route", route)
	default:
		parts = append(parts, "ip", ip, "user", uid, "route", route)
	}
	return strings.Join(parts, ":")
}
