package middleware

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/partpulse/partpulse/internal/api/metrics"
)

const limiterPrefix = "partpulse:limiter"

// NewLimiterStore returns a Redis-backed store when rdb is set, an in-memory one otherwise.
func NewLimiterStore(rdb *redis.Client) (limiter.Store, error) {
	if rdb == nil {
		return memory.NewStoreWithOptions(limiter.StoreOptions{Prefix: limiterPrefix}), nil
	}
	return sredis.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: limiterPrefix, MaxRetry: 3})
}

// RateLimit limits requests per client IP within bucket. Store failures let
// the request through.
func RateLimit(store limiter.Store, rate limiter.Rate, bucket string, log zerolog.Logger) echo.MiddlewareFunc {
	instance := limiter.New(store, rate)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := bucket + ":" + ClientIP(c.Request())
			lctx, err := instance.Get(c.Request().Context(), key)
			if err != nil {
				log.Warn().Err(err).Str("bucket", bucket).Msg("rate limiter unavailable")
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

			if lctx.Reached {
				metrics.RateLimitedTotal.WithLabelValues(bucket).Inc()
				return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests, please try again later")
			}
			return next(c)
		}
	}
}
