package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	redisv9 "github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"docai/internal/logger"
	"docai/internal/transport/http/response"
)

// RateLimit limits requests per client IP. rate uses the limiter format,
// e.g. "10-M". Counters live in Redis when a client is given and in process
// memory otherwise.
func RateLimit(rate string, client *redisv9.Client) (gin.HandlerFunc, error) {
	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("parse rate limit %q failed: %w", rate, err)
	}

	var store limiter.Store
	if client != nil {
		store, err = sredis.NewStoreWithOptions(client, limiter.StoreOptions{
			Prefix: "docai:ratelimit",
		})
		if err != nil {
			return nil, fmt.Errorf("create rate limit store failed: %w", err)
		}
	} else {
		store = memory.NewStore()
	}

	return mgin.NewMiddleware(
		limiter.New(store, parsed),
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			response.Abort(c, http.StatusTooManyRequests, response.CodeTooManyRequests, "too many requests")
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			// Fail open when the store is unreachable.
			logger.FromContext(c.Request.Context()).Warn("rate limiter unavailable", "error", err)
			c.Next()
		}),
	), nil
}
