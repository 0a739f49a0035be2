package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	idempotencyHeader = "Idempotency-Key"
	idempotencyTTL    = 24 * time.Hour

	// inFlightTTL bounds how long a crashed request can block its key.
	inFlightTTL = time.Minute
	inFlight    = "in-flight"
)

// cachedResponse stores the response for idempotent requests.
type cachedResponse struct {
	StatusCode int             `json:"status_code"`
	Body       json.RawMessage `json:"body"`
	Headers    http.Header     `json:"headers"`
}

// responseWriter wraps gin.ResponseWriter to capture the response.
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// IdempotencyMiddleware replays the stored response of a POST carrying an
// Idempotency-Key already seen for the same user and route. A retry that arrives
// while the first attempt is still running gets 409.
func IdempotencyMiddleware(redisClient *redis.Client, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		key := c.GetHeader(idempotencyHeader)
		if key == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		cacheKey := "idempotency:" + UserID(c) + ":" + c.FullPath() + ":" + key

		reserved, err := redisClient.SetNX(ctx, cacheKey, inFlight, inFlightTTL).Result()
		if err != nil {
			log.Warn("idempotency store unavailable", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		if !reserved {
			cached, err := getCachedResponse(ctx, redisClient, cacheKey)
			switch {
			case err != nil && err != redis.Nil:
				log.Warn("idempotency lookup failed", zap.String("key", key), zap.Error(err))
				c.Next()
			case cached == nil:
				c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "request with this Idempotency-Key is in progress"})
			default:
				for k, v := range cached.Headers {
					for _, val := range v {
						c.Header(k, val)
					}
				}
				c.Header("Idempotent-Replayed", "true")
				c.Data(cached.StatusCode, "application/json", cached.Body)
				c.Abort()
			}
			return
		}

		w := &responseWriter{
			ResponseWriter: c.Writer,
			body:           &bytes.Buffer{},
		}
		c.Writer = w

		c.Next()

		// Server errors release the key so the client can retry.
		if c.Writer.Status() >= 500 {
			_ = redisClient.Del(context.WithoutCancel(ctx), cacheKey).Err()
			return
		}

		response := cachedResponse{
			StatusCode: c.Writer.Status(),
			Body:       w.body.Bytes(),
			Headers:    extractResponseHeaders(c),
		}
		if err := setCachedResponse(context.WithoutCancel(ctx), redisClient, cacheKey, &response, idempotencyTTL); err != nil {
			log.Warn("failed to store idempotent response", zap.String("key", key), zap.Error(err))
		}
	}
}

// getCachedResponse retrieves a stored response. It returns nil while the key is
// only reserved by an in-flight request.
func getCachedResponse(ctx context.Context, client *redis.Client, key string) (*cachedResponse, error) {
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}
	if string(data) == inFlight {
		return nil, nil
	}

	var cached cachedResponse
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, err
	}

	return &cached, nil
}

// setCachedResponse stores a response in Redis.
func setCachedResponse(ctx context.Context, client *redis.Client, key string, response *cachedResponse, ttl time.Duration) error {
	data, err := json.Marshal(response)
	if err != nil {
		return err
	}

	return client.Set(ctx, key, data, ttl).Err()
}

// extractResponseHeaders extracts headers to cache.
func extractResponseHeaders(c *gin.Context) http.Header {
	headers := make(http.Header)
	if ct := c.Writer.Header().Get("Content-Type"); ct != "" {
		headers.Set("Content-Type", ct)
	}
	return headers
}
