package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jafarshop/variantcart/internal/domain"
	"github.com/jafarshop/variantcart/internal/repository"
	"github.com/jafarshop/variantcart/internal/service"
)

const IdempotencyKeyHeader = "Idempotency-Key"

const idempotencyReplayKey = "idempotency_replay"

// IdempotencyMiddleware makes cart mutations safe to retry. The key is reserved before the
// handler runs, so overlapping requests with the same key cannot both mutate: the loser gets
// 409 while the first is in flight, and a replay once it completed. A replay is marked so the
// handler answers with the current cart without mutating it again; the same key with a
// different body (or for a different cart) is a conflict. A reservation is released when the
// handler does not succeed, so the request can be retried. Must run after the middleware
// that identifies the cart (customer or guest session).
func IdempotencyMiddleware(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Only apply to POST/PUT/PATCH requests
		if c.Request.Method != http.MethodPost && c.Request.Method != http.MethodPut && c.Request.Method != http.MethodPatch {
			c.Next()
			return
		}

		idempotencyKey := c.GetHeader(IdempotencyKeyHeader)
		if idempotencyKey == "" {
			c.Next()
			return
		}

		subject := idempotencySubject(c)

		// Read request body
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			logger.Error("Failed to read request body for idempotency", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process request", "code": "internal"})
			c.Abort()
			return
		}

		// Restore body for handler
		c.Request.Body = io.NopCloser(bytes.NewBuffer(body))

		// Calculate request hash over the route and the body
		hash := sha256.Sum256(append([]byte(c.Request.Method+" "+c.FullPath()+"\n"), body...))
		requestHash := hex.EncodeToString(hash[:])

		reserved, existing, err := service.ReserveIdempotencyKey(c.Request.Context(), repos.IdempotencyKey, &domain.IdempotencyKey{
			Key:         idempotencyKey,
			Subject:     subject,
			RequestHash: requestHash,
		})
		if err != nil {
			logger.Error("Failed to reserve idempotency key", zap.Error(err), zap.String("key", idempotencyKey))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process request", "code": "internal"})
			c.Abort()
			return
		}

		if !reserved {
			switch {
			case existing.Subject != subject || existing.RequestHash != requestHash:
				// Same key, different payload - conflict
				c.JSON(http.StatusConflict, gin.H{
					"error": "idempotency key conflict: same key used with different payload",
					"code":  "conflict",
				})
				c.Abort()
			case !existing.Completed:
				c.JSON(http.StatusConflict, gin.H{
					"error": "a request with this idempotency key is still in progress",
					"code":  "idempotency_in_progress",
				})
				c.Abort()
			default:
				c.Set(idempotencyReplayKey, true)
				c.Next()
			}
			return
		}

		c.Next()

		// The outcome is recorded even when the client went away
		ctx := context.WithoutCancel(c.Request.Context())
		if c.Writer.Status() >= http.StatusMultipleChoices {
			if err := repos.IdempotencyKey.Delete(ctx, idempotencyKey); err != nil {
				logger.Error("Failed to release idempotency key", zap.Error(err), zap.String("key", idempotencyKey))
			}
			return
		}
		if err := repos.IdempotencyKey.Complete(ctx, idempotencyKey); err != nil {
			logger.Error("Failed to complete idempotency key", zap.Error(err), zap.String("key", idempotencyKey))
		}
	}
}

// IsIdempotentReplay reports whether the request repeats an already applied mutation
func IsIdempotentReplay(c *gin.Context) bool {
	return c.GetBool(idempotencyReplayKey)
}

func idempotencySubject(c *gin.Context) string {
	if id, ok := GetCustomerFromContext(c); ok {
		return "customer:" + id
	}
	if id, ok := GetGuestSessionFromContext(c); ok {
		return "guest:" + id
	}
	return ""
}
