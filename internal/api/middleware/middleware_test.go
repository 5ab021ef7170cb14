package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jafarshop/variantcart/internal/domain"
	"github.com/jafarshop/variantcart/internal/repository/memory"
	"github.com/jafarshop/variantcart/internal/service"
)

func TestServiceKeyHash(t *testing.T) {
	hash, err := HashServiceKey("secret")
	require.NoError(t, err)
	assert.True(t, VerifyServiceKey("secret", hash))
	assert.False(t, VerifyServiceKey("Secret", hash))
	assert.False(t, VerifyServiceKey("secret", "not-a-hash"))
}

func TestValidGuestSession(t *testing.T) {
	assert.True(t, ValidGuestSession("3f2a9c1e-7b1d-4c55-9c0e-2f0a1b2c3d4e"))
	assert.True(t, ValidGuestSession("guest_1"))
	assert.False(t, ValidGuestSession(""))
	assert.False(t, ValidGuestSession("../etc/passwd"))
	assert.False(t, ValidGuestSession(strings.Repeat("a", 129)))
}

func TestIdempotencyMiddleware_ScopedToSubject(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repos := memory.NewRepositories()

	calls := 0
	router := gin.New()
	router.Use(GuestSessionMiddleware(zap.NewNop()))
	router.Use(IdempotencyMiddleware(repos, zap.NewNop()))
	router.POST("/lines", func(c *gin.Context) {
		if !IsIdempotentReplay(c) {
			calls++
		}
		c.Status(http.StatusOK)
	})

	send := func(session, body string) int {
		req := httptest.NewRequest(http.MethodPost, "/lines", strings.NewReader(body))
		req.Header.Set(GuestSessionHeader, session)
		req.Header.Set(IdempotencyKeyHeader, "k1")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("s1", `{"a":1}`))
	assert.Equal(t, http.StatusOK, send("s1", `{"a":1}`))
	assert.Equal(t, 1, calls, "replay must not reach the mutation")

	assert.Equal(t, http.StatusConflict, send("s1", `{"a":2}`))
	assert.Equal(t, http.StatusConflict, send("s2", `{"a":1}`), "another session cannot reuse the key")
	assert.Equal(t, 1, calls)
}

func TestIdempotencyMiddleware_FailedRequestDoesNotStoreKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repos := memory.NewRepositories()

	fail := true
	router := gin.New()
	router.Use(GuestSessionMiddleware(zap.NewNop()))
	router.Use(IdempotencyMiddleware(repos, zap.NewNop()))
	router.POST("/lines", func(c *gin.Context) {
		if fail {
			c.Status(http.StatusUnprocessableEntity)
			return
		}
		assert.False(t, IsIdempotentReplay(c))
		c.Status(http.StatusOK)
	})

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/lines", strings.NewReader(`{}`))
		req.Header.Set(GuestSessionHeader, "s1")
		req.Header.Set(IdempotencyKeyHeader, "k2")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusUnprocessableEntity, send())
	fail = false
	assert.Equal(t, http.StatusOK, send())
}

func TestIdempotencyMiddleware_InFlightKeyIsRejected(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repos := memory.NewRepositories()

	entered := make(chan struct{})
	release := make(chan struct{})
	calls := 0
	router := gin.New()
	router.Use(GuestSessionMiddleware(zap.NewNop()))
	router.Use(IdempotencyMiddleware(repos, zap.NewNop()))
	router.POST("/lines", func(c *gin.Context) {
		if IsIdempotentReplay(c) {
			c.Status(http.StatusOK)
			return
		}
		calls++
		close(entered)
		<-release
		c.Status(http.StatusOK)
	})

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/lines", strings.NewReader(`{"q":1}`))
		req.Header.Set(GuestSessionHeader, "s1")
		req.Header.Set(IdempotencyKeyHeader, "k3")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	first := make(chan int)
	go func() { first <- send().Code }()
	<-entered

	w := send()
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "idempotency_in_progress")

	close(release)
	assert.Equal(t, http.StatusOK, <-first)

	assert.Equal(t, http.StatusOK, send().Code, "completed key replays")
	assert.Equal(t, 1, calls)
}

func TestIdempotencyMiddleware_AbandonedReservationIsTakenOver(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repos := memory.NewRepositories()

	calls := 0
	router := gin.New()
	router.Use(GuestSessionMiddleware(zap.NewNop()))
	router.Use(IdempotencyMiddleware(repos, zap.NewNop()))
	router.POST("/lines", func(c *gin.Context) {
		if !IsIdempotentReplay(c) {
			calls++
		}
		c.Status(http.StatusOK)
	})

	require.NoError(t, repos.IdempotencyKey.Create(context.Background(), &domain.IdempotencyKey{
		Key:       "k4",
		Subject:   "guest:s1",
		CreatedAt: time.Now().Add(-2 * service.PendingKeyTimeout),
	}))

	req := httptest.NewRequest(http.MethodPost, "/lines", strings.NewReader(`{}`))
	req.Header.Set(GuestSessionHeader, "s1")
	req.Header.Set(IdempotencyKeyHeader, "k4")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, calls)
	stored, err := repos.IdempotencyKey.GetByKey(context.Background(), "k4")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, stored.Completed)
}
