package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/Avdeenko/Classifieds-backend/internal/cache"
)

func rateLimitRouter(c cache.Cache, authLimit, anonLimit int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	auth := NewAuthMiddleware(testJWTSecret, testLogger())

	router := gin.New()
	router.Use(auth.OptionalAuth())
	router.GET("/api/core/limits/", RateLimit(c, testLogger(), authLimit, anonLimit), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestRateLimit_AnonymousByIP(t *testing.T) {
	router := rateLimitRouter(cache.NewMemoryCache(), 10, 2)

	do := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/core/limits/", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, do("10.0.0.1:1234"))
	assert.Equal(t, http.StatusOK, do("10.0.0.1:1234"))
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.1:1234"))

	// Другой IP считается отдельно
	assert.Equal(t, http.StatusOK, do("10.0.0.2:1234"))
}

func TestRateLimit_AuthenticatedByUserID(t *testing.T) {
	router := rateLimitRouter(cache.NewMemoryCache(), 2, 1)

	token := signToken(t, jwt.MapClaims{
		"sub": uuid.New().String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	do := func() int {
		req := httptest.NewRequest(http.MethodGet, "/api/core/limits/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	// Лимит для аутентифицированных выше анонимного
	assert.Equal(t, http.StatusOK, do())
	assert.Equal(t, http.StatusOK, do())
	assert.Equal(t, http.StatusTooManyRequests, do())
}

func TestRateLimit_WindowReset(t *testing.T) {
	memory := cache.NewMemoryCache()
	now := time.Now()
	memory.SetClock(func() time.Time { return now })

	router := rateLimitRouter(memory, 10, 1)

	do := func() int {
		req := httptest.NewRequest(http.MethodGet, "/api/core/limits/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, do())
	assert.Equal(t, http.StatusTooManyRequests, do())

	// После истечения окна счетчик начинается заново
	now = now.Add(rateLimitWindow + time.Second)
	assert.Equal(t, http.StatusOK, do())
}

type brokenCache struct{}

func (brokenCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, errors.New("cache is down")
}

func (brokenCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return errors.New("cache is down")
}

func (brokenCache) Delete(ctx context.Context, key string) error {
	return errors.New("cache is down")
}

func (brokenCache) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	return 0, errors.New("cache is down")
}

func TestRateLimit_CacheFailureAllowsRequest(t *testing.T) {
	router := rateLimitRouter(brokenCache{}, 1, 1)

	req := httptest.NewRequest(http.MethodGet, "/api/core/limits/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
