package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticket-reservation/internal/config"
)

const secret = "test-secret"

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func serve(mw []echo.MiddlewareFunc, authz string) *httptest.ResponseRecorder {
	e := echo.New()
	h := func(c echo.Context) error {
		id, _ := UserID(c)
		return c.String(http.StatusOK, id)
	}
	e.GET("/x", h, mw...)
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	mw := []echo.MiddlewareFunc{JWTAuth(secret)}
	exp := time.Now().Add(time.Hour).Unix()

	rec := serve(mw, "Bearer "+sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{"sub": "user-7", "role": RoleCustomer, "exp": exp}))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-7", rec.Body.String())

	rec = serve(mw, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(mw, "Bearer "+sign(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"sub": "u", "exp": exp}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(mw, "Bearer "+sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{"sub": "u", "exp": time.Now().Add(-time.Minute).Unix()}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "expired")

	rec = serve(mw, "Bearer "+sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{"role": RoleCustomer, "exp": exp}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "no subject")

	rec = serve(mw, "Bearer "+sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{"sub": float64(42), "exp": exp}))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "42", rec.Body.String())
}

func TestRequireRole(t *testing.T) {
	mw := []echo.MiddlewareFunc{JWTAuth(secret), RequireRole(RoleOrganizer)}
	exp := time.Now().Add(time.Hour).Unix()

	rec := serve(mw, "Bearer "+sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{"sub": "u", "role": RoleCustomer, "exp": exp}))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(mw, "Bearer "+sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{"sub": "u", "role": RoleOrganizer, "exp": exp}))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddlewaresPassThroughWithoutRedis(t *testing.T) {
	mw := []echo.MiddlewareFunc{
		NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1}, nil),
		NewRedisCache(config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}}, nil),
	}
	for i := 0; i < 3; i++ {
		rec := serve(mw, "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("X-Cache"))
	}
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/events/ev1/queue", nil)
	req.Header.Set("X-Real-IP", "10.0.0.9")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/events/:id/queue")
	c.Set("user_id", "u1")

	assert.Equal(t, "rl:user:u1:route:POST /v1/events/:id/queue", buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user_route"}, c))
	assert.Equal(t, "rl:ip:10.0.0.9", buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip"}, c))
}

func TestCacheKeySeparatesPathParams(t *testing.T) {
	e := echo.New()
	cfg := config.CacheConfig{Prefix: "cache"}
	key := func(path string) string {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, path, nil), httptest.NewRecorder())
		c.SetPath("/v1/seating-plans/:id")
		return cacheKeyFrom(cfg, c)
	}
	assert.NotEqual(t, key("/v1/seating-plans/a"), key("/v1/seating-plans/b"))
	assert.Equal(t, key("/v1/seating-plans/a"), key("/v1/seating-plans/a"))
}

func TestCachedPayloadDecoding(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"id":"p1"}`))
	require.NoError(t, err)

	status, got, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, `{"id":"p1"}`, string(body))

	_, _, _, ok = decodePayload(bs[:5])
	assert.False(t, ok)
}
