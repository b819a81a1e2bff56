package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, method, target string, header http.Header) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	r.ServeHTTP(w, req)
	return w
}

func TestAdminAuth(t *testing.T) {
	r := gin.New()
	r.GET("/admin", AdminAuth("s3cret"), func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	tests := []struct {
		name   string
		target string
		header http.Header
		want   int
	}{
		{"no credentials", "/admin", nil, http.StatusUnauthorized},
		{"bearer", "/admin", http.Header{"Authorization": {"Bearer s3cret"}}, http.StatusOK},
		{"bearer any case", "/admin", http.Header{"Authorization": {"bearer  s3cret"}}, http.StatusOK},
		{"wrong bearer", "/admin", http.Header{"Authorization": {"Bearer nope"}}, http.StatusUnauthorized},
		{"basic scheme", "/admin", http.Header{"Authorization": {"Basic s3cret"}}, http.StatusUnauthorized},
		{"query token", "/admin?token=s3cret", nil, http.StatusOK},
		{"wrong query token", "/admin?token=nope", nil, http.StatusUnauthorized},
		{"header wins over query", "/admin?token=s3cret", http.Header{"Authorization": {"Bearer nope"}}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(r, http.MethodGet, tt.target, tt.header)
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusUnauthorized {
				assert.JSONEq(t, `{"error":"Unauthorized"}`, w.Body.String())
			}
		})
	}
}

func TestAdminAuth_DisabledWithoutToken(t *testing.T) {
	r := gin.New()
	r.GET("/admin", AdminAuth("  "), func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w := serve(r, http.MethodGet, "/admin", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimiter(t *testing.T) {
	limiter := NewIPRateLimiter(rate.Limit(1), 2, time.Minute)
	r := gin.New()
	r.GET("/", RateLimiter(limiter), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodGet, "/", nil).Code)
	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodGet, "/", nil).Code)
	w := serve(r, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, 1, limiter.Tracked())
}

func TestIPRateLimiter_SeparateBuckets(t *testing.T) {
	limiter := NewIPRateLimiter(rate.Limit(1), 1, time.Minute)

	assert.True(t, limiter.GetLimiter("10.0.0.1").Allow())
	assert.False(t, limiter.GetLimiter("10.0.0.1").Allow())
	assert.True(t, limiter.GetLimiter("10.0.0.2").Allow())
	assert.Same(t, limiter.GetLimiter("10.0.0.1"), limiter.GetLimiter("10.0.0.1"))
	assert.Equal(t, 2, limiter.Tracked())
}

func TestCache(t *testing.T) {
	calls := 0
	r := gin.New()
	r.Use(Cache(cache.New(time.Minute, time.Minute), time.Minute))
	r.GET("/menu/:slug", func(c *gin.Context) {
		calls++
		if c.Param("slug") == "missing" {
			c.JSON(http.StatusNotFound, gin.H{"error": "Restaurant not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"slug": c.Param("slug"), "calls": calls})
	})

	first := serve(r, http.MethodGet, "/menu/demo-deli", nil)
	second := serve(r, http.MethodGet, "/menu/demo-deli", nil)

	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "MISS", first.Header().Get(CacheHeader))
	assert.Equal(t, "HIT", second.Header().Get(CacheHeader))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "application/json; charset=utf-8", second.Header().Get("Content-Type"))
	assert.Equal(t, 1, calls)

	serve(r, http.MethodGet, "/menu/missing", nil)
	miss := serve(r, http.MethodGet, "/menu/missing", nil)
	assert.Equal(t, http.StatusNotFound, miss.Code)
	assert.Equal(t, 3, calls, "errors are not cached")
}
