package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"go-gin-gorm-rbac/internal/core/auth"
	"go-gin-gorm-rbac/internal/core/logger"
	"go-gin-gorm-rbac/internal/domain"
	resp "go-gin-gorm-rbac/internal/transport/http/response"
)

func init() { gin.SetMode(gin.TestMode) }

func testJWTer() *auth.JWTer {
	return &auth.JWTer{
		Secret: []byte("0123456789abcdef0123456789abcdef"), Issuer: "test",
		TTL: time.Minute, RefreshTTL: time.Hour,
	}
}

func do(r http.Handler, req *http.Request) (*httptest.ResponseRecorder, resp.Resp) {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var body resp.Resp
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestAuthJWT(t *testing.T) {
	j := testJWTer()
	r := gin.New()
	r.GET("/admin", AuthJWT(j, domain.RoleAdmin), func(c *gin.Context) {
		uid, _ := UserID(c)
		c.JSON(http.StatusOK, resp.OK(gin.H{"uid": uid, "role": c.MustGet(CtxRole).(domain.Role).DisplayName()}))
	})

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	_, body := do(r, req)
	assert.Equal(t, resp.CodeUnauthorized, body.Code)

	req.Header.Set("Authorization", "Bearer nope")
	_, body = do(r, req)
	assert.Equal(t, resp.CodeUnauthorized, body.Code)

	userTok, err := j.Issue(5, "user")
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+userTok)
	_, body = do(r, req)
	assert.Equal(t, resp.CodeForbidden, body.Code)
	assert.Equal(t, "insufficient permission", body.Msg)

	refreshTok, err := j.IssueRefresh(2, "admin")
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+refreshTok)
	_, body = do(r, req)
	assert.Equal(t, resp.CodeUnauthorized, body.Code)

	adminTok, err := j.Issue(2, "admin")
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+adminTok)
	_, body = do(r, req)
	require.Equal(t, resp.CodeOK, body.Code)
	assert.Equal(t, map[string]any{"uid": float64(2), "role": "admin"}, body.Data)
}

func TestRateLimitPerIP(t *testing.T) {
	r := gin.New()
	r.GET("/login", RateLimitPerIP(0.001, 2), func(c *gin.Context) { c.JSON(http.StatusOK, resp.OK(nil)) })

	for i := 0; i < 2; i++ {
		_, body := do(r, httptest.NewRequest(http.MethodGet, "/login", nil))
		assert.Equal(t, resp.CodeOK, body.Code)
	}
	_, body := do(r, httptest.NewRequest(http.MethodGet, "/login", nil))
	assert.Equal(t, resp.CodeTooManyRequests, body.Code)

	other := httptest.NewRequest(http.MethodGet, "/login", nil)
	other.RemoteAddr = "10.0.0.9:1234"
	_, body = do(r, other)
	assert.Equal(t, resp.CodeOK, body.Code)
}

func TestRequestIDAndAccessLog(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	r := gin.New()
	r.Use(RequestID(), AccessLog(zap.New(core)))
	r.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, resp.OK(nil)) })

	req := httptest.NewRequest(http.MethodGet, "/ping?password=hunter2&q=x", nil)
	req.Header.Set(KeyRequestID, "rid-1")
	w, _ := do(r, req)
	assert.Equal(t, "rid-1", w.Header().Get(KeyRequestID))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "rid-1", fields["rid"])
	assert.Equal(t, "/ping", fields["path"])
	assert.EqualValues(t, 200, fields["status"])
	q := fields["query"].(map[string][]string)
	assert.Equal(t, []string{"****"}, q["password"])
	assert.Equal(t, []string{"x"}, q["q"])
}

func TestRecoveryReturnsEnvelope(t *testing.T) {
	r := gin.New()
	r.Use(Recovery(zap.NewNop()))
	r.GET("/boom", func(*gin.Context) { panic("boom") })

	w, body := do(r, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, resp.CodeServerError, body.Code)
}

func TestMaxBodyBytes(t *testing.T) {
	r := gin.New()
	r.POST("/upload", MaxBodyBytes(8), func(c *gin.Context) {
		var in map[string]string
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusOK, resp.Error(resp.CodeBadRequest, "bad body"))
			return
		}
		c.JSON(http.StatusOK, resp.OK(in))
	})
	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(`{"k":"0123456789"}`))
	req.Header.Set("Content-Type", "application/json")
	_, body := do(r, req)
	assert.Equal(t, resp.CodeBadRequest, body.Code)
}

func TestSecureHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecureHeaders(false))
	r.GET("/x", func(c *gin.Context) { c.JSON(http.StatusOK, resp.OK(nil)) })

	w, _ := do(r, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	prod := gin.New()
	prod.Use(SecureHeaders(true))
	prod.GET("/x", func(c *gin.Context) { c.JSON(http.StatusOK, resp.OK(nil)) })

	w, _ = do(prod, httptest.NewRequest(http.MethodGet, "http://example.com/x", nil))
	assert.Equal(t, http.StatusMovedPermanently, w.Code)
	assert.Equal(t, "https://example.com/x", w.Header().Get("Location"))
	assert.NotContains(t, w.Body.String(), `"code"`, "redirect carries no envelope")

	req := httptest.NewRequest(http.MethodGet, "http://example.com/x", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	w, _ = do(prod, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Strict-Transport-Security"), "max-age=31536000")
}

func TestRequestIDReachesRequestContext(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	var seen string
	r.GET("/x", func(c *gin.Context) {
		seen = logger.RequestID(c.Request.Context())
		c.JSON(http.StatusOK, resp.OK(nil))
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(KeyRequestID, "abc-123")
	w, _ := do(r, req)
	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", w.Header().Get(KeyRequestID))

	for _, bad := range []string{"has space", "line\nbreak", strings.Repeat("a", maxRequestIDLen+1)} {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set(KeyRequestID, bad)
		w, _ := do(r, req)
		rid := w.Header().Get(KeyRequestID)
		assert.NotEqual(t, bad, rid)
		_, err := uuid.Parse(rid)
		assert.NoError(t, err)
		assert.Equal(t, rid, seen)
	}
}

func TestMetricsLabelsByEnvelopeCode(t *testing.T) {
	r := gin.New()
	r.Use(Metrics("mtest"))
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/users/:id", func(c *gin.Context) {
		if c.Param("id") == "0" {
			resp.Abort(c, resp.CodeForbidden, "")
			return
		}
		resp.JSON(c, resp.OK(nil))
	})

	for _, p := range []string{"/users/1", "/users/2", "/users/0", "/nope/1", "/nope/2", "/health"} {
		do(r, httptest.NewRequest(http.MethodGet, p, nil))
	}

	assert.Equal(t, 2.0, promtest.ToFloat64(httpReqTotal.WithLabelValues("mtest", "/users/:id", "GET", "0")))
	assert.Equal(t, 1.0, promtest.ToFloat64(httpReqTotal.WithLabelValues("mtest", "/users/:id", "GET", "403")))
	assert.Equal(t, 2.0, promtest.ToFloat64(httpReqTotal.WithLabelValues("mtest", unmatchedRoute, "GET", "404")))
	assert.Equal(t, 0.0, promtest.ToFloat64(httpReqTotal.WithLabelValues("mtest", "/health", "GET", "200")))
	assert.Equal(t, 0.0, promtest.ToFloat64(httpInFlight.WithLabelValues("mtest")))
}
