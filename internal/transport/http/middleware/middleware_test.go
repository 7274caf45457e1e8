package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docai/internal/app"
	"docai/internal/metrics"
	"docai/internal/model"
)

type stubAuth struct {
	users map[string]*model.User
	err   error
}

func (a stubAuth) Authenticate(_ context.Context, token string) (*model.User, error) {
	if a.err != nil {
		return nil, a.err
	}
	if u, ok := a.users[token]; ok {
		return u, nil
	}
	return nil, app.ErrUnauthenticated
}

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, method, path string, header http.Header) (*httptest.ResponseRecorder, int) {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var body struct {
		Code int `json:"code"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body.Code
}

func bearer(token string) http.Header {
	return http.Header{"Authorization": {"Bearer " + token}}
}

func TestAuthJWT(t *testing.T) {
	auth := stubAuth{users: map[string]*model.User{
		"user-token":  {ID: 1, Username: "alice", IsActive: true},
		"admin-token": {ID: 2, Username: "root", IsActive: true, IsSuperuser: true},
	}}

	r := gin.New()
	r.GET("/me", AuthJWT(auth), func(c *gin.Context) {
		user, ok := CurrentUser(c)
		require.True(t, ok)
		c.String(http.StatusOK, user.Username)
	})
	r.GET("/admin", AuthJWT(auth), RequireSuperuser(), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	rec, code := serve(r, "GET", "/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 40100, code)
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))

	rec, _ = serve(r, "GET", "/me", http.Header{"Authorization": {"Basic abc"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = serve(r, "GET", "/me", bearer("unknown"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = serve(r, "GET", "/me", http.Header{"Authorization": {"bearer user-token"}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", rec.Body.String())

	rec, code = serve(r, "GET", "/admin", bearer("user-token"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, 40300, code)

	rec, _ = serve(r, "GET", "/admin", bearer("admin-token"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthJWTServiceErrors(t *testing.T) {
	for _, tc := range []struct {
		name   string
		err    error
		status int
		code   int
	}{
		{"inactive", app.ErrInactiveUser, http.StatusBadRequest, 40005},
		{"store down", errors.New("db gone"), http.StatusInternalServerError, 50000},
	} {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/me", AuthJWT(stubAuth{err: tc.err}), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})
			rec, code := serve(r, "GET", "/me", bearer("anything"))
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.code, code)
		})
	}
}

func TestRequestLogHeaders(t *testing.T) {
	r := gin.New()
	r.Use(RequestLog())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	rec, _ := serve(r, "GET", "/ping", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	_, err := uuid.Parse(rec.Header().Get(HeaderRequestID))
	assert.NoError(t, err)
	assert.NotEmpty(t, rec.Header().Get(HeaderProcessTime))

	id := uuid.NewString()
	rec, _ = serve(r, "GET", "/ping", http.Header{HeaderRequestID: {id}})
	assert.Equal(t, id, rec.Header().Get(HeaderRequestID))

	rec, _ = serve(r, "GET", "/ping", http.Header{HeaderRequestID: {"not a uuid\r\n"}})
	assert.NotEqual(t, "not a uuid\r\n", rec.Header().Get(HeaderRequestID))
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(RequestLog(), Recovery())
	r.GET("/boom", func(*gin.Context) { panic("boom") })

	rec, code := serve(r, "GET", "/boom", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, 50000, code)
}

func TestRateLimit(t *testing.T) {
	_, err := RateLimit("ten per minute", nil)
	require.Error(t, err)

	limit, err := RateLimit("2-M", nil)
	require.NoError(t, err)

	r := gin.New()
	r.POST("/login", limit, func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for i := 0; i < 2; i++ {
		rec, _ := serve(r, "POST", "/login", nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}
	rec, code := serve(r, "POST", "/login", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, 42900, code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
}

func TestMetricsUsesRoutePattern(t *testing.T) {
	m := metrics.New()
	r := gin.New()
	r.Use(Metrics(m))
	r.GET("/documents/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(r, "GET", "/documents/1", nil)
	serve(r, "GET", "/documents/2", nil)
	serve(r, "GET", "/missing", nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `docai_http_requests_total{method="GET",route="/documents/:id",status="200"} 2`)
	assert.Contains(t, body, `route="unmatched"`)
}
