package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/attendance-backend/internal/config"
	"github.com/stemsi/attendance-backend/internal/model"
	"github.com/stemsi/attendance-backend/internal/repository"
	"github.com/stemsi/attendance-backend/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// accounts serves the account lookups token authentication needs.
type accounts struct {
	service.UserStore
	users map[uuid.UUID]*model.User
}

func (a accounts) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := a.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func testAuth(users ...*model.User) *service.AuthService {
	store := accounts{users: map[uuid.UUID]*model.User{}}
	for _, u := range users {
		store.users[u.ID] = u
	}
	return service.NewAuthService(&config.Config{JWTSecret: "middleware-secret", JWTExpiry: time.Hour, BcryptCost: 4}, store)
}

func TestRequireJWTAndPermission(t *testing.T) {
	teacher := &model.User{ID: uuid.New(), Name: "Pak Budi", Role: model.RoleTeacher, Active: true}
	inactive := &model.User{ID: uuid.New(), Name: "Ibu Sari", Role: model.RoleTeacher}
	auth := testAuth(teacher, inactive)
	token, err := auth.GenerateToken(teacher)
	require.NoError(t, err)
	inactiveToken, err := auth.GenerateToken(inactive)
	require.NoError(t, err)
	removedToken, err := auth.GenerateToken(&model.User{ID: uuid.New(), Name: "Pak Joko", Role: model.RoleAdmin})
	require.NoError(t, err)

	r := gin.New()
	r.GET("/read", RequireJWT(auth), RequirePermission(model.PermissionAttendanceRead), func(c *gin.Context) {
		c.String(http.StatusOK, GetClaims(c).Name)
	})
	r.GET("/users", RequireJWT(auth), RequirePermission(model.PermissionUsersWrite), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	tests := []struct {
		name   string
		path   string
		header string
		status int
		code   string
	}{
		{"no token", "/read", "", http.StatusUnauthorized, "TOKEN_REQUIRED"},
		{"garbage token", "/read", "Bearer nope", http.StatusUnauthorized, "TOKEN_INVALID"},
		{"allowed", "/read", "Bearer " + token, http.StatusOK, ""},
		{"missing permission", "/users", "Bearer " + token, http.StatusForbidden, "PERMISSION_DENIED"},
		{"deactivated account", "/read", "Bearer " + inactiveToken, http.StatusForbidden, "ACCOUNT_INACTIVE"},
		{"deleted account", "/users", "Bearer " + removedToken, http.StatusUnauthorized, "TOKEN_INVALID"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
			if tt.code != "" {
				assert.Contains(t, w.Body.String(), tt.code)
			} else {
				assert.Equal(t, "Pak Budi", w.Body.String())
			}
		})
	}
}

func TestRequireWSAuthReadsQueryToken(t *testing.T) {
	admin := &model.User{ID: uuid.New(), Name: "Ibu Admin", Role: model.RoleAdmin, Active: true}
	auth := testAuth(admin)
	token, err := auth.GenerateToken(admin)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/ws", RequireWSAuth(auth), func(c *gin.Context) {
		c.String(http.StatusOK, string(GetClaims(c).Role))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin", w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// A demoted admin's token stops working on the stream too.
	admin.Role = model.RoleTeacher
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "TOKEN_INVALID")
}

func TestRateLimiterRefills(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	now := time.Date(2024, 3, 6, 8, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"))

	now = now.Add(time.Minute)
	assert.True(t, rl.Allow("10.0.0.1"))

	now = now.Add(10 * time.Minute)
	rl.cleanup()
	rl.mu.Lock()
	assert.Empty(t, rl.visitors)
	rl.mu.Unlock()
}

func TestRateLimiterMiddleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	r := gin.New()
	r.POST("/login", rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "RATE_LIMIT_EXCEEDED")
}

func TestBrotliCompressesLargeResponses(t *testing.T) {
	large := strings.Repeat("hadir ", 500)
	r := gin.New()
	r.Use(Brotli())
	r.GET("/large", func(c *gin.Context) { c.String(http.StatusOK, large) })
	r.GET("/small", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	req := httptest.NewRequest(http.MethodGet, "/large", nil)
	req.Header.Set("Accept-Encoding", "gzip, br;q=1.0")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, "br", w.Header().Get("Content-Encoding"))
	body, err := io.ReadAll(brotli.NewReader(bytes.NewReader(w.Body.Bytes())))
	require.NoError(t, err)
	assert.Equal(t, large, string(body))

	req = httptest.NewRequest(http.MethodGet, "/small", nil)
	req.Header.Set("Accept-Encoding", "br")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, "ok", w.Body.String())
}

func TestCacheHeaders(t *testing.T) {
	r := gin.New()
	r.GET("/api", NoStore(), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/holidays", NoStore(), CacheControl(300), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api", nil))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/holidays", nil))
	assert.Equal(t, "private, max-age=300", w.Header().Get("Cache-Control"))
}
