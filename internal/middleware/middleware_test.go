package middleware_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-payroll/internal/middleware"
	"go-payroll/internal/rbac"
	"go-payroll/internal/shared/contextutil"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type apiEnvelope struct {
	Ok    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error *apiError       `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) apiEnvelope {
	t.Helper()
	var env apiEnvelope
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	assert.NoError(t, err)
	return token
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"user_id":     "user-1",
		"company_id":  "company-1",
		"employee_id": "emp-1",
		"role":        "payroll_manager",
		"exp":         time.Now().Add(time.Hour).Unix(),
	}
}

func init() {
	gin.SetMode(gin.TestMode)
}

func TestAuthMiddleware(t *testing.T) {
	r := gin.New()
	r.GET("/me", middleware.AuthMiddleware(testSecret), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"company_id":  c.GetString(middleware.ContextCompanyID),
			"employee_id": c.GetString(middleware.ContextEmployeeID),
		})
	})

	t.Run("valid token", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, validClaims()))
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "emp-1")
	})

	t.Run("missing token", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "UNAUTHORIZED", decode(t, w).Error.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		claims := validClaims()
		claims["exp"] = time.Now().Add(-time.Hour).Unix()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, claims))
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "TOKEN_EXPIRED", decode(t, w).Error.Code)
	})

	t.Run("missing employee claim", func(t *testing.T) {
		claims := validClaims()
		delete(claims, "employee_id")

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.AddCookie(&http.Cookie{Name: "access_token", Value: signToken(t, claims)})
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "INVALID_TOKEN", decode(t, w).Error.Code)
	})
}

type fakeRBAC struct {
	enforceFn func(req rbac.EnforceRequest) (bool, error)
}

func (f *fakeRBAC) Enforce(req rbac.EnforceRequest) (bool, error) {
	return f.enforceFn(req)
}

func withIdentity(c *gin.Context) {
	c.Set(middleware.ContextUserID, "user-1")
	c.Set(middleware.ContextEmployeeID, "emp-1")
	c.Set(middleware.ContextCompanyID, "company-1")
	c.Next()
}

func TestRBACAuthorize(t *testing.T) {
	svc := &fakeRBAC{enforceFn: func(req rbac.EnforceRequest) (bool, error) {
		assert.Equal(t, "payroll_run", req.Resource)
		switch req.Action {
		case "read":
			return true, nil
		case "lock":
			return false, nil
		default:
			return false, errors.New("policy store down")
		}
	}}

	r := gin.New()
	r.Use(withIdentity)
	ok := func(c *gin.Context) { c.Status(http.StatusNoContent) }
	r.GET("/read", middleware.RBACAuthorize(svc, "payroll_run", "read"), ok)
	r.GET("/lock", middleware.RBACAuthorize(svc, "payroll_run", "lock"), ok)
	r.GET("/boom", middleware.RBACAuthorize(svc, "payroll_run", "boom"), ok)

	cases := map[string]int{
		"/read": http.StatusNoContent,
		"/lock": http.StatusForbidden,
		"/boom": http.StatusInternalServerError,
	}
	for path, want := range cases {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, want, w.Code, path)
	}
}

func TestIdempotency(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	cacheKey := "idemp:/runs:user-1:key-1"

	r := gin.New()
	r.Use(withIdentity)
	handled := 0
	r.POST("/runs", middleware.Idempotency(rdb), func(c *gin.Context) {
		handled++
		assert.Equal(t, cacheKey, c.GetString(middleware.ContextIdempotencyCacheKey))
		c.Status(http.StatusCreated)
	})

	newReq := func() *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/runs", nil)
		req.Header.Set(middleware.HeaderIdempotencyKey, "key-1")
		return req
	}

	t.Run("replays cached result", func(t *testing.T) {
		mock.ExpectGet(cacheKey).SetVal(`{"run_code":"PR-2026-02-0001"}`)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, newReq())

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "true", w.Header().Get("Idempotent-Replayed"))
		assert.Contains(t, w.Body.String(), "PR-2026-02-0001")
		assert.Zero(t, handled)
	})

	t.Run("rejects while in progress", func(t *testing.T) {
		mock.ExpectGet(cacheKey).RedisNil()
		mock.ExpectSetNX(cacheKey+":lock", "locked", 30*time.Second).SetVal(false)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, newReq())

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "PROCESSING", decode(t, w).Error.Code)
		assert.Zero(t, handled)
	})

	t.Run("first request proceeds", func(t *testing.T) {
		mock.ExpectGet(cacheKey).RedisNil()
		mock.ExpectSetNX(cacheKey+":lock", "locked", 30*time.Second).SetVal(true)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, newReq())

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, 1, handled)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimitByUser(t *testing.T) {
	r := gin.New()
	r.Use(withIdentity)
	r.POST("/runs", middleware.RateLimitByUser(0.001, 1), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	w1 := httptest.NewRecorder()
	r.ServeHTTP(w1, httptest.NewRequest(http.MethodPost, "/runs", nil))
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, httptest.NewRequest(http.MethodPost, "/runs", nil))

	assert.Equal(t, http.StatusNoContent, w1.Code)
	assert.Equal(t, http.StatusTooManyRequests, w2.Code)
	assert.Equal(t, "RATE_LIMITED", decode(t, w2).Error.Code)
}

func TestRateLimitByIP(t *testing.T) {
	r := gin.New()
	r.Use(middleware.RateLimitByIP(0.001, 1))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1:1234"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1:1234"))
	assert.Equal(t, http.StatusOK, send("10.0.0.2:1234"))
}

func TestRequestIDAndContextLogger(t *testing.T) {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.ContextLogger(zap.NewNop()))
	r.GET("/ping", func(c *gin.Context) {
		assert.Equal(t, "rid-42", contextutil.GetRequestID(c.Request.Context()))
		assert.NotNil(t, contextutil.GetLogger(c.Request.Context(), nil))
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(middleware.HeaderRequestID, "rid-42")
	r.ServeHTTP(w, req)

	assert.Equal(t, "rid-42", w.Header().Get(middleware.HeaderRequestID))
}
