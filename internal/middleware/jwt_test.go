package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJWTRouter(validate ValidateFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", JWT(validate), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id": c.MustGet(ContextUserID).(uuid.UUID).String(),
			"role":    c.MustGet(ContextUserRole),
			"email":   c.MustGet(ContextUserEmail),
		})
	})
	return r
}

func get(r *gin.Engine, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTSetsClaimsInContext(t *testing.T) {
	id := uuid.New()
	r := newJWTRouter(func(token string) (uuid.UUID, string, string, error) {
		require.Equal(t, "good-token", token)
		return id, "student@example.com", "student", nil
	})

	w := get(r, "Bearer good-token")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), id.String())
	assert.Contains(t, w.Body.String(), "student@example.com")
}

func TestJWTRejectsMissingHeader(t *testing.T) {
	r := newJWTRouter(func(string) (uuid.UUID, string, string, error) {
		t.Fatal("validate must not run without a header")
		return uuid.Nil, "", "", nil
	})

	w := get(r, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTRejectsMalformedHeader(t *testing.T) {
	r := newJWTRouter(func(string) (uuid.UUID, string, string, error) {
		return uuid.New(), "", "", nil
	})

	assert.Equal(t, http.StatusUnauthorized, get(r, "Basic abc").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "Bearer").Code)
}

func TestJWTRejectsInvalidToken(t *testing.T) {
	r := newJWTRouter(func(string) (uuid.UUID, string, string, error) {
		return uuid.Nil, "", "", errors.New("expired")
	})

	w := get(r, "Bearer stale-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin", func(c *gin.Context) {
		c.Set(ContextUserRole, "student")
	}, RequireRole("admin"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/any", func(c *gin.Context) {
		c.Set(ContextUserRole, "instructor")
	}, RequireRole("admin", "instructor"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/any", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
