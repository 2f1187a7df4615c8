package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/takaful-app/takaful/internal/auth"
)

const testSecret = "test-secret"

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func doRequest(r *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuthMissingHeader(t *testing.T) {
	r := newRouter()
	r.GET("/protected", RequireAuth(testSecret), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := doRequest(r, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuthMalformedHeader(t *testing.T) {
	r := newRouter()
	r.GET("/protected", RequireAuth(testSecret), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for _, header := range []string{"Token abc", "Bearer"} {
		w := doRequest(r, header)
		require.Equal(t, http.StatusUnauthorized, w.Code, "header %q", header)
	}
}

func TestRequireAuthBadToken(t *testing.T) {
	r := newRouter()
	r.GET("/protected", RequireAuth(testSecret), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	token, err := auth.GenerateToken(uuid.New(), uuid.New(), "u", RoleUser, "wrong-secret")
	require.NoError(t, err)

	w := doRequest(r, "Bearer "+token)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuthStoresClaims(t *testing.T) {
	userID := uuid.New()
	tenantID := uuid.New()

	r := newRouter()
	r.GET("/protected", RequireAuth(testSecret), func(c *gin.Context) {
		require.Equal(t, userID, GetUserID(c))
		require.Equal(t, tenantID, GetTenantID(c))
		require.Equal(t, "um-khaled", GetUsername(c))
		require.Equal(t, RoleSupervisor, GetRole(c))
		c.Status(http.StatusOK)
	})

	token, err := auth.GenerateToken(userID, tenantID, "um-khaled", RoleSupervisor, testSecret)
	require.NoError(t, err)

	w := doRequest(r, "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRole(t *testing.T) {
	cases := []struct {
		role string
		want int
	}{
		{RoleAdmin, http.StatusOK},
		{RoleSupervisor, http.StatusForbidden},
		{RoleUser, http.StatusForbidden},
	}

	for _, tc := range cases {
		r := newRouter()
		r.GET("/protected", RequireAuth(testSecret), RequireRole(RoleAdmin), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})

		token, err := auth.GenerateToken(uuid.New(), uuid.New(), "u", tc.role, testSecret)
		require.NoError(t, err)

		w := doRequest(r, "Bearer "+token)
		require.Equal(t, tc.want, w.Code, "role %s", tc.role)
	}
}
