package api

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/takaful-app/takaful/internal/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func loginRouter(userRepo *mockUserRepo, tenantRepo *mockTenantRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewAuthHandler(userRepo, tenantRepo, testRecorder(), "test-secret", zap.NewNop())
	r.POST("/api/login", h.Login)
	return r
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestLoginSuccess(t *testing.T) {
	userRepo := &mockUserRepo{}
	user := &models.User{
		ID:           uuid.New(),
		TenantID:     uuid.New(),
		Username:     "admin",
		PasswordHash: hashPassword(t, "secret123"),
		Role:         "admin",
		Permissions:  map[string]bool{"manage_residents": true},
	}
	userRepo.On("FindByUsername", mock.Anything, "admin").Return(user, nil)

	r := loginRouter(userRepo, &mockTenantRepo{})
	w := performJSON(t, r, http.MethodPost, "/api/login",
		gin.H{"username": "admin", "password": "secret123"})

	require.Equal(t, http.StatusOK, w.Code)

	var resp loginResponse
	decodeJSON(t, w, &resp)
	require.True(t, resp.Success)
	require.NotEmpty(t, resp.Token)
	require.Equal(t, "admin", resp.Role)
	require.True(t, resp.Permissions["manage_residents"])
}

func TestLoginWrongPassword(t *testing.T) {
	userRepo := &mockUserRepo{}
	user := &models.User{
		ID:           uuid.New(),
		TenantID:     uuid.New(),
		Username:     "admin",
		PasswordHash: hashPassword(t, "secret123"),
		Role:         "admin",
	}
	userRepo.On("FindByUsername", mock.Anything, "admin").Return(user, nil)

	r := loginRouter(userRepo, &mockTenantRepo{})
	w := performJSON(t, r, http.MethodPost, "/api/login",
		gin.H{"username": "admin", "password": "wrong"})

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginUnknownUser(t *testing.T) {
	userRepo := &mockUserRepo{}
	userRepo.On("FindByUsername", mock.Anything, "ghost").Return(nil, nil)

	r := loginRouter(userRepo, &mockTenantRepo{})
	w := performJSON(t, r, http.MethodPost, "/api/login",
		gin.H{"username": "ghost", "password": "whatever"})

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginMissingFields(t *testing.T) {
	r := loginRouter(&mockUserRepo{}, &mockTenantRepo{})
	w := performJSON(t, r, http.MethodPost, "/api/login", gin.H{"username": "admin"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginTenantScoped(t *testing.T) {
	tenant := &models.Tenant{ID: uuid.New(), Name: "جمعية النور", Slug: "alnoor"}
	user := &models.User{
		ID:           uuid.New(),
		TenantID:     tenant.ID,
		Username:     "admin",
		PasswordHash: hashPassword(t, "secret123"),
		Role:         "supervisor",
	}

	tenantRepo := &mockTenantRepo{}
	tenantRepo.On("FindBySlugOrName", mock.Anything, "alnoor").Return(tenant, nil)
	userRepo := &mockUserRepo{}
	userRepo.On("GetByUsername", mock.Anything, tenant.ID, "admin").Return(user, nil)

	r := loginRouter(userRepo, tenantRepo)
	w := performJSON(t, r, http.MethodPost, "/api/login",
		gin.H{"username": "admin", "password": "secret123", "tenant": "alnoor"})

	require.Equal(t, http.StatusOK, w.Code)
	userRepo.AssertNotCalled(t, "FindByUsername", mock.Anything, mock.Anything)
}

func TestLoginUnknownTenant(t *testing.T) {
	tenantRepo := &mockTenantRepo{}
	tenantRepo.On("FindBySlugOrName", mock.Anything, "nowhere").Return(nil, nil)

	r := loginRouter(&mockUserRepo{}, tenantRepo)
	w := performJSON(t, r, http.MethodPost, "/api/login",
		gin.H{"username": "admin", "password": "secret123", "tenant": "nowhere"})

	require.Equal(t, http.StatusUnauthorized, w.Code)
}
