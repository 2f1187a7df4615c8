package api

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/takaful-app/takaful/internal/middleware"
	"github.com/takaful-app/takaful/internal/models"
	"github.com/takaful-app/takaful/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func userRouter(repo *mockUserRepo, tenantID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(withClaims(uuid.New(), tenantID, "admin", middleware.RoleAdmin))

	h := NewUserHandler(repo, testRecorder(), zap.NewNop())
	r.POST("/api/users", h.CreateSupervisor)
	r.GET("/api/supervisors", h.ListSupervisors)
	r.DELETE("/api/users/:id", h.DeleteSupervisor)
	r.PUT("/api/user/update_permissions/:id", h.UpdatePermissions)
	return r
}

func TestCreateSupervisor(t *testing.T) {
	tenantID := uuid.New()
	created := &models.User{ID: uuid.New(), TenantID: tenantID, Username: "mushrif", Role: middleware.RoleSupervisor}

	repo := &mockUserRepo{}
	repo.On("Create", mock.Anything, tenantID, "mushrif", mock.MatchedBy(func(hash string) bool {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte("secret123")) == nil
	}), middleware.RoleSupervisor).Return(created, nil)

	r := userRouter(repo, tenantID)
	w := performJSON(t, r, http.MethodPost, "/api/users",
		gin.H{"username": "mushrif", "password": "secret123"})

	require.Equal(t, http.StatusCreated, w.Code)
	repo.AssertExpectations(t)
}

func TestCreateSupervisorDuplicate(t *testing.T) {
	tenantID := uuid.New()
	repo := &mockUserRepo{}
	repo.On("Create", mock.Anything, tenantID, "mushrif", mock.Anything, middleware.RoleSupervisor).
		Return(nil, repository.ErrConflict)

	r := userRouter(repo, tenantID)
	w := performJSON(t, r, http.MethodPost, "/api/users",
		gin.H{"username": "mushrif", "password": "secret123"})

	require.Equal(t, http.StatusConflict, w.Code)
}

func TestCreateSupervisorShortPassword(t *testing.T) {
	r := userRouter(&mockUserRepo{}, uuid.New())
	w := performJSON(t, r, http.MethodPost, "/api/users",
		gin.H{"username": "mushrif", "password": "abc"})

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteSupervisorOnlySupervisorRole(t *testing.T) {
	tenantID := uuid.New()
	adminID := uuid.New()

	repo := &mockUserRepo{}
	repo.On("GetByID", mock.Anything, tenantID, adminID).
		Return(&models.User{ID: adminID, TenantID: tenantID, Username: "boss", Role: middleware.RoleAdmin}, nil)

	r := userRouter(repo, tenantID)
	w := performJSON(t, r, http.MethodDelete, "/api/users/"+adminID.String(), nil)

	require.Equal(t, http.StatusBadRequest, w.Code)
	repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
}

func TestDeleteSupervisor(t *testing.T) {
	tenantID := uuid.New()
	supervisorID := uuid.New()

	repo := &mockUserRepo{}
	repo.On("GetByID", mock.Anything, tenantID, supervisorID).
		Return(&models.User{ID: supervisorID, TenantID: tenantID, Username: "mushrif", Role: middleware.RoleSupervisor}, nil)
	repo.On("Delete", mock.Anything, tenantID, supervisorID).Return(nil)

	r := userRouter(repo, tenantID)
	w := performJSON(t, r, http.MethodDelete, "/api/users/"+supervisorID.String(), nil)

	require.Equal(t, http.StatusOK, w.Code)
	repo.AssertExpectations(t)
}

func TestUpdatePermissionsReplacesWholesale(t *testing.T) {
	tenantID := uuid.New()
	targetID := uuid.New()
	perms := map[string]bool{"manage_residents": true, "manage_finance": false}

	repo := &mockUserRepo{}
	repo.On("GetByID", mock.Anything, tenantID, targetID).
		Return(&models.User{ID: targetID, TenantID: tenantID, Username: "mushrif", Role: middleware.RoleSupervisor}, nil)
	repo.On("UpdatePermissions", mock.Anything, tenantID, targetID, perms).Return(nil)

	r := userRouter(repo, tenantID)
	w := performJSON(t, r, http.MethodPut, "/api/user/update_permissions/"+targetID.String(),
		gin.H{"permissions": perms})

	require.Equal(t, http.StatusOK, w.Code)
	repo.AssertExpectations(t)
}

func TestUpdatePermissionsUnknownUser(t *testing.T) {
	tenantID := uuid.New()
	targetID := uuid.New()

	repo := &mockUserRepo{}
	repo.On("GetByID", mock.Anything, tenantID, targetID).Return(nil, nil)

	r := userRouter(repo, tenantID)
	w := performJSON(t, r, http.MethodPut, "/api/user/update_permissions/"+targetID.String(),
		gin.H{"permissions": map[string]bool{}})

	require.Equal(t, http.StatusNotFound, w.Code)
}
