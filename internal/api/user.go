package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/takaful-app/takaful/internal/audit"
	"github.com/takaful-app/takaful/internal/middleware"
	"github.com/takaful-app/takaful/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// UserHandler owns supervisor management and permission updates. All
// of its routes are admin-gated and scoped to the admin's own tenant.
type UserHandler struct {
	repo     repository.UserRepository
	recorder *audit.Recorder
	logger   *zap.Logger
}

func NewUserHandler(repo repository.UserRepository, recorder *audit.Recorder, logger *zap.Logger) *UserHandler {
	return &UserHandler{repo: repo, recorder: recorder, logger: logger}
}

type createSupervisorRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
}

// CreateSupervisor handles POST /api/users
func (h *UserHandler) CreateSupervisor(c *gin.Context) {
	var req createSupervisorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("failed to hash password", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create supervisor"})
		return
	}

	tenantID := middleware.GetTenantID(c)
	user, err := h.repo.Create(c.Request.Context(), tenantID, req.Username, string(hash), middleware.RoleSupervisor)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": "username already taken"})
			return
		}
		h.logger.Error("failed to create supervisor", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create supervisor"})
		return
	}

	h.recorder.Record(c.Request.Context(), tenantID, middleware.GetUserID(c),
		middleware.GetUsername(c), "إضافة مشرف جديد", user.Username)

	c.JSON(http.StatusCreated, gin.H{
		"id":       user.ID,
		"username": user.Username,
		"role":     user.Role,
	})
}

// ListSupervisors handles GET /api/supervisors
func (h *UserHandler) ListSupervisors(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)
	supervisors, err := h.repo.ListByRole(c.Request.Context(), tenantID, middleware.RoleSupervisor)
	if err != nil {
		h.logger.Error("failed to list supervisors", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list supervisors"})
		return
	}

	out := make([]gin.H, 0, len(supervisors))
	for _, s := range supervisors {
		out = append(out, gin.H{"id": s.ID, "username": s.Username})
	}
	c.JSON(http.StatusOK, out)
}

// DeleteSupervisor handles DELETE /api/users/:id — only supervisor
// accounts may be deleted; the tenant admin itself cannot be removed
// this way.
func (h *UserHandler) DeleteSupervisor(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	tenantID := middleware.GetTenantID(c)
	user, err := h.repo.GetByID(c.Request.Context(), tenantID, userID)
	if err != nil {
		h.logger.Error("failed to get user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete user"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	if user.Role != middleware.RoleSupervisor {
		c.JSON(http.StatusBadRequest, gin.H{"error": "only supervisor accounts can be deleted"})
		return
	}

	if err := h.repo.Delete(c.Request.Context(), tenantID, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		h.logger.Error("failed to delete user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete user"})
		return
	}

	h.recorder.Record(c.Request.Context(), tenantID, middleware.GetUserID(c),
		middleware.GetUsername(c), "حذف مشرف", user.Username)
	c.JSON(http.StatusOK, gin.H{"message": "supervisor deleted"})
}

type updatePermissionsRequest struct {
	Permissions map[string]bool `json:"permissions"`
}

// UpdatePermissions handles PUT /api/user/update_permissions/:id — the
// stored capability map is replaced wholesale, never merged.
func (h *UserHandler) UpdatePermissions(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	var req updatePermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tenantID := middleware.GetTenantID(c)
	target, err := h.repo.GetByID(c.Request.Context(), tenantID, userID)
	if err != nil {
		h.logger.Error("failed to get user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update permissions"})
		return
	}
	if target == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	if err := h.repo.UpdatePermissions(c.Request.Context(), tenantID, userID, req.Permissions); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		h.logger.Error("failed to update permissions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update permissions"})
		return
	}

	h.recorder.Record(c.Request.Context(), tenantID, middleware.GetUserID(c),
		middleware.GetUsername(c), "تحديث صلاحيات المستخدم "+target.Username, target.Username)
	c.JSON(http.StatusOK, gin.H{"message": "permissions updated"})
}
