package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/takaful-app/takaful/internal/audit"
	"github.com/takaful-app/takaful/internal/middleware"
	"github.com/takaful-app/takaful/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// TenantHandler exposes the caller's organization record and the
// dashboard route that provisions accounts for other organizations.
type TenantHandler struct {
	tenants  repository.TenantRepository
	users    repository.UserRepository
	recorder *audit.Recorder
	logger   *zap.Logger
}

func NewTenantHandler(
	tenants repository.TenantRepository,
	users repository.UserRepository,
	recorder *audit.Recorder,
	logger *zap.Logger,
) *TenantHandler {
	return &TenantHandler{tenants: tenants, users: users, recorder: recorder, logger: logger}
}

// Current handles GET /api/tenant — the caller's own organization.
func (h *TenantHandler) Current(c *gin.Context) {
	tenant, err := h.tenants.GetByID(c.Request.Context(), middleware.GetTenantID(c))
	if err != nil {
		h.logger.Error("failed to get tenant", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get tenant"})
		return
	}
	if tenant == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "tenant not found"})
		return
	}
	c.JSON(http.StatusOK, tenant)
}

type createTenantUserRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
	Tenant   string `json:"tenant" binding:"required"`
	Role     string `json:"role"`
}

// CreateUser handles POST /api/users/create — provision an account in
// a named organization, creating the organization on first use. The
// slug is derived from the name (lowercased, spaces to underscores).
func (h *TenantHandler) CreateUser(c *gin.Context) {
	var req createTenantUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	role := req.Role
	if role == "" {
		role = middleware.RoleAdmin
	}

	ctx := c.Request.Context()
	tenant, err := h.tenants.FindBySlugOrName(ctx, req.Tenant)
	if err != nil {
		h.logger.Error("failed to resolve tenant", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}
	if tenant == nil {
		slug := strings.ReplaceAll(strings.ToLower(req.Tenant), " ", "_")
		tenant, err = h.tenants.Create(ctx, req.Tenant, slug)
		if err != nil {
			if errors.Is(err, repository.ErrConflict) {
				// Lost a race with a concurrent create; resolve again.
				tenant, err = h.tenants.FindBySlugOrName(ctx, req.Tenant)
			}
			if err != nil || tenant == nil {
				h.logger.Error("failed to create tenant", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
				return
			}
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("failed to hash password", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}

	user, err := h.users.Create(ctx, tenant.ID, req.Username, string(hash), role)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": "username already taken"})
			return
		}
		h.logger.Error("failed to create user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}

	h.recorder.Record(ctx, middleware.GetTenantID(c), middleware.GetUserID(c),
		middleware.GetUsername(c), "إضافة مستخدم جديد للجهة "+tenant.Name, user.Username)

	c.JSON(http.StatusCreated, gin.H{
		"id":       user.ID,
		"username": user.Username,
		"role":     user.Role,
		"tenant":   tenant.Name,
	})
}
