package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/takaful-app/takaful/internal/audit"
	"github.com/takaful-app/takaful/internal/auth"
	"github.com/takaful-app/takaful/internal/middleware"
	"github.com/takaful-app/takaful/internal/models"
	"github.com/takaful-app/takaful/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthHandler owns login (the only public endpoint) and self-service
// credential updates.
type AuthHandler struct {
	userRepo   repository.UserRepository
	tenantRepo repository.TenantRepository
	recorder   *audit.Recorder
	jwtSecret  string
	logger     *zap.Logger
}

func NewAuthHandler(
	userRepo repository.UserRepository,
	tenantRepo repository.TenantRepository,
	recorder *audit.Recorder,
	jwtSecret string,
	logger *zap.Logger,
) *AuthHandler {
	return &AuthHandler{
		userRepo:   userRepo,
		tenantRepo: tenantRepo,
		recorder:   recorder,
		jwtSecret:  jwtSecret,
		logger:     logger,
	}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`

	// Optional tenant slug or name. Usernames are unique per tenant,
	// so naming the tenant disambiguates; without it the oldest
	// matching account wins.
	Tenant string `json:"tenant"`
}

type loginResponse struct {
	Success     bool            `json:"success"`
	Token       string          `json:"token"`
	Role        string          `json:"role"`
	Permissions map[string]bool `json:"permissions"`
}

// Login handles POST /api/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()

	var found *models.User
	if req.Tenant != "" {
		tenant, err := h.tenantRepo.FindBySlugOrName(ctx, req.Tenant)
		if err != nil {
			h.logger.Error("failed to resolve tenant", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
			return
		}
		if tenant == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
			return
		}
		found, err = h.userRepo.GetByUsername(ctx, tenant.ID, req.Username)
		if err != nil {
			h.logger.Error("failed to find user", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
			return
		}
	} else {
		var err error
		found, err = h.userRepo.FindByUsername(ctx, req.Username)
		if err != nil {
			h.logger.Error("failed to find user", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
			return
		}
	}

	// One generic 401 for unknown user and wrong password alike, so
	// the response doesn't reveal which usernames exist.
	if found == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(found.PasswordHash), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
		return
	}

	token, err := auth.GenerateToken(found.ID, found.TenantID, found.Username, found.Role, h.jwtSecret)
	if err != nil {
		h.logger.Error("failed to generate token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	h.recorder.Record(ctx, found.TenantID, found.ID, found.Username, "تم تسجيل دخول المستخدم", "")

	perms := found.Permissions
	if perms == nil {
		perms = map[string]bool{}
	}
	c.JSON(http.StatusOK, loginResponse{
		Success:     true,
		Token:       token,
		Role:        found.Role,
		Permissions: perms,
	})
}

type updateCredentialsRequest struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
}

// UpdateCredentials handles PUT /api/user/update_credentials — the
// caller changes their own username and/or password.
func (h *AuthHandler) UpdateCredentials(c *gin.Context) {
	var req updateCredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Username == nil && req.Password == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}

	var hash *string
	if req.Password != nil {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			h.logger.Error("failed to hash password", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
			return
		}
		s := string(hashed)
		hash = &s
	}

	userID := middleware.GetUserID(c)
	if err := h.userRepo.UpdateCredentials(c.Request.Context(), userID, req.Username, hash); err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			c.JSON(http.StatusConflict, gin.H{"error": "username already taken"})
		case errors.Is(err, repository.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		default:
			h.logger.Error("failed to update credentials", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		}
		return
	}

	h.recorder.Record(c.Request.Context(), middleware.GetTenantID(c), userID,
		middleware.GetUsername(c), "تحديث بيانات الدخول", middleware.GetUsername(c))
	c.JSON(http.StatusOK, gin.H{"message": "credentials updated"})
}
