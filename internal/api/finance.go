package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/takaful-app/takaful/internal/audit"
	"github.com/takaful-app/takaful/internal/middleware"
	"github.com/takaful-app/takaful/internal/models"
	"github.com/takaful-app/takaful/internal/repository"
	"go.uber.org/zap"
)

type FinanceHandler struct {
	repo     repository.FinanceRepository
	recorder *audit.Recorder
	logger   *zap.Logger
}

func NewFinanceHandler(repo repository.FinanceRepository, recorder *audit.Recorder, logger *zap.Logger) *FinanceHandler {
	return &FinanceHandler{repo: repo, recorder: recorder, logger: logger}
}

type addImportRequest struct {
	Source string   `json:"source" binding:"required"`
	Name   string   `json:"name" binding:"required"`
	Date   string   `json:"date" binding:"required"`
	Type   string   `json:"type" binding:"required"`
	Amount *float64 `json:"amount" binding:"required"`
}

// AddImport handles POST /api/imports
func (h *FinanceHandler) AddImport(c *gin.Context) {
	var req addImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Missing required fields!"})
		return
	}

	tenantID := middleware.GetTenantID(c)
	entry, err := h.repo.AddImport(c.Request.Context(), tenantID, &models.Import{
		Source: req.Source,
		Name:   req.Name,
		Date:   req.Date,
		Type:   req.Type,
		Amount: *req.Amount,
	})
	if err != nil {
		h.logger.Error("failed to add import entry", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add import entry"})
		return
	}

	h.recorder.Record(c.Request.Context(), tenantID, middleware.GetUserID(c),
		middleware.GetUsername(c), "تم إضافة وارد جديد من "+entry.Source, entry.Source)
	c.JSON(http.StatusCreated, entry)
}

// ListImports handles GET /api/imports
func (h *FinanceHandler) ListImports(c *gin.Context) {
	entries, err := h.repo.ListImports(c.Request.Context(), middleware.GetTenantID(c))
	if err != nil {
		h.logger.Error("failed to list import entries", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list import entries"})
		return
	}
	c.JSON(http.StatusOK, entries)
}

type addExportRequest struct {
	Description string   `json:"description" binding:"required"`
	Amount      *float64 `json:"amount" binding:"required"`
	Date        string   `json:"date" binding:"required"`
}

// AddExport handles POST /api/exports
func (h *FinanceHandler) AddExport(c *gin.Context) {
	var req addExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Missing required fields!"})
		return
	}

	tenantID := middleware.GetTenantID(c)
	entry, err := h.repo.AddExport(c.Request.Context(), tenantID, &models.Export{
		Description: req.Description,
		Amount:      *req.Amount,
		Date:        req.Date,
	})
	if err != nil {
		h.logger.Error("failed to add export entry", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add export entry"})
		return
	}

	h.recorder.Record(c.Request.Context(), tenantID, middleware.GetUserID(c),
		middleware.GetUsername(c), "تم إضافة منصرف جديد: "+entry.Description, entry.Description)
	c.JSON(http.StatusCreated, entry)
}

// ListExports handles GET /api/exports
func (h *FinanceHandler) ListExports(c *gin.Context) {
	entries, err := h.repo.ListExports(c.Request.Context(), middleware.GetTenantID(c))
	if err != nil {
		h.logger.Error("failed to list export entries", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list export entries"})
		return
	}
	c.JSON(http.StatusOK, entries)
}
