package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/takaful-app/takaful/internal/audit"
	"github.com/takaful-app/takaful/internal/importer"
	"github.com/takaful-app/takaful/internal/middleware"
	"github.com/takaful-app/takaful/internal/repository"
	"github.com/takaful-app/takaful/internal/sheet"
	"go.uber.org/zap"
)

type AidHandler struct {
	repo         repository.AidRepository
	residentRepo repository.ResidentRepository
	recorder     *audit.Recorder
	logger       *zap.Logger
}

func NewAidHandler(
	repo repository.AidRepository,
	residentRepo repository.ResidentRepository,
	recorder *audit.Recorder,
	logger *zap.Logger,
) *AidHandler {
	return &AidHandler{repo: repo, residentRepo: residentRepo, recorder: recorder, logger: logger}
}

// List handles GET /api/aids — aid rows joined with the owning
// resident's identity fields.
func (h *AidHandler) List(c *gin.Context) {
	aids, err := h.repo.List(c.Request.Context(), middleware.GetTenantID(c))
	if err != nil {
		h.logger.Error("failed to list aids", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list aids"})
		return
	}
	c.JSON(http.StatusOK, aids)
}

type createAidRequest struct {
	ResidentID int64  `json:"resident_id" binding:"required"`
	AidType    string `json:"aid_type" binding:"required"`
	Date       string `json:"date" binding:"required"`
}

// Create handles POST /api/aids. The resident must exist in the
// caller's tenant; its has_received_aid flag flips on as a side effect.
func (h *AidHandler) Create(c *gin.Context) {
	var req createAidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tenantID := middleware.GetTenantID(c)
	aid, err := h.repo.Add(c.Request.Context(), tenantID, req.ResidentID, req.AidType, req.Date)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "resident not found"})
			return
		}
		h.logger.Error("failed to add aid", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add aid"})
		return
	}

	target := ""
	if aid.Resident != nil {
		target = aid.Resident.HusbandName
	}
	h.recorder.Record(c.Request.Context(), tenantID, middleware.GetUserID(c),
		middleware.GetUsername(c),
		fmt.Sprintf("اضافة مساعدة (%s) للمستفيد", aid.AidType), target)
	c.JSON(http.StatusCreated, aid)
}

type updateAidRequest struct {
	AidType *string `json:"aid_type"`
	Date    *string `json:"date"`
}

// Update handles PUT /api/aids/:id. An aid belonging to another tenant
// is a 403, not a 404: the row exists, the caller just doesn't own it.
func (h *AidHandler) Update(c *gin.Context) {
	aidID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid aid id"})
		return
	}

	var req updateAidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tenantID := middleware.GetTenantID(c)
	aid, err := h.repo.Update(c.Request.Context(), tenantID, aidID, repository.AidUpdate{
		AidType: req.AidType,
		Date:    req.Date,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "aid not found"})
		case errors.Is(err, repository.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"error": "not allowed to modify this aid"})
		default:
			h.logger.Error("failed to update aid", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update aid"})
		}
		return
	}

	h.recorder.Record(c.Request.Context(), tenantID, middleware.GetUserID(c),
		middleware.GetUsername(c), "حدث بيانات المساعدة", "")
	c.JSON(http.StatusOK, aid)
}

// Delete handles DELETE /api/aids/:id. Removing the resident's last
// aid clears has_received_aid.
func (h *AidHandler) Delete(c *gin.Context) {
	aidID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid aid id"})
		return
	}

	tenantID := middleware.GetTenantID(c)
	if err := h.repo.Delete(c.Request.Context(), tenantID, aidID); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "aid not found"})
		case errors.Is(err, repository.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"error": "not allowed to delete this aid"})
		default:
			h.logger.Error("failed to delete aid", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete aid"})
		}
		return
	}

	h.recorder.Record(c.Request.Context(), tenantID, middleware.GetUserID(c),
		middleware.GetUsername(c), "حذف مساعدة", "")
	c.JSON(http.StatusOK, gin.H{"message": "aid deleted"})
}

// Import handles POST /api/importt_excel — a multipart xlsx upload with
// husband_name, husband_id_number, aid_type and date columns. Rows are
// matched to residents by exact name + ID number; unmatched rows and
// already-recorded aids are skipped and the accepted batch commits in
// one transaction.
func (h *AidHandler) Import(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file uploaded"})
		return
	}
	defer file.Close()

	rows, err := sheet.ReadRows(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("failed to read workbook: %v", err)})
		return
	}

	ctx := c.Request.Context()
	tenantID := middleware.GetTenantID(c)

	residents, err := h.residentRepo.List(ctx, tenantID)
	if err != nil {
		h.logger.Error("failed to list residents for aid import", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "import failed"})
		return
	}
	lookup := make(map[string]int64, len(residents))
	for _, r := range residents {
		lookup[importer.ResidentKey(r.HusbandName, r.HusbandIDNumber)] = r.ID
	}

	existing, err := h.repo.Keys(ctx, tenantID)
	if err != nil {
		h.logger.Error("failed to snapshot aid keys", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "import failed"})
		return
	}

	accepted, result := importer.Aids(rows, lookup, existing, repository.AidKey)
	if err := h.repo.BulkAdd(ctx, tenantID, accepted); err != nil {
		h.logger.Error("failed to commit aid import", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "import failed"})
		return
	}

	h.recorder.Record(ctx, tenantID, middleware.GetUserID(c), middleware.GetUsername(c),
		fmt.Sprintf("استيراد مساعدات جديدة: %d، تم تخطي %d",
			result.Imported, result.SkippedDuplicate+result.SkippedUnmatched+result.SkippedIncomplete), "")

	c.JSON(http.StatusOK, gin.H{
		"imported":           result.Imported,
		"skipped_duplicate":  result.SkippedDuplicate,
		"skipped_unmatched":  result.SkippedUnmatched,
		"skipped_incomplete": result.SkippedIncomplete,
	})
}
