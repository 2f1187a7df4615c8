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
	"github.com/takaful-app/takaful/internal/models"
	"github.com/takaful-app/takaful/internal/repository"
	"github.com/takaful-app/takaful/internal/sheet"
	"go.uber.org/zap"
)

type ResidentHandler struct {
	repo     repository.ResidentRepository
	recorder *audit.Recorder
	logger   *zap.Logger
}

func NewResidentHandler(repo repository.ResidentRepository, recorder *audit.Recorder, logger *zap.Logger) *ResidentHandler {
	return &ResidentHandler{repo: repo, recorder: recorder, logger: logger}
}

// List handles GET /api/residents
func (h *ResidentHandler) List(c *gin.Context) {
	residents, err := h.repo.List(c.Request.Context(), middleware.GetTenantID(c))
	if err != nil {
		h.logger.Error("failed to list residents", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list residents"})
		return
	}
	c.JSON(http.StatusOK, residents)
}

type createResidentRequest struct {
	HusbandName      string `json:"husband_name"`
	HusbandIDNumber  string `json:"husband_id_number"`
	WifeName         string `json:"wife_name"`
	WifeIDNumber     string `json:"wife_id_number"`
	PhoneNumber      string `json:"phone_number"`
	NumFamilyMembers *int   `json:"num_family_members"`
	Injuries         string `json:"injuries"`
	Diseases         string `json:"diseases"`
	DamageLevel      string `json:"damage_level"`
	Neighborhood     string `json:"neighborhood"`
	Notes            string `json:"notes"`
	ResidenceStatus  string `json:"residence_status"`
}

// Create handles POST /api/residents. A resident sharing a husband ID
// number, wife ID number or phone number with an existing record in
// the tenant is rejected as a duplicate.
func (h *ResidentHandler) Create(c *gin.Context) {
	var req createResidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tenantID := middleware.GetTenantID(c)
	resident, err := h.repo.Create(c.Request.Context(), tenantID, &models.Resident{
		HusbandName:      req.HusbandName,
		HusbandIDNumber:  req.HusbandIDNumber,
		WifeName:         req.WifeName,
		WifeIDNumber:     req.WifeIDNumber,
		PhoneNumber:      req.PhoneNumber,
		NumFamilyMembers: req.NumFamilyMembers,
		Injuries:         req.Injuries,
		Diseases:         req.Diseases,
		DamageLevel:      req.DamageLevel,
		Neighborhood:     req.Neighborhood,
		Notes:            req.Notes,
		ResidenceStatus:  req.ResidenceStatus,
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": "a resident with the same identity already exists"})
			return
		}
		h.logger.Error("failed to create resident", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create resident"})
		return
	}

	h.recorder.Record(c.Request.Context(), tenantID, middleware.GetUserID(c),
		middleware.GetUsername(c), "أضاف مستفيد جديد",
		resident.HusbandName+" / "+resident.WifeName)
	c.JSON(http.StatusCreated, resident)
}

type updateResidentRequest struct {
	HusbandName      *string `json:"husband_name"`
	HusbandIDNumber  *string `json:"husband_id_number"`
	WifeName         *string `json:"wife_name"`
	WifeIDNumber     *string `json:"wife_id_number"`
	PhoneNumber      *string `json:"phone_number"`
	NumFamilyMembers *int    `json:"num_family_members"`
	Injuries         *string `json:"injuries"`
	Diseases         *string `json:"diseases"`
	DamageLevel      *string `json:"damage_level"`
	Neighborhood     *string `json:"neighborhood"`
	Notes            *string `json:"notes"`
	ResidenceStatus  *string `json:"residence_status"`
}

// Update handles PUT /api/residents/:id. Only keys present in the body
// change; everything else keeps its prior value.
func (h *ResidentHandler) Update(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid resident id"})
		return
	}

	var req updateResidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tenantID := middleware.GetTenantID(c)
	resident, err := h.repo.Update(c.Request.Context(), tenantID, id, repository.ResidentUpdate{
		HusbandName:      req.HusbandName,
		HusbandIDNumber:  req.HusbandIDNumber,
		WifeName:         req.WifeName,
		WifeIDNumber:     req.WifeIDNumber,
		PhoneNumber:      req.PhoneNumber,
		NumFamilyMembers: req.NumFamilyMembers,
		Injuries:         req.Injuries,
		Diseases:         req.Diseases,
		DamageLevel:      req.DamageLevel,
		Neighborhood:     req.Neighborhood,
		Notes:            req.Notes,
		ResidenceStatus:  req.ResidenceStatus,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "resident not found"})
		case errors.Is(err, repository.ErrConflict):
			c.JSON(http.StatusConflict, gin.H{"error": "a resident with the same identity already exists"})
		default:
			h.logger.Error("failed to update resident", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update resident"})
		}
		return
	}

	h.recorder.Record(c.Request.Context(), tenantID, middleware.GetUserID(c),
		middleware.GetUsername(c), "حدث بيانات المستفيد",
		resident.HusbandName+" / "+resident.WifeName)
	c.JSON(http.StatusOK, resident)
}

// Delete handles DELETE /api/residents/:id. Every aid row owned by the
// resident goes with it.
func (h *ResidentHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid resident id"})
		return
	}

	tenantID := middleware.GetTenantID(c)
	resident, err := h.repo.GetByID(c.Request.Context(), tenantID, id)
	if err != nil {
		h.logger.Error("failed to get resident", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete resident"})
		return
	}
	if resident == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "resident not found"})
		return
	}

	if err := h.repo.Delete(c.Request.Context(), tenantID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "resident not found"})
			return
		}
		h.logger.Error("failed to delete resident", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete resident"})
		return
	}

	h.recorder.Record(c.Request.Context(), tenantID, middleware.GetUserID(c),
		middleware.GetUsername(c), "حذف مستفيد",
		resident.HusbandName+" / "+resident.WifeName)
	c.JSON(http.StatusOK, gin.H{"message": "resident deleted"})
}

// DeleteAll handles DELETE /api/residents (admin only).
func (h *ResidentHandler) DeleteAll(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)
	deleted, err := h.repo.DeleteAll(c.Request.Context(), tenantID)
	if err != nil {
		h.logger.Error("failed to delete all residents", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete residents"})
		return
	}

	h.recorder.Record(c.Request.Context(), tenantID, middleware.GetUserID(c),
		middleware.GetUsername(c), "حذف جميع المستفيدين", "")
	c.JSON(http.StatusOK, gin.H{"message": "all residents deleted", "deleted": deleted})
}

// Stats handles GET /api/residents/stats
func (h *ResidentHandler) Stats(c *gin.Context) {
	stats, err := h.repo.Stats(c.Request.Context(), middleware.GetTenantID(c))
	if err != nil {
		h.logger.Error("failed to compute resident stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Search handles GET /api/residents/search?name=...&id=... — exact
// match on husband name and ID number within the tenant.
func (h *ResidentHandler) Search(c *gin.Context) {
	name := c.Query("name")
	idNumber := c.Query("id")
	if name == "" || idNumber == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and id are required"})
		return
	}

	resident, err := h.repo.Search(c.Request.Context(), middleware.GetTenantID(c), name, idNumber)
	if err != nil {
		h.logger.Error("failed to search resident", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to search"})
		return
	}
	if resident == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "resident not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": resident.ID, "name": resident.HusbandName})
}

var residentExportHeaders = []string{
	"id", "husband_name", "husband_id_number", "wife_name", "wife_id_number",
	"phone_number", "num_family_members", "injuries", "diseases", "damage_level",
	"neighborhood", "notes", "has_received_aid", "residence_status",
}

// Export handles GET /api/export_residents — the tenant's residents as
// an xlsx download.
func (h *ResidentHandler) Export(c *gin.Context) {
	residents, err := h.repo.List(c.Request.Context(), middleware.GetTenantID(c))
	if err != nil {
		h.logger.Error("failed to list residents for export", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export residents"})
		return
	}

	records := make([][]any, 0, len(residents))
	for _, r := range residents {
		var family any
		if r.NumFamilyMembers != nil {
			family = *r.NumFamilyMembers
		}
		records = append(records, []any{
			r.ID, r.HusbandName, r.HusbandIDNumber, r.WifeName, r.WifeIDNumber,
			r.PhoneNumber, family, r.Injuries, r.Diseases, r.DamageLevel,
			r.Neighborhood, r.Notes, r.HasReceivedAid, r.ResidenceStatus,
		})
	}

	data, err := sheet.Write("Residents", residentExportHeaders, records)
	if err != nil {
		h.logger.Error("failed to build residents workbook", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export residents"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="residents.xlsx"`)
	c.Data(http.StatusOK, sheet.ContentType, data)
}

// Import handles POST /api/residents/import — a multipart xlsx upload
// reconciled against the registry. Rows already present (by husband or
// wife ID number) are skipped, rows without any identifying number are
// counted as incomplete, and the accepted remainder commits as one
// batch.
func (h *ResidentHandler) Import(c *gin.Context) {
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

	tenantID := middleware.GetTenantID(c)
	existing, err := h.repo.IdentityKeys(c.Request.Context(), tenantID)
	if err != nil {
		h.logger.Error("failed to snapshot identity keys", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "import failed"})
		return
	}

	accepted, result := importer.Residents(rows, existing)
	if err := h.repo.BulkCreate(c.Request.Context(), tenantID, accepted); err != nil {
		h.logger.Error("failed to commit resident import", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "import failed"})
		return
	}

	h.recorder.Record(c.Request.Context(), tenantID, middleware.GetUserID(c),
		middleware.GetUsername(c),
		fmt.Sprintf("استورد ملف مستفيدين (%d سجل، تم تجاهل %d مكرر)",
			result.Imported, result.SkippedDuplicate), "")

	c.JSON(http.StatusOK, gin.H{
		"message":            fmt.Sprintf("imported %d residents, skipped %d duplicates, %d incomplete", result.Imported, result.SkippedDuplicate, result.SkippedIncomplete),
		"imported":           result.Imported,
		"skipped_duplicate":  result.SkippedDuplicate,
		"skipped_incomplete": result.SkippedIncomplete,
	})
}
