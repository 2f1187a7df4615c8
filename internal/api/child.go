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

type ChildHandler struct {
	repo     repository.ChildRepository
	recorder *audit.Recorder
	logger   *zap.Logger
}

func NewChildHandler(repo repository.ChildRepository, recorder *audit.Recorder, logger *zap.Logger) *ChildHandler {
	return &ChildHandler{repo: repo, recorder: recorder, logger: logger}
}

// List handles GET /api/children
func (h *ChildHandler) List(c *gin.Context) {
	children, err := h.repo.List(c.Request.Context(), middleware.GetTenantID(c))
	if err != nil {
		h.logger.Error("failed to list children", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list children"})
		return
	}
	c.JSON(http.StatusOK, children)
}

type createChildRequest struct {
	Name         string `json:"name" binding:"required"`
	IDNumber     string `json:"id_number" binding:"required"`
	BirthDate    string `json:"birth_date" binding:"required"`
	Age          *int   `json:"age" binding:"required"`
	Phone        string `json:"phone" binding:"required"`
	Gender       string `json:"gender" binding:"required"`
	BenefitType  string `json:"benefit_type" binding:"required"`
	BenefitCount int    `json:"benefit_count"`
}

// Create handles POST /api/children. The id_number is unique per
// tenant; missing required fields are a 422.
func (h *ChildHandler) Create(c *gin.Context) {
	var req createChildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Missing required fields!"})
		return
	}

	tenantID := middleware.GetTenantID(c)
	child, err := h.repo.Create(c.Request.Context(), tenantID, &models.Child{
		Name:         req.Name,
		IDNumber:     req.IDNumber,
		BirthDate:    req.BirthDate,
		Age:          *req.Age,
		Phone:        req.Phone,
		Gender:       req.Gender,
		BenefitType:  req.BenefitType,
		BenefitCount: req.BenefitCount,
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": "a child with this id number already exists"})
			return
		}
		h.logger.Error("failed to create child", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create child"})
		return
	}

	h.recorder.Record(c.Request.Context(), tenantID, middleware.GetUserID(c),
		middleware.GetUsername(c), "تم إضافة الطفل "+child.Name, child.Name)
	c.JSON(http.StatusCreated, child)
}

type updateChildRequest struct {
	Name         *string `json:"name"`
	IDNumber     *string `json:"id_number"`
	BirthDate    *string `json:"birth_date"`
	Age          *int    `json:"age"`
	Phone        *string `json:"phone"`
	Gender       *string `json:"gender"`
	BenefitType  *string `json:"benefit_type"`
	BenefitCount *int    `json:"benefit_count"`
}

// Update handles PUT /api/children/:id
func (h *ChildHandler) Update(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid child id"})
		return
	}

	var req updateChildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tenantID := middleware.GetTenantID(c)
	child, err := h.repo.Update(c.Request.Context(), tenantID, id, repository.ChildUpdate{
		Name:         req.Name,
		IDNumber:     req.IDNumber,
		BirthDate:    req.BirthDate,
		Age:          req.Age,
		Phone:        req.Phone,
		Gender:       req.Gender,
		BenefitType:  req.BenefitType,
		BenefitCount: req.BenefitCount,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "child not found"})
		case errors.Is(err, repository.ErrConflict):
			c.JSON(http.StatusConflict, gin.H{"error": "a child with this id number already exists"})
		default:
			h.logger.Error("failed to update child", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update child"})
		}
		return
	}

	h.recorder.Record(c.Request.Context(), tenantID, middleware.GetUserID(c),
		middleware.GetUsername(c), "تم تعديل بيانات الطفل "+child.Name, child.Name)
	c.JSON(http.StatusOK, child)
}

// Delete handles DELETE /api/children/:id_number — children are
// addressed by national ID number on deletion.
func (h *ChildHandler) Delete(c *gin.Context) {
	idNumber := c.Param("id_number")

	tenantID := middleware.GetTenantID(c)
	child, err := h.repo.DeleteByIDNumber(c.Request.Context(), tenantID, idNumber)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "child not found"})
			return
		}
		h.logger.Error("failed to delete child", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete child"})
		return
	}

	h.recorder.Record(c.Request.Context(), tenantID, middleware.GetUserID(c),
		middleware.GetUsername(c), "تم حذف الطفل "+child.Name, child.Name)
	c.JSON(http.StatusOK, gin.H{"message": "child deleted"})
}

type addAssistanceRequest struct {
	ChildID   int64  `json:"child_id" binding:"required"`
	HelpType  string `json:"help_type" binding:"required"`
	OtherHelp string `json:"other_help"`
}

// AddAssistance handles POST /api/assistance. Each insert bumps the
// child's benefit_count by exactly one; nothing ever decrements it.
func (h *ChildHandler) AddAssistance(c *gin.Context) {
	var req addAssistanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Missing required fields!"})
		return
	}

	tenantID := middleware.GetTenantID(c)
	assistance, err := h.repo.AddAssistance(c.Request.Context(), tenantID, req.ChildID, req.HelpType, req.OtherHelp)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "child not found"})
			return
		}
		h.logger.Error("failed to add assistance", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add assistance"})
		return
	}

	h.recorder.Record(c.Request.Context(), tenantID, middleware.GetUserID(c),
		middleware.GetUsername(c),
		fmt.Sprintf("تم إضافة مساعدة %s للطفل", assistance.HelpType), "")
	c.JSON(http.StatusCreated, assistance)
}

// LastAssistance handles GET /api/children/:id/last_assistance
func (h *ChildHandler) LastAssistance(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid child id"})
		return
	}

	ctx := c.Request.Context()
	tenantID := middleware.GetTenantID(c)

	child, err := h.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		h.logger.Error("failed to get child", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get child"})
		return
	}
	if child == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "child not found"})
		return
	}

	last, err := h.repo.LastAssistance(ctx, tenantID, id)
	if err != nil {
		h.logger.Error("failed to get last assistance", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get last assistance"})
		return
	}
	if last == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "child has not received any assistance yet"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"child_id":   child.ID,
		"child_name": child.Name,
		"last_assistance": gin.H{
			"help_type":  last.HelpType,
			"other_help": last.OtherHelp,
			"date_added": last.DateAdded,
		},
	})
}

var childExportHeaders = []string{
	"id", "name", "id_number", "birth_date", "age", "phone", "gender",
	"benefit_type", "benefit_count",
}

// Export handles GET /api/export_children
func (h *ChildHandler) Export(c *gin.Context) {
	children, err := h.repo.List(c.Request.Context(), middleware.GetTenantID(c))
	if err != nil {
		h.logger.Error("failed to list children for export", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export children"})
		return
	}

	records := make([][]any, 0, len(children))
	for _, ch := range children {
		records = append(records, []any{
			ch.ID, ch.Name, ch.IDNumber, ch.BirthDate, ch.Age, ch.Phone,
			ch.Gender, ch.BenefitType, ch.BenefitCount,
		})
	}

	data, err := sheet.Write("Children", childExportHeaders, records)
	if err != nil {
		h.logger.Error("failed to build children workbook", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export children"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="children.xlsx"`)
	c.Data(http.StatusOK, sheet.ContentType, data)
}

// Import handles POST /api/import_children — a multipart xlsx upload.
// Rows missing a required field are counted as incomplete, rows whose
// id_number is already registered are duplicates, and the accepted
// remainder commits as one batch.
func (h *ChildHandler) Import(c *gin.Context) {
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

	existing, err := h.repo.IDNumbers(ctx, tenantID)
	if err != nil {
		h.logger.Error("failed to snapshot child id numbers", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "import failed"})
		return
	}

	accepted, result := importer.Children(rows, existing)
	if err := h.repo.BulkCreate(ctx, tenantID, accepted); err != nil {
		h.logger.Error("failed to commit child import", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "import failed"})
		return
	}

	h.recorder.Record(ctx, tenantID, middleware.GetUserID(c), middleware.GetUsername(c),
		fmt.Sprintf("تم استيراد %d طفلًا وتجاهل %d بسبب بيانات غير مكتملة",
			result.Imported, result.SkippedDuplicate+result.SkippedIncomplete), "")

	c.JSON(http.StatusCreated, gin.H{
		"imported":           result.Imported,
		"skipped_duplicate":  result.SkippedDuplicate,
		"skipped_incomplete": result.SkippedIncomplete,
	})
}
