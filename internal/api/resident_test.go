package api

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/takaful-app/takaful/internal/models"
	"github.com/takaful-app/takaful/internal/repository"
	"github.com/takaful-app/takaful/internal/sheet"
	"go.uber.org/zap"
)

func residentRouter(repo *mockResidentRepo, tenantID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(withClaims(uuid.New(), tenantID, "admin", "admin"))

	h := NewResidentHandler(repo, testRecorder(), zap.NewNop())
	r.GET("/api/residents", h.List)
	r.POST("/api/residents", h.Create)
	r.PUT("/api/residents/:id", h.Update)
	r.DELETE("/api/residents/:id", h.Delete)
	r.GET("/api/residents/search", h.Search)
	r.POST("/api/residents/import", h.Import)
	return r
}

func TestResidentCreate(t *testing.T) {
	tenantID := uuid.New()
	repo := &mockResidentRepo{}
	repo.On("Create", mock.Anything, tenantID, mock.MatchedBy(func(r *models.Resident) bool {
		return r.HusbandName == "أحمد" && r.HusbandIDNumber == "900123456"
	})).Return(&models.Resident{ID: 1, TenantID: tenantID, HusbandName: "أحمد", HusbandIDNumber: "900123456"}, nil)

	r := residentRouter(repo, tenantID)
	w := performJSON(t, r, http.MethodPost, "/api/residents",
		gin.H{"husband_name": "أحمد", "husband_id_number": "900123456"})

	require.Equal(t, http.StatusCreated, w.Code)
	repo.AssertExpectations(t)
}

func TestResidentCreateDuplicate(t *testing.T) {
	tenantID := uuid.New()
	repo := &mockResidentRepo{}
	repo.On("Create", mock.Anything, tenantID, mock.Anything).Return(nil, repository.ErrConflict)

	r := residentRouter(repo, tenantID)
	w := performJSON(t, r, http.MethodPost, "/api/residents",
		gin.H{"husband_id_number": "900123456"})

	require.Equal(t, http.StatusConflict, w.Code)
}

func TestResidentUpdatePartial(t *testing.T) {
	tenantID := uuid.New()
	repo := &mockResidentRepo{}
	repo.On("Update", mock.Anything, tenantID, int64(3), mock.MatchedBy(func(u repository.ResidentUpdate) bool {
		// Only the phone number is in the body; everything else stays nil.
		return u.PhoneNumber != nil && *u.PhoneNumber == "0590000000" && u.HusbandName == nil
	})).Return(&models.Resident{ID: 3, TenantID: tenantID, PhoneNumber: "0590000000"}, nil)

	r := residentRouter(repo, tenantID)
	w := performJSON(t, r, http.MethodPut, "/api/residents/3",
		gin.H{"phone_number": "0590000000"})

	require.Equal(t, http.StatusOK, w.Code)
	repo.AssertExpectations(t)
}

func TestResidentUpdateNotFound(t *testing.T) {
	tenantID := uuid.New()
	repo := &mockResidentRepo{}
	repo.On("Update", mock.Anything, tenantID, int64(99), mock.Anything).Return(nil, repository.ErrNotFound)

	r := residentRouter(repo, tenantID)
	w := performJSON(t, r, http.MethodPut, "/api/residents/99", gin.H{"notes": "x"})

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestResidentDelete(t *testing.T) {
	tenantID := uuid.New()
	repo := &mockResidentRepo{}
	repo.On("GetByID", mock.Anything, tenantID, int64(5)).
		Return(&models.Resident{ID: 5, TenantID: tenantID, HusbandName: "أحمد"}, nil)
	repo.On("Delete", mock.Anything, tenantID, int64(5)).Return(nil)

	r := residentRouter(repo, tenantID)
	w := performJSON(t, r, http.MethodDelete, "/api/residents/5", nil)

	require.Equal(t, http.StatusOK, w.Code)
	repo.AssertExpectations(t)
}

func TestResidentDeleteNotFound(t *testing.T) {
	tenantID := uuid.New()
	repo := &mockResidentRepo{}
	repo.On("GetByID", mock.Anything, tenantID, int64(5)).Return(nil, nil)

	r := residentRouter(repo, tenantID)
	w := performJSON(t, r, http.MethodDelete, "/api/residents/5", nil)

	require.Equal(t, http.StatusNotFound, w.Code)
	repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
}

func TestResidentSearchRequiresParams(t *testing.T) {
	r := residentRouter(&mockResidentRepo{}, uuid.New())
	w := performJSON(t, r, http.MethodGet, "/api/residents/search?name=أحمد", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResidentImport(t *testing.T) {
	tenantID := uuid.New()
	repo := &mockResidentRepo{}
	repo.On("IdentityKeys", mock.Anything, tenantID).
		Return(map[string]struct{}{"900111111": {}}, nil)
	repo.On("BulkCreate", mock.Anything, tenantID, mock.MatchedBy(func(rs []models.Resident) bool {
		return len(rs) == 1 && rs[0].HusbandIDNumber == "900222222"
	})).Return(nil)

	// One duplicate row, one new row, one row with no identity number.
	data, err := sheet.Write("Residents",
		[]string{"husband_name", "husband_id_number"},
		[][]any{
			{"موجود", "900111111"},
			{"جديد", "900222222"},
			{"ناقص", ""},
		})
	require.NoError(t, err)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "residents.xlsx")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/residents/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	residentRouter(repo, tenantID).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Imported          int `json:"imported"`
		SkippedDuplicate  int `json:"skipped_duplicate"`
		SkippedIncomplete int `json:"skipped_incomplete"`
	}
	decodeJSON(t, w, &resp)
	require.Equal(t, 1, resp.Imported)
	require.Equal(t, 1, resp.SkippedDuplicate)
	require.Equal(t, 1, resp.SkippedIncomplete)
	repo.AssertExpectations(t)
}
