package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/takaful-app/takaful/internal/models"
	"github.com/takaful-app/takaful/internal/repository"
	"go.uber.org/zap"
)

func childRouter(repo *mockChildRepo, tenantID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(withClaims(uuid.New(), tenantID, "admin", "admin"))

	h := NewChildHandler(repo, testRecorder(), zap.NewNop())
	r.POST("/api/children", h.Create)
	r.DELETE("/api/children/:id_number", h.Delete)
	r.POST("/api/assistance", h.AddAssistance)
	r.GET("/api/children/:id/last_assistance", h.LastAssistance)
	return r
}

func TestChildCreateDuplicateIDNumber(t *testing.T) {
	tenantID := uuid.New()
	repo := &mockChildRepo{}
	repo.On("Create", mock.Anything, tenantID, mock.Anything).Return(nil, repository.ErrConflict)

	r := childRouter(repo, tenantID)
	w := performJSON(t, r, http.MethodPost, "/api/children", gin.H{
		"name": "سارة", "id_number": "444", "birth_date": "2018-03-02",
		"age": 7, "phone": "0590000001", "gender": "أنثى", "benefit_type": "صحية",
	})

	require.Equal(t, http.StatusConflict, w.Code)
}

func TestChildCreateMissingFields(t *testing.T) {
	r := childRouter(&mockChildRepo{}, uuid.New())
	w := performJSON(t, r, http.MethodPost, "/api/children", gin.H{"name": "سارة"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestChildDeleteByIDNumber(t *testing.T) {
	tenantID := uuid.New()
	repo := &mockChildRepo{}
	repo.On("DeleteByIDNumber", mock.Anything, tenantID, "444").
		Return(&models.Child{ID: 1, TenantID: tenantID, Name: "سارة", IDNumber: "444"}, nil)

	r := childRouter(repo, tenantID)
	w := performJSON(t, r, http.MethodDelete, "/api/children/444", nil)

	require.Equal(t, http.StatusOK, w.Code)
	repo.AssertExpectations(t)
}

func TestAddAssistance(t *testing.T) {
	tenantID := uuid.New()
	repo := &mockChildRepo{}
	repo.On("AddAssistance", mock.Anything, tenantID, int64(9), "غذائية", "").
		Return(&models.Assistance{ID: 1, TenantID: tenantID, ChildID: 9, HelpType: "غذائية", DateAdded: time.Now()}, nil)

	r := childRouter(repo, tenantID)
	w := performJSON(t, r, http.MethodPost, "/api/assistance",
		gin.H{"child_id": 9, "help_type": "غذائية"})

	require.Equal(t, http.StatusCreated, w.Code)
	repo.AssertExpectations(t)
}

func TestAddAssistanceUnknownChild(t *testing.T) {
	tenantID := uuid.New()
	repo := &mockChildRepo{}
	repo.On("AddAssistance", mock.Anything, tenantID, int64(9), "غذائية", "").
		Return(nil, repository.ErrNotFound)

	r := childRouter(repo, tenantID)
	w := performJSON(t, r, http.MethodPost, "/api/assistance",
		gin.H{"child_id": 9, "help_type": "غذائية"})

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestLastAssistanceNoneYet(t *testing.T) {
	tenantID := uuid.New()
	repo := &mockChildRepo{}
	repo.On("GetByID", mock.Anything, tenantID, int64(9)).
		Return(&models.Child{ID: 9, TenantID: tenantID, Name: "سارة"}, nil)
	repo.On("LastAssistance", mock.Anything, tenantID, int64(9)).Return(nil, nil)

	r := childRouter(repo, tenantID)
	w := performJSON(t, r, http.MethodGet, "/api/children/9/last_assistance", nil)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestLastAssistance(t *testing.T) {
	tenantID := uuid.New()
	repo := &mockChildRepo{}
	repo.On("GetByID", mock.Anything, tenantID, int64(9)).
		Return(&models.Child{ID: 9, TenantID: tenantID, Name: "سارة"}, nil)
	repo.On("LastAssistance", mock.Anything, tenantID, int64(9)).
		Return(&models.Assistance{ID: 3, TenantID: tenantID, ChildID: 9, HelpType: "صحية", DateAdded: time.Now()}, nil)

	r := childRouter(repo, tenantID)
	w := performJSON(t, r, http.MethodGet, "/api/children/9/last_assistance", nil)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		ChildName string `json:"child_name"`
		Last      struct {
			HelpType string `json:"help_type"`
		} `json:"last_assistance"`
	}
	decodeJSON(t, w, &resp)
	require.Equal(t, "سارة", resp.ChildName)
	require.Equal(t, "صحية", resp.Last.HelpType)
}
