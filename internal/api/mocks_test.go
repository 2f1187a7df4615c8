package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/takaful-app/takaful/internal/audit"
	"github.com/takaful-app/takaful/internal/middleware"
	"github.com/takaful-app/takaful/internal/models"
	"github.com/takaful-app/takaful/internal/repository"
	"go.uber.org/zap"
)

type mockUserRepo struct{ mock.Mock }

func (m *mockUserRepo) Create(ctx context.Context, tenantID uuid.UUID, username, passwordHash, role string) (*models.User, error) {
	args := m.Called(ctx, tenantID, username, passwordHash, role)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *mockUserRepo) GetByID(ctx context.Context, tenantID, userID uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, tenantID, userID)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *mockUserRepo) GetByUsername(ctx context.Context, tenantID uuid.UUID, username string) (*models.User, error) {
	args := m.Called(ctx, tenantID, username)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *mockUserRepo) ListByRole(ctx context.Context, tenantID uuid.UUID, role string) ([]models.User, error) {
	args := m.Called(ctx, tenantID, role)
	u, _ := args.Get(0).([]models.User)
	return u, args.Error(1)
}

func (m *mockUserRepo) Delete(ctx context.Context, tenantID, userID uuid.UUID) error {
	return m.Called(ctx, tenantID, userID).Error(0)
}

func (m *mockUserRepo) UpdateCredentials(ctx context.Context, userID uuid.UUID, username, passwordHash *string) error {
	return m.Called(ctx, userID, username, passwordHash).Error(0)
}

func (m *mockUserRepo) UpdatePermissions(ctx context.Context, tenantID, userID uuid.UUID, perms map[string]bool) error {
	return m.Called(ctx, tenantID, userID, perms).Error(0)
}

type mockTenantRepo struct{ mock.Mock }

func (m *mockTenantRepo) Create(ctx context.Context, name, slug string) (*models.Tenant, error) {
	args := m.Called(ctx, name, slug)
	t, _ := args.Get(0).(*models.Tenant)
	return t, args.Error(1)
}

func (m *mockTenantRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	args := m.Called(ctx, id)
	t, _ := args.Get(0).(*models.Tenant)
	return t, args.Error(1)
}

func (m *mockTenantRepo) FindBySlugOrName(ctx context.Context, s string) (*models.Tenant, error) {
	args := m.Called(ctx, s)
	t, _ := args.Get(0).(*models.Tenant)
	return t, args.Error(1)
}

type mockResidentRepo struct{ mock.Mock }

func (m *mockResidentRepo) List(ctx context.Context, tenantID uuid.UUID) ([]models.Resident, error) {
	args := m.Called(ctx, tenantID)
	r, _ := args.Get(0).([]models.Resident)
	return r, args.Error(1)
}

func (m *mockResidentRepo) GetByID(ctx context.Context, tenantID uuid.UUID, id int64) (*models.Resident, error) {
	args := m.Called(ctx, tenantID, id)
	r, _ := args.Get(0).(*models.Resident)
	return r, args.Error(1)
}

func (m *mockResidentRepo) Create(ctx context.Context, tenantID uuid.UUID, r *models.Resident) (*models.Resident, error) {
	args := m.Called(ctx, tenantID, r)
	res, _ := args.Get(0).(*models.Resident)
	return res, args.Error(1)
}

func (m *mockResidentRepo) Update(ctx context.Context, tenantID uuid.UUID, id int64, upd repository.ResidentUpdate) (*models.Resident, error) {
	args := m.Called(ctx, tenantID, id, upd)
	r, _ := args.Get(0).(*models.Resident)
	return r, args.Error(1)
}

func (m *mockResidentRepo) Delete(ctx context.Context, tenantID uuid.UUID, id int64) error {
	return m.Called(ctx, tenantID, id).Error(0)
}

func (m *mockResidentRepo) DeleteAll(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockResidentRepo) Stats(ctx context.Context, tenantID uuid.UUID) (*models.ResidentStats, error) {
	args := m.Called(ctx, tenantID)
	s, _ := args.Get(0).(*models.ResidentStats)
	return s, args.Error(1)
}

func (m *mockResidentRepo) Search(ctx context.Context, tenantID uuid.UUID, name, idNumber string) (*models.Resident, error) {
	args := m.Called(ctx, tenantID, name, idNumber)
	r, _ := args.Get(0).(*models.Resident)
	return r, args.Error(1)
}

func (m *mockResidentRepo) IdentityKeys(ctx context.Context, tenantID uuid.UUID) (map[string]struct{}, error) {
	args := m.Called(ctx, tenantID)
	k, _ := args.Get(0).(map[string]struct{})
	return k, args.Error(1)
}

func (m *mockResidentRepo) BulkCreate(ctx context.Context, tenantID uuid.UUID, residents []models.Resident) error {
	return m.Called(ctx, tenantID, residents).Error(0)
}

type mockAidRepo struct{ mock.Mock }

func (m *mockAidRepo) List(ctx context.Context, tenantID uuid.UUID) ([]models.Aid, error) {
	args := m.Called(ctx, tenantID)
	a, _ := args.Get(0).([]models.Aid)
	return a, args.Error(1)
}

func (m *mockAidRepo) Add(ctx context.Context, tenantID uuid.UUID, residentID int64, aidType, date string) (*models.Aid, error) {
	args := m.Called(ctx, tenantID, residentID, aidType, date)
	a, _ := args.Get(0).(*models.Aid)
	return a, args.Error(1)
}

func (m *mockAidRepo) Update(ctx context.Context, tenantID uuid.UUID, aidID int64, upd repository.AidUpdate) (*models.Aid, error) {
	args := m.Called(ctx, tenantID, aidID, upd)
	a, _ := args.Get(0).(*models.Aid)
	return a, args.Error(1)
}

func (m *mockAidRepo) Delete(ctx context.Context, tenantID uuid.UUID, aidID int64) error {
	return m.Called(ctx, tenantID, aidID).Error(0)
}

func (m *mockAidRepo) Keys(ctx context.Context, tenantID uuid.UUID) (map[string]struct{}, error) {
	args := m.Called(ctx, tenantID)
	k, _ := args.Get(0).(map[string]struct{})
	return k, args.Error(1)
}

func (m *mockAidRepo) BulkAdd(ctx context.Context, tenantID uuid.UUID, aids []models.Aid) error {
	return m.Called(ctx, tenantID, aids).Error(0)
}

type mockChildRepo struct{ mock.Mock }

func (m *mockChildRepo) List(ctx context.Context, tenantID uuid.UUID) ([]models.Child, error) {
	args := m.Called(ctx, tenantID)
	c, _ := args.Get(0).([]models.Child)
	return c, args.Error(1)
}

func (m *mockChildRepo) GetByID(ctx context.Context, tenantID uuid.UUID, id int64) (*models.Child, error) {
	args := m.Called(ctx, tenantID, id)
	c, _ := args.Get(0).(*models.Child)
	return c, args.Error(1)
}

func (m *mockChildRepo) Create(ctx context.Context, tenantID uuid.UUID, c *models.Child) (*models.Child, error) {
	args := m.Called(ctx, tenantID, c)
	out, _ := args.Get(0).(*models.Child)
	return out, args.Error(1)
}

func (m *mockChildRepo) Update(ctx context.Context, tenantID uuid.UUID, id int64, upd repository.ChildUpdate) (*models.Child, error) {
	args := m.Called(ctx, tenantID, id, upd)
	c, _ := args.Get(0).(*models.Child)
	return c, args.Error(1)
}

func (m *mockChildRepo) DeleteByIDNumber(ctx context.Context, tenantID uuid.UUID, idNumber string) (*models.Child, error) {
	args := m.Called(ctx, tenantID, idNumber)
	c, _ := args.Get(0).(*models.Child)
	return c, args.Error(1)
}

func (m *mockChildRepo) AddAssistance(ctx context.Context, tenantID uuid.UUID, childID int64, helpType, otherHelp string) (*models.Assistance, error) {
	args := m.Called(ctx, tenantID, childID, helpType, otherHelp)
	a, _ := args.Get(0).(*models.Assistance)
	return a, args.Error(1)
}

func (m *mockChildRepo) LastAssistance(ctx context.Context, tenantID uuid.UUID, childID int64) (*models.Assistance, error) {
	args := m.Called(ctx, tenantID, childID)
	a, _ := args.Get(0).(*models.Assistance)
	return a, args.Error(1)
}

func (m *mockChildRepo) IDNumbers(ctx context.Context, tenantID uuid.UUID) (map[string]struct{}, error) {
	args := m.Called(ctx, tenantID)
	k, _ := args.Get(0).(map[string]struct{})
	return k, args.Error(1)
}

func (m *mockChildRepo) BulkCreate(ctx context.Context, tenantID uuid.UUID, children []models.Child) error {
	return m.Called(ctx, tenantID, children).Error(0)
}

type mockNotificationRepo struct{ mock.Mock }

func (m *mockNotificationRepo) Record(ctx context.Context, n *models.Notification) error {
	return m.Called(ctx, n).Error(0)
}

func (m *mockNotificationRepo) List(ctx context.Context, tenantID uuid.UUID) ([]models.Notification, error) {
	args := m.Called(ctx, tenantID)
	n, _ := args.Get(0).([]models.Notification)
	return n, args.Error(1)
}

func (m *mockNotificationRepo) MarkAllRead(ctx context.Context, tenantID uuid.UUID) error {
	return m.Called(ctx, tenantID).Error(0)
}

// testRecorder returns a Recorder backed by a mock that accepts any
// notification, so handler tests don't have to care about audit rows.
func testRecorder() *audit.Recorder {
	notif := &mockNotificationRepo{}
	notif.On("Record", mock.Anything, mock.Anything).Maybe().Return(nil)
	return audit.NewRecorder(notif, zap.NewNop())
}

// withClaims injects verified-token context values the way RequireAuth
// would, so handlers can be tested without a real token.
func withClaims(userID, tenantID uuid.UUID, username, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextKeyUserID, userID)
		c.Set(middleware.ContextKeyTenantID, tenantID)
		c.Set(middleware.ContextKeyUsername, username)
		c.Set(middleware.ContextKeyRole, role)
		c.Next()
	}
}

func performJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}
