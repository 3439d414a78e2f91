package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emeraldmc/appeals-api/internal/dto"
	"github.com/emeraldmc/appeals-api/internal/models"
	"github.com/emeraldmc/appeals-api/internal/service"
	appErrors "github.com/emeraldmc/appeals-api/pkg/errors"
)

type adminServiceMock struct {
	getResp    *models.Appeal
	getErr     error
	listResp   []models.Appeal
	listErr    error
	lastFilter models.AppealFilter
	recentDays []int
	updateResp *models.Appeal
	updateErr  error
	lastUpdate dto.UpdateStatusRequest
	markErr    error
	markedIDs  []string
	deleteErr  error
	deletedIDs []string
	statsResp  *models.AppealStats
	statsErr   error
}

func (m *adminServiceMock) Get(ctx context.Context, id string) (*models.Appeal, error) {
	return m.getResp, m.getErr
}

func (m *adminServiceMock) List(ctx context.Context, filter models.AppealFilter) ([]models.Appeal, error) {
	m.lastFilter = filter
	return m.listResp, m.listErr
}

func (m *adminServiceMock) Recent(ctx context.Context, days int) ([]models.Appeal, error) {
	m.recentDays = append(m.recentDays, days)
	return m.listResp, m.listErr
}

func (m *adminServiceMock) UpdateStatus(ctx context.Context, id string, req dto.UpdateStatusRequest) (*models.Appeal, error) {
	m.lastUpdate = req
	return m.updateResp, m.updateErr
}

func (m *adminServiceMock) MarkWebhookSent(ctx context.Context, id string) error {
	if m.markErr != nil {
		return m.markErr
	}
	m.markedIDs = append(m.markedIDs, id)
	return nil
}

func (m *adminServiceMock) Delete(ctx context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deletedIDs = append(m.deletedIDs, id)
	return nil
}

func (m *adminServiceMock) Stats(ctx context.Context) (*models.AppealStats, error) {
	return m.statsResp, m.statsErr
}

type exporterMock struct {
	result *service.ExportResult
	err    error
	format string
}

func (m *exporterMock) Export(ctx context.Context, filter models.AppealFilter, format string) (*service.ExportResult, error) {
	m.format = format
	return m.result, m.err
}

func adminTestContext(t *testing.T, method, target string, body *bytes.Buffer) (*httptest.ResponseRecorder, *gin.Context) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequest(method, target, body)
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, err = http.NewRequest(method, target, nil)
	}
	require.NoError(t, err)
	c.Request = req
	return w, c
}

func TestAdminHandlerListWithFilters(t *testing.T) {
	mockSvc := &adminServiceMock{listResp: []models.Appeal{{ID: "appeal-1"}}}
	handler := NewAdminHandler(mockSvc, nil)

	w, c := adminTestContext(t, http.MethodGet, "/admin/appeals?username=Player_1&status=pending&days=3", nil)
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Player_1", mockSvc.lastFilter.Username)
	assert.Equal(t, models.AppealStatus("pending"), mockSvc.lastFilter.Status)
	assert.Equal(t, 3, mockSvc.lastFilter.Days)
}

func TestAdminHandlerListDefaultRecentWindow(t *testing.T) {
	mockSvc := &adminServiceMock{}
	handler := NewAdminHandler(mockSvc, nil)

	w, c := adminTestContext(t, http.MethodGet, "/admin/appeals?days=0", nil)
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []int{0}, mockSvc.recentDays)
}

func TestAdminHandlerListBadDays(t *testing.T) {
	handler := NewAdminHandler(&adminServiceMock{}, nil)

	w, c := adminTestContext(t, http.MethodGet, "/admin/appeals?days=soon", nil)
	handler.List(c)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestAdminHandlerUpdateStatus(t *testing.T) {
	mockSvc := &adminServiceMock{
		updateResp: &models.Appeal{ID: "appeal-1", Status: models.AppealStatusApproved},
	}
	handler := NewAdminHandler(mockSvc, nil)

	body := bytes.NewBufferString(`{"status":"approved","response":"explanation","handledBy":"staff1"}`)
	w, c := adminTestContext(t, http.MethodPatch, "/admin/appeals/appeal-1/status", body)
	c.Params = gin.Params{{Key: "id", Value: "appeal-1"}}

	handler.UpdateStatus(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.AppealStatusApproved, mockSvc.lastUpdate.Status)
	require.NotNil(t, mockSvc.lastUpdate.Response)
	assert.Equal(t, "explanation", *mockSvc.lastUpdate.Response)
	require.NotNil(t, mockSvc.lastUpdate.HandledBy)
	assert.Equal(t, "staff1", *mockSvc.lastUpdate.HandledBy)
}

func TestAdminHandlerUpdateStatusNotFound(t *testing.T) {
	mockSvc := &adminServiceMock{updateErr: appErrors.ErrNotFound}
	handler := NewAdminHandler(mockSvc, nil)

	body := bytes.NewBufferString(`{"status":"denied"}`)
	w, c := adminTestContext(t, http.MethodPatch, "/admin/appeals/missing/status", body)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	handler.UpdateStatus(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminHandlerMarkWebhookSent(t *testing.T) {
	mockSvc := &adminServiceMock{}
	handler := NewAdminHandler(mockSvc, nil)

	w, c := adminTestContext(t, http.MethodPost, "/admin/appeals/appeal-1/webhook-sent", nil)
	c.Params = gin.Params{{Key: "id", Value: "appeal-1"}}

	handler.MarkWebhookSent(c)
	// gin only flushes a bodyless status during engine dispatch, so a bare
	// test context must flush it explicitly before reading the recorder.
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"appeal-1"}, mockSvc.markedIDs)
}

func TestAdminHandlerDelete(t *testing.T) {
	mockSvc := &adminServiceMock{}
	handler := NewAdminHandler(mockSvc, nil)

	w, c := adminTestContext(t, http.MethodDelete, "/admin/appeals/appeal-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "appeal-1"}}

	handler.Delete(c)
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"appeal-1"}, mockSvc.deletedIDs)
}

func TestAdminHandlerStats(t *testing.T) {
	mockSvc := &adminServiceMock{statsResp: &models.AppealStats{Total: 5, Pending: 2}}
	handler := NewAdminHandler(mockSvc, nil)

	w, c := adminTestContext(t, http.MethodGet, "/admin/appeals/stats", nil)
	handler.Stats(c)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope struct {
		Data models.AppealStats `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, 5, envelope.Data.Total)
	assert.Equal(t, 2, envelope.Data.Pending)
}

func TestAdminHandlerExportDisabled(t *testing.T) {
	handler := NewAdminHandler(&adminServiceMock{}, nil)

	w, c := adminTestContext(t, http.MethodGet, "/admin/appeals/export", nil)
	handler.Export(c)

	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminHandlerExportCSV(t *testing.T) {
	exporter := &exporterMock{result: &service.ExportResult{
		Content:     []byte("ID,Username\n"),
		ContentType: "text/csv",
		Filename:    "ban-appeals.csv",
	}}
	handler := NewAdminHandler(&adminServiceMock{}, exporter)

	w, c := adminTestContext(t, http.MethodGet, "/admin/appeals/export?format=csv", nil)
	handler.Export(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", exporter.format)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "ban-appeals.csv")
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
}
