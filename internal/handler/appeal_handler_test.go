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
	appErrors "github.com/emeraldmc/appeals-api/pkg/errors"
)

type appealServiceMock struct {
	submitResp *models.Appeal
	submitErr  error
	getResp    *models.Appeal
	getErr     error
	lastReq    dto.SubmitAppealRequest
	lastIP     string
	lastAgent  string
	submits    int
}

func (m *appealServiceMock) Submit(ctx context.Context, req dto.SubmitAppealRequest, clientIP, userAgent string) (*models.Appeal, error) {
	m.submits++
	m.lastReq = req
	m.lastIP = clientIP
	m.lastAgent = userAgent
	return m.submitResp, m.submitErr
}

func (m *appealServiceMock) Get(ctx context.Context, id string) (*models.Appeal, error) {
	return m.getResp, m.getErr
}

func submitBody(t *testing.T) *bytes.Buffer {
	t.Helper()
	payload := map[string]string{
		"username":     "Player_1",
		"discordId":    "pl#1234",
		"email":        "p@x.com",
		"banReason":    "hacking",
		"appealReason": "I have learned my lesson and would like another chance to play fairly.",
	}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return bytes.NewBuffer(raw)
}

func TestAppealHandlerSubmitCreated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &appealServiceMock{
		submitResp: &models.Appeal{ID: "appeal-1", Status: models.AppealStatusPending},
	}
	handler := NewAppealHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/appeals", submitBody(t))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "test-agent")
	c.Request = req

	handler.Submit(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, mockSvc.submits)
	assert.Equal(t, "Player_1", mockSvc.lastReq.Username)
	assert.Equal(t, "test-agent", mockSvc.lastAgent)

	var envelope struct {
		Data models.Appeal `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "appeal-1", envelope.Data.ID)
	assert.Equal(t, models.AppealStatusPending, envelope.Data.Status)
}

func TestAppealHandlerSubmitMalformedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &appealServiceMock{}
	handler := NewAppealHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/appeals", bytes.NewBufferString(`{"username":`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Submit(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, mockSvc.submits)
}

func TestAppealHandlerSubmitValidationError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &appealServiceMock{
		submitErr: appErrors.Validation(map[string]string{"username": "Username must be at least 3 characters"}),
	}
	handler := NewAppealHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/appeals", submitBody(t))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Submit(c)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var envelope struct {
		Error struct {
			Code   string            `json:"code"`
			Fields map[string]string `json:"fields"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "VALIDATION_ERROR", envelope.Error.Code)
	assert.Equal(t, "Username must be at least 3 characters", envelope.Error.Fields["username"])
}

func TestAppealHandlerSubmitStoreFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &appealServiceMock{submitErr: appErrors.ErrStore}
	handler := NewAppealHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/appeals", submitBody(t))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Submit(c)
	require.Equal(t, http.StatusBadGateway, w.Code)
}

func TestAppealHandlerGet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &appealServiceMock{getResp: &models.Appeal{ID: "appeal-1"}}
	handler := NewAppealHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/appeals/appeal-1", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "appeal-1"}}

	handler.Get(c)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestAppealHandlerGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &appealServiceMock{getErr: appErrors.ErrNotFound}
	handler := NewAppealHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/appeals/missing", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	handler.Get(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}
