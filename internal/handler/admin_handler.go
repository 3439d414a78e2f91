package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/emeraldmc/appeals-api/internal/dto"
	"github.com/emeraldmc/appeals-api/internal/middleware"
	"github.com/emeraldmc/appeals-api/internal/models"
	"github.com/emeraldmc/appeals-api/internal/service"
	appErrors "github.com/emeraldmc/appeals-api/pkg/errors"
	"github.com/emeraldmc/appeals-api/pkg/response"
)

type appealAdminService interface {
	Get(ctx context.Context, id string) (*models.Appeal, error)
	List(ctx context.Context, filter models.AppealFilter) ([]models.Appeal, error)
	Recent(ctx context.Context, days int) ([]models.Appeal, error)
	UpdateStatus(ctx context.Context, id string, req dto.UpdateStatusRequest) (*models.Appeal, error)
	MarkWebhookSent(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (*models.AppealStats, error)
}

type appealExporter interface {
	Export(ctx context.Context, filter models.AppealFilter, format string) (*service.ExportResult, error)
}

// AdminHandler exposes the review-side appeal endpoints.
type AdminHandler struct {
	service appealAdminService
	exports appealExporter
}

// NewAdminHandler builds a new handler. The exporter may be nil when the
// export feature is disabled.
func NewAdminHandler(service appealAdminService, exports appealExporter) *AdminHandler {
	return &AdminHandler{service: service, exports: exports}
}

// List godoc
// @Summary List appeals
// @Tags Admin
// @Produce json
// @Param username query string false "Exact username filter"
// @Param email query string false "Exact email filter"
// @Param status query string false "Status filter (pending|approved|denied|under_review)"
// @Param days query int false "Only appeals created within the last N days"
// @Success 200 {object} response.Envelope
// @Router /admin/appeals [get]
func (h *AdminHandler) List(c *gin.Context) {
	filter, err := listFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var appeals []models.Appeal
	if filter == (models.AppealFilter{}) && c.Query("days") != "" {
		// days=0 means "use the default recency window"
		appeals, err = h.service.Recent(c.Request.Context(), 0)
	} else {
		appeals, err = h.service.List(c.Request.Context(), filter)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appeals, nil, middleware.ExtractMeta(c))
}

// Get godoc
// @Summary Fetch a single appeal
// @Tags Admin
// @Produce json
// @Param id path string true "Appeal ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/appeals/{id} [get]
func (h *AdminHandler) Get(c *gin.Context) {
	appeal, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appeal, nil)
}

// UpdateStatus godoc
// @Summary Apply a review decision
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Appeal ID"
// @Param payload body dto.UpdateStatusRequest true "Review decision"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/appeals/{id}/status [patch]
func (h *AdminHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid review payload"))
		return
	}

	appeal, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appeal, nil)
}

// MarkWebhookSent godoc
// @Summary Mark an appeal's webhook as delivered
// @Tags Admin
// @Produce json
// @Param id path string true "Appeal ID"
// @Success 204 "No Content"
// @Router /admin/appeals/{id}/webhook-sent [post]
func (h *AdminHandler) MarkWebhookSent(c *gin.Context) {
	if err := h.service.MarkWebhookSent(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Delete godoc
// @Summary Permanently delete an appeal
// @Tags Admin
// @Produce json
// @Param id path string true "Appeal ID"
// @Success 204 "No Content"
// @Failure 404 {object} response.Envelope
// @Router /admin/appeals/{id} [delete]
func (h *AdminHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Stats godoc
// @Summary Aggregate appeal counts by status
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/appeals/stats [get]
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Export godoc
// @Summary Download appeals as CSV or PDF
// @Tags Admin
// @Produce text/csv
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Router /admin/appeals/export [get]
func (h *AdminHandler) Export(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.New(appErrors.ErrForbidden.Code, http.StatusForbidden, "exports are disabled"))
		return
	}

	filter, err := listFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.exports.Export(c.Request.Context(), filter, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	c.Data(http.StatusOK, result.ContentType, result.Content)
}

func listFilter(c *gin.Context) (models.AppealFilter, error) {
	filter := models.AppealFilter{
		Username: c.Query("username"),
		Email:    c.Query("email"),
		Status:   models.AppealStatus(c.Query("status")),
	}
	if raw := c.Query("days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 0 {
			return models.AppealFilter{}, appErrors.Validation(map[string]string{"days": "days must be a non-negative integer"})
		}
		filter.Days = days
	}
	return filter, nil
}
