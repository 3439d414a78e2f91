package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emeraldmc/appeals-api/internal/dto"
	"github.com/emeraldmc/appeals-api/internal/models"
	appErrors "github.com/emeraldmc/appeals-api/pkg/errors"
	"github.com/emeraldmc/appeals-api/pkg/response"
)

type appealSubmitter interface {
	Submit(ctx context.Context, req dto.SubmitAppealRequest, clientIP, userAgent string) (*models.Appeal, error)
	Get(ctx context.Context, id string) (*models.Appeal, error)
}

// AppealHandler exposes the player-facing appeal endpoints.
type AppealHandler struct {
	service appealSubmitter
}

// NewAppealHandler builds a new handler.
func NewAppealHandler(service appealSubmitter) *AppealHandler {
	return &AppealHandler{service: service}
}

// Submit godoc
// @Summary Submit a ban appeal
// @Tags Appeals
// @Accept json
// @Produce json
// @Param payload body dto.SubmitAppealRequest true "Appeal payload"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /appeals [post]
func (h *AppealHandler) Submit(c *gin.Context) {
	var req dto.SubmitAppealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid appeal payload"))
		return
	}

	appeal, err := h.service.Submit(c.Request.Context(), req, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, appeal)
}

// Get godoc
// @Summary Look up an appeal by id
// @Tags Appeals
// @Produce json
// @Param id path string true "Appeal ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /appeals/{id} [get]
func (h *AppealHandler) Get(c *gin.Context) {
	appeal, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appeal, nil)
}
