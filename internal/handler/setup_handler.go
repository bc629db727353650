package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/exam-assign-api/internal/models"
	"github.com/noah-isme/exam-assign-api/pkg/response"
)

type codePoolService interface {
	Pools(ctx context.Context) models.CodePools
	SetPools(ctx context.Context, req models.SetupRequest) (models.CodePools, error)
	FormOptions(ctx context.Context) models.FormOptions
}

// SetupHandler exposes the code-pool registry.
type SetupHandler struct {
	pools codePoolService
}

// NewSetupHandler constructs a SetupHandler.
func NewSetupHandler(pools codePoolService) *SetupHandler {
	return &SetupHandler{pools: pools}
}

// Get godoc
// @Summary Get configured code pools
// @Tags Setup
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /setup [get]
func (h *SetupHandler) Get(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.pools.Pools(c.Request.Context()), nil)
}

// Put godoc
// @Summary Replace code pools
// @Description Each field is a comma separated list. All four must keep at least one valid entry.
// @Tags Setup
// @Accept json
// @Produce json
// @Param payload body models.SetupRequest true "Setup payload"
// @Success 200 {object} response.Envelope
// @Router /setup [put]
func (h *SetupHandler) Put(c *gin.Context) {
	var req models.SetupRequest
	if !bindJSON(c, &req, "invalid setup payload") {
		return
	}
	pools, err := h.pools.SetPools(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondWithMessage(c, http.StatusOK, pools, "Setup saved successfully!")
}

// Options godoc
// @Summary Assignment form options
// @Description Teachers, shifts, exam counts and the subject and packet codes not yet used.
// @Tags Setup
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /setup/options [get]
func (h *SetupHandler) Options(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.pools.FormOptions(c.Request.Context()), nil)
}
