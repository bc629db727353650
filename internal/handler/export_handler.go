package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/exam-assign-api/internal/service"
	"github.com/noah-isme/exam-assign-api/pkg/response"
)

type exportService interface {
	Render(ctx context.Context, exportType service.ExportType, format service.ExportFormat) (*service.ExportFile, error)
}

// ExportHandler serves dataset downloads.
type ExportHandler struct {
	exports exportService
}

// NewExportHandler constructs an ExportHandler.
func NewExportHandler(exports exportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Download godoc
// @Summary Download a dataset
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param type path string true "teachers, assignments or records"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /exports/{type} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	exportType, err := service.ParseExportType(c.Param("type"))
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.exports.Render(c.Request.Context(), exportType, service.ExportFormat(c.DefaultQuery("format", string(service.FormatCSV))))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", file.Filename))
	c.Header("X-Message", fmt.Sprintf("%s exported successfully!", exportType))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
