package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/choviet/choviet-api/internal/model"
	"github.com/choviet/choviet-api/internal/service"
)

// ReportHandler handles the abuse report API
type ReportHandler struct {
	reportService *service.ReportService
}

func NewReportHandler(reportService *service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// CreateReport godoc
// @Summary Report a user, post, or message
// @Tags Trust
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body model.CreateReportRequest true "Report"
// @Success 201 {object} model.CreateReportResponse
// @Failure 409 {object} model.ErrorResponse
// @Failure 422 {object} model.ErrorResponse
// @Router /reports [post]
func (h *ReportHandler) CreateReport(c *gin.Context) {
	var req model.CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	report, err := h.reportService.CreateReport(currentUserID(c), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDuplicateReport):
			c.JSON(http.StatusConflict, model.ErrorResponse{Error: err.Error()})
		case errors.Is(err, service.ErrSelfReport):
			c.JSON(http.StatusUnprocessableEntity, model.ErrorResponse{Error: err.Error()})
		case errors.Is(err, service.ErrValidation):
			c.JSON(http.StatusUnprocessableEntity, model.ErrorResponse{Error: err.Error()})
		case errors.Is(err, service.ErrTargetNotFound):
			c.JSON(http.StatusNotFound, model.ErrorResponse{Error: err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Failed to create report"})
		}
		return
	}

	c.JSON(http.StatusCreated, model.CreateReportResponse{
		Success:  true,
		ReportID: report.ID,
	})
}
