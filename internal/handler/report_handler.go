package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/padmarajkore/sahayak-store/internal/models"
	"github.com/padmarajkore/sahayak-store/internal/service"
	"github.com/padmarajkore/sahayak-store/pkg/response"
)

// ReportHandler exposes the aggregation and export endpoints.
type ReportHandler struct {
	summaries *service.SummaryService
	exports   *service.ExportService
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(summaries *service.SummaryService, exports *service.ExportService) *ReportHandler {
	return &ReportHandler{summaries: summaries, exports: exports}
}

// ClassSummary godoc
// @Summary Attendance summary for a subject over a date range
// @Tags Reports
// @Produce json
// @Param subject path string true "Subject"
// @Param from query string false "Range start (YYYY-MM-DD)"
// @Param to query string false "Range end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /reports/classes/{subject}/summary [get]
func (h *ReportHandler) ClassSummary(c *gin.Context) {
	rng := models.DateRange{From: c.Query("from"), To: c.Query("to")}
	summary, err := h.summaries.ClassSummary(c.Request.Context(), c.Param("subject"), rng)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary)
}

// StudentRate godoc
// @Summary Attendance rate for one student
// @Tags Reports
// @Produce json
// @Param studentId path string true "Student ID"
// @Param subject query string false "Scope to one subject"
// @Param from query string false "Range start (YYYY-MM-DD)"
// @Param to query string false "Range end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /reports/students/{studentId}/rate [get]
func (h *ReportHandler) StudentRate(c *gin.Context) {
	rng := models.DateRange{From: c.Query("from"), To: c.Query("to")}
	summary, err := h.summaries.StudentRate(c.Request.Context(), c.Param("studentId"), c.Query("subject"), rng)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary)
}

// ClassRegister godoc
// @Summary Download a subject's attendance register as CSV or PDF
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Param subject path string true "Subject"
// @Param format query string false "csv (default) or pdf"
// @Param from query string false "Range start (YYYY-MM-DD)"
// @Param to query string false "Range end (YYYY-MM-DD)"
// @Success 200
// @Router /reports/classes/{subject}/register [get]
func (h *ReportHandler) ClassRegister(c *gin.Context) {
	rng := models.DateRange{From: c.Query("from"), To: c.Query("to")}
	format := service.ExportFormat(c.DefaultQuery("format", string(service.FormatCSV)))
	result, err := h.exports.ClassRegister(c.Request.Context(), c.Param("subject"), rng, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Content)
}
