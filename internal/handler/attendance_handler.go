package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/padmarajkore/sahayak-store/internal/models"
	"github.com/padmarajkore/sahayak-store/internal/service"
	appErrors "github.com/padmarajkore/sahayak-store/pkg/errors"
	"github.com/padmarajkore/sahayak-store/pkg/response"
)

// AttendanceHandler exposes attendance marking and query endpoints.
type AttendanceHandler struct {
	attendance *service.AttendanceService
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(attendance *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// Mark godoc
// @Summary Mark one student's attendance (upsert by student, subject, date)
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.MarkAttendanceRequest true "Attendance payload"
// @Success 201 {object} response.Envelope
// @Router /attendance [post]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	var req service.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.attendance.Mark(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// BulkMark godoc
// @Summary Mark a batch of attendance records atomically
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.BulkMarkAttendanceRequest true "Batch payload"
// @Success 201 {object} response.Envelope
// @Router /attendance/bulk [post]
func (h *AttendanceHandler) BulkMark(c *gin.Context) {
	var req service.BulkMarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	records, err := h.attendance.BulkMark(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, records)
}

// ByDate godoc
// @Summary List a subject's attendance on one date
// @Tags Attendance
// @Produce json
// @Param subject query string true "Subject"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *AttendanceHandler) ByDate(c *gin.Context) {
	records, err := h.attendance.ByDate(c.Request.Context(), c.Query("subject"), c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records)
}

// ByStudent godoc
// @Summary List one student's attendance history
// @Tags Attendance
// @Produce json
// @Param studentId path string true "Student ID"
// @Param from query string false "Range start (YYYY-MM-DD)"
// @Param to query string false "Range end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /attendance/students/{studentId} [get]
func (h *AttendanceHandler) ByStudent(c *gin.Context) {
	rng := queryRange(c)
	records, err := h.attendance.ByStudent(c.Request.Context(), c.Param("studentId"), rng)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records)
}

// ByClass godoc
// @Summary List a subject's attendance across a date range
// @Tags Attendance
// @Produce json
// @Param subject path string true "Subject"
// @Param from query string false "Range start (YYYY-MM-DD)"
// @Param to query string false "Range end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /attendance/classes/{subject} [get]
func (h *AttendanceHandler) ByClass(c *gin.Context) {
	rng := models.DateRange{From: c.Query("from"), To: c.Query("to")}
	records, err := h.attendance.ByClass(c.Request.Context(), c.Param("subject"), rng)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records)
}

func queryRange(c *gin.Context) *models.DateRange {
	from, to := c.Query("from"), c.Query("to")
	if from == "" && to == "" {
		return nil
	}
	return &models.DateRange{From: from, To: to}
}
