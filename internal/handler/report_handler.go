package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stemsi/attendance-backend/internal/middleware"
	"github.com/stemsi/attendance-backend/internal/response"
	"github.com/stemsi/attendance-backend/internal/service"
	"github.com/stemsi/attendance-backend/internal/validator"
)

// ReportHandler serves reports, the month calendar and the range selection.
type ReportHandler struct {
	reportService    *service.ReportService
	selectionService *service.SelectionService
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reportService *service.ReportService, selectionService *service.SelectionService) *ReportHandler {
	return &ReportHandler{reportService: reportService, selectionService: selectionService}
}

// StudentReport godoc
// GET /api/v1/reports/students?class_id=&start=&end=
func (h *ReportHandler) StudentReport(c *gin.Context) {
	classID, ok := queryClassID(c)
	if !ok {
		return
	}
	if classID == nil {
		bindFailed(c, map[string]string{"class_id": "class_id is a required field"})
		return
	}

	rep, err := h.reportService.Students(c.Request.Context(), middleware.GetClaims(c), *classID, c.Query("start"), c.Query("end"))
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, rep)
}

// ClassReport godoc
// GET /api/v1/reports/classes?start=&end=
func (h *ReportHandler) ClassReport(c *gin.Context) {
	rep, err := h.reportService.Classes(c.Request.Context(), middleware.GetClaims(c), c.Query("start"), c.Query("end"))
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, rep)
}

// DailyTrend godoc
// GET /api/v1/reports/daily?class_id=&start=&end=
func (h *ReportHandler) DailyTrend(c *gin.Context) {
	classID, ok := queryClassID(c)
	if !ok {
		return
	}

	points, err := h.reportService.Daily(c.Request.Context(), middleware.GetClaims(c), classID, c.Query("start"), c.Query("end"))
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"days": points})
}

// Calendar godoc
// GET /api/v1/calendar?month=YYYY-MM&class_id=
func (h *ReportHandler) Calendar(c *gin.Context) {
	classID, ok := queryClassID(c)
	if !ok {
		return
	}

	month, err := h.reportService.Calendar(c.Request.Context(), middleware.GetClaims(c), c.Query("month"), classID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, month)
}

// SelectionClickRequest is one click on a calendar day.
type SelectionClickRequest struct {
	Date string `json:"date" binding:"required,isodate"`
}

// GetSelection godoc
// GET /api/v1/reports/selection
func (h *ReportHandler) GetSelection(c *gin.Context) {
	view, err := h.selectionService.Get(c.Request.Context(), middleware.GetClaims(c))
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, view)
}

// ClickSelection godoc
// POST /api/v1/reports/selection/click
// Advances the two-click range selection. A completed range embeds its class report.
func (h *ReportHandler) ClickSelection(c *gin.Context) {
	var req SelectionClickRequest
	if fields := validator.Bind(c, &req); fields != nil {
		bindFailed(c, fields)
		return
	}

	view, err := h.selectionService.Click(c.Request.Context(), middleware.GetClaims(c), req.Date)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, view)
}

// ResetSelection godoc
// DELETE /api/v1/reports/selection
func (h *ReportHandler) ResetSelection(c *gin.Context) {
	view, err := h.selectionService.Reset(c.Request.Context(), middleware.GetClaims(c))
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, view)
}
