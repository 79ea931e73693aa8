package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stemsi/attendance-backend/internal/middleware"
	"github.com/stemsi/attendance-backend/internal/model"
	"github.com/stemsi/attendance-backend/internal/response"
	"github.com/stemsi/attendance-backend/internal/service"
	"github.com/stemsi/attendance-backend/internal/validator"
)

// AttendanceHandler handles attendance sheets.
type AttendanceHandler struct {
	attendanceService *service.AttendanceService
}

// NewAttendanceHandler creates a new AttendanceHandler.
func NewAttendanceHandler(attendanceService *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendanceService: attendanceService}
}

// ListAttendance godoc
// GET /api/v1/attendance?class_id=&start=&end=
// Returns one sheet per class and date, newest submission winning.
func (h *AttendanceHandler) ListAttendance(c *gin.Context) {
	classID, ok := queryClassID(c)
	if !ok {
		return
	}

	sheets, err := h.attendanceService.List(c.Request.Context(), middleware.GetClaims(c), classID, c.Query("start"), c.Query("end"))
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attendance": sheets})
}

// GetAttendance godoc
// GET /api/v1/classes/:id/attendance/:date
func (h *AttendanceHandler) GetAttendance(c *gin.Context) {
	classID, ok := paramID(c, "id")
	if !ok {
		return
	}

	sheet, err := h.attendanceService.Get(c.Request.Context(), middleware.GetClaims(c), classID, c.Param("date"))
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attendance": sheet})
}

// SubmitAttendance godoc
// PUT /api/v1/classes/:id/attendance/:date
// Creates the sheet or replaces it with a new version and an edit history entry.
func (h *AttendanceHandler) SubmitAttendance(c *gin.Context) {
	classID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req model.SubmitAttendanceRequest
	if fields := validator.Bind(c, &req); fields != nil {
		bindFailed(c, fields)
		return
	}

	sheet, err := h.attendanceService.Submit(c.Request.Context(), middleware.GetClaims(c), classID, c.Param("date"), req.Records)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attendance": sheet})
}

// GetHistory godoc
// GET /api/v1/classes/:id/attendance/:date/history
func (h *AttendanceHandler) GetHistory(c *gin.Context) {
	classID, ok := paramID(c, "id")
	if !ok {
		return
	}

	history, err := h.attendanceService.History(c.Request.Context(), middleware.GetClaims(c), classID, c.Param("date"))
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"edit_history": history})
}

// DeleteAttendance godoc
// DELETE /api/v1/classes/:id/attendance/:date
func (h *AttendanceHandler) DeleteAttendance(c *gin.Context) {
	classID, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.attendanceService.Delete(c.Request.Context(), classID, c.Param("date")); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "Attendance deleted successfully"})
}
