package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/stemsi/attendance-backend/internal/model"
	"github.com/stemsi/attendance-backend/internal/response"
	"github.com/stemsi/attendance-backend/internal/service"
	"github.com/stemsi/attendance-backend/internal/validator"
)

type HolidayHandler struct {
	holidayService *service.HolidayService
}

func NewHolidayHandler(holidayService *service.HolidayService) *HolidayHandler {
	return &HolidayHandler{holidayService: holidayService}
}

// ListHolidays godoc
// GET /api/v1/holidays?year= or ?start=&end=
func (h *HolidayHandler) ListHolidays(c *gin.Context) {
	var (
		holidays []model.Holiday
		err      error
	)
	if raw := c.Query("year"); raw != "" {
		year, convErr := strconv.Atoi(raw)
		if convErr != nil || year < 1900 || year > 9999 {
			bindFailed(c, map[string]string{"year": "year must be a four digit number"})
			return
		}
		holidays, err = h.holidayService.ListYear(c.Request.Context(), year)
	} else {
		holidays, err = h.holidayService.List(c.Request.Context(), c.Query("start"), c.Query("end"))
	}
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"holidays": holidays})
}

// CreateHoliday godoc
// POST /api/v1/holidays
func (h *HolidayHandler) CreateHoliday(c *gin.Context) {
	var req model.HolidayRequest
	if fields := validator.Bind(c, &req); fields != nil {
		bindFailed(c, fields)
		return
	}

	holiday, err := h.holidayService.Create(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"holiday": holiday})
}

// UpdateHoliday godoc
// PUT /api/v1/holidays/:id
func (h *HolidayHandler) UpdateHoliday(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req model.HolidayRequest
	if fields := validator.Bind(c, &req); fields != nil {
		bindFailed(c, fields)
		return
	}

	holiday, err := h.holidayService.Update(c.Request.Context(), id, req)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"holiday": holiday})
}

// DeleteHoliday godoc
// DELETE /api/v1/holidays/:id
func (h *HolidayHandler) DeleteHoliday(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.holidayService.Delete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "Holiday deleted successfully"})
}
