package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stemsi/attendance-backend/internal/attendance"
	"github.com/stemsi/attendance-backend/internal/calendar"
	"github.com/stemsi/attendance-backend/internal/model"
	"github.com/stemsi/attendance-backend/internal/repository"
	"github.com/stemsi/attendance-backend/internal/response"
	"github.com/stemsi/attendance-backend/internal/service"
)

// errorStatus pairs a sentinel error with the HTTP status and code it maps to.
type errorStatus struct {
	err    error
	status int
	code   response.ErrCode
}

var errorTable = []errorStatus{
	{repository.ErrNotFound, http.StatusNotFound, response.ErrNotFound},
	{model.ErrStudentNotFound, http.StatusNotFound, response.ErrNotFound},
	{repository.ErrDuplicate, http.StatusConflict, response.ErrConflict},
	{model.ErrDuplicateRollNumber, http.StatusConflict, response.ErrConflict},
	{model.ErrDuplicateStudent, http.StatusConflict, response.ErrConflict},
	{repository.ErrHasDependencies, http.StatusConflict, response.ErrDependencyExists},

	{calendar.ErrInvalidDate, http.StatusBadRequest, response.ErrInvalidDate},
	{calendar.ErrInvalidRange, http.StatusBadRequest, response.ErrInvalidRange},
	{calendar.ErrRangeTooLong, http.StatusBadRequest, response.ErrInvalidRange},

	{service.ErrInvalidCredentials, http.StatusUnauthorized, response.ErrInvalidCredentials},
	{service.ErrAccountInactive, http.StatusForbidden, response.ErrAccountInactive},
	{service.ErrNotClassTeacher, http.StatusForbidden, response.ErrNotClassTeacher},
	{service.ErrSelfAction, http.StatusForbidden, response.ErrActionForbidden},
	{service.ErrSameClass, http.StatusBadRequest, response.ErrActionForbidden},

	{service.ErrFutureDate, http.StatusUnprocessableEntity, response.ErrFutureDate},
	{service.ErrWeekend, http.StatusUnprocessableEntity, response.ErrWeekend},
	{service.ErrHoliday, http.StatusUnprocessableEntity, response.ErrHoliday},
	{service.ErrEditWindowClosed, http.StatusUnprocessableEntity, response.ErrEditWindowClosed},
}

// fail writes the error response for err. Unknown errors become a 500 and are
// attached to the gin context for the access log.
func fail(c *gin.Context, err error) {
	var verr *attendance.ValidationError
	if errors.As(err, &verr) {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, verr.Fields)
		return
	}
	if errors.Is(err, service.ErrInvalidTeacher) {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
			"teacher_id": "teacher_id must reference an active teacher",
		})
		return
	}
	for _, e := range errorTable {
		if errors.Is(err, e.err) {
			response.Fail(c, e.status, e.code)
			return
		}
	}
	_ = c.Error(err)
	response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
}

// paramID parses a uuid path parameter, answering INVALID_ID when it is malformed.
func paramID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

// queryClassID parses the optional class_id query parameter.
func queryClassID(c *gin.Context) (*uuid.UUID, bool) {
	raw := c.Query("class_id")
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return nil, false
	}
	return &id, true
}

// bindFailed answers VALIDATION_ERROR with the translated field map.
func bindFailed(c *gin.Context, fields map[string]string) {
	response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
}
