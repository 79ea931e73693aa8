package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stemsi/attendance-backend/internal/model"
	"github.com/stemsi/attendance-backend/internal/response"
	"github.com/stemsi/attendance-backend/internal/service"
	"github.com/stemsi/attendance-backend/internal/validator"
)

// ArchiveHandler serves the archived student list.
type ArchiveHandler struct {
	studentService *service.StudentService
}

func NewArchiveHandler(studentService *service.StudentService) *ArchiveHandler {
	return &ArchiveHandler{studentService: studentService}
}

// ListArchived godoc
// GET /api/v1/archived-students?class_id=
func (h *ArchiveHandler) ListArchived(c *gin.Context) {
	classID, ok := queryClassID(c)
	if !ok {
		return
	}

	list, err := h.studentService.ListArchived(c.Request.Context(), classID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"archived_students": list})
}

// RestoreArchived godoc
// POST /api/v1/archived-students/:id/restore
// Re-enrolls the student into class_id, or the class it was archived from.
func (h *ArchiveHandler) RestoreArchived(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req model.RestoreStudentRequest
	if c.Request.ContentLength != 0 {
		if fields := validator.Bind(c, &req); fields != nil {
			bindFailed(c, fields)
			return
		}
	}

	var classID *uuid.UUID
	if req.ClassID != "" {
		parsed, err := uuid.Parse(req.ClassID)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
			return
		}
		classID = &parsed
	}

	class, err := h.studentService.Restore(c.Request.Context(), id, classID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"class": class})
}

// DeleteArchived godoc
// DELETE /api/v1/archived-students/:id
func (h *ArchiveHandler) DeleteArchived(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.studentService.DeleteArchived(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "Archived student deleted permanently"})
}
