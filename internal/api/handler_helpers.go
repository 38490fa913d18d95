package api

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bagiro44/baby-tracker/internal"
	"github.com/bagiro44/baby-tracker/internal/response"
	"github.com/bagiro44/baby-tracker/internal/service"
)

func HandleError(c *gin.Context, logger internal.Logger, err error, status int, msg string) {
	requestID := c.GetString("request_id")
	logger.Errorf("[request_id=%s] %s: %v", requestID, msg, err)
	var resp response.APIResponse
	switch status {
	case 400:
		resp = response.BadRequest(msg + ": " + err.Error())
	case 404:
		resp = response.NotFound(msg)
	case 409:
		resp = response.Conflict(msg)
	case 500:
		// Storage detail stays in the log, not the reply.
		resp = response.InternalError(msg)
	default:
		resp = response.NewAppError(status, msg)
	}
	c.JSON(status, resp)
}

func HandleSuccess(c *gin.Context, logger internal.Logger, data interface{}, meta map[string]any) {
	requestID := c.GetString("request_id")
	logger.Infof("[request_id=%s] Success", requestID)
	c.JSON(200, response.Success(data, meta))
}

// HandleServiceError maps the service error taxonomy onto HTTP. A
// conflict and a no-op close get distinct statuses and messages so the
// chat layer can phrase them apart.
func HandleServiceError(c *gin.Context, logger internal.Logger, err error) {
	switch {
	case errors.Is(err, internal.ErrSessionAlreadyOpen):
		HandleError(c, logger, err, 409, "A session of this kind is already open, close it first")
	case errors.Is(err, internal.ErrNoOpenSession):
		HandleError(c, logger, err, 404, "Nothing to close")
	case errors.Is(err, internal.ErrInvalidInput):
		HandleError(c, logger, err, 400, "Invalid input")
	case errors.Is(err, internal.ErrNotFound):
		HandleError(c, logger, err, 404, "Not found")
	default:
		HandleError(c, logger, err, 500, "Something went wrong, please try again")
	}
}

// subjectID resolves the :id path segment; the literal "current" maps
// to the oldest subject. Writes the error response itself.
func subjectID(c *gin.Context, app App) (int64, bool) {
	raw := c.Param("id")
	if raw == "current" {
		sub, err := service.CurrentSubject(c.Request.Context(), app.Subjects())
		if err != nil {
			HandleServiceError(c, app.Logger(), err)
			return 0, false
		}
		return sub.ID, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		HandleError(c, app.Logger(), err, 400, "Invalid subject id")
		return 0, false
	}
	return id, true
}
