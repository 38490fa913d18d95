package api

import (
	"github.com/gin-gonic/gin"

	"github.com/bagiro44/baby-tracker/internal"
	"github.com/bagiro44/baby-tracker/internal/service"
)

func PostSubject(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body service.SubjectRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			HandleError(c, app.Logger(), err, 400, "Invalid JSON")
			return
		}
		if err := service.ValidateSubjectRequest(&body); err != nil {
			HandleError(c, app.Logger(), err, 400, "Validation failed")
			return
		}

		sub, err := service.CreateSubject(c.Request.Context(), app.Subjects(), &body)
		if err != nil {
			HandleServiceError(c, app.Logger(), err)
			return
		}
		HandleSuccess(c, app.Logger(), sub, nil)
	}
}

func GetSubjects(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		subjects, err := app.Subjects().ListSubjects(c.Request.Context())
		if err != nil {
			HandleServiceError(c, app.Logger(), err)
			return
		}
		HandleSuccess(c, app.Logger(), subjects, nil)
	}
}

type GenderRequest struct {
	Gender string `json:"gender"`
}

func PatchGender(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := subjectID(c, app)
		if !ok {
			return
		}

		var body GenderRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			HandleError(c, app.Logger(), err, 400, "Invalid JSON")
			return
		}

		if err := service.UpdateGender(c.Request.Context(), app.Subjects(), id, internal.Gender(body.Gender)); err != nil {
			HandleServiceError(c, app.Logger(), err)
			return
		}
		HandleSuccess(c, app.Logger(), gin.H{"id": id, "gender": body.Gender}, nil)
	}
}
