package api

import (
	"github.com/gin-gonic/gin"

	"github.com/bagiro44/baby-tracker/internal/flow"
)

type FlowRequest struct {
	Wizard    string `json:"wizard"`
	SubjectID int64  `json:"subject_id"`
}

// PostFlow records that the caller is mid-wizard (e.g. waiting to type
// a bottle amount), so the chat adapter can resume after a restart.
func PostFlow(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)

		var body FlowRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			HandleError(c, app.Logger(), err, 400, "Invalid JSON")
			return
		}

		if err := app.Flows().Begin(c.Request.Context(), user.ID, flow.Wizard(body.Wizard), body.SubjectID); err != nil {
			HandleServiceError(c, app.Logger(), err)
			return
		}
		HandleSuccess(c, app.Logger(), gin.H{"wizard": body.Wizard}, nil)
	}
}

func GetFlow(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)

		session, err := app.Flows().Active(c.Request.Context(), user.ID)
		if err != nil {
			HandleServiceError(c, app.Logger(), err)
			return
		}
		if session == nil {
			HandleSuccess(c, app.Logger(), nil, map[string]any{"active": false})
			return
		}
		HandleSuccess(c, app.Logger(), gin.H{"wizard": session.Wizard, "subject_id": session.SubjectID}, map[string]any{"active": true})
	}
}

func DeleteFlow(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)

		if err := app.Flows().Finish(c.Request.Context(), user.ID); err != nil {
			HandleServiceError(c, app.Logger(), err)
			return
		}
		HandleSuccess(c, app.Logger(), nil, nil)
	}
}
