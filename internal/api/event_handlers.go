package api

import (
	"github.com/gin-gonic/gin"

	"github.com/bagiro44/baby-tracker/internal"
	"github.com/bagiro44/baby-tracker/internal/service"
)

func currentUser(c *gin.Context) *internal.User {
	return c.MustGet("user").(*internal.User)
}

// bindOptional decodes the body when one was sent; an empty body means
// "use defaults" (e.g. timestamp = now).
func bindOptional(c *gin.Context, out interface{}) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	return c.ShouldBindJSON(out)
}

func PostIntervalStart(app App, kind internal.IntervalKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		id, ok := subjectID(c, app)
		if !ok {
			return
		}

		var body service.StartIntervalRequest
		if err := bindOptional(c, &body); err != nil {
			HandleError(c, app.Logger(), err, 400, "Invalid JSON")
			return
		}

		ev, err := app.Engine().StartInterval(c.Request.Context(), id, kind, user.ID, body.Timestamp)
		if err != nil {
			HandleServiceError(c, app.Logger(), err)
			return
		}
		HandleSuccess(c, app.Logger(), ev, nil)
	}
}

func PostIntervalEnd(app App, kind internal.IntervalKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		id, ok := subjectID(c, app)
		if !ok {
			return
		}

		var body service.EndIntervalRequest
		if err := bindOptional(c, &body); err != nil {
			HandleError(c, app.Logger(), err, 400, "Invalid JSON")
			return
		}
		if err := service.ValidateEndIntervalRequest(&body); err != nil {
			HandleError(c, app.Logger(), err, 400, "Validation failed")
			return
		}

		ev, minutes, err := app.Engine().EndInterval(c.Request.Context(), id, kind, user.ID, body.Timestamp, body.Side)
		if err != nil {
			HandleServiceError(c, app.Logger(), err)
			return
		}
		HandleSuccess(c, app.Logger(), ev, map[string]any{"duration_minutes": minutes})
	}
}

func PostFeeding(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		id, ok := subjectID(c, app)
		if !ok {
			return
		}

		var body service.BottleRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			HandleError(c, app.Logger(), err, 400, "Invalid JSON")
			return
		}
		if err := service.ValidateBottleRequest(&body); err != nil {
			HandleError(c, app.Logger(), err, 400, "Validation failed")
			return
		}

		ev, err := app.Engine().LogBottle(c.Request.Context(), id, user.ID, &body)
		if err != nil {
			HandleServiceError(c, app.Logger(), err)
			return
		}
		HandleSuccess(c, app.Logger(), ev, nil)
	}
}

func PostWeight(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		id, ok := subjectID(c, app)
		if !ok {
			return
		}

		var body service.WeightRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			HandleError(c, app.Logger(), err, 400, "Invalid JSON")
			return
		}
		if err := service.ValidateWeightRequest(&body); err != nil {
			HandleError(c, app.Logger(), err, 400, "Validation failed")
			return
		}

		ev, err := app.Engine().LogWeight(c.Request.Context(), id, user.ID, &body)
		if err != nil {
			HandleServiceError(c, app.Logger(), err)
			return
		}
		HandleSuccess(c, app.Logger(), ev, nil)
	}
}

func PostDiaper(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		id, ok := subjectID(c, app)
		if !ok {
			return
		}

		var body service.DiaperRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			HandleError(c, app.Logger(), err, 400, "Invalid JSON")
			return
		}
		if err := service.ValidateDiaperRequest(&body); err != nil {
			HandleError(c, app.Logger(), err, 400, "Validation failed")
			return
		}

		ev, err := app.Engine().LogDiaper(c.Request.Context(), id, user.ID, &body)
		if err != nil {
			HandleServiceError(c, app.Logger(), err)
			return
		}
		HandleSuccess(c, app.Logger(), ev, nil)
	}
}
