package api

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// GetStats summarizes the subject's events. The window defaults to the
// last 24 hours; ?hours=N widens or narrows it.
func GetStats(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := subjectID(c, app)
		if !ok {
			return
		}

		hours := 24
		if raw := c.Query("hours"); raw != "" {
			n, convErr := strconv.Atoi(raw)
			if convErr != nil || n <= 0 {
				HandleError(c, app.Logger(), errors.New("hours must be a positive integer"), 400, "Invalid hours parameter")
				return
			}
			hours = n
		}

		summary, err := app.Stats().SummarizeLast(c.Request.Context(), id, time.Duration(hours)*time.Hour)
		if err != nil {
			HandleServiceError(c, app.Logger(), err)
			return
		}
		HandleSuccess(c, app.Logger(), summary, nil)
	}
}
