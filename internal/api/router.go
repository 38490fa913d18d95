package api

import (
	"github.com/gin-gonic/gin"

	"github.com/bagiro44/baby-tracker/internal"
)

// RegisterRoutes mounts the tracker API. Auth and request-id middleware
// are the caller's concern so tests can mount without them.
func RegisterRoutes(r gin.IRoutes, app App) {
	r.POST("/subjects", PostSubject(app))
	r.GET("/subjects", GetSubjects(app))
	r.PATCH("/subjects/:id/gender", PatchGender(app))

	r.POST("/subjects/:id/sleep/start", PostIntervalStart(app, internal.KindSleep))
	r.POST("/subjects/:id/sleep/end", PostIntervalEnd(app, internal.KindSleep))
	r.POST("/subjects/:id/breast/start", PostIntervalStart(app, internal.KindBreast))
	r.POST("/subjects/:id/breast/end", PostIntervalEnd(app, internal.KindBreast))

	r.POST("/subjects/:id/feedings", PostFeeding(app))
	r.POST("/subjects/:id/weights", PostWeight(app))
	r.POST("/subjects/:id/diapers", PostDiaper(app))

	r.GET("/subjects/:id/stats", GetStats(app))

	r.POST("/flow", PostFlow(app))
	r.GET("/flow", GetFlow(app))
	r.DELETE("/flow", DeleteFlow(app))
}
