package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ebook-assistant/internal/logger"
	"ebook-assistant/internal/visitors"
	"ebook-assistant/middleware"
	"ebook-assistant/models"
	"ebook-assistant/utils"
)

func SetupVisitRoutes(router *gin.Engine, tracker *visitors.Tracker, totals *visitors.TotalVisits) {
	visits := router.Group("/api/visits")
	visits.Use(middleware.PublicCORS())

	preflight := func(c *gin.Context) { c.Status(http.StatusOK) }
	visits.OPTIONS("", preflight)
	visits.OPTIONS("/total", preflight)

	visits.GET("", func(c *gin.Context) {
		stats, err := tracker.Stats(c.Request.Context())
		if err != nil {
			logger.Error("Visitor stats failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "count": 1})
			return
		}
		c.JSON(http.StatusOK, stats)
	})

	visits.POST("", func(c *gin.Context) {
		var req models.VisitRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid visit action", gin.H{"error": err.Error()})
			return
		}
		if req.SessionID == "" {
			req.SessionID = visitors.FallbackSessionID(utils.GetClientIP(c.Request), time.Now())
		}

		ctx, cancel := utils.WithShortTimeout(c.Request.Context())
		defer cancel()
		resp, err := tracker.Record(ctx, req.Action, req.SessionID)
		if err != nil {
			logger.Error("Visitor update failed", "action", req.Action, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "count": 1})
			return
		}
		c.JSON(http.StatusOK, resp)
	})

	visits.GET("/total", func(c *gin.Context) {
		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()
		total, err := totals.Get(ctx)
		if err != nil {
			logger.Error("Total visits lookup failed", "error", err)
			utils.RespondWithServiceUnavailable(c, "Visit counter unavailable")
			return
		}
		c.JSON(http.StatusOK, total)
	})

	visits.POST("/total", func(c *gin.Context) {
		var req models.TotalVisitsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "sessionId is required", gin.H{"error": err.Error()})
			return
		}
		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()
		total, err := totals.Record(ctx, req.SessionID)
		if err != nil {
			logger.Error("Total visits update failed", "error", err)
			utils.RespondWithServiceUnavailable(c, "Visit counter unavailable")
			return
		}
		c.JSON(http.StatusOK, total)
	})
}
