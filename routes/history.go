package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ebook-assistant/internal/config"
	"ebook-assistant/internal/logger"
	"ebook-assistant/middleware"
	"ebook-assistant/models"
	"ebook-assistant/services"
	"ebook-assistant/utils"
)

func SetupHistoryRoutes(router *gin.Engine, cfg *config.Config, history *services.ChatHistoryService) {
	g := router.Group("/api/history")
	g.Use(middleware.CORSMiddlewareWithOrigins(cfg))

	g.GET("/:sessionId", func(c *gin.Context) {
		h, err := history.Get(c.Request.Context(), c.Param("sessionId"))
		if err != nil {
			logger.Error("Chat history read failed", "error", err)
			utils.RespondWithServiceUnavailable(c, "Chat history unavailable")
			return
		}
		c.JSON(http.StatusOK, h)
	})

	g.PUT("/:sessionId", func(c *gin.Context) {
		h := models.NewChatHistory()
		if err := c.ShouldBindJSON(h); err != nil {
			utils.RespondWithBadRequest(c, "Invalid chat history", gin.H{"error": err.Error()})
			return
		}
		if err := history.Replace(c.Request.Context(), c.Param("sessionId"), h); err != nil {
			logger.Error("Chat history write failed", "error", err)
			utils.RespondWithServiceUnavailable(c, "Chat history unavailable")
			return
		}
		c.JSON(http.StatusOK, h)
	})

	g.DELETE("/:sessionId", func(c *gin.Context) {
		if err := history.Clear(c.Request.Context(), c.Param("sessionId")); err != nil {
			logger.Error("Chat history delete failed", "error", err)
			utils.RespondWithServiceUnavailable(c, "Chat history unavailable")
			return
		}
		c.Status(http.StatusNoContent)
	})
}
