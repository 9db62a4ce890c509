package routes

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ebook-assistant/internal/config"
	"ebook-assistant/internal/ebook"
	"ebook-assistant/internal/logger"
	"ebook-assistant/internal/telemetry"
	"ebook-assistant/middleware"
	"ebook-assistant/utils"
)

const maxSearchLimit = 50

func SetupEbookRoutes(router *gin.Engine, cfg *config.Config, handle *ebook.Handle, metrics *telemetry.Metrics) {
	api := router.Group("/api/ebook")
	api.Use(middleware.CORSMiddlewareWithOrigins(cfg))

	api.GET("/search", func(c *gin.Context) {
		ix, ok := loadIndex(c, handle)
		if !ok {
			return
		}
		limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
		if err != nil || limit <= 0 {
			utils.RespondWithBadRequest(c, "limit must be a positive integer", gin.H{"limit": c.Query("limit")})
			return
		}
		limit = min(limit, maxSearchLimit)

		result := ix.SearchForAI(c.Query("q"), limit)
		metrics.RecordSearch("search", len(result.Paragraphs))
		c.JSON(http.StatusOK, result)
	})

	api.GET("/lookup", func(c *gin.Context) {
		ix, ok := loadIndex(c, handle)
		if !ok {
			return
		}
		result := ix.LookupTerm(c.Query("term"))
		metrics.RecordSearch("lookup", len(result.RelatedParagraphs))
		c.JSON(http.StatusOK, result)
	})

	api.GET("/paragraphs/:id", func(c *gin.Context) {
		ix, ok := loadIndex(c, handle)
		if !ok {
			return
		}
		detail := ix.ParagraphForAI(c.Param("id"))
		if detail.Paragraph == nil {
			utils.RespondWithNotFound(c, "Paragraph not found")
			return
		}
		c.JSON(http.StatusOK, detail)
	})

	api.GET("/toc", func(c *gin.Context) {
		ix, ok := loadIndex(c, handle)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, ix.BookStructure())
	})

	api.GET("/terms", func(c *gin.Context) {
		ix, ok := loadIndex(c, handle)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"terms": ix.AllTerms()})
	})

	api.GET("/excerpt/:id", func(c *gin.Context) {
		doc, ok := loadDocument(c, handle)
		if !ok {
			return
		}
		id := c.Param("id")
		excerpt, found := doc.Excerpt(id)
		if !found {
			utils.RespondWithNotFound(c, "Paragraph not found in chapter")
			return
		}
		c.JSON(http.StatusOK, gin.H{"paragraphId": id, "excerpt": excerpt})
	})

	api.GET("/content", func(c *gin.Context) {
		doc, ok := loadDocument(c, handle)
		if !ok {
			return
		}
		body, err := doc.BodyHTML()
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to render chapter", nil)
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(body))
	})
}

func loadIndex(c *gin.Context, handle *ebook.Handle) (*ebook.Index, bool) {
	ix, err := handle.Index(c.Request.Context())
	if err != nil {
		logger.Warn("Index not available", "error", err, "request_id", middleware.GetRequestID(c))
		utils.RespondWithServiceUnavailable(c, "E-book index is not ready")
		return nil, false
	}
	return ix, true
}

func loadDocument(c *gin.Context, handle *ebook.Handle) (*ebook.Document, bool) {
	doc, err := handle.Document(c.Request.Context())
	if err != nil {
		logger.Warn("Chapter document not available", "error", err, "request_id", middleware.GetRequestID(c))
		utils.RespondWithServiceUnavailable(c, "Chapter content is not available")
		return nil, false
	}
	return doc, true
}
