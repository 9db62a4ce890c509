package routes

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"ebook-assistant/internal/chat"
	"ebook-assistant/internal/config"
	"ebook-assistant/internal/ebook"
	"ebook-assistant/internal/logger"
	"ebook-assistant/middleware"
	"ebook-assistant/models"
	"ebook-assistant/services"
	"ebook-assistant/utils"
)

// SetupChatRoutes wires the backend proxy and the assistant endpoints.
// history may be nil.
func SetupChatRoutes(router *gin.Engine, cfg *config.Config, client *chat.Client, handle *ebook.Handle, history *services.ChatHistoryService, rdb *redis.Client) {
	fallback := cfg.ChatFallbackReply
	if fallback == "" {
		fallback = chat.FallbackMessage
	}

	proxy := router.Group("/api/backend-proxy")
	proxy.Use(middleware.PublicCORS())

	forward := func(c *gin.Context) {
		var body []byte
		if c.Request.Method == http.MethodPost {
			var err error
			if body, err = io.ReadAll(c.Request.Body); err != nil {
				utils.RespondWithBadRequest(c, "Failed to read request body", nil)
				return
			}
		}
		logger.Debug("Proxying request to chat backend", "method", c.Request.Method)

		raw, status, err := client.Forward(c.Request.Context(), c.Request.Method, body)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Backend proxy failed",
				"message": err.Error(),
			})
			return
		}
		c.Data(status, "application/json; charset=utf-8", raw)
	}
	proxy.GET("", forward)
	proxy.POST("", forward)
	proxy.OPTIONS("", func(c *gin.Context) { c.Status(http.StatusOK) })

	api := router.Group("/api")
	api.Use(middleware.CORSMiddlewareWithOrigins(cfg))
	api.Use(middleware.RateLimitMiddleware(rdb, cfg))

	api.POST("/chat", func(c *gin.Context) {
		var req models.ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}
		if req.SessionID == "" {
			req.SessionID = uuid.NewString()
		}
		ctx := c.Request.Context()

		reply := models.ChatReply{
			Message:    fallback,
			References: []models.ResolvedReference{},
			SessionID:  req.SessionID,
		}
		resp, err := client.Ask(ctx, req.Query)
		if err != nil {
			logger.Info("Chat answered with fallback", "error", err, "request_id", middleware.GetRequestID(c))
		} else {
			reply.Answered = true
			reply.Message = resp.Content
			if html, err := chat.RenderAnswer(resp.Content); err == nil {
				reply.MessageHTML = html
			}
			reply.Response = resp
			reply.References = resolveReferences(ctx, handle, resp.References)
		}

		if history != nil {
			if _, err := history.RecordExchange(ctx, req.SessionID, req.Query, resp, reply.References); err != nil {
				logger.Error("Failed to save chat history", "session_id", req.SessionID, "error", err)
			}
		}

		c.JSON(http.StatusOK, reply)
	})

	api.POST("/explain", func(c *gin.Context) {
		var req models.ExplainRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		explanation, err := client.Explain(c.Request.Context(), req.Term, req.FollowUp)
		if err != nil {
			logger.Info("Explanation unavailable", "term", req.Term, "error", err)
			utils.RespondWithError(c, http.StatusBadGateway, "no_answer", fallback, nil)
			return
		}
		c.JSON(http.StatusOK, explanation)
	})
}

// resolveReferences links backend references to viewer paragraphs. Missing
// headings keep their id as title; a missing chapter document only drops the
// excerpts.
func resolveReferences(ctx context.Context, handle *ebook.Handle, refs []models.Reference) []models.ResolvedReference {
	resolved := make([]models.ResolvedReference, 0, len(refs))
	if len(refs) == 0 {
		return resolved
	}

	ix, err := handle.Index(ctx)
	if err != nil {
		ix = nil
	}
	doc, err := handle.Document(ctx)
	if err != nil {
		doc = nil
	}

	for _, ref := range refs {
		r := models.ResolvedReference{
			Reference:    ref,
			ParagraphID:  chat.ParagraphID(ref.HeadingID, ref.PIndex),
			HeadingTitle: ref.HeadingID,
		}
		if ix != nil {
			if h, ok := ix.Heading(ref.HeadingID); ok {
				r.HeadingTitle = h.Title
			}
		}
		if doc != nil {
			if excerpt, ok := doc.Excerpt(r.ParagraphID); ok {
				r.Excerpt = excerpt
			}
		}
		resolved = append(resolved, r)
	}
	return resolved
}
