package main

import (
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"ebook-assistant/internal/chat"
	"ebook-assistant/internal/config"
	"ebook-assistant/internal/ebook"
	"ebook-assistant/internal/logger"
	"ebook-assistant/internal/mcpserver"
	"ebook-assistant/utils"
)

// MCP over stdio: stdout carries protocol frames, so logs go to stderr.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	logger.InitLoggerTo(os.Stderr, cfg)

	var source ebook.Source
	if cfg.AssetBaseURL != "" {
		source = ebook.NewHTTPSource(cfg.AssetBaseURL, utils.DefaultTimeout)
	} else {
		source = ebook.NewDirSource(cfg.AssetDir)
	}
	handle := ebook.NewHandle(ebook.NewLoader(source, ebook.Assets{
		Paragraphs: cfg.ParagraphsFile,
		Chunks:     cfg.ChunksFile,
		TOC:        cfg.TOCFile,
		Chapter:    cfg.ChapterFile,
	}, nil), nil)

	client := chat.NewClient(chat.Options{
		BaseURL:      cfg.ChatBackendURL,
		Timeout:      cfg.ChatTimeout,
		RPM:          cfg.ChatRPM,
		BreakerTrips: cfg.ChatBreakerTrips,
		BreakerReset: cfg.ChatBreakerReset,
	}, nil)

	s := mcpserver.New(cfg.ServiceName, "1.0.0", handle, client)

	logger.Info("Starting e-book MCP server on stdio")
	if err := server.ServeStdio(s); err != nil {
		logger.Error("MCP server error", "error", err)
		os.Exit(1)
	}
}
