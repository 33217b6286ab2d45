package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docviz-io/docviz"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (JSON)")
	addr := flag.String("addr", ":8080", "Listen address")
	flag.Parse()

	// Structured JSON logging.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	cfg := docviz.DefaultConfig()
	if *configPath != "" {
		f, err := os.Open(*configPath)
		if err != nil {
			slog.Error("opening config", "error", err)
			os.Exit(1)
		}
		if err := json.NewDecoder(f).Decode(&cfg); err != nil {
			f.Close()
			slog.Error("parsing config", "error", err)
			os.Exit(1)
		}
		f.Close()
	}

	// Override from environment variables.
	if v := os.Getenv("DOCVIZ_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	overrideLLM(&cfg.Generation, "DOCVIZ_GEN")
	overrideLLM(&cfg.Classification, "DOCVIZ_CLASSIFY")
	overrideLLM(&cfg.Extraction, "DOCVIZ_EXTRACT")

	// Fallback: check well-known provider env vars for API keys.
	fillAPIKey(&cfg.Generation)
	fillAPIKey(&cfg.Classification)
	fillAPIKey(&cfg.Extraction)

	apiKey := os.Getenv("DOCVIZ_API_KEY")
	corsOrigins := os.Getenv("DOCVIZ_CORS_ORIGINS")

	engine, err := docviz.New(cfg)
	if err != nil {
		slog.Error("creating engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	h := newHandler(engine)
	mux := http.NewServeMux()

	mux.HandleFunc("POST /documents", h.handleUpload)
	mux.HandleFunc("GET /documents", h.handleListDocuments)
	mux.HandleFunc("GET /documents/{id}", h.handleGetDocument)
	mux.HandleFunc("PATCH /documents/{id}", h.handleRenameDocument)
	mux.HandleFunc("DELETE /documents/{id}", h.handleDeleteDocument)
	mux.HandleFunc("POST /documents/{id}/message", h.handleSendMessage)
	mux.HandleFunc("POST /documents/{id}/fragments", h.handleAttachFragment)
	mux.HandleFunc("DELETE /documents/{id}/fragments/{fragmentID}", h.handleRemoveFragment)
	mux.HandleFunc("GET /documents/{id}/tables", h.handleIdentifyTables)
	mux.HandleFunc("GET /documents/{id}/tables/export", h.handleExtractTable)
	mux.HandleFunc("GET /health", h.handleHealth)

	// Middleware chain: recovery -> cors -> auth -> logging -> mux
	var handler http.Handler = mux
	handler = logMiddleware(handler)
	handler = authMiddleware(apiKey, handler)
	handler = corsMiddleware(corsOrigins, handler)
	handler = recoveryMiddleware(handler)

	srv := &http.Server{
		Addr:         *addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // generation turns can be long
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("server stopped")
}

// overrideLLM applies <prefix>_PROVIDER/_MODEL/_BASE_URL/_API_KEY overrides.
func overrideLLM(cfg *docviz.LLMConfig, prefix string) {
	if v := os.Getenv(prefix + "_PROVIDER"); v != "" {
		cfg.Provider = v
	}
	if v := os.Getenv(prefix + "_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv(prefix + "_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv(prefix + "_API_KEY"); v != "" {
		cfg.APIKey = v
	}
}

func fillAPIKey(cfg *docviz.LLMConfig) {
	if cfg.APIKey != "" {
		return
	}
	switch cfg.Provider {
	case "openai":
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	case "gemini":
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	case "openrouter":
		cfg.APIKey = os.Getenv("OPENROUTER_API_KEY")
	}
}
