package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/securecookie"
	"go.uber.org/zap"

	"github.com/sanjeevkumarraob/pdf-extraction-service/internal/api"
	"github.com/sanjeevkumarraob/pdf-extraction-service/internal/auth"
	"github.com/sanjeevkumarraob/pdf-extraction-service/internal/config"
	"github.com/sanjeevkumarraob/pdf-extraction-service/internal/document"
	"github.com/sanjeevkumarraob/pdf-extraction-service/internal/graph"
	"github.com/sanjeevkumarraob/pdf-extraction-service/internal/session"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	gin.SetMode(gin.ReleaseMode)

	// Initialize document processor
	docProcessor := document.NewProcessor(cfg.Document(), logger)

	// The graph suggestion endpoint answers 503 without a model.
	var suggester *graph.Suggester
	if cfg.LLM.APIKey != "" {
		model, err := graph.NewOpenAIModel(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model)
		if err != nil {
			logger.Fatal("failed to create language model client", zap.Error(err))
		}
		suggester = graph.NewSuggester(model, cfg.Suggester(), logger)
	} else {
		logger.Warn("OPENAI_API_KEY not set; graph suggestions are disabled")
	}

	var jwtManager *auth.JWTManager
	if cfg.Auth.JWTSecret != "" {
		jwtManager = auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.APIKey, cfg.Auth.TokenTTL)
	}

	key := []byte(cfg.Session.Secret)
	if len(key) == 0 {
		key = securecookie.GenerateRandomKey(32)
		logger.Warn("SESSION_SECRET not set; sessions will not survive a restart")
	}
	store := session.NewFilesystemStore(cfg.Session.Dir, key, cfg.Session.MaxAge, cfg.Session.Secure)
	sessionManager := session.NewSessionManager(logger, store)

	defaultBackend, err := document.ParseBackend(cfg.Extraction.DefaultBackend)
	if err != nil {
		logger.Fatal("invalid default backend", zap.Error(err))
	}

	handler := api.NewHandler(
		docProcessor,
		suggester,
		graph.NewExecutor(logger),
		jwtManager,
		sessionManager,
		api.Options{
			DefaultBackend:   defaultBackend,
			MaxDisplayChars:  cfg.Extraction.MaxDisplayChars,
			MaxDocumentBytes: cfg.Extraction.MaxDocumentBytes,
			GraphPDFPath:     cfg.Graph.PDFPath,
			Neo4j:            cfg.Connection(),
			AllowedOrigins:   cfg.Server.AllowedOrigins,
		},
		logger,
	)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.NewRouter(handler, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed to start", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
