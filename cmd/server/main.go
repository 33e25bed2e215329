package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/edututor-ai/backend/internal/api"
	"github.com/edututor-ai/backend/internal/domain/questionbank"
	"github.com/edututor-ai/backend/internal/inference"
	"github.com/edututor-ai/backend/internal/infrastructure/config"
	"github.com/edututor-ai/backend/internal/metrics"
	"github.com/edututor-ai/backend/internal/service"
	"github.com/edututor-ai/backend/internal/store"

	_ "github.com/edututor-ai/backend/docs" // generated swagger docs
)

// @title           EduTutor AI API
// @version         1.0
// @description     Subject quizzes and Hugging Face powered question answering.

// @host      localhost:8080
// @BasePath  /

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := newLogger(cfg)

	// ── Dependencies ────────────────────────────────────────────────
	bank, err := loadBank(cfg.QuestionBankPath)
	if err != nil {
		logger.Error("failed to load question bank", "path", cfg.QuestionBankPath, "error", err)
		os.Exit(1)
	}

	db, err := store.NewSQLite(cfg.SessionDBPath)
	if err != nil {
		logger.Error("failed to open session store", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	hf := inference.NewHuggingFaceClient(cfg.HFAPIURL, cfg.HFToken, cfg.InferenceTimeout, logger)
	tutorSvc := service.NewTutorService(db, bank, hf, logger, service.Options{
		SessionTTL: cfg.SessionTTL,
	})
	handler := api.NewHandler(tutorSvc, logger)

	metrics.Register(prometheus.DefaultRegisterer)

	// ── Routes ──────────────────────────────────────────────────────
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "ok"}`))
	})
	mux.Handle("GET /metrics", metrics.Handler())

	api.RegisterRoutes(mux, handler)

	// Swagger UI served at /swagger/
	mux.Handle("GET /swagger/", httpSwagger.WrapHandler)

	// ── Middleware chain: Metrics → Logging → Recover → CORS → mux ──
	chain := metrics.Middleware(api.Logging(logger)(api.Recover(logger)(api.CORS(mux))))

	// ── Server ──────────────────────────────────────────────────────
	// WriteTimeout leaves room for a full inference round trip.
	server := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           chain,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.InferenceTimeout + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		logger.Info("shutting down server")
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("server forced to shutdown", "error", err)
		}
	}()

	logger.Info("starting server",
		"address", cfg.ServerAddress,
		"env", cfg.Env,
		"subjects", len(bank.Subjects()),
	)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed to start", "error", err)
		os.Exit(1)
	}
}

// newLogger writes JSON in production and text everywhere else.
func newLogger(cfg *config.Config) *slog.Logger {
	level, _ := cfg.SlogLevel()
	opts := &slog.HandlerOptions{Level: level}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func loadBank(path string) (*questionbank.QuestionBank, error) {
	if path == "" {
		return questionbank.Default()
	}
	return questionbank.LoadFile(path)
}
