package main

import (
	"context"
	"net/http"
	"time"

	api "github.com/passexam/passexam/internal/api/http"
	"github.com/passexam/passexam/internal/auth"
	"github.com/passexam/passexam/internal/backup"
	"github.com/passexam/passexam/internal/config"
	"github.com/passexam/passexam/internal/db"
	"github.com/passexam/passexam/internal/logging"
	"github.com/passexam/passexam/internal/mail"
	"github.com/passexam/passexam/internal/metrics"
	"github.com/passexam/passexam/internal/quiz"
	"github.com/passexam/passexam/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("info").Fatalf("config: %v", err)
	}
	log := logging.New(cfg.LogLevel)

	// --- Question bank ---
	names := quiz.LoadModuleNames(cfg.ModuleMappingPath, log)
	bank, err := quiz.LoadBank(cfg.QuestionsDir, names, cfg.ExcludedFiles, log)
	if err != nil {
		log.Fatalf("question bank: %v", err)
	}

	// --- Stores ---
	var (
		users   store.UserStore
		history store.HistoryStore
	)
	switch cfg.StoreDriver {
	case config.StoreJSONFile:
		js, err := store.NewJSONFileStore(cfg.UsersPath, cfg.HistoryPath)
		if err != nil {
			log.Fatalf("json store: %v", err)
		}
		users, history = js, js
	default:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		dbh, err := db.Open(ctx, db.Driver(cfg.StoreDriver), cfg.DBDSN)
		if err != nil {
			log.Fatalf("db open failed: %v", err)
		}
		s := store.NewSQLStore(dbh)
		users, history = s, s
	}

	// --- Auth + mail ---
	sessions := auth.NewService(cfg.SessionSecret, cfg.SessionTTL)
	resets := auth.NewResetTokens(cfg.ResetTokenTTL)

	var mailer mail.Mailer = mail.NopMailer{}
	if cfg.SMTP.Host != "" {
		m, err := mail.NewSMTP(cfg.SMTP)
		if err != nil {
			log.Fatalf("smtp: %v", err)
		}
		mailer = m
	}

	scorer := quiz.NewScorer(bank, history, log)
	mtr := metrics.New()

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(logging.RequestLogger(log))
	r.Use(mtr.Middleware)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public account surface
	r.Post("/api/register", api.RegisterHandler(users, cfg.BcryptCost))
	r.Post("/api/login", api.LoginHandler(users, sessions))
	r.Post("/api/logout", api.LogoutHandler())
	r.Post("/api/forgot-password", api.ForgotPasswordHandler(users, resets, mailer, cfg.BaseURL, log))
	r.Post("/api/reset-password", api.ResetPasswordHandler(users, resets, cfg.BcryptCost))

	// Protected API (session cookie required)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.Middleware(sessions))

		pr.Get("/api/session", api.SessionHandler(users))
		pr.Get("/api/dashboard", api.DashboardHandler(bank))
		pr.Get("/api/quiz/{testID}", api.GetQuizHandler(bank))
		pr.Post("/api/quiz/submit", api.SubmitQuizHandler(scorer))
		pr.Get("/api/review/{testID}", api.ReviewHandler(bank, log))
		pr.Get("/api/history", api.HistoryHandler(history))
		pr.Get("/api/history/export", api.ExportHistoryHandler(history))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Handle("/metrics", metrics.Handler())

	// Nightly snapshots only make sense for the flat-file backend.
	if cfg.BackupEnabled && cfg.StoreDriver == config.StoreJSONFile {
		sched := backup.New([]string{cfg.UsersPath, cfg.HistoryPath}, cfg.BackupDir, cfg.BackupAt, log)
		if err := sched.Start(); err != nil {
			log.Fatalf("backup scheduler: %v", err)
		}
		defer sched.Stop()
	}

	log.Infof("listening on %s (store=%s, modules=%d)", cfg.HTTPAddr, cfg.StoreDriver, len(bank.Sections()))
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
