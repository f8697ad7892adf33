package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	api "github.com/mind-engage/examengine/internal/api/http"
	"github.com/mind-engage/examengine/internal/alert"
	auth "github.com/mind-engage/examengine/internal/auth/middleware"
	"github.com/mind-engage/examengine/internal/config"
	"github.com/mind-engage/examengine/internal/db"
	"github.com/mind-engage/examengine/internal/directory"
	"github.com/mind-engage/examengine/internal/engine"
	"github.com/mind-engage/examengine/internal/events"
	"github.com/mind-engage/examengine/internal/exam"
	"github.com/mind-engage/examengine/internal/grading"
	"github.com/mind-engage/examengine/internal/jobs"
	"github.com/mind-engage/examengine/internal/ledger"
	"github.com/mind-engage/examengine/internal/session"
)

var version = "dev"

func main() {
	cfg := config.FromEnv()

	std := log.New(os.Stderr, "", log.LstdFlags|log.LUTC)
	var logger alert.Logger = alert.NewStd(std)
	if cfg.RollbarToken != "" {
		rb := alert.NewRollbar(std, cfg.RollbarToken, cfg.Env, version)
		defer rb.Close()
		logger = rb
	}

	// --- DB ---
	driver, err := db.ParseDriver(cfg.DBDriver)
	if err != nil {
		log.Fatalf("db driver: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	dbh, err := db.Open(ctx, driver, cfg.DBDSN)
	cancel()
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	defer dbh.Close()

	// --- Grade change notification ---
	pubs := events.Multi{events.NewEventLog(dbh)}
	if cfg.EventWebhookURL != "" {
		pubs = append(pubs, events.NewWebhook(events.WebhookConfig{
			URL:          cfg.EventWebhookURL,
			TokenURL:     cfg.EventWebhookTokenURL,
			ClientID:     cfg.EventWebhookClientID,
			ClientSecret: cfg.EventWebhookClientSecret,
		}))
	}

	students := directory.NewSQLDirectory(dbh)
	en := engine.New(engine.Deps{
		Exams:      exam.NewSQLStore(dbh, driver),
		Sessions:   session.NewSQLStore(dbh, driver),
		Students:   students,
		Grader:     grading.NewDefaultGrader(),
		Reconciler: ledger.NewReconciler(ledger.NewSQLStore(dbh), pubs, logger),
		Terms:      ledger.CalendarTerms{StartMonth: cfg.AcademicYearStartMonth},
		Log:        logger,
	})

	// --- Auth (local JWT) ---
	authSvc := auth.NewAuthService(cfg.AuthSecret)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.EnableLocalAuth {
		r.Post("/auth/login", auth.LoginHandler(authSvc, auth.LoginConfig{
			AdminUser:     cfg.AdminUser,
			AdminPassHash: cfg.AdminPassHash,
			DevLogin:      cfg.Env == "development",
		}))
	}

	// Protected API (JWT → role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))
		api.New(en, logger).Mount(pr)
		api.MountRoster(pr, students, logger)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := dbh.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	// --- Background sweeps ---
	sched, err := jobs.New(en, jobs.Config{
		ExpirySweepSpec:      cfg.ExpirySweepSpec,
		ReconcileRetrySpec:   cfg.ReconcileRetrySpec,
		ReconcileRetryMinAge: cfg.ReconcileRetryMinAge,
	}, logger)
	if err != nil {
		log.Fatalf("jobs: %v", err)
	}
	sched.Start()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("listening on %s (env=%s, db=%s, jobs=%d)", cfg.HTTPAddr, cfg.Env, driver, sched.Jobs())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, done := context.WithTimeout(context.Background(), 15*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	sched.Stop(shutdownCtx)
}
