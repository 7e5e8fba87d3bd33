package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/EmpoweredVote/EV-Accounts/internal/accounts"
	"github.com/EmpoweredVote/EV-Accounts/internal/config"
	"github.com/EmpoweredVote/EV-Accounts/internal/db"
	"github.com/EmpoweredVote/EV-Accounts/internal/google"
	"github.com/EmpoweredVote/EV-Accounts/internal/metrics"
	"github.com/EmpoweredVote/EV-Accounts/internal/middleware"
	"github.com/EmpoweredVote/EV-Accounts/internal/products"
	"github.com/EmpoweredVote/EV-Accounts/internal/tokens"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

func RootHandler(w http.ResponseWriter, r *http.Request) {
	response := "Server is up!"
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, response)
}

type app struct {
	cfg     config.Config
	store   accounts.Store
	issuer  *tokens.Issuer
	google  accounts.TokenVerifier
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func (a app) routes() http.Handler {
	svc := accounts.NewService(a.store, a.google, a.issuer, a.metrics, a.logger)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestLogger(a.logger))
	r.Use(middleware.CORSMiddleware(a.cfg.AllowedOrigins))

	r.Get("/", RootHandler)
	r.Handle("/metrics", a.metrics.Handler())

	accounts.SetupRoutes(r, accounts.NewHandler(svc, a.logger), accounts.SessionInfo{Store: a.store})
	r.Mount("/products", products.SetupRoutes(a.issuer, time.Now))

	return r
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	lg, err := config.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	if err := run(cfg, lg); err != nil {
		lg.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, lg *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	d, err := db.Connect(cfg.DatabaseURL, cfg.DBLogLevel, lg)
	if err != nil {
		return err
	}
	if err := accounts.Init(d); err != nil {
		return err
	}

	a := app{
		cfg:     cfg,
		store:   accounts.NewGormStore(d),
		issuer:  tokens.NewIssuer(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL),
		google:  google.NewClient(cfg.GoogleTokenInfoURL, cfg.GoogleClientID, cfg.GoogleTimeout),
		metrics: metrics.New(),
		logger:  lg,
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           a.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		lg.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	lg.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
