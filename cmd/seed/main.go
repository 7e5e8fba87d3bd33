package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/EmpoweredVote/EV-Accounts/internal/accounts"
	"github.com/EmpoweredVote/EV-Accounts/internal/config"
	"github.com/EmpoweredVote/EV-Accounts/internal/db"
	"github.com/EmpoweredVote/EV-Accounts/internal/metrics"
	"github.com/EmpoweredVote/EV-Accounts/internal/seeds"
	"github.com/EmpoweredVote/EV-Accounts/internal/tokens"
	"go.uber.org/zap"
)

func main() {
	path := flag.String("file", seeds.DefaultPath, "YAML file with accounts to seed")
	flag.Parse()

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

	d, err := db.Connect(cfg.DatabaseURL, cfg.DBLogLevel, lg)
	if err != nil {
		lg.Fatal("connect failed", zap.Error(err))
	}
	if err := accounts.Init(d); err != nil {
		lg.Fatal("schema setup failed", zap.Error(err))
	}

	// Seeding never issues tokens or calls Google.
	svc := accounts.NewService(accounts.NewGormStore(d), nil, tokens.NewIssuer(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL), metrics.New(), lg)

	if err := seeds.SeedAll(context.Background(), svc, *path, lg); err != nil {
		lg.Fatal("seeding failed", zap.Error(err))
	}
}
