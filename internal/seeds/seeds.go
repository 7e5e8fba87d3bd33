// Package seeds loads development accounts from YAML.
package seeds

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/EmpoweredVote/EV-Accounts/internal/accounts"
	"github.com/goccy/go-yaml"
	"go.uber.org/zap"
)

// DefaultPath is the seed file cmd/seed reads when none is given.
const DefaultPath = "internal/seeds/data/accounts.yaml"

// Seeder creates an account unless its email is already registered.
type Seeder interface {
	SeedAccount(ctx context.Context, a accounts.Account, password string) (bool, error)
}

// SeedAccount is one entry of the seed file.
type SeedAccount struct {
	Email     string `yaml:"email"`
	Password  string `yaml:"password"`
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
	Birthdate string `yaml:"birthdate"`
}

type seedFile struct {
	Accounts []SeedAccount `yaml:"accounts"`
}

// Parse decodes a seed file.
func Parse(raw []byte) ([]SeedAccount, error) {
	var f seedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	for i, a := range f.Accounts {
		if a.Email == "" || a.Password == "" {
			return nil, fmt.Errorf("seed account %d: email and password are required", i)
		}
		if a.Birthdate != "" {
			if _, err := time.Parse(time.DateOnly, a.Birthdate); err != nil {
				return nil, fmt.Errorf("seed account %s: bad birthdate %q", a.Email, a.Birthdate)
			}
		}
	}
	return f.Accounts, nil
}

// SeedAccounts creates every account in entries, skipping emails that exist.
// It returns the number of accounts created.
func SeedAccounts(ctx context.Context, s Seeder, entries []SeedAccount, lg *zap.Logger) (int, error) {
	created := 0
	for _, e := range entries {
		a := accounts.Account{
			Email:     e.Email,
			FirstName: e.FirstName,
			LastName:  e.LastName,
		}
		if e.Birthdate != "" {
			bd, _ := time.Parse(time.DateOnly, e.Birthdate)
			a.Birthdate = &bd
		}

		ok, err := s.SeedAccount(ctx, a, e.Password)
		if err != nil {
			return created, fmt.Errorf("failed to seed %s: %w", e.Email, err)
		}
		if !ok {
			lg.Info("account exists, skipping", zap.String("email", e.Email))
			continue
		}
		created++
	}

	lg.Info("seeded accounts", zap.Int("created", created), zap.Int("total", len(entries)))
	return created, nil
}

// SeedAll reads path and seeds its accounts.
func SeedAll(ctx context.Context, s Seeder, path string, lg *zap.Logger) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read %s: %w", path, err)
	}
	entries, err := Parse(raw)
	if err != nil {
		return err
	}
	_, err = SeedAccounts(ctx, s, entries, lg)
	return err
}
