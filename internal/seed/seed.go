package seed

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/yigit/submity/internal/config"
)

// AccountCreator registers an account unless its email is already taken
type AccountCreator interface {
	EnsureAccount(ctx context.Context, email, password, name string) (bool, error)
}

// CreateDefaultData creates the demo student account when seeding is enabled
func CreateDefaultData(ctx context.Context, cfg *config.Config, accounts AccountCreator, lgr zerolog.Logger) error {
	if !cfg.Seed.Enabled {
		return nil
	}

	name := cfg.Seed.Name
	if name == "" {
		name = "Demo"
	}

	lgr.Info().Str("email", cfg.Seed.Email).Msg("Checking/Creating demo account...")
	created, err := accounts.EnsureAccount(ctx, cfg.Seed.Email, cfg.Seed.Password, name)
	if err != nil {
		lgr.Error().Err(err).Msg("Error creating demo account")
		return err
	}
	if created {
		lgr.Info().Str("email", cfg.Seed.Email).Msg("Demo account created")
	} else {
		lgr.Info().Str("email", cfg.Seed.Email).Msg("Demo account already exists")
	}
	return nil
}
