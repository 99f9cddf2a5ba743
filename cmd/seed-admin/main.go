// Command seed-admin creates an administrator account, or promotes an existing
// account with the same e-mail, so the admin routes can be reached on a fresh
// database.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/333Kunal/E-com/internal/auth"
	"github.com/333Kunal/E-com/internal/config"
	"github.com/333Kunal/E-com/internal/database"
	"github.com/333Kunal/E-com/internal/models"
)

type seedInput struct {
	Email    string
	Password string
	Name     string
	Username string
	Role     string
}

// seedAdmin reports whether a new account was created. An existing account keeps its
// password and only has its role raised.
func seedAdmin(ctx context.Context, accounts database.AccountStore, in seedInput) (models.Account, bool, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return models.Account{}, false, errors.New("email is required")
	}
	role := strings.ToLower(strings.TrimSpace(in.Role))
	if role == "" {
		role = models.RoleAdmin
	}

	existing, err := accounts.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role == role {
			return existing, false, nil
		}
		promoted, err := accounts.Update(ctx, existing.ID, models.AccountUpdate{Role: &role})
		if err != nil {
			return models.Account{}, false, fmt.Errorf("promote %s: %w", email, err)
		}
		return promoted, false, nil
	case !errors.Is(err, database.ErrNotFound):
		return models.Account{}, false, fmt.Errorf("look up %s: %w", email, err)
	}

	if len(in.Password) < 6 {
		return models.Account{}, false, errors.New("password must be at least 6 characters")
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return models.Account{}, false, err
	}

	account := models.Account{
		Username:     strings.TrimSpace(in.Username),
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := accounts.Create(ctx, &account); err != nil {
		return models.Account{}, false, fmt.Errorf("create %s: %w", email, err)
	}
	return account, true, nil
}

func main() {
	config.Load()
	cfg := config.AppEnv

	in := seedInput{}
	flag.StringVar(&in.Email, "email", "admin@ecommerce.com", "admin e-mail")
	flag.StringVar(&in.Password, "password", "", "password for a new account (required unless the account exists)")
	flag.StringVar(&in.Name, "name", "Admin User", "display name")
	flag.StringVar(&in.Username, "username", "admin", "username")
	flag.StringVar(&in.Role, "role", models.RoleAdmin, "role to grant")
	flag.Parse()

	client, err := database.Connect(cfg.MongoURI)
	if err != nil {
		logrus.WithError(err).Fatal("connect failed")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	defer func() { _ = client.Disconnect(context.Background()) }()

	db := client.Database(cfg.DBName)
	if err := database.EnsureUserIndexes(db); err != nil {
		logrus.WithError(err).Warn("user index setup incomplete")
	}

	account, created, err := seedAdmin(ctx, database.NewAccountStore(db), in)
	if err != nil {
		logrus.WithError(err).Fatal("seed failed")
	}

	entry := logrus.WithFields(logrus.Fields{"email": account.Email, "role": account.Role, "id": account.ID.Hex()})
	if created {
		entry.Info("admin account created")
	} else {
		entry.Info("admin account already present")
	}
}
