// Package auth resolves bearer tokens to accounts and owns the credential flows: register,
// login, refresh-token rotation and logout.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/333Kunal/E-com/internal/database"
	"github.com/333Kunal/E-com/internal/models"
)

var (
	ErrUnauthenticated     = errors.New("not authorized to access this route")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrEmailTaken          = errors.New("user already exists with this email")
)

// Identity is the caller behind a valid access token.
type Identity struct {
	AccountID primitive.ObjectID
	Role      string
}

type Session struct {
	AccessToken  string         `json:"token"`
	RefreshToken string         `json:"refreshToken"`
	ExpiresIn    int64          `json:"expiresIn"`
	Account      models.Account `json:"user"`
}

type Config struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type Gate struct {
	accounts database.AccountStore
	tokens   database.RefreshTokenStore
	cfg      Config
	now      func() time.Time
	log      *logrus.Entry
}

func NewGate(accounts database.AccountStore, tokens database.RefreshTokenStore, cfg Config) *Gate {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 20 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	return &Gate{
		accounts: accounts,
		tokens:   tokens,
		cfg:      cfg,
		now:      time.Now,
		log:      logrus.WithField("component", "auth"),
	}
}

// Authenticate verifies the token and reloads the account, so deleted accounts and role
// changes take effect on the next request.
func (g *Gate) Authenticate(ctx context.Context, token string) (Identity, error) {
	userID, err := parseAccessToken(token, g.cfg.Secret)
	if err != nil {
		g.log.WithError(err).Debug("token validation failed")
		return Identity{}, ErrUnauthenticated
	}

	account, err := g.accounts.FindByID(ctx, userID)
	if errors.Is(err, database.ErrNotFound) {
		return Identity{}, ErrUnauthenticated
	}
	if err != nil {
		return Identity{}, fmt.Errorf("load account: %w", err)
	}
	return Identity{AccountID: account.ID, Role: account.Role}, nil
}

func (g *Gate) Account(ctx context.Context, id primitive.ObjectID) (models.Account, error) {
	account, err := g.accounts.FindByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return models.Account{}, ErrUnauthenticated
	}
	return account, err
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Register creates a regular user and signs them in.
func (g *Gate) Register(ctx context.Context, in RegisterInput) (Session, error) {
	hash, err := HashPassword(in.Password)
	if err != nil {
		return Session{}, err
	}

	account := models.Account{
		Name:         strings.TrimSpace(in.Name),
		Email:        in.Email,
		PasswordHash: hash,
		Role:         models.RoleUser,
	}
	if err := g.accounts.Create(ctx, &account); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return Session{}, ErrEmailTaken
		}
		return Session{}, fmt.Errorf("create account: %w", err)
	}

	g.log.WithField("email", account.Email).Info("user registered")
	return g.IssueTokens(ctx, account)
}

func (g *Gate) Login(ctx context.Context, email, password string) (Session, error) {
	account, err := g.accounts.FindByEmail(ctx, email)
	if errors.Is(err, database.ErrNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, fmt.Errorf("load account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		g.log.WithField("email", account.Email).Warn("login invalid credentials")
		return Session{}, ErrInvalidCredentials
	}

	g.log.WithField("email", account.Email).Info("login succeeded")
	return g.IssueTokens(ctx, account)
}

// Refresh rotates a refresh token. The presented token is revoked before the new one is
// stored, so a token can be exchanged only once.
func (g *Gate) Refresh(ctx context.Context, plain string) (Session, error) {
	plain = strings.TrimSpace(plain)
	if plain == "" {
		return Session{}, ErrInvalidRefreshToken
	}

	current, err := g.tokens.FindActive(ctx, hashToken(plain))
	if errors.Is(err, database.ErrNotFound) {
		return Session{}, ErrInvalidRefreshToken
	}
	if err != nil {
		return Session{}, fmt.Errorf("load refresh token: %w", err)
	}

	account, err := g.accounts.FindByID(ctx, current.UserID)
	if errors.Is(err, database.ErrNotFound) {
		return Session{}, ErrInvalidRefreshToken
	}
	if err != nil {
		return Session{}, fmt.Errorf("load account: %w", err)
	}

	nextID := primitive.NewObjectID()
	if err := g.tokens.Revoke(ctx, current.ID, &nextID); err != nil {
		if errors.Is(err, database.ErrConflict) {
			return Session{}, ErrInvalidRefreshToken
		}
		return Session{}, fmt.Errorf("revoke refresh token: %w", err)
	}
	return g.issue(ctx, account, nextID)
}

func (g *Gate) Logout(ctx context.Context, plain string) error {
	plain = strings.TrimSpace(plain)
	if plain == "" {
		return ErrInvalidRefreshToken
	}
	current, err := g.tokens.FindActive(ctx, hashToken(plain))
	if errors.Is(err, database.ErrNotFound) {
		return ErrInvalidRefreshToken
	}
	if err != nil {
		return fmt.Errorf("load refresh token: %w", err)
	}
	return g.tokens.RevokeByHash(ctx, current.TokenHash)
}

// IssueTokens signs an access token for account and stores a fresh refresh token.
func (g *Gate) IssueTokens(ctx context.Context, account models.Account) (Session, error) {
	return g.issue(ctx, account, primitive.NewObjectID())
}

func (g *Gate) issue(ctx context.Context, account models.Account, refreshID primitive.ObjectID) (Session, error) {
	now := g.now()
	access, err := issueAccessToken(account.ID, account.Email, g.cfg.Secret, g.cfg.AccessTTL, now)
	if err != nil {
		return Session{}, fmt.Errorf("sign access token: %w", err)
	}

	plain, err := generateRefreshString()
	if err != nil {
		return Session{}, fmt.Errorf("generate refresh token: %w", err)
	}
	refresh := models.RefreshToken{
		ID:        refreshID,
		UserID:    account.ID,
		TokenHash: hashToken(plain),
		ExpiresAt: now.Add(g.cfg.RefreshTTL),
		CreatedAt: now,
	}
	if err := g.tokens.Create(ctx, &refresh); err != nil {
		return Session{}, fmt.Errorf("store refresh token: %w", err)
	}

	return Session{
		AccessToken:  access,
		RefreshToken: plain,
		ExpiresIn:    int64(g.cfg.AccessTTL.Seconds()),
		Account:      account,
	}, nil
}

func HashPassword(plain string) (string, error) {
	if strings.TrimSpace(plain) == "" {
		return "", errors.New("password is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
