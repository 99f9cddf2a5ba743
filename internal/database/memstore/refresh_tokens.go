package memstore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/333Kunal/E-com/internal/database"
	"github.com/333Kunal/E-com/internal/models"
)

type RefreshTokenStore struct{ s *Store }

func (r RefreshTokenStore) Create(_ context.Context, token *models.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if token.ID.IsZero() {
		token.ID = primitive.NewObjectID()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}
	for _, existing := range r.s.refreshTokens {
		if existing.TokenHash == token.TokenHash {
			return database.ErrDuplicate
		}
	}
	r.s.refreshTokens[token.ID] = *token
	return nil
}

func (r RefreshTokenStore) FindActive(_ context.Context, tokenHash string) (models.RefreshToken, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	now := time.Now()
	for _, token := range r.s.refreshTokens {
		if token.TokenHash == tokenHash && token.Active(now) {
			return token, nil
		}
	}
	return models.RefreshToken{}, database.ErrNotFound
}

func (r RefreshTokenStore) Revoke(_ context.Context, id primitive.ObjectID, replacedBy *primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	token, ok := r.s.refreshTokens[id]
	if !ok || token.Revoked {
		return database.ErrConflict
	}
	now := time.Now()
	token.Revoked = true
	token.RevokedAt = &now
	if replacedBy != nil {
		next := *replacedBy
		token.ReplacedBy = &next
	}
	r.s.refreshTokens[id] = token
	return nil
}

func (r RefreshTokenStore) RevokeByHash(_ context.Context, tokenHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := time.Now()
	for id, token := range r.s.refreshTokens {
		if token.TokenHash == tokenHash && !token.Revoked {
			token.Revoked = true
			token.RevokedAt = &now
			r.s.refreshTokens[id] = token
		}
	}
	return nil
}
