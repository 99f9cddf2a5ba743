package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/333Kunal/E-com/internal/models"
)

type refreshTokenStore struct {
	coll *mongo.Collection
}

func NewRefreshTokenStore(db *mongo.Database) RefreshTokenStore {
	return &refreshTokenStore{coll: db.Collection(refreshTokensCollection)}
}

func (s *refreshTokenStore) Create(ctx context.Context, token *models.RefreshToken) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if token.ID.IsZero() {
		token.ID = primitive.NewObjectID()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}
	if _, err := s.coll.InsertOne(ctx, token); err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

// FindActive returns the unrevoked, unexpired token with the given hash.
func (s *refreshTokenStore) FindActive(ctx context.Context, tokenHash string) (models.RefreshToken, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var token models.RefreshToken
	err := s.coll.FindOne(ctx, bson.M{
		"tokenHash": tokenHash,
		"revoked":   false,
		"expiresAt": bson.M{"$gt": time.Now()},
	}).Decode(&token)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.RefreshToken{}, ErrNotFound
	}
	if err != nil {
		return models.RefreshToken{}, fmt.Errorf("find refresh token: %w", err)
	}
	return token, nil
}

// Revoke marks the token revoked. It fails with ErrConflict when the token was already
// revoked so a refresh token can only ever be rotated once.
func (s *refreshTokenStore) Revoke(ctx context.Context, id primitive.ObjectID, replacedBy *primitive.ObjectID) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	set := bson.M{"revoked": true, "revokedAt": time.Now()}
	if replacedBy != nil {
		set["replacedByToken"] = *replacedBy
	}

	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id, "revoked": false}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrConflict
	}
	return nil
}

func (s *refreshTokenStore) RevokeByHash(ctx context.Context, tokenHash string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	filter := bson.M{"tokenHash": tokenHash, "revoked": false}
	update := bson.M{"$set": bson.M{"revoked": true, "revokedAt": time.Now()}}
	if _, err := s.coll.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}
