package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RefreshToken is the server-side record of an issued refresh token. Only the sha256 of
// the token is stored. A rotated token points at its successor.
type RefreshToken struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty"`
	UserID     primitive.ObjectID  `bson:"userId"`
	TokenHash  string              `bson:"tokenHash"`
	ExpiresAt  time.Time           `bson:"expiresAt"`
	Revoked    bool                `bson:"revoked"`
	RevokedAt  *time.Time          `bson:"revokedAt,omitempty"`
	ReplacedBy *primitive.ObjectID `bson:"replacedByToken,omitempty"`
	CreatedAt  time.Time           `bson:"createdAt"`
}

// Active reports whether the token can still be exchanged at now.
func (t RefreshToken) Active(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}
