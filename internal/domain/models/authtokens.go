// internal/domain/models/authtokens.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PasswordReset is a single-use reset request. Only the SHA-256 of the
// emailed token is stored.
type PasswordReset struct {
	ID        primitive.ObjectID `bson:"_id"`
	UserID    primitive.ObjectID `bson:"user_id"`
	TokenHash string             `bson:"token_hash"`
	ExpiresAt time.Time          `bson:"expires_at"`
	UsedAt    *time.Time         `bson:"used_at,omitempty"`
	CreatedAt time.Time          `bson:"created_at"`
}

// RevokedToken marks a signed token (by its jti) as logged out. Rows expire
// with the token itself via a TTL index.
type RevokedToken struct {
	ID        string             `bson:"_id"` // jti
	UserID    primitive.ObjectID `bson:"user_id"`
	ExpiresAt time.Time          `bson:"expires_at"`
	RevokedAt time.Time          `bson:"revoked_at"`
}
