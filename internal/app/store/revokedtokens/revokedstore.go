// internal/app/store/revokedtokens/revokedstore.go
package revokedstore

import (
	"context"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store records logged-out token ids. A TTL index on expires_at removes
// rows once the token could no longer be used anyway.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("revoked_tokens")}
}

// Revoke marks jti as revoked until expiresAt. Revoking twice is not an error.
func (s *Store) Revoke(ctx context.Context, jti string, userID primitive.ObjectID, expiresAt time.Time) error {
	rec := models.RevokedToken{ID: jti, UserID: userID, ExpiresAt: expiresAt.UTC(), RevokedAt: time.Now().UTC()}
	if _, err := s.c.InsertOne(ctx, rec); err != nil && !wafflemongo.IsDup(err) {
		return err
	}
	return nil
}

// IsRevoked implements auth.RevocationChecker.
func (s *Store) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"_id": jti}, options.Count().SetLimit(1))
	return n > 0, err
}

// DeleteExpired removes revocations for tokens that have expired. The TTL
// monitor does the same on its own schedule.
func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": time.Now().UTC()}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
