// internal/app/store/passwordresets/resetstore.go
package resetstore

import (
	"context"
	"errors"
	"time"

	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/apperr"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/authutil"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultExpiry is how long an emailed reset link stays valid.
const DefaultExpiry = time.Hour

// ErrInvalidToken covers unknown, expired and already-used tokens alike.
var ErrInvalidToken = apperr.Validation("reset link is invalid or has expired")

// Store manages password reset records.
type Store struct {
	c      *mongo.Collection
	expiry time.Duration
	now    func() time.Time
}

// New creates a Store. If expiry is 0 or negative, DefaultExpiry is used.
func New(db *mongo.Database, expiry time.Duration) *Store {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	return &Store{c: db.Collection("password_resets"), expiry: expiry, now: time.Now}
}

func (s *Store) Expiry() time.Duration { return s.expiry }

// Create stores a new reset for userID and returns the plain token to email.
// Earlier unused resets for the same user are invalidated.
func (s *Store) Create(ctx context.Context, userID primitive.ObjectID) (string, error) {
	token, hash, err := authutil.NewResetToken()
	if err != nil {
		return "", err
	}
	now := s.now().UTC()

	if _, err := s.c.UpdateMany(ctx,
		bson.M{"user_id": userID, "used_at": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"used_at": now}},
	); err != nil {
		return "", err
	}

	rec := models.PasswordReset{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		TokenHash: hash,
		ExpiresAt: now.Add(s.expiry),
		CreatedAt: now,
	}
	if _, err := s.c.InsertOne(ctx, rec); err != nil {
		return "", err
	}
	return token, nil
}

// Consume marks the reset for token as used and returns its user id.
// A token can be consumed once.
func (s *Store) Consume(ctx context.Context, token string) (primitive.ObjectID, error) {
	now := s.now().UTC()
	filter := bson.M{
		"token_hash": authutil.HashResetToken(token),
		"used_at":    bson.M{"$exists": false},
		"expires_at": bson.M{"$gt": now},
	}
	var rec models.PasswordReset
	err := s.c.FindOneAndUpdate(ctx, filter, bson.M{"$set": bson.M{"used_at": now}},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return primitive.NilObjectID, ErrInvalidToken
	}
	if err != nil {
		return primitive.NilObjectID, err
	}
	return rec.UserID, nil
}

// DeleteExpired removes resets past their expiry, used or not.
func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": s.now().UTC()}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
