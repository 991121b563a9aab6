package userstore

import (
	"context"
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/apperr"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/canon"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/normalize"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/paging"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/search"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrDuplicateEmail is returned when another live user has the email.
	ErrDuplicateEmail = apperr.Conflict("a user with this email already exists")
	ErrNotFound       = apperr.NotFound("user not found")
	errBadRole        = apperr.Validation(`role must be "admin" or "user"`)
	errNoPassword     = apperr.Validation("password is required")
)

var Sorts = paging.Sorts{"name": "full_name_ci", "created_at": "created_at", "email": "email"}

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

func live(filter bson.M) bson.M {
	filter["is_deleted"] = false
	return filter
}

// GetByID loads a live user.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	var u models.User
	err := s.c.FindOne(ctx, live(bson.M{"_id": id})).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return u, ErrNotFound
	}
	return u, err
}

// GetByEmail looks up a live user by case-insensitive email.
func (s *Store) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	err := s.c.FindOne(ctx, live(bson.M{"email": normalize.Email(email)})).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return u, ErrNotFound
	}
	return u, err
}

// Create inserts a new user after normalizing fields. PasswordHash must
// already be set.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.FullName = canon.Display(u.FullName)
	u.FullNameCI = text.Fold(u.FullName)
	u.Email = normalize.Email(u.Email)
	u.Role = normalize.Keyword(u.Role)
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	if u.Role != models.RoleAdmin && u.Role != models.RoleUser {
		return models.User{}, errBadRole
	}
	if u.PasswordHash == "" {
		return models.User{}, errNoPassword
	}
	u.IsDeleted = false
	u.DeletedAt = nil

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	u.UpdatedBy = u.CreatedBy

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

// Update holds the editable profile fields. Role is only applied when set.
type Update struct {
	FullName string
	Email    string
	Role     string
	Phone    string
	Address  string
	ZipCode  string
	Location models.LocationRef
}

// Update rewrites a live user's profile and location.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update, actor *primitive.ObjectID) (models.User, error) {
	name := canon.Display(upd.FullName)
	set := bson.M{
		"full_name":    name,
		"full_name_ci": text.Fold(name),
		"email":        normalize.Email(upd.Email),
		"phone":        upd.Phone,
		"address":      upd.Address,
		"zip_code":     upd.ZipCode,
		"country_id":   upd.Location.CountryID,
		"state_id":     upd.Location.StateID,
		"city_id":      upd.Location.CityID,
		"updated_by":   actor,
		"updated_at":   time.Now().UTC(),
	}
	if upd.Role != "" {
		role := normalize.Keyword(upd.Role)
		if role != models.RoleAdmin && role != models.RoleUser {
			return models.User{}, errBadRole
		}
		set["role"] = role
	}

	var u models.User
	err := s.c.FindOneAndUpdate(ctx, live(bson.M{"_id": id}), bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&u)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return u, ErrNotFound
	case err != nil && wafflemongo.IsDup(err):
		return u, ErrDuplicateEmail
	}
	return u, err
}

// SetPassword replaces a live user's password hash.
func (s *Store) SetPassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	res, err := s.c.UpdateOne(ctx, live(bson.M{"_id": id}),
		bson.M{"$set": bson.M{"password_hash": hash, "updated_at": time.Now().UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDelete marks a live user deleted. Their tasks keep the reference.
func (s *Store) SoftDelete(ctx context.Context, id primitive.ObjectID, actor *primitive.ObjectID) error {
	now := time.Now().UTC()
	res, err := s.c.UpdateOne(ctx, live(bson.M{"_id": id}), bson.M{"$set": bson.M{
		"is_deleted": true, "deleted_at": now, "updated_by": actor, "updated_at": now,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// EmailTaken reports whether a live user other than exclude has email.
func (s *Store) EmailTaken(ctx context.Context, email string, exclude *primitive.ObjectID) (bool, error) {
	filter := live(bson.M{"email": normalize.Email(email)})
	if exclude != nil {
		filter["_id"] = bson.M{"$ne": *exclude}
	}
	n, err := s.c.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	return n > 0, err
}

// CountActiveByRef counts live users whose field (country_id, state_id or
// city_id) equals id.
func (s *Store) CountActiveByRef(ctx context.Context, field string, id primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, live(bson.M{field: id}), options.Count().SetLimit(1))
}

// CountAdmins counts live admins.
func (s *Store) CountAdmins(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, live(bson.M{"role": models.RoleAdmin}))
}

func listFilter(scope bson.M, q string) bson.M {
	var textFilter bson.M
	if f := search.FoldContains("full_name_ci", q); f != nil {
		textFilter = bson.M{"$or": bson.A{f, search.KeyContains("email", q)}}
	}
	return search.And(live(bson.M{}), scope, textFilter)
}

// List returns one page of live users inside scope matching q (name or email).
func (s *Store) List(ctx context.Context, scope bson.M, q string, p paging.Params) ([]models.User, int64, error) {
	filter := listFilter(scope, q)
	total, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	cur, err := s.c.Find(ctx, filter, p.FindOptions())
	if err != nil {
		return nil, 0, err
	}
	var out []models.User
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

type LookupItem struct {
	ID       primitive.ObjectID `bson:"_id" json:"id"`
	FullName string             `bson:"full_name" json:"full_name"`
	Email    string             `bson:"email" json:"email"`
}

// Lookup returns live users inside scope ordered by name.
func (s *Store) Lookup(ctx context.Context, scope bson.M) ([]LookupItem, error) {
	cur, err := s.c.Find(ctx, listFilter(scope, ""), options.Find().
		SetSort(bson.D{{Key: "full_name_ci", Value: 1}, {Key: "_id", Value: 1}}).
		SetProjection(bson.M{"full_name": 1, "email": 1}))
	if err != nil {
		return nil, err
	}
	out := []LookupItem{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountLiveIn counts how many of ids belong to live users inside scope.
func (s *Store) CountLiveIn(ctx context.Context, scope bson.M, ids []primitive.ObjectID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return s.c.CountDocuments(ctx, search.And(live(bson.M{"_id": bson.M{"$in": ids}}), scope))
}
