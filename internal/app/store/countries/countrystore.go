package countrystore

import (
	"context"
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/apperr"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/canon"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/paging"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/search"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound      = apperr.NotFound("country not found")
	ErrDuplicateName = apperr.Conflict("a country with this name already exists")
	errEmptyName     = apperr.Validation("country name is required")
)

// Sorts are the list orderings exposed to clients.
var Sorts = paging.Sorts{"name": "name_key", "created_at": "created_at"}

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("countries")}
}

// GetByID loads an active country.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Country, error) {
	var c models.Country
	err := s.c.FindOne(ctx, bson.M{"_id": id, "is_deleted": false}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return c, ErrNotFound
	}
	return c, err
}

// FindByKey looks up a country by canonical key, including soft-deleted rows.
func (s *Store) FindByKey(ctx context.Context, key string) (models.Country, error) {
	var c models.Country
	err := s.c.FindOne(ctx, bson.M{"name_key": key}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return c, ErrNotFound
	}
	return c, err
}

// Create inserts a country, or restores a soft-deleted one with the same key
// (keeping its id). An active country with the same key is ErrDuplicateName.
func (s *Store) Create(ctx context.Context, name string, actor *primitive.ObjectID) (models.Country, error) {
	display, key := canon.Display(name), canon.Key(name)
	if key == "" {
		return models.Country{}, errEmptyName
	}

	existing, err := s.FindByKey(ctx, key)
	switch {
	case err == nil && !existing.IsDeleted:
		return models.Country{}, ErrDuplicateName
	case err == nil:
		return s.Restore(ctx, existing.ID, display, actor)
	case !errors.Is(err, ErrNotFound):
		return models.Country{}, err
	}

	now := time.Now().UTC()
	c := models.Country{
		ID:      primitive.NewObjectID(),
		Name:    display,
		NameKey: key,
		Audit:   models.Audit{CreatedBy: actor, CreatedAt: now, UpdatedBy: actor, UpdatedAt: now},
	}
	if _, err := s.c.InsertOne(ctx, c); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Country{}, ErrDuplicateName
		}
		return models.Country{}, err
	}
	return c, nil
}

// Restore un-deletes a country and sets its display name.
func (s *Store) Restore(ctx context.Context, id primitive.ObjectID, display string, actor *primitive.ObjectID) (models.Country, error) {
	var c models.Country
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"is_deleted": false, "name": display, "updated_by": actor, "updated_at": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return c, ErrNotFound
	}
	return c, err
}

// Rename changes an active country's name. Renaming onto another country's
// key (deleted or not) is ErrDuplicateName.
func (s *Store) Rename(ctx context.Context, id primitive.ObjectID, name string, actor *primitive.ObjectID) (models.Country, error) {
	display, key := canon.Display(name), canon.Key(name)
	if key == "" {
		return models.Country{}, errEmptyName
	}
	var c models.Country
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "is_deleted": false},
		bson.M{"$set": bson.M{"name": display, "name_key": key, "updated_by": actor, "updated_at": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&c)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return c, ErrNotFound
	case err != nil && wafflemongo.IsDup(err):
		return c, ErrDuplicateName
	}
	return c, err
}

// SetDisplayName updates only the display form; the key is unchanged.
func (s *Store) SetDisplayName(ctx context.Context, id primitive.ObjectID, display string, actor *primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"name": display, "updated_by": actor, "updated_at": time.Now().UTC()}})
	return err
}

// SoftDelete marks an active country deleted.
func (s *Store) SoftDelete(ctx context.Context, id primitive.ObjectID, actor *primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "is_deleted": false},
		bson.M{"$set": bson.M{"is_deleted": true, "updated_by": actor, "updated_at": time.Now().UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// NameTaken reports whether an active country other than exclude has key.
func (s *Store) NameTaken(ctx context.Context, name string, exclude *primitive.ObjectID) (bool, error) {
	filter := bson.M{"name_key": canon.Key(name), "is_deleted": false}
	if exclude != nil {
		filter["_id"] = bson.M{"$ne": *exclude}
	}
	n, err := s.c.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	return n > 0, err
}

// List returns one page of active countries matching q.
func (s *Store) List(ctx context.Context, q string, p paging.Params) ([]models.Country, int64, error) {
	filter := search.And(bson.M{"is_deleted": false}, search.KeyContains("name_key", q))
	total, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	cur, err := s.c.Find(ctx, filter, p.FindOptions())
	if err != nil {
		return nil, 0, err
	}
	var out []models.Country
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// LookupItem is the id/name pair used by dropdowns.
type LookupItem struct {
	ID   primitive.ObjectID `bson:"_id" json:"id"`
	Name string             `bson:"name" json:"name"`
}

// Lookup returns every active country ordered by name.
func (s *Store) Lookup(ctx context.Context) ([]LookupItem, error) {
	cur, err := s.c.Find(ctx, bson.M{"is_deleted": false},
		options.Find().SetSort(bson.D{{Key: "name_key", Value: 1}}).SetProjection(bson.M{"name": 1}))
	if err != nil {
		return nil, err
	}
	out := []LookupItem{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// NamesByID maps ids to display names (deleted rows included).
func (s *Store) NamesByID(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	out := make(map[primitive.ObjectID]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find().SetProjection(bson.M{"name": 1}))
	if err != nil {
		return nil, err
	}
	var rows []LookupItem
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.ID] = r.Name
	}
	return out, nil
}
