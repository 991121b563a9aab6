package citystore

import (
	"context"
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
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
	ErrNotFound      = apperr.NotFound("city not found")
	ErrDuplicateName = apperr.Conflict("a city with this name already exists in this state")
	errEmptyName     = apperr.Validation("city name is required")
)

var Sorts = paging.Sorts{"name": "name_key", "created_at": "created_at"}

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("cities")}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.City, error) {
	var c models.City
	err := s.c.FindOne(ctx, bson.M{"_id": id, "is_deleted": false}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return c, ErrNotFound
	}
	return c, err
}

// FindByKey looks up an active city by canonical key within a state.
func (s *Store) FindByKey(ctx context.Context, stateID primitive.ObjectID, key string) (models.City, error) {
	var c models.City
	err := s.c.FindOne(ctx, bson.M{"state_id": stateID, "name_key": key, "is_deleted": false}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return c, ErrNotFound
	}
	return c, err
}

// Create inserts a city under stateID. The caller checks the state exists.
func (s *Store) Create(ctx context.Context, stateID primitive.ObjectID, name string, zips []string, actor *primitive.ObjectID) (models.City, error) {
	key := canon.Key(name)
	if key == "" {
		return models.City{}, errEmptyName
	}
	zips = normalize.ZipCodes(zips)
	if zips == nil {
		zips = []string{}
	}
	now := time.Now().UTC()
	c := models.City{
		ID:       primitive.NewObjectID(),
		Name:     canon.Display(name),
		NameKey:  key,
		StateID:  stateID,
		ZipCodes: zips,
		Audit:    models.Audit{CreatedBy: actor, CreatedAt: now, UpdatedBy: actor, UpdatedAt: now},
	}
	if _, err := s.c.InsertOne(ctx, c); err != nil {
		if wafflemongo.IsDup(err) {
			return models.City{}, ErrDuplicateName
		}
		return models.City{}, err
	}
	return c, nil
}

// Update renames a city, may move it to another state, and replaces its zip
// codes when zips is non-nil.
func (s *Store) Update(ctx context.Context, id, stateID primitive.ObjectID, name string, zips []string, actor *primitive.ObjectID) (models.City, error) {
	key := canon.Key(name)
	if key == "" {
		return models.City{}, errEmptyName
	}
	set := bson.M{
		"name": canon.Display(name), "name_key": key, "state_id": stateID,
		"updated_by": actor, "updated_at": time.Now().UTC(),
	}
	if zips = normalize.ZipCodes(zips); zips != nil {
		set["zip_codes"] = zips
	}
	var c models.City
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "is_deleted": false},
		bson.M{"$set": set},
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

// Touch sets the display name and, when zips is non-nil, the zip codes.
// It is the resolver's last-write-wins update.
func (s *Store) Touch(ctx context.Context, id primitive.ObjectID, display string, zips []string, actor *primitive.ObjectID) error {
	set := bson.M{"name": display, "updated_by": actor, "updated_at": time.Now().UTC()}
	if zips != nil {
		set["zip_codes"] = zips
	}
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	return err
}

// Delete removes a city permanently.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// NameTaken reports whether another active city in stateID has this name.
func (s *Store) NameTaken(ctx context.Context, stateID primitive.ObjectID, name string, exclude *primitive.ObjectID) (bool, error) {
	filter := bson.M{"state_id": stateID, "name_key": canon.Key(name), "is_deleted": false}
	if exclude != nil {
		filter["_id"] = bson.M{"$ne": *exclude}
	}
	n, err := s.c.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	return n > 0, err
}

// CountActiveInStates counts active cities whose parent is any of stateIDs.
func (s *Store) CountActiveInStates(ctx context.Context, stateIDs ...primitive.ObjectID) (int64, error) {
	if len(stateIDs) == 0 {
		return 0, nil
	}
	return s.c.CountDocuments(ctx,
		bson.M{"state_id": bson.M{"$in": stateIDs}, "is_deleted": false},
		options.Count().SetLimit(1))
}

func filterFor(stateID *primitive.ObjectID, q string) bson.M {
	base := bson.M{"is_deleted": false}
	if stateID != nil {
		base["state_id"] = *stateID
	}
	return search.And(base, search.KeyContains("name_key", q))
}

// List returns one page of active cities, optionally within one state.
func (s *Store) List(ctx context.Context, stateID *primitive.ObjectID, q string, p paging.Params) ([]models.City, int64, error) {
	filter := filterFor(stateID, q)
	total, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	cur, err := s.c.Find(ctx, filter, p.FindOptions())
	if err != nil {
		return nil, 0, err
	}
	var out []models.City
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

type LookupItem struct {
	ID       primitive.ObjectID `bson:"_id" json:"id"`
	Name     string             `bson:"name" json:"name"`
	StateID  primitive.ObjectID `bson:"state_id" json:"state_id"`
	ZipCodes []string           `bson:"zip_codes" json:"zip_codes"`
}

// Lookup returns active cities ordered by name, optionally within one state.
func (s *Store) Lookup(ctx context.Context, stateID *primitive.ObjectID) ([]LookupItem, error) {
	cur, err := s.c.Find(ctx, filterFor(stateID, ""), options.Find().
		SetSort(bson.D{{Key: "name_key", Value: 1}}).
		SetProjection(bson.M{"name": 1, "state_id": 1, "zip_codes": 1}))
	if err != nil {
		return nil, err
	}
	out := []LookupItem{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// NamesByID maps ids to display names.
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
