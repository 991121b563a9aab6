package statestore

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
	ErrNotFound      = apperr.NotFound("state not found")
	ErrDuplicateName = apperr.Conflict("a state with this name already exists in this country")
	errEmptyName     = apperr.Validation("state name is required")
)

var Sorts = paging.Sorts{"name": "name_key", "created_at": "created_at"}

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("states")}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.State, error) {
	var st models.State
	err := s.c.FindOne(ctx, bson.M{"_id": id, "is_deleted": false}).Decode(&st)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return st, ErrNotFound
	}
	return st, err
}

// FindByKey looks up an active state by canonical key within a country.
func (s *Store) FindByKey(ctx context.Context, countryID primitive.ObjectID, key string) (models.State, error) {
	var st models.State
	err := s.c.FindOne(ctx, bson.M{"country_id": countryID, "name_key": key, "is_deleted": false}).Decode(&st)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return st, ErrNotFound
	}
	return st, err
}

// Create inserts a state under countryID. The caller checks the country exists.
func (s *Store) Create(ctx context.Context, countryID primitive.ObjectID, name string, actor *primitive.ObjectID) (models.State, error) {
	key := canon.Key(name)
	if key == "" {
		return models.State{}, errEmptyName
	}
	now := time.Now().UTC()
	st := models.State{
		ID:        primitive.NewObjectID(),
		Name:      canon.Display(name),
		NameKey:   key,
		CountryID: countryID,
		Audit:     models.Audit{CreatedBy: actor, CreatedAt: now, UpdatedBy: actor, UpdatedAt: now},
	}
	if _, err := s.c.InsertOne(ctx, st); err != nil {
		if wafflemongo.IsDup(err) {
			return models.State{}, ErrDuplicateName
		}
		return models.State{}, err
	}
	return st, nil
}

// Update renames a state and may move it to another country.
func (s *Store) Update(ctx context.Context, id, countryID primitive.ObjectID, name string, actor *primitive.ObjectID) (models.State, error) {
	key := canon.Key(name)
	if key == "" {
		return models.State{}, errEmptyName
	}
	var st models.State
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "is_deleted": false},
		bson.M{"$set": bson.M{
			"name": canon.Display(name), "name_key": key, "country_id": countryID,
			"updated_by": actor, "updated_at": time.Now().UTC(),
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&st)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return st, ErrNotFound
	case err != nil && wafflemongo.IsDup(err):
		return st, ErrDuplicateName
	}
	return st, err
}

// SetDisplayName updates only the display form.
func (s *Store) SetDisplayName(ctx context.Context, id primitive.ObjectID, display string, actor *primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"name": display, "updated_by": actor, "updated_at": time.Now().UTC()}})
	return err
}

// Delete removes a state permanently.
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

// NameTaken reports whether another active state in countryID has this name.
func (s *Store) NameTaken(ctx context.Context, countryID primitive.ObjectID, name string, exclude *primitive.ObjectID) (bool, error) {
	filter := bson.M{"country_id": countryID, "name_key": canon.Key(name), "is_deleted": false}
	if exclude != nil {
		filter["_id"] = bson.M{"$ne": *exclude}
	}
	n, err := s.c.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	return n > 0, err
}

// CountActiveInCountry counts active states whose parent is countryID.
func (s *Store) CountActiveInCountry(ctx context.Context, countryID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"country_id": countryID, "is_deleted": false}, options.Count().SetLimit(1))
}

// IDsInCountry returns every state id under countryID, active or not.
func (s *Store) IDsInCountry(ctx context.Context, countryID primitive.ObjectID) ([]primitive.ObjectID, error) {
	cur, err := s.c.Find(ctx, bson.M{"country_id": countryID}, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	var rows []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

func filterFor(countryID *primitive.ObjectID, q string) bson.M {
	base := bson.M{"is_deleted": false}
	if countryID != nil {
		base["country_id"] = *countryID
	}
	return search.And(base, search.KeyContains("name_key", q))
}

// List returns one page of active states, optionally within one country.
func (s *Store) List(ctx context.Context, countryID *primitive.ObjectID, q string, p paging.Params) ([]models.State, int64, error) {
	filter := filterFor(countryID, q)
	total, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	cur, err := s.c.Find(ctx, filter, p.FindOptions())
	if err != nil {
		return nil, 0, err
	}
	var out []models.State
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

type LookupItem struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	Name      string             `bson:"name" json:"name"`
	CountryID primitive.ObjectID `bson:"country_id" json:"country_id"`
}

// Lookup returns active states ordered by name, optionally within one country.
func (s *Store) Lookup(ctx context.Context, countryID *primitive.ObjectID) ([]LookupItem, error) {
	cur, err := s.c.Find(ctx, filterFor(countryID, ""), options.Find().
		SetSort(bson.D{{Key: "name_key", Value: 1}}).
		SetProjection(bson.M{"name": 1, "country_id": 1}))
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
