// internal/app/store/tasks/taskstore.go
package taskstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
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
	ErrNotFound   = apperr.NotFound("task not found")
	errEmptyTitle = apperr.Validation("title is required")
	errPriority   = apperr.Validation("priority must be 0 (low), 1 (medium) or 2 (high)")
)

var Sorts = paging.Sorts{
	"due_date":   "due_date",
	"priority":   "priority",
	"created_at": "created_at",
	"title":      "title_ci",
}

// Status values accepted by Filter.Status.
const (
	StatusAll       = "all"
	StatusCompleted = "completed"
	StatusPending   = "pending"
	StatusOverdue   = "overdue"
)

// ValidStatus reports whether s is a known status filter ("" counts as all).
func ValidStatus(s string) bool {
	switch s {
	case "", StatusAll, StatusCompleted, StatusPending, StatusOverdue:
		return true
	}
	return false
}

type Store struct {
	c   *mongo.Collection
	now func() time.Time
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("tasks"), now: time.Now}
}

func live(filter bson.M) bson.M {
	filter["is_deleted"] = false
	return filter
}

func nonNil(ids []primitive.ObjectID) []primitive.ObjectID {
	if ids == nil {
		return []primitive.ObjectID{}
	}
	return ids
}

// GetByID loads a live task regardless of who can see it.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Task, error) {
	var t models.Task
	err := s.c.FindOne(ctx, live(bson.M{"_id": id})).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return t, ErrNotFound
	}
	return t, err
}

// Create inserts t as a new pending task created by actor.
func (s *Store) Create(ctx context.Context, t models.Task, actor primitive.ObjectID) (models.Task, error) {
	t.Title = canon.Display(t.Title)
	if t.Title == "" {
		return models.Task{}, errEmptyTitle
	}
	if !models.ValidPriority(t.Priority) {
		return models.Task{}, errPriority
	}
	now := s.now().UTC()
	t.ID = primitive.NewObjectID()
	t.TitleCI = text.Fold(t.Title)
	t.AssignedTo = nonNil(t.AssignedTo)
	t.Completed, t.CompletedAt, t.CompletedBy = false, nil, nil
	t.IsDeleted = false
	t.Audit = models.Audit{CreatedBy: &actor, CreatedAt: now, UpdatedBy: &actor, UpdatedAt: now}

	if _, err := s.c.InsertOne(ctx, t); err != nil {
		return models.Task{}, err
	}
	return t, nil
}

// Update holds the editable task fields.
type Update struct {
	Title       string
	Description string
	Priority    int
	DueDate     *time.Time
	AssignedTo  []primitive.ObjectID
	Location    models.LocationRef
}

// Update rewrites a live task. Completion state is changed by SetCompleted.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update, actor primitive.ObjectID) (models.Task, error) {
	title := canon.Display(upd.Title)
	if title == "" {
		return models.Task{}, errEmptyTitle
	}
	if !models.ValidPriority(upd.Priority) {
		return models.Task{}, errPriority
	}
	set := bson.M{
		"title":       title,
		"title_ci":    text.Fold(title),
		"description": upd.Description,
		"priority":    upd.Priority,
		"assigned_to": nonNil(upd.AssignedTo),
		"country_id":  upd.Location.CountryID,
		"state_id":    upd.Location.StateID,
		"city_id":     upd.Location.CityID,
		"updated_by":  actor,
		"updated_at":  s.now().UTC(),
	}
	doc := bson.M{"$set": set}
	if upd.DueDate != nil {
		set["due_date"] = upd.DueDate.UTC()
	} else {
		doc["$unset"] = bson.M{"due_date": ""}
	}

	var t models.Task
	err := s.c.FindOneAndUpdate(ctx, live(bson.M{"_id": id}), doc,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return t, ErrNotFound
	}
	return t, err
}

// SetCompleted marks a task completed (stamping who and when) or pending
// (clearing the stamps).
func (s *Store) SetCompleted(ctx context.Context, id primitive.ObjectID, completed bool, actor primitive.ObjectID) (models.Task, error) {
	now := s.now().UTC()
	var doc bson.M
	if completed {
		doc = bson.M{"$set": bson.M{
			"completed": true, "completed_at": now, "completed_by": actor,
			"updated_by": actor, "updated_at": now,
		}}
	} else {
		doc = bson.M{
			"$set":   bson.M{"completed": false, "updated_by": actor, "updated_at": now},
			"$unset": bson.M{"completed_at": "", "completed_by": ""},
		}
	}
	var t models.Task
	err := s.c.FindOneAndUpdate(ctx, live(bson.M{"_id": id}), doc,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return t, ErrNotFound
	}
	return t, err
}

// SoftDelete marks a live task deleted.
func (s *Store) SoftDelete(ctx context.Context, id primitive.ObjectID, actor primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx, live(bson.M{"_id": id}), bson.M{"$set": bson.M{
		"is_deleted": true, "updated_by": actor, "updated_at": s.now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// CountActiveByRef counts live tasks whose field (country_id, state_id or
// city_id) equals id.
func (s *Store) CountActiveByRef(ctx context.Context, field string, id primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, live(bson.M{field: id}), options.Count().SetLimit(1))
}

// Filter narrows List. Zero values mean "no constraint".
type Filter struct {
	Status     string
	Priority   *int
	AssignedTo *primitive.ObjectID
	CreatedBy  *primitive.ObjectID
	DueFrom    *time.Time
	DueTo      *time.Time
	Q          string
}

func (s *Store) filterDoc(scope bson.M, f Filter) bson.M {
	base := live(bson.M{})
	switch f.Status {
	case StatusCompleted:
		base["completed"] = true
	case StatusPending:
		base["completed"] = false
	case StatusOverdue:
		base["completed"] = false
		base["due_date"] = bson.M{"$lt": s.now().UTC()}
	}
	if f.Priority != nil {
		base["priority"] = *f.Priority
	}
	if f.AssignedTo != nil {
		base["assigned_to"] = *f.AssignedTo
	}
	if f.CreatedBy != nil {
		base["created_by"] = *f.CreatedBy
	}

	var due bson.M
	if f.DueFrom != nil || f.DueTo != nil {
		r := bson.M{}
		if f.DueFrom != nil {
			r["$gte"] = f.DueFrom.UTC()
		}
		if f.DueTo != nil {
			r["$lte"] = f.DueTo.UTC()
		}
		due = bson.M{"due_date": r}
	}
	return search.And(base, scope, due, search.FoldContains("title_ci", f.Q))
}

// List returns one page of live tasks inside scope that match f.
func (s *Store) List(ctx context.Context, scope bson.M, f Filter, p paging.Params) ([]models.Task, int64, error) {
	filter := s.filterDoc(scope, f)
	total, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	cur, err := s.c.Find(ctx, filter, p.FindOptions())
	if err != nil {
		return nil, 0, err
	}
	var out []models.Task
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
