package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/canon"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
		r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	}
	rctx.URLParams.Add(key, value)
	return r
}

// Fixtures inserts test documents directly, bypassing stores.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

func (f *Fixtures) DB() *mongo.Database { return f.db }

func (f *Fixtures) insert(ctx context.Context, coll string, doc any) {
	f.t.Helper()
	if _, err := f.db.Collection(coll).InsertOne(ctx, doc); err != nil {
		f.t.Fatalf("insert %s fixture: %v", coll, err)
	}
}

func audit() models.Audit {
	now := time.Now().UTC()
	return models.Audit{CreatedAt: now, UpdatedAt: now}
}

// CreateCountry inserts an active country.
func (f *Fixtures) CreateCountry(ctx context.Context, name string) models.Country {
	f.t.Helper()
	c := models.Country{ID: primitive.NewObjectID(), Name: canon.Display(name), NameKey: canon.Key(name), Audit: audit()}
	f.insert(ctx, "countries", c)
	return c
}

// CreateState inserts an active state under countryID.
func (f *Fixtures) CreateState(ctx context.Context, name string, countryID primitive.ObjectID) models.State {
	f.t.Helper()
	s := models.State{ID: primitive.NewObjectID(), Name: canon.Display(name), NameKey: canon.Key(name), CountryID: countryID, Audit: audit()}
	f.insert(ctx, "states", s)
	return s
}

// CreateCity inserts an active city under stateID.
func (f *Fixtures) CreateCity(ctx context.Context, name string, stateID primitive.ObjectID, zips ...string) models.City {
	f.t.Helper()
	c := models.City{ID: primitive.NewObjectID(), Name: canon.Display(name), NameKey: canon.Key(name), StateID: stateID, ZipCodes: zips, Audit: audit()}
	if c.ZipCodes == nil {
		c.ZipCodes = []string{}
	}
	f.insert(ctx, "cities", c)
	return c
}

// CreateUser inserts a live user with the given role. The password hash is
// not a real bcrypt hash; use the users store when a login must succeed.
func (f *Fixtures) CreateUser(ctx context.Context, fullName, email, role string, createdBy *primitive.ObjectID) models.User {
	f.t.Helper()
	u := models.User{
		ID:           primitive.NewObjectID(),
		FullName:     fullName,
		FullNameCI:   text.Fold(fullName),
		Email:        email,
		PasswordHash: "x",
		Role:         role,
		Audit:        audit(),
	}
	u.CreatedBy = createdBy
	f.insert(ctx, "users", u)
	return u
}

func (f *Fixtures) CreateAdmin(ctx context.Context, fullName, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, fullName, email, models.RoleAdmin, nil)
}

// CreateUserAt inserts a live user referencing the given location.
func (f *Fixtures) CreateUserAt(ctx context.Context, email string, loc models.LocationRef) models.User {
	f.t.Helper()
	u := models.User{
		ID:           primitive.NewObjectID(),
		FullName:     "Located User",
		FullNameCI:   "located user",
		Email:        email,
		PasswordHash: "x",
		Role:         models.RoleUser,
		LocationRef:  loc,
		Audit:        audit(),
	}
	f.insert(ctx, "users", u)
	return u
}

// CreateTask inserts a live task owned by createdBy.
func (f *Fixtures) CreateTask(ctx context.Context, title string, createdBy primitive.ObjectID, assignees ...primitive.ObjectID) models.Task {
	f.t.Helper()
	if assignees == nil {
		assignees = []primitive.ObjectID{}
	}
	task := models.Task{
		ID:         primitive.NewObjectID(),
		Title:      title,
		TitleCI:    text.Fold(title),
		Priority:   models.PriorityMedium,
		AssignedTo: assignees,
		Audit:      audit(),
	}
	task.CreatedBy = &createdBy
	f.insert(ctx, "tasks", task)
	return task
}

// CreateTaskAt inserts a live task referencing the given location.
func (f *Fixtures) CreateTaskAt(ctx context.Context, title string, createdBy primitive.ObjectID, loc models.LocationRef) models.Task {
	f.t.Helper()
	task := models.Task{
		ID:          primitive.NewObjectID(),
		Title:       title,
		TitleCI:     text.Fold(title),
		AssignedTo:  []primitive.ObjectID{},
		LocationRef: loc,
		Audit:       audit(),
	}
	task.CreatedBy = &createdBy
	f.insert(ctx, "tasks", task)
	return task
}
