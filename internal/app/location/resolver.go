// Package location resolves free-text addresses onto the Country, State and
// City reference collections and guards their deletion.
package location

import (
	"context"
	"errors"
	"slices"

	citystore "github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/store/cities"
	countrystore "github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/store/countries"
	statestore "github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/store/states"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/apperr"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/canon"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/metrics"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/normalize"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Resolver outcomes, recorded per level in metrics.
const (
	outcomeReused   = "reused"
	outcomeCreated  = "created"
	outcomeRestored = "restored"
	outcomeRaced    = "raced"
	outcomeFailed   = "failed"
)

// Address is a free-text location as typed by a client.
type Address struct {
	Country  string
	State    string
	City     string
	ZipCodes []string
}

// Resolved holds the ids of one resolved Country/State/City chain.
type Resolved struct {
	CountryID primitive.ObjectID
	StateID   primitive.ObjectID
	CityID    primitive.ObjectID
}

// Ref converts r to the reference fields stored on users and tasks.
// A nil Resolved yields an empty LocationRef.
func (r *Resolved) Ref() models.LocationRef {
	if r == nil {
		return models.LocationRef{}
	}
	c, s, ci := r.CountryID, r.StateID, r.CityID
	return models.LocationRef{CountryID: &c, StateID: &s, CityID: &ci}
}

// Resolver finds or creates the location chain for an Address.
type Resolver struct {
	countries *countrystore.Store
	states    *statestore.Store
	cities    *citystore.Store
	metrics   *metrics.Registry
	log       *zap.Logger
}

// NewResolver builds a Resolver over db. reg may be nil.
func NewResolver(db *mongo.Database, reg *metrics.Registry, logger *zap.Logger) *Resolver {
	return &Resolver{
		countries: countrystore.New(db),
		states:    statestore.New(db),
		cities:    citystore.New(db),
		metrics:   reg,
		log:       logger,
	}
}

// Resolve returns the ids for addr, creating missing levels with actor as
// creator. It returns nil, nil when any of the three names is blank.
//
// Each level is looked up by canonical key within its parent. An existing
// row is reused and its display name (and, for cities, a non-empty zip
// list) overwritten when they differ. A soft-deleted country is restored.
// Losing an insert race to a concurrent request re-reads the winner's row.
func (r *Resolver) Resolve(ctx context.Context, actor *primitive.ObjectID, addr Address) (*Resolved, error) {
	if canon.Empty(addr.Country) || canon.Empty(addr.State) || canon.Empty(addr.City) {
		return nil, nil
	}

	countryID, err := r.resolveCountry(ctx, actor, addr.Country)
	if err != nil {
		return nil, err
	}
	stateID, err := r.resolveState(ctx, actor, countryID, addr.State)
	if err != nil {
		return nil, err
	}
	zips := normalize.ZipCodes(addr.ZipCodes)
	if len(zips) == 0 {
		zips = nil
	}
	cityID, err := r.resolveCity(ctx, actor, stateID, addr.City, zips)
	if err != nil {
		return nil, err
	}
	return &Resolved{CountryID: countryID, StateID: stateID, CityID: cityID}, nil
}

func (r *Resolver) upsertFailed(level, name string, cause error) error {
	r.metrics.LocationOutcome(level, outcomeFailed)
	r.log.Error("location upsert failed",
		zap.String("level", level), zap.String("name", name), zap.Error(cause))
	return apperr.E(apperr.KindLocationUpsert, "location.Resolve", level+" could not be resolved", cause)
}

func (r *Resolver) resolveCountry(ctx context.Context, actor *primitive.ObjectID, name string) (primitive.ObjectID, error) {
	const level = "country"
	display, key := canon.Display(name), canon.Key(name)

	c, err := r.countries.FindByKey(ctx, key)
	switch {
	case err == nil:
		return r.reuseCountry(ctx, actor, c, display, outcomeReused)
	case !errors.Is(err, countrystore.ErrNotFound):
		return primitive.NilObjectID, r.upsertFailed(level, display, err)
	}

	created, err := r.countries.Create(ctx, display, actor)
	if err == nil {
		r.metrics.LocationOutcome(level, outcomeCreated)
		return created.ID, nil
	}
	if !errors.Is(err, countrystore.ErrDuplicateName) {
		return primitive.NilObjectID, r.upsertFailed(level, display, err)
	}

	c, err = r.countries.FindByKey(ctx, key)
	if err != nil {
		return primitive.NilObjectID, r.upsertFailed(level, display, err)
	}
	return r.reuseCountry(ctx, actor, c, display, outcomeRaced)
}

func (r *Resolver) reuseCountry(ctx context.Context, actor *primitive.ObjectID, c models.Country, display, outcome string) (primitive.ObjectID, error) {
	const level = "country"
	if c.IsDeleted {
		if _, err := r.countries.Restore(ctx, c.ID, display, actor); err != nil {
			return primitive.NilObjectID, r.upsertFailed(level, display, err)
		}
		r.metrics.LocationOutcome(level, outcomeRestored)
		return c.ID, nil
	}
	if c.Name != display {
		if err := r.countries.SetDisplayName(ctx, c.ID, display, actor); err != nil {
			return primitive.NilObjectID, r.upsertFailed(level, display, err)
		}
	}
	r.metrics.LocationOutcome(level, outcome)
	return c.ID, nil
}

func (r *Resolver) resolveState(ctx context.Context, actor *primitive.ObjectID, countryID primitive.ObjectID, name string) (primitive.ObjectID, error) {
	const level = "state"
	display, key := canon.Display(name), canon.Key(name)

	outcome := outcomeReused
	st, err := r.states.FindByKey(ctx, countryID, key)
	if errors.Is(err, statestore.ErrNotFound) {
		created, cerr := r.states.Create(ctx, countryID, display, actor)
		if cerr == nil {
			r.metrics.LocationOutcome(level, outcomeCreated)
			return created.ID, nil
		}
		if !errors.Is(cerr, statestore.ErrDuplicateName) {
			return primitive.NilObjectID, r.upsertFailed(level, display, cerr)
		}
		outcome = outcomeRaced
		st, err = r.states.FindByKey(ctx, countryID, key)
	}
	if err != nil {
		return primitive.NilObjectID, r.upsertFailed(level, display, err)
	}

	if st.Name != display {
		if err := r.states.SetDisplayName(ctx, st.ID, display, actor); err != nil {
			return primitive.NilObjectID, r.upsertFailed(level, display, err)
		}
	}
	r.metrics.LocationOutcome(level, outcome)
	return st.ID, nil
}

func (r *Resolver) resolveCity(ctx context.Context, actor *primitive.ObjectID, stateID primitive.ObjectID, name string, zips []string) (primitive.ObjectID, error) {
	const level = "city"
	display, key := canon.Display(name), canon.Key(name)

	outcome := outcomeReused
	c, err := r.cities.FindByKey(ctx, stateID, key)
	if errors.Is(err, citystore.ErrNotFound) {
		created, cerr := r.cities.Create(ctx, stateID, display, zips, actor)
		if cerr == nil {
			r.metrics.LocationOutcome(level, outcomeCreated)
			return created.ID, nil
		}
		if !errors.Is(cerr, citystore.ErrDuplicateName) {
			return primitive.NilObjectID, r.upsertFailed(level, display, cerr)
		}
		outcome = outcomeRaced
		c, err = r.cities.FindByKey(ctx, stateID, key)
	}
	if err != nil {
		return primitive.NilObjectID, r.upsertFailed(level, display, err)
	}

	if zips != nil && slices.Equal(c.ZipCodes, zips) {
		zips = nil
	}
	if c.Name != display || zips != nil {
		if err := r.cities.Touch(ctx, c.ID, display, zips, actor); err != nil {
			return primitive.NilObjectID, r.upsertFailed(level, display, err)
		}
	}
	r.metrics.LocationOutcome(level, outcome)
	return c.ID, nil
}
