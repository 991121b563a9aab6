package location

import (
	"context"

	citystore "github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/store/cities"
	countrystore "github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/store/countries"
	statestore "github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/store/states"
	taskstore "github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/store/tasks"
	userstore "github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/store/users"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/apperr"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/metrics"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Kind names a level of the location hierarchy.
type Kind string

const (
	KindCountry Kind = "country"
	KindState   Kind = "state"
	KindCity    Kind = "city"
)

var errUnknownKind = apperr.Validation("unknown location kind")

// Check is the guard's verdict on a delete.
type Check struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

func blocked(reason string) Check { return Check{Reason: reason} }

// Guard refuses to delete a location while active rows still reference it.
type Guard struct {
	countries *countrystore.Store
	states    *statestore.Store
	cities    *citystore.Store
	users     *userstore.Store
	tasks     *taskstore.Store
	metrics   *metrics.Registry
	log       *zap.Logger
}

// NewGuard builds a Guard over db. reg may be nil.
func NewGuard(db *mongo.Database, reg *metrics.Registry, logger *zap.Logger) *Guard {
	return &Guard{
		countries: countrystore.New(db),
		states:    statestore.New(db),
		cities:    citystore.New(db),
		users:     userstore.New(db),
		tasks:     taskstore.New(db),
		metrics:   reg,
		log:       logger,
	}
}

// CanDelete reports whether the location can be deleted now. A missing or
// already deleted location is a NotFound error.
func (g *Guard) CanDelete(ctx context.Context, kind Kind, id primitive.ObjectID) (Check, error) {
	switch kind {
	case KindCity:
		if _, err := g.cities.GetByID(ctx, id); err != nil {
			return Check{}, err
		}
		return g.referenced(ctx, "city_id", id, "city")
	case KindState:
		if _, err := g.states.GetByID(ctx, id); err != nil {
			return Check{}, err
		}
		n, err := g.cities.CountActiveInStates(ctx, id)
		if err != nil {
			return Check{}, err
		}
		if n > 0 {
			return blocked("state has active cities"), nil
		}
		return g.referenced(ctx, "state_id", id, "state")
	case KindCountry:
		if _, err := g.countries.GetByID(ctx, id); err != nil {
			return Check{}, err
		}
		return g.countryCheck(ctx, id)
	}
	return Check{}, errUnknownKind
}

func (g *Guard) countryCheck(ctx context.Context, id primitive.ObjectID) (Check, error) {
	n, err := g.states.CountActiveInCountry(ctx, id)
	if err != nil {
		return Check{}, err
	}
	if n > 0 {
		return blocked("country has active states"), nil
	}

	// Cities count even when their state is inactive.
	stateIDs, err := g.states.IDsInCountry(ctx, id)
	if err != nil {
		return Check{}, err
	}
	if n, err = g.cities.CountActiveInStates(ctx, stateIDs...); err != nil {
		return Check{}, err
	}
	if n > 0 {
		return blocked("country has active cities"), nil
	}
	return g.referenced(ctx, "country_id", id, "country")
}

// referenced blocks when any live user or task points at id through field.
func (g *Guard) referenced(ctx context.Context, field string, id primitive.ObjectID, noun string) (Check, error) {
	n, err := g.users.CountActiveByRef(ctx, field, id)
	if err != nil {
		return Check{}, err
	}
	if n > 0 {
		return blocked(noun + " is referenced by users"), nil
	}
	if n, err = g.tasks.CountActiveByRef(ctx, field, id); err != nil {
		return Check{}, err
	}
	if n > 0 {
		return blocked(noun + " is referenced by tasks"), nil
	}
	return Check{Allowed: true}, nil
}

// Delete removes the location when CanDelete allows it. A blocked delete
// is a Conflict carrying the reason. Countries are soft-deleted; states and
// cities are removed.
func (g *Guard) Delete(ctx context.Context, kind Kind, id primitive.ObjectID, actor *primitive.ObjectID) error {
	check, err := g.CanDelete(ctx, kind, id)
	if err != nil {
		return err
	}
	if !check.Allowed {
		g.metrics.LocationOutcome(string(kind), "delete_blocked")
		return apperr.E(apperr.KindConflict, "location.Delete", check.Reason, nil)
	}

	switch kind {
	case KindCountry:
		err = g.countries.SoftDelete(ctx, id, actor)
	case KindState:
		err = g.states.Delete(ctx, id)
	case KindCity:
		err = g.cities.Delete(ctx, id)
	}
	if err != nil {
		return err
	}
	g.metrics.LocationOutcome(string(kind), "deleted")
	g.log.Info("location deleted", zap.String("kind", string(kind)), zap.String("id", id.Hex()))
	return nil
}
