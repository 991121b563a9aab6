// internal/app/features/cities/handler.go
package cities

import (
	"context"
	"errors"
	"net/http"
	"unicode/utf8"

	"github.com/dalemusser/waffle/pantry/query"
	uierrors "github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/features/errors"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/features/shared/params"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/location"
	citystore "github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/store/cities"
	statestore "github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/store/states"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/apperr"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/canon"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/jsonio"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/paging"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/timeouts"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const MaxNameLength = 100

var errNoState = apperr.Validation("state_id does not match an active state")

type Handler struct {
	Store  *citystore.Store
	States *statestore.Store
	Guard  *location.Guard
	ErrLog *uierrors.ErrorLogger
	Log    *zap.Logger
}

func NewHandler(db *mongo.Database, guard *location.Guard, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Store:  citystore.New(db),
		States: statestore.New(db),
		Guard:  guard,
		ErrLog: errLog,
		Log:    logger,
	}
}

type input struct {
	Name     string   `json:"name"`
	StateID  string   `json:"state_id"`
	ZipCodes []string `json:"zip_codes"`
}

func (in input) parse() (primitive.ObjectID, error) {
	if canon.Empty(in.Name) {
		return primitive.NilObjectID, apperr.Validation("name is required")
	}
	if utf8.RuneCountInString(canon.Display(in.Name)) > MaxNameLength {
		return primitive.NilObjectID, apperr.Validation("name is too long")
	}
	if in.StateID == "" {
		return primitive.NilObjectID, apperr.Validation("state_id is required")
	}
	id, err := params.ParseID(in.StateID, "state_id")
	if err != nil {
		return primitive.NilObjectID, err
	}
	return *id, nil
}

// view is a city with its state's display name.
type view struct {
	models.City
	StateName string `json:"state_name"`
}

func (h *Handler) requireState(ctx context.Context, id primitive.ObjectID) error {
	_, err := h.States.GetByID(ctx, id)
	if errors.Is(err, statestore.ErrNotFound) {
		return errNoState
	}
	return err
}

// GetList handles GET /?state_id=&q=.
func (h *Handler) GetList(w http.ResponseWriter, r *http.Request) {
	p, err := paging.Parse(r, citystore.Sorts, "name")
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	stateID, err := params.QueryID(r, "state_id")
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	items, total, err := h.Store.List(ctx, stateID, query.Get(r, "q"), p)
	if err != nil {
		h.ErrLog.Write(w, r, apperr.Internal("cities.GetList", err))
		return
	}
	ids := make([]primitive.ObjectID, 0, len(items))
	for _, c := range items {
		ids = append(ids, c.StateID)
	}
	names, err := h.States.NamesByID(ctx, ids)
	if err != nil {
		h.ErrLog.Write(w, r, apperr.Internal("cities.GetList", err))
		return
	}
	out := make([]view, 0, len(items))
	for _, c := range items {
		out = append(out, view{City: c, StateName: names[c.StateID]})
	}
	jsonio.Write(w, http.StatusOK, paging.NewPage(out, total, p))
}

// GetLookupList handles GET /lookup?state_id=.
func (h *Handler) GetLookupList(w http.ResponseWriter, r *http.Request) {
	stateID, err := params.QueryID(r, "state_id")
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	items, err := h.Store.Lookup(ctx, stateID)
	if err != nil {
		h.ErrLog.Write(w, r, apperr.Internal("cities.GetLookupList", err))
		return
	}
	jsonio.Write(w, http.StatusOK, items)
}

// CheckDuplicateName handles GET /check-duplicate?state_id=&name=&exclude_id=.
func (h *Handler) CheckDuplicateName(w http.ResponseWriter, r *http.Request) {
	name := query.Get(r, "name")
	if canon.Empty(name) {
		h.ErrLog.Write(w, r, apperr.Validation("name is required"))
		return
	}
	stateID, err := params.QueryID(r, "state_id")
	if err == nil && stateID == nil {
		err = apperr.Validation("state_id is required")
	}
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	exclude, err := params.QueryID(r, "exclude_id")
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	taken, err := h.Store.NameTaken(ctx, *stateID, name, exclude)
	if err != nil {
		h.ErrLog.Write(w, r, apperr.Internal("cities.CheckDuplicateName", err))
		return
	}
	jsonio.Write(w, http.StatusOK, map[string]bool{"exists": taken})
}

// GetModel handles GET /{id}.
func (h *Handler) GetModel(w http.ResponseWriter, r *http.Request) {
	id, err := params.PathID(r)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	c, err := h.Store.GetByID(ctx, id)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	names, err := h.States.NamesByID(ctx, []primitive.ObjectID{c.StateID})
	if err != nil {
		h.ErrLog.Write(w, r, apperr.Internal("cities.GetModel", err))
		return
	}
	jsonio.Write(w, http.StatusOK, view{City: c, StateName: names[c.StateID]})
}

// CanDelete handles GET /{id}/can-delete.
func (h *Handler) CanDelete(w http.ResponseWriter, r *http.Request) {
	id, err := params.PathID(r)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	check, err := h.Guard.CanDelete(ctx, location.KindCity, id)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	jsonio.Write(w, http.StatusOK, check)
}

// Insert handles POST /.
func (h *Handler) Insert(w http.ResponseWriter, r *http.Request) {
	actor, err := params.Actor(r)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	var in input
	if err := jsonio.Decode(w, r, &in); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	stateID, err := in.parse()
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.requireState(ctx, stateID); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	c, err := h.Store.Create(ctx, stateID, in.Name, in.ZipCodes, &actor.ID)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	h.Log.Info("city created", zap.String("id", c.ID.Hex()), zap.String("name", c.Name))
	jsonio.Write(w, http.StatusCreated, c)
}

// Update handles PUT /{id}. Omitting zip_codes keeps the stored list.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	actor, err := params.Actor(r)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	id, err := params.PathID(r)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	var in input
	if err := jsonio.Decode(w, r, &in); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	stateID, err := in.parse()
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.requireState(ctx, stateID); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	c, err := h.Store.Update(ctx, id, stateID, in.Name, in.ZipCodes, &actor.ID)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	jsonio.Write(w, http.StatusOK, c)
}

// Delete handles DELETE /{id}. Cities are removed once nothing uses them.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, err := params.Actor(r)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	id, err := params.PathID(r)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Guard.Delete(ctx, location.KindCity, id, &actor.ID); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
