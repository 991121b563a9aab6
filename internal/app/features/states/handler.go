// internal/app/features/states/handler.go
package states

import (
	"context"
	"errors"
	"net/http"
	"unicode/utf8"

	"github.com/dalemusser/waffle/pantry/query"
	uierrors "github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/features/errors"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/features/shared/params"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/location"
	countrystore "github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/store/countries"
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

var errNoCountry = apperr.Validation("country_id does not match an active country")

type Handler struct {
	Store     *statestore.Store
	Countries *countrystore.Store
	Guard     *location.Guard
	ErrLog    *uierrors.ErrorLogger
	Log       *zap.Logger
}

func NewHandler(db *mongo.Database, guard *location.Guard, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Store:     statestore.New(db),
		Countries: countrystore.New(db),
		Guard:     guard,
		ErrLog:    errLog,
		Log:       logger,
	}
}

type input struct {
	Name      string `json:"name"`
	CountryID string `json:"country_id"`
}

func (in input) parse() (primitive.ObjectID, error) {
	if canon.Empty(in.Name) {
		return primitive.NilObjectID, apperr.Validation("name is required")
	}
	if utf8.RuneCountInString(canon.Display(in.Name)) > MaxNameLength {
		return primitive.NilObjectID, apperr.Validation("name is too long")
	}
	if in.CountryID == "" {
		return primitive.NilObjectID, apperr.Validation("country_id is required")
	}
	id, err := params.ParseID(in.CountryID, "country_id")
	if err != nil {
		return primitive.NilObjectID, err
	}
	return *id, nil
}

// view is a state with its country's display name.
type view struct {
	models.State
	CountryName string `json:"country_name"`
}

func (h *Handler) requireCountry(ctx context.Context, id primitive.ObjectID) error {
	_, err := h.Countries.GetByID(ctx, id)
	if errors.Is(err, countrystore.ErrNotFound) {
		return errNoCountry
	}
	return err
}

// GetList handles GET /?country_id=&q=.
func (h *Handler) GetList(w http.ResponseWriter, r *http.Request) {
	p, err := paging.Parse(r, statestore.Sorts, "name")
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	countryID, err := params.QueryID(r, "country_id")
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	items, total, err := h.Store.List(ctx, countryID, query.Get(r, "q"), p)
	if err != nil {
		h.ErrLog.Write(w, r, apperr.Internal("states.GetList", err))
		return
	}
	ids := make([]primitive.ObjectID, 0, len(items))
	for _, st := range items {
		ids = append(ids, st.CountryID)
	}
	names, err := h.Countries.NamesByID(ctx, ids)
	if err != nil {
		h.ErrLog.Write(w, r, apperr.Internal("states.GetList", err))
		return
	}
	out := make([]view, 0, len(items))
	for _, st := range items {
		out = append(out, view{State: st, CountryName: names[st.CountryID]})
	}
	jsonio.Write(w, http.StatusOK, paging.NewPage(out, total, p))
}

// GetLookupList handles GET /lookup?country_id=.
func (h *Handler) GetLookupList(w http.ResponseWriter, r *http.Request) {
	countryID, err := params.QueryID(r, "country_id")
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	items, err := h.Store.Lookup(ctx, countryID)
	if err != nil {
		h.ErrLog.Write(w, r, apperr.Internal("states.GetLookupList", err))
		return
	}
	jsonio.Write(w, http.StatusOK, items)
}

// CheckDuplicateName handles GET /check-duplicate?country_id=&name=&exclude_id=.
func (h *Handler) CheckDuplicateName(w http.ResponseWriter, r *http.Request) {
	name := query.Get(r, "name")
	if canon.Empty(name) {
		h.ErrLog.Write(w, r, apperr.Validation("name is required"))
		return
	}
	countryID, err := params.QueryID(r, "country_id")
	if err == nil && countryID == nil {
		err = apperr.Validation("country_id is required")
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

	taken, err := h.Store.NameTaken(ctx, *countryID, name, exclude)
	if err != nil {
		h.ErrLog.Write(w, r, apperr.Internal("states.CheckDuplicateName", err))
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

	st, err := h.Store.GetByID(ctx, id)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	names, err := h.Countries.NamesByID(ctx, []primitive.ObjectID{st.CountryID})
	if err != nil {
		h.ErrLog.Write(w, r, apperr.Internal("states.GetModel", err))
		return
	}
	jsonio.Write(w, http.StatusOK, view{State: st, CountryName: names[st.CountryID]})
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

	check, err := h.Guard.CanDelete(ctx, location.KindState, id)
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
	countryID, err := in.parse()
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.requireCountry(ctx, countryID); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	st, err := h.Store.Create(ctx, countryID, in.Name, &actor.ID)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	h.Log.Info("state created", zap.String("id", st.ID.Hex()), zap.String("name", st.Name))
	jsonio.Write(w, http.StatusCreated, st)
}

// Update handles PUT /{id}.
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
	countryID, err := in.parse()
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.requireCountry(ctx, countryID); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	st, err := h.Store.Update(ctx, id, countryID, in.Name, &actor.ID)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	jsonio.Write(w, http.StatusOK, st)
}

// Delete handles DELETE /{id}. States are removed once nothing uses them.
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

	if err := h.Guard.Delete(ctx, location.KindState, id, &actor.ID); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
