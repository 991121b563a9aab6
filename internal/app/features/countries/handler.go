// internal/app/features/countries/handler.go
package countries

import (
	"context"
	"net/http"
	"unicode/utf8"

	"github.com/dalemusser/waffle/pantry/query"
	uierrors "github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/features/errors"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/features/shared/params"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/location"
	countrystore "github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/store/countries"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/apperr"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/canon"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/jsonio"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/paging"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// MaxNameLength bounds location names in runes.
const MaxNameLength = 100

type Handler struct {
	Store  *countrystore.Store
	Guard  *location.Guard
	ErrLog *uierrors.ErrorLogger
	Log    *zap.Logger
}

func NewHandler(db *mongo.Database, guard *location.Guard, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Store:  countrystore.New(db),
		Guard:  guard,
		ErrLog: errLog,
		Log:    logger,
	}
}

type input struct {
	Name string `json:"name"`
}

func (in input) validate() error {
	if canon.Empty(in.Name) {
		return apperr.Validation("name is required")
	}
	if utf8.RuneCountInString(canon.Display(in.Name)) > MaxNameLength {
		return apperr.Validation("name is too long")
	}
	return nil
}

// GetList handles GET /.
func (h *Handler) GetList(w http.ResponseWriter, r *http.Request) {
	p, err := paging.Parse(r, countrystore.Sorts, "name")
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	items, total, err := h.Store.List(ctx, query.Get(r, "q"), p)
	if err != nil {
		h.ErrLog.Write(w, r, apperr.Internal("countries.GetList", err))
		return
	}
	jsonio.Write(w, http.StatusOK, paging.NewPage(items, total, p))
}

// GetLookupList handles GET /lookup.
func (h *Handler) GetLookupList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	items, err := h.Store.Lookup(ctx)
	if err != nil {
		h.ErrLog.Write(w, r, apperr.Internal("countries.GetLookupList", err))
		return
	}
	jsonio.Write(w, http.StatusOK, items)
}

// CheckDuplicateName handles GET /check-duplicate?name=&exclude_id=.
func (h *Handler) CheckDuplicateName(w http.ResponseWriter, r *http.Request) {
	name := query.Get(r, "name")
	if canon.Empty(name) {
		h.ErrLog.Write(w, r, apperr.Validation("name is required"))
		return
	}
	exclude, err := params.QueryID(r, "exclude_id")
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	taken, err := h.Store.NameTaken(ctx, name, exclude)
	if err != nil {
		h.ErrLog.Write(w, r, apperr.Internal("countries.CheckDuplicateName", err))
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
	jsonio.Write(w, http.StatusOK, c)
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

	check, err := h.Guard.CanDelete(ctx, location.KindCountry, id)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	jsonio.Write(w, http.StatusOK, check)
}

// Insert handles POST /. A soft-deleted country with the same name is
// restored instead of duplicated.
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
	if err := in.validate(); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	c, err := h.Store.Create(ctx, in.Name, &actor.ID)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	h.Log.Info("country saved", zap.String("id", c.ID.Hex()), zap.String("name", c.Name))
	jsonio.Write(w, http.StatusCreated, c)
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
	if err := in.validate(); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	c, err := h.Store.Rename(ctx, id, in.Name, &actor.ID)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	jsonio.Write(w, http.StatusOK, c)
}

// Delete handles DELETE /{id}. Countries are soft-deleted.
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

	if err := h.Guard.Delete(ctx, location.KindCountry, id, &actor.ID); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
