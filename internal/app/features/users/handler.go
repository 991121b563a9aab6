// internal/app/features/users/handler.go
package users

import (
	"context"
	"errors"
	"net/http"
	"unicode/utf8"

	"github.com/dalemusser/waffle/pantry/query"
	uierrors "github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/features/errors"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/features/shared/params"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/location"
	userstore "github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/store/users"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/apperr"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/authutil"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/authz"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/canon"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/jsonio"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/normalize"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/paging"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/timeouts"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const maxFieldLength = 200

var (
	errHidden       = apperr.Forbidden("you do not have access to this user")
	errRoleDenied   = apperr.Forbidden("only admins can grant the admin role")
	errDeleteSelf   = apperr.Forbidden("you cannot delete your own account")
	errEmailInvalid = apperr.Validation("a valid email is required")
)

type Handler struct {
	Users    *userstore.Store
	Resolver *location.Resolver
	Namer    *location.Namer
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, resolver *location.Resolver, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:    userstore.New(db),
		Resolver: resolver,
		Namer:    location.NewNamer(db),
		ErrLog:   errLog,
		Log:      logger,
	}
}

// input is the create/update body. Password is required on create and
// optional on update. The address fields are free text resolved to ids.
type input struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Country  string `json:"country"`
	State    string `json:"state"`
	City     string `json:"city"`
	ZipCode  string `json:"zip_code"`
}

func (in *input) validate(creating bool) error {
	in.FullName = canon.Display(in.FullName)
	in.Email = normalize.Email(in.Email)
	in.Role = normalize.Keyword(in.Role)
	switch {
	case in.FullName == "":
		return apperr.Validation("full_name is required")
	case utf8.RuneCountInString(in.FullName) > maxFieldLength,
		utf8.RuneCountInString(in.Address) > maxFieldLength:
		return apperr.Validation("a field is too long")
	case !authutil.IsValidEmail(in.Email):
		return errEmailInvalid
	case in.Role != "" && !authz.ValidRole(in.Role):
		return apperr.Validation(`role must be "admin" or "user"`)
	}
	if creating || in.Password != "" {
		if in.Password == "" {
			return apperr.Validation("password is required")
		}
		if err := authutil.ValidatePassword(in.Password); err != nil {
			return apperr.Validation(err.Error())
		}
	}
	return nil
}

func (in input) address() location.Address {
	a := location.Address{Country: in.Country, State: in.State, City: in.City}
	if z := canon.Display(in.ZipCode); z != "" {
		a.ZipCodes = []string{z}
	}
	return a
}

// view is a user with the display names of their location.
type view struct {
	models.User
	Location location.AddressNames `json:"location"`
}

func (h *Handler) views(ctx context.Context, users ...models.User) ([]view, error) {
	refs := make([]models.LocationRef, 0, len(users))
	for _, u := range users {
		refs = append(refs, u.LocationRef)
	}
	names, err := h.Namer.Names(ctx, refs...)
	if err != nil {
		return nil, err
	}
	out := make([]view, 0, len(users))
	for _, u := range users {
		out = append(out, view{User: u, Location: names.Of(u.LocationRef)})
	}
	return out, nil
}

// load fetches a user the actor may see. Hidden users are Forbidden.
func (h *Handler) load(ctx context.Context, r *http.Request, actor authz.Principal) (models.User, error) {
	id, err := params.PathID(r)
	if err != nil {
		return models.User{}, err
	}
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	if !actor.CanSeeUser(u) {
		return models.User{}, errHidden
	}
	return u, nil
}

// GetList handles GET /.
func (h *Handler) GetList(w http.ResponseWriter, r *http.Request) {
	actor, err := params.Actor(r)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	p, err := paging.Parse(r, userstore.Sorts, "name")
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	items, total, err := h.Users.List(ctx, actor.UserScope(), query.Get(r, "q"), p)
	if err != nil {
		h.ErrLog.Write(w, r, apperr.Internal("users.GetList", err))
		return
	}
	out, err := h.views(ctx, items...)
	if err != nil {
		h.ErrLog.Write(w, r, apperr.Internal("users.GetList", err))
		return
	}
	jsonio.Write(w, http.StatusOK, paging.NewPage(out, total, p))
}

// GetLookupList handles GET /lookup.
func (h *Handler) GetLookupList(w http.ResponseWriter, r *http.Request) {
	actor, err := params.Actor(r)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	items, err := h.Users.Lookup(ctx, actor.UserScope())
	if err != nil {
		h.ErrLog.Write(w, r, apperr.Internal("users.GetLookupList", err))
		return
	}
	jsonio.Write(w, http.StatusOK, items)
}

// CheckDuplicateName handles GET /check-duplicate?email=&exclude_id=.
func (h *Handler) CheckDuplicateName(w http.ResponseWriter, r *http.Request) {
	email := normalize.Email(query.Get(r, "email"))
	if email == "" {
		h.ErrLog.Write(w, r, apperr.Validation("email is required"))
		return
	}
	exclude, err := params.QueryID(r, "exclude_id")
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	taken, err := h.Users.EmailTaken(ctx, email, exclude)
	if err != nil {
		h.ErrLog.Write(w, r, apperr.Internal("users.CheckDuplicateName", err))
		return
	}
	jsonio.Write(w, http.StatusOK, map[string]bool{"exists": taken})
}

// GetModel handles GET /{id}.
func (h *Handler) GetModel(w http.ResponseWriter, r *http.Request) {
	actor, err := params.Actor(r)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.load(ctx, r, actor)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	out, err := h.views(ctx, u)
	if err != nil {
		h.ErrLog.Write(w, r, apperr.Internal("users.GetModel", err))
		return
	}
	jsonio.Write(w, http.StatusOK, out[0])
}

// Insert handles POST /. Non-admins may only create plain users, which
// then count as created by them.
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
	if err := in.validate(true); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	if in.Role == models.RoleAdmin && !actor.IsAdmin() {
		h.ErrLog.Write(w, r, errRoleDenied)
		return
	}
	hash, err := authutil.HashPassword(in.Password)
	if err != nil {
		h.ErrLog.Write(w, r, apperr.Internal("users.Insert", err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if taken, err := h.Users.EmailTaken(ctx, in.Email, nil); err != nil {
		h.ErrLog.Write(w, r, apperr.Internal("users.Insert", err))
		return
	} else if taken {
		h.ErrLog.Write(w, r, userstore.ErrDuplicateEmail)
		return
	}

	loc, err := h.Resolver.Resolve(ctx, &actor.ID, in.address())
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	u := models.User{
		FullName:     in.FullName,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
		Phone:        in.Phone,
		Address:      in.Address,
		ZipCode:      canon.Display(in.ZipCode),
		LocationRef:  loc.Ref(),
	}
	u.CreatedBy = &actor.ID
	u, err = h.Users.Create(ctx, u)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	h.Log.Info("user created", zap.String("id", u.ID.Hex()), zap.String("by", actor.ID.Hex()))

	out, err := h.views(ctx, u)
	if err != nil {
		h.ErrLog.Write(w, r, apperr.Internal("users.Insert", err))
		return
	}
	jsonio.Write(w, http.StatusCreated, out[0])
}

// Update handles PUT /{id}. Only admins may change roles.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
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
	if err := in.validate(false); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	existing, err := h.load(ctx, r, actor)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	if !actor.IsAdmin() {
		if in.Role != "" && in.Role != existing.Role {
			h.ErrLog.Write(w, r, errRoleDenied)
			return
		}
		in.Role = ""
	}

	if taken, err := h.Users.EmailTaken(ctx, in.Email, &existing.ID); err != nil {
		h.ErrLog.Write(w, r, apperr.Internal("users.Update", err))
		return
	} else if taken {
		h.ErrLog.Write(w, r, userstore.ErrDuplicateEmail)
		return
	}

	loc, err := h.Resolver.Resolve(ctx, &actor.ID, in.address())
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	u, err := h.Users.Update(ctx, existing.ID, userstore.Update{
		FullName: in.FullName,
		Email:    in.Email,
		Role:     in.Role,
		Phone:    in.Phone,
		Address:  in.Address,
		ZipCode:  canon.Display(in.ZipCode),
		Location: loc.Ref(),
	}, &actor.ID)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	if in.Password != "" {
		hash, err := authutil.HashPassword(in.Password)
		if err == nil {
			err = h.Users.SetPassword(ctx, u.ID, hash)
		}
		if err != nil {
			h.ErrLog.Write(w, r, apperr.Internal("users.Update", err))
			return
		}
	}

	out, err := h.views(ctx, u)
	if err != nil {
		h.ErrLog.Write(w, r, apperr.Internal("users.Update", err))
		return
	}
	jsonio.Write(w, http.StatusOK, out[0])
}

// Delete handles DELETE /{id}. Users are soft-deleted and cannot delete
// themselves.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, err := params.Actor(r)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.load(ctx, r, actor)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	if u.ID == actor.ID {
		h.ErrLog.Write(w, r, errDeleteSelf)
		return
	}
	if err := h.Users.SoftDelete(ctx, u.ID, &actor.ID); err != nil {
		if !errors.Is(err, userstore.ErrNotFound) {
			err = apperr.Internal("users.Delete", err)
		}
		h.ErrLog.Write(w, r, err)
		return
	}
	h.Log.Info("user deleted", zap.String("id", u.ID.Hex()), zap.String("by", actor.ID.Hex()))
	w.WriteHeader(http.StatusNoContent)
}
