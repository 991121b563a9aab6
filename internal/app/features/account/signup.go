// internal/app/features/account/signup.go
package account

import (
	"context"
	"net/http"
	"unicode/utf8"

	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/location"
	userstore "github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/store/users"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/apperr"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/authutil"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/canon"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/jsonio"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/normalize"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/timeouts"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/domain/models"
	"go.uber.org/zap"
)

type signupInput struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Country  string `json:"country"`
	State    string `json:"state"`
	City     string `json:"city"`
	ZipCode  string `json:"zip_code"`
}

// Signup handles POST /signup. Self-registered accounts always get the user
// role and are signed in straight away.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var in signupInput
	if err := jsonio.Decode(w, r, &in); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	in.FullName = canon.Display(in.FullName)
	in.Email = normalize.Email(in.Email)
	switch {
	case in.FullName == "":
		h.ErrLog.Write(w, r, apperr.Validation("full_name is required"))
		return
	case utf8.RuneCountInString(in.FullName) > 200:
		h.ErrLog.Write(w, r, apperr.Validation("full_name is too long"))
		return
	case !authutil.IsValidEmail(in.Email):
		h.ErrLog.Write(w, r, apperr.Validation("a valid email is required"))
		return
	}
	if err := authutil.ValidatePassword(in.Password); err != nil {
		h.ErrLog.Write(w, r, apperr.Validation(err.Error()))
		return
	}
	hash, err := authutil.HashPassword(in.Password)
	if err != nil {
		h.ErrLog.Write(w, r, apperr.Internal("account.Signup", err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if taken, err := h.Users.EmailTaken(ctx, in.Email, nil); err != nil {
		h.ErrLog.Write(w, r, apperr.Internal("account.Signup", err))
		return
	} else if taken {
		h.ErrLog.Write(w, r, userstore.ErrDuplicateEmail)
		return
	}

	addr := location.Address{Country: in.Country, State: in.State, City: in.City}
	zip := canon.Display(in.ZipCode)
	if zip != "" {
		addr.ZipCodes = []string{zip}
	}
	loc, err := h.Resolver.Resolve(ctx, nil, addr)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	u, err := h.Users.Create(ctx, models.User{
		FullName:     in.FullName,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         models.RoleUser,
		Phone:        in.Phone,
		Address:      in.Address,
		ZipCode:      zip,
		LocationRef:  loc.Ref(),
	})
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	h.Log.Info("signup", zap.String("user_id", u.ID.Hex()))
	h.startSession(ctx, w, r, http.StatusCreated, u, false)
}
