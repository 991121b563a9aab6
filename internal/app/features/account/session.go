// internal/app/features/account/session.go
package account

import (
	"context"
	"errors"
	"net/http"

	userstore "github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/store/users"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/apperr"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/auth"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/authutil"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/jsonio"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/normalize"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/ratelimit"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var errBadCredentials = apperr.Unauthorized("invalid email or password")

type loginInput struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

// Login handles POST /login. Attempts are limited per client IP and email;
// a successful login clears the counter.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var in loginInput
	if err := jsonio.Decode(w, r, &in); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	email := normalize.Email(in.Email)
	if email == "" || in.Password == "" {
		h.ErrLog.Write(w, r, apperr.Validation("email and password are required"))
		return
	}

	key := "login:" + ratelimit.ClientIP(r) + ":" + email
	if !h.allow(w, key) {
		h.Metrics.LoginResult("limited")
		h.Log.Warn("login rate limited", zap.String("email", email), zap.String("ip", ratelimit.ClientIP(r)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, userstore.ErrNotFound):
		h.Metrics.LoginResult("failure")
		h.ErrLog.Write(w, r, errBadCredentials)
		return
	case err != nil:
		h.ErrLog.Write(w, r, apperr.Internal("account.Login", err))
		return
	}
	if authutil.CheckPassword(u.PasswordHash, in.Password) != nil {
		h.Metrics.LoginResult("failure")
		h.Log.Info("login failed", zap.String("user_id", u.ID.Hex()))
		h.ErrLog.Write(w, r, errBadCredentials)
		return
	}

	if h.Limiter != nil {
		h.Limiter.Reset(key)
	}
	h.Metrics.LoginResult("success")
	h.Log.Info("login", zap.String("user_id", u.ID.Hex()), zap.Bool("remember_me", in.RememberMe))
	h.startSession(ctx, w, r, http.StatusOK, u, in.RememberMe)
}

// Logout handles POST /logout. The presented token's id is recorded as
// revoked until the token would have expired, and the cookie is cleared.
// Logging out without a valid token still clears the cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if claims, ok := auth.CurrentClaims(r); ok {
		ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
		defer cancel()

		userID, _ := primitive.ObjectIDFromHex(claims.Subject)
		if err := h.Revoked.Revoke(ctx, claims.ID, userID, claims.ExpiresAt.Time); err != nil {
			h.ErrLog.Write(w, r, apperr.Internal("account.Logout", err))
			return
		}
		h.Log.Info("logout", zap.String("user_id", claims.Subject))
	}
	h.Sessions.ClearCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	su, ok := auth.CurrentUser(r)
	if !ok {
		h.ErrLog.Write(w, r, apperr.Unauthorized("authentication required"))
		return
	}
	id, err := primitive.ObjectIDFromHex(su.ID)
	if err != nil {
		h.ErrLog.Write(w, r, apperr.Unauthorized("authentication required"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			err = apperr.Unauthorized("account no longer exists")
		} else {
			err = apperr.Internal("account.Me", err)
		}
		h.ErrLog.Write(w, r, err)
		return
	}
	out, err := h.profile(ctx, u)
	if err != nil {
		h.ErrLog.Write(w, r, apperr.Internal("account.Me", err))
		return
	}
	jsonio.Write(w, http.StatusOK, out)
}
