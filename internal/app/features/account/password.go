// internal/app/features/account/password.go
package account

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	userstore "github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/store/users"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/apperr"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/authutil"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/jsonio"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/mailer"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/normalize"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/ratelimit"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/timeouts"
	"go.uber.org/zap"
)

const forgotReply = "if that email belongs to an account, a reset link has been sent"

// ForgotPassword handles POST /forgot-password. The reply is the same
// whether or not the email is registered.
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email string `json:"email"`
	}
	if err := jsonio.Decode(w, r, &in); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	email := normalize.Email(in.Email)
	if !authutil.IsValidEmail(email) {
		h.ErrLog.Write(w, r, apperr.Validation("a valid email is required"))
		return
	}
	if !h.allow(w, "forgot:"+ratelimit.ClientIP(r)) {
		return
	}

	// Lookup and delivery run off the request so the reply takes the same
	// time for registered and unknown addresses.
	h.pending.Add(1)
	go func(ctx context.Context) {
		defer h.pending.Done()
		ctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
		defer cancel()
		h.sendReset(ctx, email)
	}(context.WithoutCancel(r.Context()))

	jsonio.Write(w, http.StatusAccepted, map[string]string{"message": forgotReply})
}

func (h *Handler) sendReset(ctx context.Context, email string) {
	u, err := h.Users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, userstore.ErrNotFound):
		h.Log.Info("password reset for unknown email")
		return
	case err != nil:
		h.Log.Error("password reset lookup failed", zap.Error(err))
		return
	}

	token, err := h.Resets.Create(ctx, u.ID)
	if err != nil {
		h.Log.Error("failed to create reset token", zap.Error(err), zap.String("user_id", u.ID.Hex()))
		return
	}

	msg := mailer.BuildPasswordResetEmail(mailer.PasswordResetData{
		SiteName:  h.SiteName,
		Name:      u.FullName,
		ResetLink: strings.TrimRight(h.BaseURL, "/") + "/reset-password?token=" + url.QueryEscape(token),
		ExpiresIn: formatExpiry(h.Resets.Expiry()),
	})
	msg.To = u.Email
	if err := h.Mailer.Send(ctx, msg); err != nil {
		h.Log.Error("failed to send password reset email", zap.Error(err), zap.String("user_id", u.ID.Hex()))
		return
	}
	h.Log.Info("password reset email sent", zap.String("user_id", u.ID.Hex()))
}

// Wait blocks until background reset emails have been handed to the Mailer.
func (h *Handler) Wait() {
	h.pending.Wait()
}

// ResetPassword handles POST /reset-password. A token works once.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := jsonio.Decode(w, r, &in); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	in.Token = strings.TrimSpace(in.Token)
	if in.Token == "" {
		h.ErrLog.Write(w, r, apperr.Validation("token is required"))
		return
	}
	if err := authutil.ValidatePassword(in.Password); err != nil {
		h.ErrLog.Write(w, r, apperr.Validation(err.Error()))
		return
	}
	hash, err := authutil.HashPassword(in.Password)
	if err != nil {
		h.ErrLog.Write(w, r, apperr.Internal("account.ResetPassword", err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	userID, err := h.Resets.Consume(ctx, in.Token)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	if err := h.Users.SetPassword(ctx, userID, hash); err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			err = apperr.Validation("reset link is invalid or has expired")
		} else {
			err = apperr.Internal("account.ResetPassword", err)
		}
		h.ErrLog.Write(w, r, err)
		return
	}
	h.Log.Info("password reset", zap.String("user_id", userID.Hex()))
	jsonio.Write(w, http.StatusOK, map[string]string{"message": "password updated"})
}
