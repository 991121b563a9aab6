// internal/app/features/account/routes.go
package account

import (
	"github.com/go-chi/chi/v5"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/auth"
)

// Routes mounts signup, login and password endpoints (typically under
// /api/auth). Only /me needs a signed-in user.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Post("/signup", h.Signup)
	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)
	r.Post("/forgot-password", h.ForgotPassword)
	r.Post("/reset-password", h.ResetPassword)
	r.With(sm.RequireSignedIn).Get("/me", h.Me)
	return r
}
