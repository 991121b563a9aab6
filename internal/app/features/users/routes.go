// internal/app/features/users/routes.go
package users

import (
	"github.com/go-chi/chi/v5"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/auth"
)

// Routes mounts the user endpoints (typically under /api/users). Every
// route needs a signed-in user; rows are filtered by ownership.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	r.Get("/", h.GetList)
	r.Get("/lookup", h.GetLookupList)
	r.Get("/check-duplicate", h.CheckDuplicateName)
	r.Get("/{id}", h.GetModel)
	r.Post("/", h.Insert)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	return r
}
