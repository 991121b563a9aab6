// internal/app/features/tasks/routes.go
package tasks

import (
	"github.com/go-chi/chi/v5"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/auth"
)

// Routes mounts the task endpoints (typically under /api/tasks).
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	r.Get("/", h.GetList)
	r.Get("/assigned-users-lookup", h.GetAssignedUsersLookup)
	r.Get("/{id}", h.GetModel)
	r.Post("/", h.Insert)
	r.Put("/{id}", h.Update)
	r.Patch("/{id}/complete", h.MarkComplete)
	r.Delete("/{id}", h.Delete)
	return r
}
