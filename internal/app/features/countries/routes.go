// internal/app/features/countries/routes.go
package countries

import (
	"github.com/go-chi/chi/v5"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/auth"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/domain/models"
)

// Routes mounts the country endpoints (typically under /api/countries).
// Reads need a signed-in user; writes need an admin.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	r.Get("/", h.GetList)
	r.Get("/lookup", h.GetLookupList)
	r.Get("/check-duplicate", h.CheckDuplicateName)
	r.Get("/{id}", h.GetModel)
	r.Get("/{id}/can-delete", h.CanDelete)

	r.Group(func(ar chi.Router) {
		ar.Use(sm.RequireRole(models.RoleAdmin))
		ar.Post("/", h.Insert)
		ar.Put("/{id}", h.Update)
		ar.Delete("/{id}", h.Delete)
	})
	return r
}
