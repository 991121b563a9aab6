// internal/app/system/authz/roles.go
package authz

import (
	"net/http"
	"strings"

	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/domain/models"
)

// ValidRole reports whether role is one the application assigns.
func ValidRole(role string) bool {
	return role == models.RoleAdmin || role == models.RoleUser
}

// HasAnyRole reports whether the current request's user has any of the given roles.
func HasAnyRole(r *http.Request, roles ...string) bool {
	role, _, _, ok := UserCtx(r)
	if !ok {
		return false
	}
	for _, want := range roles {
		if role == strings.ToLower(strings.TrimSpace(want)) {
			return true
		}
	}
	return false
}
