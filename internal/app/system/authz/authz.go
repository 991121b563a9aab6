// internal/app/system/authz/authz.go
package authz

import (
	"net/http"
	"strings"

	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/auth"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserCtx returns the user's role (lowercased), name, ObjectID, and a found flag.
// A missing user or malformed id yields "visitor", "", NilObjectID, false.
func UserCtx(r *http.Request) (role string, name string, userID primitive.ObjectID, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return "visitor", "", primitive.NilObjectID, false
	}
	userID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		return "visitor", "", primitive.NilObjectID, false
	}
	return strings.ToLower(user.Role), user.Name, userID, true
}

// IsAdmin reports whether the current request's user is an admin.
func IsAdmin(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && role == models.RoleAdmin
}

// Principal is the acting user as seen by stores and ownership checks.
type Principal struct {
	ID   primitive.ObjectID
	Role string
	Name string
}

// PrincipalFrom builds a Principal from the request context.
func PrincipalFrom(r *http.Request) (Principal, bool) {
	role, name, id, ok := UserCtx(r)
	if !ok {
		return Principal{}, false
	}
	return Principal{ID: id, Role: role, Name: name}, true
}

func (p Principal) IsAdmin() bool { return p.Role == models.RoleAdmin }

// TaskScope is the query predicate for tasks p may see: all for admins,
// otherwise tasks p created or is assigned to.
func (p Principal) TaskScope() bson.M {
	if p.IsAdmin() {
		return bson.M{}
	}
	return bson.M{"$or": bson.A{
		bson.M{"created_by": p.ID},
		bson.M{"assigned_to": p.ID},
	}}
}

// UserScope is the query predicate for users p may see: all for admins,
// otherwise p and the users p created.
func (p Principal) UserScope() bson.M {
	if p.IsAdmin() {
		return bson.M{}
	}
	return bson.M{"$or": bson.A{
		bson.M{"_id": p.ID},
		bson.M{"created_by": p.ID},
	}}
}

// CanSeeTask mirrors TaskScope for a loaded task. Assignees may also mark
// a visible task complete.
func (p Principal) CanSeeTask(t models.Task) bool {
	if p.IsAdmin() {
		return true
	}
	return (t.CreatedBy != nil && *t.CreatedBy == p.ID) || t.IsAssigned(p.ID)
}

// CanEditTask allows admins and the creator.
func (p Principal) CanEditTask(t models.Task) bool {
	return p.IsAdmin() || (t.CreatedBy != nil && *t.CreatedBy == p.ID)
}

// CanSeeUser mirrors UserScope for a loaded user.
func (p Principal) CanSeeUser(u models.User) bool {
	if p.IsAdmin() || u.ID == p.ID {
		return true
	}
	return u.CreatedBy != nil && *u.CreatedBy == p.ID
}
