// Package params reads ids and the acting user from API requests.
package params

import (
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/apperr"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/authz"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var errNoUser = apperr.Unauthorized("authentication required")

// PathID parses the {id} URL parameter.
func PathID(r *http.Request) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		return primitive.NilObjectID, apperr.Validation("invalid id")
	}
	return id, nil
}

// QueryID parses an optional ObjectID query parameter. Absent yields nil.
func QueryID(r *http.Request, key string) (*primitive.ObjectID, error) {
	s := query.Get(r, key)
	if s == "" {
		return nil, nil
	}
	return ParseID(s, key)
}

// ParseID parses s as an ObjectID, naming field in the error.
func ParseID(s, field string) (*primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(s))
	if err != nil {
		return nil, apperr.Validation(field + " is not a valid id")
	}
	return &id, nil
}

// ParseIDs parses a list of ObjectIDs, dropping duplicates.
func ParseIDs(in []string, field string) ([]primitive.ObjectID, error) {
	out := make([]primitive.ObjectID, 0, len(in))
	seen := make(map[primitive.ObjectID]bool, len(in))
	for _, s := range in {
		id, err := ParseID(s, field)
		if err != nil {
			return nil, err
		}
		if !seen[*id] {
			seen[*id] = true
			out = append(out, *id)
		}
	}
	return out, nil
}

// QueryTime parses an optional date (YYYY-MM-DD) or RFC 3339 timestamp.
func QueryTime(r *http.Request, key string) (*time.Time, error) {
	return ParseTime(query.Get(r, key), key)
}

// ParseTime parses s as a date (YYYY-MM-DD) or RFC 3339 timestamp. Blank
// yields nil.
func ParseTime(s, field string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, apperr.Validation(field + " must be a date (YYYY-MM-DD) or RFC 3339 time")
}

// Actor returns the signed-in principal or an Unauthorized error.
func Actor(r *http.Request) (authz.Principal, error) {
	p, ok := authz.PrincipalFrom(r)
	if !ok {
		return authz.Principal{}, errNoUser
	}
	return p, nil
}
