// internal/app/system/search/search.go
package search

import (
	"regexp"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/canon"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// KeyContains matches documents whose canonical-key field contains q.
// Returns nil for a blank query.
func KeyContains(field, q string) bson.M {
	k := canon.Key(q)
	if k == "" {
		return nil
	}
	return bson.M{field: primitive.Regex{Pattern: regexp.QuoteMeta(k)}}
}

// FoldContains matches a text.Fold'ed field (full_name_ci, title_ci).
func FoldContains(field, q string) bson.M {
	k := text.Fold(canon.Display(q))
	if k == "" {
		return nil
	}
	return bson.M{field: primitive.Regex{Pattern: regexp.QuoteMeta(k)}}
}

// And combines non-nil filters into one document.
func And(filters ...bson.M) bson.M {
	var parts bson.A
	for _, f := range filters {
		if len(f) > 0 {
			parts = append(parts, f)
		}
	}
	switch len(parts) {
	case 0:
		return bson.M{}
	case 1:
		return parts[0].(bson.M)
	}
	return bson.M{"$and": parts}
}
