// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and attaches JSON-Schema
// validators. Servers without collMod support are logged and skipped.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	existing, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return err
	}
	have := make(map[string]bool, len(existing))
	for _, n := range existing {
		have[n] = true
	}

	var problems []string
	for _, c := range collections() {
		if err := ensureOne(ctx, db, have, c); err != nil {
			problems = append(problems, c.name+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

type collection struct {
	name   string
	schema bson.M // nil means no validator
}

func collections() []collection {
	return []collection{
		{"countries", countriesSchema()},
		{"states", statesSchema()},
		{"cities", citiesSchema()},
		{"users", usersSchema()},
		{"tasks", tasksSchema()},
		// Token bookkeeping; shape is enforced by the stores.
		{"password_resets", nil},
		{"revoked_tokens", nil},
	}
}

func ensureOne(ctx context.Context, db *mongo.Database, have map[string]bool, c collection) error {
	log := zap.L().With(zap.String("collection", c.name))
	if !have[c.name] {
		// A concurrent start may create it first.
		if err := db.CreateCollection(ctx, c.name); err != nil && !hasCode(err, codeNamespaceExists) {
			return err
		}
		log.Info("created collection")
	}
	if c.schema == nil {
		return nil
	}

	cmd := bson.D{
		{Key: "collMod", Value: c.name},
		{Key: "validator", Value: c.schema},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	if err := db.RunCommand(ctx, cmd).Err(); err != nil {
		if hasCode(err, codeCommandNotFound, codeNotImplemented) {
			log.Info("validator skipped (unsupported)")
			return nil
		}
		return err
	}
	log.Debug("validator ensured")
	return nil
}

// Server error codes this package tolerates.
const (
	codeNamespaceExists = 48
	codeCommandNotFound = 59
	codeNotImplemented  = 115
)

// hasCode reports whether err is a command error carrying one of codes.
func hasCode(err error, codes ...int32) bool {
	var ce mongo.CommandError
	if !errors.As(err, &ce) {
		return false
	}
	for _, c := range codes {
		if ce.Code == c {
			return true
		}
	}
	return false
}

/* ------------------------- JSON-Schema docs ---------------------- */

var nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}

func locationSchema(parent string, extra bson.M) bson.M {
	required := bson.A{"name", "name_key", "is_deleted"}
	props := bson.M{
		"name":       nonBlank,
		"name_key":   nonBlank,
		"is_deleted": bson.M{"bsonType": "bool"},
		"created_by": bson.M{"bsonType": bson.A{"objectId", "null"}},
		"updated_by": bson.M{"bsonType": bson.A{"objectId", "null"}},
	}
	if parent != "" {
		required = append(required, parent)
		props[parent] = bson.M{"bsonType": "objectId"}
	}
	for k, v := range extra {
		props[k] = v
	}
	return bson.M{"$jsonSchema": bson.M{"bsonType": "object", "required": required, "properties": props}}
}

func countriesSchema() bson.M { return locationSchema("", nil) }
func statesSchema() bson.M    { return locationSchema("country_id", nil) }

func citiesSchema() bson.M {
	return locationSchema("state_id", bson.M{
		"zip_codes": bson.M{"bsonType": bson.A{"array", "null"}, "items": bson.M{"bsonType": "string"}},
	})
}

func usersSchema() bson.M {
	ref := bson.M{"bsonType": bson.A{"objectId", "null"}}
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"full_name", "email", "password_hash", "role", "is_deleted"},
			"properties": bson.M{
				"full_name":     nonBlank,
				"full_name_ci":  bson.M{"bsonType": "string"},
				"email":         nonBlank,
				"password_hash": nonBlank,
				"role":          bson.M{"enum": bson.A{"admin", "user"}},
				"is_deleted":    bson.M{"bsonType": "bool"},
				"country_id":    ref,
				"state_id":      ref,
				"city_id":       ref,
				"created_by":    ref,
			},
		},
	}
}

func tasksSchema() bson.M {
	ref := bson.M{"bsonType": bson.A{"objectId", "null"}}
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"title", "priority", "completed", "is_deleted"},
			"properties": bson.M{
				"title":       nonBlank,
				"priority":    bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0, "maximum": 2},
				"completed":   bson.M{"bsonType": "bool"},
				"is_deleted":  bson.M{"bsonType": "bool"},
				"assigned_to": bson.M{"bsonType": bson.A{"array", "null"}, "items": bson.M{"bsonType": "objectId"}},
				"created_by":  ref,
				"country_id":  ref,
				"state_id":    ref,
				"city_id":     ref,
			},
		},
	}
}
