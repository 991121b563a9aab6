// internal/app/system/indexes/indexes.go
package indexes

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called from EnsureSchema and by taskflowctl. Each ensure* step
is idempotent; errors are aggregated so every problem shows up at once.
*/
func EnsureAll(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	steps := []struct {
		coll string
		want []mongo.IndexModel
	}{
		{"countries", countryIndexes()},
		{"states", stateIndexes()},
		{"cities", cityIndexes()},
		{"users", userIndexes()},
		{"tasks", taskIndexes()},
		{"password_resets", passwordResetIndexes()},
		{"revoked_tokens", revokedTokenIndexes()},
	}

	var problems []string
	for _, s := range steps {
		if err := ensureIndexSet(ctx, db.Collection(s.coll), s.want, logger); err != nil {
			problems = append(problems, s.coll+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Desired index sets                                                         */
/* -------------------------------------------------------------------------- */

// Country keys are unique over every row, deleted or not: a re-created
// country restores its old row instead of inserting a second one.
func countryIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name_key", Value: 1}},
			Options: options.Index().SetName("uniq_countries_name_key").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "is_deleted", Value: 1}, {Key: "name_key", Value: 1}},
			Options: options.Index().SetName("idx_countries_deleted_name"),
		},
	}
}

func stateIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "country_id", Value: 1}, {Key: "name_key", Value: 1}},
			Options: options.Index().SetName("uniq_states_country_name_key").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "name_key", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_states_name_key_id"),
		},
	}
}

func cityIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "state_id", Value: 1}, {Key: "name_key", Value: 1}},
			Options: options.Index().SetName("uniq_cities_state_name_key").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "name_key", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_cities_name_key_id"),
		},
	}
}

// Email is unique only among live users so a deleted account's address can
// be registered again.
func userIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("uniq_users_email_active").SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: "is_deleted", Value: false}}),
		},
		{
			Keys:    bson.D{{Key: "is_deleted", Value: 1}, {Key: "full_name_ci", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_users_deleted_name_id"),
		},
		{
			Keys:    bson.D{{Key: "created_by", Value: 1}, {Key: "is_deleted", Value: 1}},
			Options: options.Index().SetName("idx_users_created_by"),
		},
		{
			Keys:    bson.D{{Key: "country_id", Value: 1}, {Key: "is_deleted", Value: 1}},
			Options: options.Index().SetName("idx_users_country"),
		},
		{
			Keys:    bson.D{{Key: "state_id", Value: 1}, {Key: "is_deleted", Value: 1}},
			Options: options.Index().SetName("idx_users_state"),
		},
		{
			Keys:    bson.D{{Key: "city_id", Value: 1}, {Key: "is_deleted", Value: 1}},
			Options: options.Index().SetName("idx_users_city"),
		},
	}
}

func taskIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "created_by", Value: 1}, {Key: "is_deleted", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_tasks_created_by"),
		},
		{
			Keys:    bson.D{{Key: "assigned_to", Value: 1}, {Key: "is_deleted", Value: 1}},
			Options: options.Index().SetName("idx_tasks_assigned_to"),
		},
		{
			Keys:    bson.D{{Key: "is_deleted", Value: 1}, {Key: "completed", Value: 1}, {Key: "due_date", Value: 1}},
			Options: options.Index().SetName("idx_tasks_status_due"),
		},
		{
			Keys:    bson.D{{Key: "country_id", Value: 1}, {Key: "is_deleted", Value: 1}},
			Options: options.Index().SetName("idx_tasks_country"),
		},
		{
			Keys:    bson.D{{Key: "state_id", Value: 1}, {Key: "is_deleted", Value: 1}},
			Options: options.Index().SetName("idx_tasks_state"),
		},
		{
			Keys:    bson.D{{Key: "city_id", Value: 1}, {Key: "is_deleted", Value: 1}},
			Options: options.Index().SetName("idx_tasks_city"),
		},
	}
}

func passwordResetIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "token_hash", Value: 1}},
			Options: options.Index().SetName("uniq_password_resets_token_hash").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetName("idx_password_resets_user"),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetName("ttl_password_resets_expires").SetExpireAfterSeconds(0),
		},
	}
}

func revokedTokenIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetName("ttl_revoked_tokens_expires").SetExpireAfterSeconds(0),
		},
	}
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name    string   `bson:"name"`
	Key     bson.D   `bson:"key"`
	Unique  *bool    `bson:"unique,omitempty"`
	TTL     *int32   `bson:"expireAfterSeconds,omitempty"`
	Partial bson.Raw `bson:"partialFilterExpression,omitempty"`
}

type desiredIndex struct {
	name    string
	sig     string
	unique  bool
	ttl     *int32
	partial bson.Raw
}

func describe(m mongo.IndexModel) (desiredIndex, error) {
	d := desiredIndex{sig: keySig(m.Keys.(bson.D))}
	if o := m.Options; o != nil {
		if o.Name != nil {
			d.name = *o.Name
		}
		d.unique = o.Unique != nil && *o.Unique
		d.ttl = o.ExpireAfterSeconds
		if o.PartialFilterExpression != nil {
			raw, err := bson.Marshal(o.PartialFilterExpression)
			if err != nil {
				return d, err
			}
			d.partial = raw
		}
	}
	return d, nil
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func sameInt32Ptr(a, b *int32) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// sameOptions reports whether ex can serve as d without a rebuild.
func (d desiredIndex) sameOptions(ex existingIndex) bool {
	return d.unique == (ex.Unique != nil && *ex.Unique) &&
		sameInt32Ptr(d.ttl, ex.TTL) &&
		bytes.Equal(d.partial, ex.Partial)
}

func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	if mongo.IsDuplicateKeyError(err) {
		return true
	}
	return strings.Contains(err.Error(), "E11000")
}

// Returned when an index with the same keys exists under another name or
// with other options.
func isOptionsConflictErr(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "IndexOptionsConflict") || strings.Contains(s, "IndexKeySpecsConflict")
}

func listExisting(ctx context.Context, coll *mongo.Collection, log *zap.Logger) map[string]existingIndex {
	out := map[string]existingIndex{}
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return out
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			log.Warn("failed to decode existing index", zap.String("collection", coll.Name()), zap.Error(err))
			continue
		}
		out[keySig(idx.Key)] = idx
	}
	return out
}

// ensureIndexSet makes each desired index exist with the desired name and
// options. A same-key index with other options or another name is dropped
// and rebuilt.
func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel, log *zap.Logger) error {
	var errs []string
	existing := listExisting(ctx, coll, log)

	for _, m := range models {
		d, err := describe(m)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), d.name, err))
			continue
		}
		start := time.Now()
		fields := []zap.Field{
			zap.String("collection", coll.Name()),
			zap.String("name", d.name),
			zap.String("keys", d.sig),
			zap.Bool("unique", d.unique),
		}

		if ex, ok := existing[d.sig]; ok {
			if d.sameOptions(ex) && (d.name == "" || ex.Name == d.name) {
				log.Debug("reusing existing index", fields...)
				continue
			}
			log.Info("rebuilding index", append(fields, zap.String("from", ex.Name))...)
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				errs = append(errs, fmt.Sprintf("%s(%s): drop failed: %v", coll.Name(), d.name, err))
				continue
			}
		}

		name, err := coll.Indexes().CreateOne(ctx, m)
		if err != nil && isOptionsConflictErr(err) {
			// Created concurrently or under another name since we listed.
			existing = listExisting(ctx, coll, log)
			if ex, ok := existing[d.sig]; ok {
				if _, dropErr := coll.Indexes().DropOne(ctx, ex.Name); dropErr == nil {
					name, err = coll.Indexes().CreateOne(ctx, m)
				}
			}
		}
		if err != nil {
			if isDuplicateKeyErr(err) && d.unique {
				errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index (duplicates present on %s)", coll.Name(), d.name, d.sig))
			} else {
				errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), d.name, err))
			}
			log.Warn("index ensure failed", append(fields, zap.Error(err))...)
			continue
		}
		log.Info("index ensured", append(fields,
			zap.String("created_name", name),
			zap.Duration("took", time.Since(start)))...)
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}
