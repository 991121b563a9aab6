package validators_test

import (
	"testing"
	"time"

	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/validators"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("first EnsureAll: %v", err)
	}
	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("second EnsureAll: %v", err)
	}

	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		t.Fatal(err)
	}
	have := map[string]bool{}
	for _, n := range names {
		have[n] = true
	}
	for _, want := range []string{"countries", "states", "cities", "users", "tasks", "password_resets", "revoked_tokens"} {
		if !have[want] {
			t.Errorf("collection %s not created", want)
		}
	}
}

func TestCitiesValidator(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}

	cities := db.Collection("cities")
	if _, err := cities.InsertOne(ctx, bson.M{"name": "Indore", "name_key": "indore", "is_deleted": false}); err == nil {
		t.Error("expected rejection without state_id")
	}
	if _, err := cities.InsertOne(ctx, bson.M{
		"name": "Indore", "name_key": "indore", "is_deleted": false,
		"state_id": primitive.NewObjectID(), "zip_codes": bson.A{"452001"},
	}); err != nil {
		t.Errorf("valid city rejected: %v", err)
	}
}

func TestUsersValidator(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}

	users := db.Collection("users")
	base := func(role string) bson.M {
		return bson.M{
			"full_name": "Test User", "email": "t@example.com", "password_hash": "x",
			"role": role, "is_deleted": false, "created_at": time.Now(),
		}
	}
	if _, err := users.InsertOne(ctx, base("superuser")); err == nil {
		t.Error("expected invalid role to be rejected")
	}
	if _, err := users.InsertOne(ctx, base("user")); err != nil {
		t.Errorf("valid user rejected: %v", err)
	}
}

func TestTasksValidator_Priority(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}

	tasks := db.Collection("tasks")
	doc := func(p int) bson.M {
		return bson.M{"title": "Ship", "priority": p, "completed": false, "is_deleted": false}
	}
	if _, err := tasks.InsertOne(ctx, doc(3)); err == nil {
		t.Error("priority 3 should be rejected")
	}
	if _, err := tasks.InsertOne(ctx, doc(2)); err != nil {
		t.Errorf("priority 2 rejected: %v", err)
	}
}
