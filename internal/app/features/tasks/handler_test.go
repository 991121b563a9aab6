package tasks_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	uierrors "github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/features/errors"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/features/tasks"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/location"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/auth"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/domain/models"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type taskView struct {
	models.Task
	Location location.AddressNames `json:"location"`
}

type taskPage struct {
	Items []taskView `json:"items"`
	Total int64      `json:"total"`
}

func newRouter(t *testing.T, db *mongo.Database) chi.Router {
	t.Helper()
	logger := zap.NewNop()
	sm, err := auth.NewSessionManager(auth.Config{Secret: "tasks-test-secret-0123456789abcdef"}, logger)
	require.NoError(t, err)
	h := tasks.NewHandler(db, location.NewResolver(db, nil, logger), uierrors.NewErrorLogger(logger), logger)
	return tasks.Routes(h, sm)
}

func serve(r chi.Router, req *http.Request) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

// A non-admin who neither created nor is assigned a task gets 403 for it;
// an admin gets the full document.
func TestGetModel_OwnershipScenario(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	r := newRouter(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userA := fx.CreateUser(ctx, "User A", "a@example.com", models.RoleUser, nil)
	userB := fx.CreateUser(ctx, "User B", "b@example.com", models.RoleUser, nil)

	rec := serve(r, testutil.NewAuthenticatedRequest(t, "POST", "/", map[string]any{"title": "Task T"}, testutil.AsTestUser(userA)))
	rec.AssertStatus(t, http.StatusCreated)
	var created taskView
	rec.DecodeJSON(t, &created)

	rec = serve(r, testutil.NewAuthenticatedRequest(t, "GET", "/"+created.ID.Hex(), nil, testutil.AsTestUser(userB)))
	rec.AssertStatus(t, http.StatusForbidden)

	rec = serve(r, testutil.NewAuthenticatedRequest(t, "GET", "/"+created.ID.Hex(), nil, testutil.AdminUser()))
	rec.AssertStatus(t, http.StatusOK)
	var got taskView
	rec.DecodeJSON(t, &got)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "Task T", got.Title)
	require.NotNil(t, got.CreatedBy)
	assert.Equal(t, userA.ID, *got.CreatedBy)
}

func TestInsert(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	r := newRouter(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fx.CreateUser(ctx, "Owner", "owner@example.com", models.RoleUser, nil)
	helper := fx.CreateUser(ctx, "Helper", "helper@example.com", models.RoleUser, &owner.ID)
	stranger := fx.CreateUser(ctx, "Stranger", "stranger@example.com", models.RoleUser, nil)
	me := testutil.AsTestUser(owner)

	body := map[string]any{
		"title":       "  Ship   release ",
		"description": `<p>notes</p><script>alert(1)</script>`,
		"due_date":    "2030-01-15",
		"assigned_to": []string{helper.ID.Hex(), helper.ID.Hex()},
		"country":     "India",
		"state":       "Goa",
		"city":        "Panaji",
	}
	rec := serve(r, testutil.NewAuthenticatedRequest(t, "POST", "/", body, me))
	rec.AssertStatus(t, http.StatusCreated)
	var v taskView
	rec.DecodeJSON(t, &v)
	assert.Equal(t, "Ship release", v.Title)
	assert.Equal(t, models.PriorityMedium, v.Priority)
	assert.Equal(t, "<p>notes</p>", v.Description)
	assert.Equal(t, []primitive.ObjectID{helper.ID}, v.AssignedTo)
	require.NotNil(t, v.DueDate)
	assert.True(t, v.DueDate.Equal(time.Date(2030, 1, 15, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, location.AddressNames{Country: "India", State: "Goa", City: "Panaji"}, v.Location)
	assert.False(t, v.Completed)

	// Users outside the actor's scope cannot be assigned.
	body["assigned_to"] = []string{stranger.ID.Hex()}
	rec = serve(r, testutil.NewAuthenticatedRequest(t, "POST", "/", body, me))
	rec.AssertStatus(t, http.StatusBadRequest)

	cases := []struct {
		name string
		body map[string]any
	}{
		{"no title", map[string]any{"title": "   "}},
		{"bad priority", map[string]any{"title": "x", "priority": 7}},
		{"bad due date", map[string]any{"title": "x", "due_date": "soon"}},
		{"bad assignee", map[string]any{"title": "x", "assigned_to": []string{"nope"}}},
		{"unknown field", map[string]any{"title": "x", "owner": "me"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(r, testutil.NewAuthenticatedRequest(t, "POST", "/", tc.body, me))
			rec.AssertStatus(t, http.StatusBadRequest)
		})
	}
}

func TestList_ScopeAndFilters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	r := newRouter(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := fx.CreateUser(ctx, "Alice", "alice@example.com", models.RoleUser, nil)
	bob := fx.CreateUser(ctx, "Bob", "bob@example.com", models.RoleUser, nil)

	fx.CreateTask(ctx, "Alice own", alice.ID)
	fx.CreateTask(ctx, "Bob for Alice", bob.ID, alice.ID)
	fx.CreateTask(ctx, "Bob private", bob.ID)

	var page taskPage
	rec := serve(r, testutil.NewAuthenticatedRequest(t, "GET", "/", nil, testutil.AsTestUser(alice)))
	rec.AssertStatus(t, http.StatusOK)
	rec.DecodeJSON(t, &page)
	assert.EqualValues(t, 2, page.Total)

	rec = serve(r, testutil.NewAuthenticatedRequest(t, "GET", "/?created_by="+bob.ID.Hex(), nil, testutil.AsTestUser(alice)))
	rec.AssertStatus(t, http.StatusOK)
	rec.DecodeJSON(t, &page)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Bob for Alice", page.Items[0].Title)

	rec = serve(r, testutil.NewAuthenticatedRequest(t, "GET", "/?q=PRIVATE", nil, testutil.AdminUser()))
	rec.AssertStatus(t, http.StatusOK)
	rec.DecodeJSON(t, &page)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Bob private", page.Items[0].Title)

	rec = serve(r, testutil.NewAuthenticatedRequest(t, "GET", "/?status=completed", nil, testutil.AdminUser()))
	rec.AssertStatus(t, http.StatusOK)
	rec.DecodeJSON(t, &page)
	assert.EqualValues(t, 0, page.Total)

	rec = serve(r, testutil.NewAuthenticatedRequest(t, "GET", "/?status=%20ALL%20", nil, testutil.AdminUser()))
	rec.AssertStatus(t, http.StatusOK)
	rec.DecodeJSON(t, &page)
	assert.EqualValues(t, 3, page.Total)

	for _, bad := range []string{"status=done", "priority=9", "assigned_to=zz", "due_from=tomorrow", "sort=owner"} {
		rec = serve(r, testutil.NewAuthenticatedRequest(t, "GET", "/?"+bad, nil, testutil.AdminUser()))
		rec.AssertStatus(t, http.StatusBadRequest)
	}
}

func TestUpdate_CreatorOnly(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	r := newRouter(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fx.CreateUser(ctx, "Owner", "owner@example.com", models.RoleUser, nil)
	assignee := fx.CreateUser(ctx, "Assignee", "assignee@example.com", models.RoleUser, nil)
	task := fx.CreateTask(ctx, "Draft", owner.ID, assignee.ID)

	body := map[string]any{"title": "Final", "priority": models.PriorityHigh}
	rec := serve(r, testutil.NewAuthenticatedRequest(t, "PUT", "/"+task.ID.Hex(), body, testutil.AsTestUser(assignee)))
	rec.AssertStatus(t, http.StatusForbidden)

	rec = serve(r, testutil.NewAuthenticatedRequest(t, "PUT", "/"+task.ID.Hex(), body, testutil.AsTestUser(owner)))
	rec.AssertStatus(t, http.StatusOK)
	var v taskView
	rec.DecodeJSON(t, &v)
	assert.Equal(t, "Final", v.Title)
	assert.Equal(t, models.PriorityHigh, v.Priority)
	assert.Empty(t, v.AssignedTo)

	rec = serve(r, testutil.NewAuthenticatedRequest(t, "PUT", "/"+primitive.NewObjectID().Hex(), body, testutil.AdminUser()))
	rec.AssertStatus(t, http.StatusNotFound)
}

// An assignee an admin put on the task survives the creator's later edits,
// but the creator still cannot add users outside their own scope.
func TestUpdate_KeepsAssigneeAddedByAdmin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	r := newRouter(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	creator := fx.CreateUser(ctx, "Creator", "creator@example.com", models.RoleUser, nil)
	stranger := fx.CreateUser(ctx, "Stranger", "stranger@example.com", models.RoleUser, nil)
	other := fx.CreateUser(ctx, "Other", "other@example.com", models.RoleUser, nil)
	task := fx.CreateTask(ctx, "Draft", creator.ID, stranger.ID)

	body := map[string]any{"title": "Renamed", "assigned_to": []string{stranger.ID.Hex()}}
	rec := serve(r, testutil.NewAuthenticatedRequest(t, "PUT", "/"+task.ID.Hex(), body, testutil.AsTestUser(creator)))
	rec.AssertStatus(t, http.StatusOK)
	var v taskView
	rec.DecodeJSON(t, &v)
	assert.Equal(t, "Renamed", v.Title)
	assert.Equal(t, []primitive.ObjectID{stranger.ID}, v.AssignedTo)

	body = map[string]any{"title": "Renamed", "assigned_to": []string{stranger.ID.Hex(), other.ID.Hex()}}
	rec = serve(r, testutil.NewAuthenticatedRequest(t, "PUT", "/"+task.ID.Hex(), body, testutil.AsTestUser(creator)))
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestMarkComplete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	r := newRouter(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fx.CreateUser(ctx, "Owner", "owner@example.com", models.RoleUser, nil)
	assignee := fx.CreateUser(ctx, "Assignee", "assignee@example.com", models.RoleUser, nil)
	outsider := fx.CreateUser(ctx, "Outsider", "outsider@example.com", models.RoleUser, nil)
	task := fx.CreateTask(ctx, "Review", owner.ID, assignee.ID)
	path := "/" + task.ID.Hex() + "/complete"

	rec := serve(r, testutil.NewAuthenticatedRequest(t, "PATCH", path, nil, testutil.AsTestUser(outsider)))
	rec.AssertStatus(t, http.StatusForbidden)

	rec = serve(r, testutil.NewAuthenticatedRequest(t, "PATCH", path, nil, testutil.AsTestUser(assignee)))
	rec.AssertStatus(t, http.StatusOK)
	var v taskView
	rec.DecodeJSON(t, &v)
	assert.True(t, v.Completed)
	require.NotNil(t, v.CompletedBy)
	assert.Equal(t, assignee.ID, *v.CompletedBy)
	assert.NotNil(t, v.CompletedAt)

	rec = serve(r, testutil.NewAuthenticatedRequest(t, "PATCH", path, map[string]bool{"completed": false}, testutil.AsTestUser(owner)))
	rec.AssertStatus(t, http.StatusOK)
	v = taskView{}
	rec.DecodeJSON(t, &v)
	assert.False(t, v.Completed)
	assert.Nil(t, v.CompletedAt)
	assert.Nil(t, v.CompletedBy)
}

func TestDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	r := newRouter(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fx.CreateUser(ctx, "Owner", "owner@example.com", models.RoleUser, nil)
	assignee := fx.CreateUser(ctx, "Assignee", "assignee@example.com", models.RoleUser, nil)
	task := fx.CreateTask(ctx, "Temp", owner.ID, assignee.ID)

	rec := serve(r, testutil.NewAuthenticatedRequest(t, "DELETE", "/"+task.ID.Hex(), nil, testutil.AsTestUser(assignee)))
	rec.AssertStatus(t, http.StatusForbidden)

	rec = serve(r, testutil.NewAuthenticatedRequest(t, "DELETE", "/"+task.ID.Hex(), nil, testutil.AsTestUser(owner)))
	rec.AssertStatus(t, http.StatusNoContent)

	rec = serve(r, testutil.NewAuthenticatedRequest(t, "GET", "/"+task.ID.Hex(), nil, testutil.AsTestUser(owner)))
	rec.AssertStatus(t, http.StatusNotFound)

	rec = serve(r, testutil.NewAuthenticatedRequest(t, "DELETE", "/not-an-id", nil, testutil.AsTestUser(owner)))
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestAssignedUsersLookup(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	r := newRouter(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	me := fx.CreateUser(ctx, "Me", "me@example.com", models.RoleUser, nil)
	fx.CreateUser(ctx, "Mine", "mine@example.com", models.RoleUser, &me.ID)
	fx.CreateUser(ctx, "Other", "other@example.com", models.RoleUser, nil)

	var items []struct {
		ID       primitive.ObjectID `json:"id"`
		FullName string             `json:"full_name"`
	}
	rec := serve(r, testutil.NewAuthenticatedRequest(t, "GET", "/assigned-users-lookup", nil, testutil.AsTestUser(me)))
	rec.AssertStatus(t, http.StatusOK)
	rec.DecodeJSON(t, &items)
	assert.Len(t, items, 2)

	rec = serve(r, testutil.NewAuthenticatedRequest(t, "GET", "/assigned-users-lookup", nil, testutil.AdminUser()))
	rec.AssertStatus(t, http.StatusOK)
	rec.DecodeJSON(t, &items)
	assert.Len(t, items, 3)

	rec = serve(r, testutil.NewJSONRequest(t, "GET", "/assigned-users-lookup", nil))
	rec.AssertStatus(t, http.StatusUnauthorized)
}
