package taskstore_test

import (
	"errors"
	"testing"
	"time"

	taskstore "github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/store/tasks"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/paging"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/domain/models"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func pageParams() paging.Params {
	return paging.Params{Page: 1, PageSize: 50, Sort: bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}}
}

func TestCreateAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := taskstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := primitive.NewObjectID()
	task, err := store.Create(ctx, models.Task{Title: "  Ship  release ", Priority: models.PriorityHigh}, owner)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if task.Title != "Ship release" || task.AssignedTo == nil || task.CreatedBy == nil || *task.CreatedBy != owner {
		t.Errorf("unexpected task %+v", task)
	}

	got, err := store.GetByID(ctx, task.ID)
	if err != nil || got.Title != "Ship release" {
		t.Errorf("GetByID = %+v %v", got, err)
	}

	if _, err := store.Create(ctx, models.Task{Title: " "}, owner); err == nil {
		t.Error("blank title should fail")
	}
	if _, err := store.Create(ctx, models.Task{Title: "x", Priority: 7}, owner); err == nil {
		t.Error("bad priority should fail")
	}
}

func TestUpdate_ClearsDueDate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := taskstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := primitive.NewObjectID()
	due := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Millisecond)
	task, _ := store.Create(ctx, models.Task{Title: "A", DueDate: &due}, owner)

	assignee := primitive.NewObjectID()
	got, err := store.Update(ctx, task.ID, taskstore.Update{
		Title: "A2", Priority: models.PriorityLow, AssignedTo: []primitive.ObjectID{assignee},
	}, owner)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Title != "A2" || got.DueDate != nil || !got.IsAssigned(assignee) {
		t.Errorf("after update: %+v", got)
	}

	if _, err := store.Update(ctx, primitive.NewObjectID(), taskstore.Update{Title: "x"}, owner); !errors.Is(err, taskstore.ErrNotFound) {
		t.Errorf("missing: got %v", err)
	}
}

func TestSetCompleted(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	store := taskstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := primitive.NewObjectID()
	task := fx.CreateTask(ctx, "Write docs", owner)

	done, err := store.SetCompleted(ctx, task.ID, true, owner)
	if err != nil {
		t.Fatal(err)
	}
	if !done.Completed || done.CompletedAt == nil || done.CompletedBy == nil || *done.CompletedBy != owner {
		t.Errorf("completed task: %+v", done)
	}

	undone, err := store.SetCompleted(ctx, task.ID, false, owner)
	if err != nil {
		t.Fatal(err)
	}
	if undone.Completed || undone.CompletedAt != nil || undone.CompletedBy != nil {
		t.Errorf("reopened task: %+v", undone)
	}
}

func TestSoftDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	store := taskstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := primitive.NewObjectID()
	task := fx.CreateTask(ctx, "Temp", owner)
	if err := store.SoftDelete(ctx, task.ID, owner); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetByID(ctx, task.ID); !errors.Is(err, taskstore.ErrNotFound) {
		t.Errorf("GetByID after delete: %v", err)
	}
	if err := store.SoftDelete(ctx, task.ID, owner); !errors.Is(err, taskstore.ErrNotFound) {
		t.Errorf("second delete: %v", err)
	}
	n, _ := db.Collection("tasks").CountDocuments(ctx, bson.M{"_id": task.ID})
	if n != 1 {
		t.Error("soft-deleted task should remain stored")
	}
}

func TestList_Filters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := taskstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice, bob := primitive.NewObjectID(), primitive.NewObjectID()
	past := time.Now().Add(-24 * time.Hour)
	future := time.Now().Add(72 * time.Hour)

	overdue, _ := store.Create(ctx, models.Task{Title: "Overdue report", DueDate: &past, Priority: models.PriorityHigh}, alice)
	if _, err := store.Create(ctx, models.Task{Title: "Upcoming review", DueDate: &future, AssignedTo: []primitive.ObjectID{bob}}, alice); err != nil {
		t.Fatal(err)
	}
	finished, _ := store.Create(ctx, models.Task{Title: "Finished report", DueDate: &past}, bob)
	if _, err := store.SetCompleted(ctx, finished.ID, true, bob); err != nil {
		t.Fatal(err)
	}

	count := func(scope bson.M, f taskstore.Filter) int64 {
		t.Helper()
		_, total, err := store.List(ctx, scope, f, pageParams())
		if err != nil {
			t.Fatalf("List(%+v): %v", f, err)
		}
		return total
	}

	high := models.PriorityHigh
	now := time.Now()
	from, to := past.Add(-time.Hour), future.Add(time.Hour)
	tests := []struct {
		name string
		f    taskstore.Filter
		want int64
	}{
		{"all", taskstore.Filter{}, 3},
		{"completed", taskstore.Filter{Status: taskstore.StatusCompleted}, 1},
		{"pending", taskstore.Filter{Status: taskstore.StatusPending}, 2},
		{"overdue", taskstore.Filter{Status: taskstore.StatusOverdue}, 1},
		{"priority", taskstore.Filter{Priority: &high}, 1},
		{"assigned", taskstore.Filter{AssignedTo: &bob}, 1},
		{"created_by", taskstore.Filter{CreatedBy: &bob}, 1},
		{"title", taskstore.Filter{Q: "REPORT"}, 2},
		{"due window", taskstore.Filter{DueFrom: &from, DueTo: &to}, 3},
		{"due after now", taskstore.Filter{DueFrom: &now}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := count(nil, tt.f); got != tt.want {
				t.Errorf("total = %d, want %d", got, tt.want)
			}
		})
	}

	bobScope := bson.M{"$or": bson.A{bson.M{"created_by": bob}, bson.M{"assigned_to": bob}}}
	items, total, err := store.List(ctx, bobScope, taskstore.Filter{}, pageParams())
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 {
		t.Errorf("bob sees %d tasks, want 2", total)
	}
	for _, it := range items {
		if it.ID == overdue.ID {
			t.Error("bob should not see alice's unassigned task")
		}
	}
}

func TestCountActiveByRef(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	store := taskstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	city := primitive.NewObjectID()
	task := fx.CreateTaskAt(ctx, "Local", primitive.NewObjectID(), models.LocationRef{CityID: &city})

	if n, _ := store.CountActiveByRef(ctx, "city_id", city); n == 0 {
		t.Error("expected a referencing task")
	}
	_ = store.SoftDelete(ctx, task.ID, primitive.NewObjectID())
	if n, _ := store.CountActiveByRef(ctx, "city_id", city); n != 0 {
		t.Error("deleted task should not count")
	}
}
