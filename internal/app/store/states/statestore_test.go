package statestore_test

import (
	"errors"
	"testing"

	statestore "github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/store/states"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/paging"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
)

func TestCreate_UniquePerCountry(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	store := statestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	india := fx.CreateCountry(ctx, "India")
	usa := fx.CreateCountry(ctx, "USA")

	st, err := store.Create(ctx, india.ID, " madhya  pradesh ", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if st.Name != "madhya pradesh" || st.NameKey != "madhya pradesh" || st.CountryID != india.ID {
		t.Errorf("unexpected state %+v", st)
	}
	if _, err := store.Create(ctx, india.ID, "Madhya Pradesh", nil); !errors.Is(err, statestore.ErrDuplicateName) {
		t.Errorf("same country: got %v, want ErrDuplicateName", err)
	}
	if _, err := store.Create(ctx, usa.ID, "Madhya Pradesh", nil); err != nil {
		t.Errorf("other country should allow the same name: %v", err)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	store := statestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	c := fx.CreateCountry(ctx, "India")
	a := fx.CreateState(ctx, "Goa", c.ID)
	fx.CreateState(ctx, "Kerala", c.ID)

	if _, err := store.Update(ctx, a.ID, c.ID, "kerala", nil); !errors.Is(err, statestore.ErrDuplicateName) {
		t.Errorf("rename onto sibling: got %v", err)
	}
	got, err := store.Update(ctx, a.ID, c.ID, "North Goa", nil)
	if err != nil || got.NameKey != "north goa" {
		t.Fatalf("Update: %+v %v", got, err)
	}

	if err := store.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Delete(ctx, a.ID); !errors.Is(err, statestore.ErrNotFound) {
		t.Errorf("second Delete: got %v", err)
	}
	n, _ := db.Collection("states").CountDocuments(ctx, bson.M{"_id": a.ID})
	if n != 0 {
		t.Error("state should be removed permanently")
	}
}

func TestListFiltersByCountry(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	store := statestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	india := fx.CreateCountry(ctx, "India")
	usa := fx.CreateCountry(ctx, "USA")
	fx.CreateState(ctx, "Goa", india.ID)
	fx.CreateState(ctx, "Kerala", india.ID)
	fx.CreateState(ctx, "Georgia", usa.ID)

	p := paging.Params{Page: 1, PageSize: 10, Sort: bson.D{{Key: "name_key", Value: 1}}}
	items, total, err := store.List(ctx, &india.ID, "", p)
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || len(items) != 2 || items[0].Name != "Goa" {
		t.Errorf("India states = %+v (total %d)", items, total)
	}

	items, total, _ = store.List(ctx, nil, "g", p)
	if total != 2 || len(items) != 2 {
		t.Errorf("q=g across countries = %+v (total %d)", items, total)
	}

	ids, err := store.IDsInCountry(ctx, india.ID)
	if err != nil || len(ids) != 2 {
		t.Errorf("IDsInCountry = %v %v", ids, err)
	}
	lookup, _ := store.Lookup(ctx, &usa.ID)
	if len(lookup) != 1 || lookup[0].Name != "Georgia" {
		t.Errorf("Lookup = %+v", lookup)
	}
}
