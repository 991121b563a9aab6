package location_test

import (
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/location"
	countrystore "github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/store/countries"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/apperr"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/metrics"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/domain/models"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/testutil"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newResolver(db *mongo.Database) *location.Resolver {
	return location.NewResolver(db, nil, zap.NewNop())
}

func newGuard(db *mongo.Database) *location.Guard {
	return location.NewGuard(db, nil, zap.NewNop())
}

func count(t *testing.T, db *mongo.Database, coll string, filter bson.M) int64 {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	n, err := db.Collection(coll).CountDocuments(ctx, filter)
	if err != nil {
		t.Fatalf("count %s: %v", coll, err)
	}
	return n
}

func TestResolve_BlankNameYieldsNil(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r := newResolver(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for _, addr := range []location.Address{
		{Country: "", State: "Goa", City: "Panaji"},
		{Country: "India", State: "   ", City: "Panaji"},
		{Country: "India", State: "Goa", City: ""},
	} {
		got, err := r.Resolve(ctx, nil, addr)
		if err != nil || got != nil {
			t.Errorf("Resolve(%+v) = %+v, %v; want nil, nil", addr, got, err)
		}
	}
	if n := count(t, db, "countries", bson.M{}); n != 0 {
		t.Errorf("blank addresses created %d countries", n)
	}
}

func TestResolve_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r := newResolver(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	actor := primitive.NewObjectID()
	addr := location.Address{Country: "France", State: "Ile-de-France", City: "Paris"}
	first, err := r.Resolve(ctx, &actor, addr)
	if err != nil || first == nil {
		t.Fatalf("first Resolve: %+v %v", first, err)
	}
	second, err := r.Resolve(ctx, &actor, addr)
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if *first != *second {
		t.Errorf("ids differ: %+v vs %+v", first, second)
	}

	var city models.City
	if err := db.Collection("cities").FindOne(ctx, bson.M{"_id": first.CityID}).Decode(&city); err != nil {
		t.Fatal(err)
	}
	if city.CreatedBy == nil || *city.CreatedBy != actor || city.StateID != first.StateID {
		t.Errorf("unexpected city %+v", city)
	}
}

func TestResolve_CanonicalizesNames(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r := newResolver(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a, err := r.Resolve(ctx, nil, location.Address{Country: "India", State: "  madhya pradesh ", City: "Indore"})
	if err != nil {
		t.Fatal(err)
	}
	b, err := r.Resolve(ctx, nil, location.Address{Country: "india", State: "Madhya Pradesh", City: "indore"})
	if err != nil {
		t.Fatal(err)
	}
	if a.CityID != b.CityID || a.StateID != b.StateID || a.CountryID != b.CountryID {
		t.Errorf("variants resolved differently: %+v vs %+v", a, b)
	}

	if n := count(t, db, "countries", bson.M{}); n != 1 {
		t.Errorf("countries = %d, want 1", n)
	}
	if n := count(t, db, "states", bson.M{}); n != 1 {
		t.Errorf("states = %d, want 1", n)
	}

	// Last write wins on the display name.
	var st models.State
	_ = db.Collection("states").FindOne(ctx, bson.M{"_id": a.StateID}).Decode(&st)
	if st.Name != "Madhya Pradesh" || st.NameKey != "madhya pradesh" {
		t.Errorf("state = %q / %q", st.Name, st.NameKey)
	}
}

func TestResolve_ZipCodesLastWriteWins(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r := newResolver(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	addr := location.Address{Country: "India", State: "Goa", City: "Panaji", ZipCodes: []string{"403001"}}
	res, err := r.Resolve(ctx, nil, addr)
	if err != nil {
		t.Fatal(err)
	}

	zips := func() []string {
		var c models.City
		if err := db.Collection("cities").FindOne(ctx, bson.M{"_id": res.CityID}).Decode(&c); err != nil {
			t.Fatal(err)
		}
		return c.ZipCodes
	}

	addr.ZipCodes = nil
	if _, err := r.Resolve(ctx, nil, addr); err != nil {
		t.Fatal(err)
	}
	if z := zips(); len(z) != 1 || z[0] != "403001" {
		t.Errorf("empty input changed zips: %q", z)
	}

	addr.ZipCodes = []string{"403002", " 403003 "}
	if _, err := r.Resolve(ctx, nil, addr); err != nil {
		t.Fatal(err)
	}
	if z := zips(); len(z) != 2 || z[0] != "403002" || z[1] != "403003" {
		t.Errorf("zips = %q, want replaced", z)
	}
}

func TestResolve_RestoresDeletedCountry(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	r := newResolver(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	c := fx.CreateCountry(ctx, "Testland")
	if err := countrystore.New(db).SoftDelete(ctx, c.ID, nil); err != nil {
		t.Fatal(err)
	}

	res, err := r.Resolve(ctx, nil, location.Address{Country: "TESTLAND", State: "North", City: "Capital"})
	if err != nil {
		t.Fatal(err)
	}
	if res.CountryID != c.ID {
		t.Errorf("country id = %s, want restored %s", res.CountryID.Hex(), c.ID.Hex())
	}
	if n := count(t, db, "countries", bson.M{"_id": c.ID, "is_deleted": false}); n != 1 {
		t.Error("country was not restored")
	}
}

// A store failure mid-resolution surfaces as a location upsert error (500),
// never as a validation error or a partial result.
func TestResolve_StoreFailureIsLocationUpsert(t *testing.T) {
	db := testutil.SetupTestDB(t)
	reg := metrics.New()
	r := location.NewResolver(db, reg, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	cancel()

	got, err := r.Resolve(ctx, nil, location.Address{Country: "India", State: "Goa", City: "Panaji"})
	if got != nil {
		t.Errorf("expected no result, got %+v", got)
	}
	if !apperr.Is(err, apperr.KindLocationUpsert) {
		t.Fatalf("expected KindLocationUpsert, got %v", err)
	}
	if status := apperr.StatusOf(err); status != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", status)
	}
	if got := promtest.ToFloat64(reg.Locations.WithLabelValues("country", "failed")); got != 1 {
		t.Errorf("country failed counter = %v, want 1", got)
	}
}

func TestResolve_ConcurrentCreatesOneRow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	reg := metrics.New()
	r := location.NewResolver(db, reg, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	variants := []location.Address{
		{Country: "Atlantis", State: "Coral", City: "Reef"},
		{Country: "  atlantis", State: "CORAL", City: "reef "},
		{Country: "ATLANTIS ", State: "coral", City: "Reef"},
		{Country: "Atlantis", State: " Coral ", City: "REEF"},
	}

	const workers = 8
	results := make([]*location.Resolved, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = r.Resolve(ctx, nil, variants[i%len(variants)])
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("worker %d: %v", i, err)
		}
		if results[i].CityID != results[0].CityID {
			t.Errorf("worker %d got city %s, want %s", i, results[i].CityID.Hex(), results[0].CityID.Hex())
		}
	}
	if n := count(t, db, "countries", bson.M{}); n != 1 {
		t.Errorf("countries = %d, want 1", n)
	}
	if n := count(t, db, "cities", bson.M{}); n != 1 {
		t.Errorf("cities = %d, want 1", n)
	}
	if got := promtest.ToFloat64(reg.Locations.WithLabelValues("country", "created")); got != 1 {
		t.Errorf("country created counter = %v, want 1", got)
	}
}

func TestConcurrentCountryCreate_NoRawDuplicateError(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := countrystore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	var wg sync.WaitGroup
	errs := make([]error, 6)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = store.Create(ctx, []string{"Nova", " nova", "NOVA "}[i%3], nil)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case !apperr.Is(err, apperr.KindConflict):
			t.Errorf("loser got %v, want a conflict", err)
		}
	}
	if ok != 1 {
		t.Errorf("%d creates succeeded, want 1", ok)
	}
	if n := count(t, db, "countries", bson.M{}); n != 1 {
		t.Errorf("countries = %d, want 1", n)
	}
}

func TestGuard_StateWithCityIsBlocked(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	g := newGuard(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	st := fx.CreateState(ctx, "Y", fx.CreateCountry(ctx, "Z").ID)
	city := fx.CreateCity(ctx, "X", st.ID)

	check, err := g.CanDelete(ctx, location.KindState, st.ID)
	if err != nil || check.Allowed || check.Reason == "" {
		t.Errorf("CanDelete = %+v, %v", check, err)
	}

	err = g.Delete(ctx, location.KindState, st.ID, nil)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("Delete: got %v, want conflict", err)
	}
	if apperr.StatusOf(err) != 409 {
		t.Errorf("status = %d", apperr.StatusOf(err))
	}
	if n := count(t, db, "states", bson.M{"_id": st.ID}); n != 1 {
		t.Error("state was removed")
	}
	if n := count(t, db, "cities", bson.M{"_id": city.ID, "state_id": st.ID}); n != 1 {
		t.Error("city no longer references its state")
	}
}

func TestGuard_CountryWithoutChildrenIsSoftDeleted(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	g := newGuard(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	c := fx.CreateCountry(ctx, "Emptyland")
	actor := primitive.NewObjectID()
	if err := g.Delete(ctx, location.KindCountry, c.ID, &actor); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	var got models.Country
	if err := db.Collection("countries").FindOne(ctx, bson.M{"_id": c.ID}).Decode(&got); err != nil {
		t.Fatalf("row should be kept: %v", err)
	}
	if !got.IsDeleted || got.UpdatedBy == nil || *got.UpdatedBy != actor {
		t.Errorf("country = %+v", got)
	}

	if err := g.Delete(ctx, location.KindCountry, c.ID, &actor); !errors.Is(err, countrystore.ErrNotFound) {
		t.Errorf("second delete: got %v, want ErrNotFound", err)
	}
}

func TestGuard_TestlandRestoreKeepsID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	g := newGuard(db)
	store := countrystore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	c, err := store.Create(ctx, "Testland", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := g.Delete(ctx, location.KindCountry, c.ID, nil); err != nil {
		t.Fatal(err)
	}
	again, err := store.Create(ctx, "testland", nil)
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != c.ID || again.IsDeleted {
		t.Errorf("got %+v, want id %s restored", again, c.ID.Hex())
	}
}

func TestGuard_CountryRules(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	g := newGuard(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	withState := fx.CreateCountry(ctx, "Alpha")
	fx.CreateState(ctx, "A1", withState.ID)

	// An inactive state still hides an active city.
	withCity := fx.CreateCountry(ctx, "Beta")
	inactive := fx.CreateState(ctx, "B1", withCity.ID)
	_, _ = db.Collection("states").UpdateOne(ctx, bson.M{"_id": inactive.ID}, bson.M{"$set": bson.M{"is_deleted": true}})
	fx.CreateCity(ctx, "B1 City", inactive.ID)

	withUser := fx.CreateCountry(ctx, "Gamma")
	fx.CreateUserAt(ctx, "g@example.com", models.LocationRef{CountryID: &withUser.ID})

	withTask := fx.CreateCountry(ctx, "Delta")
	fx.CreateTaskAt(ctx, "T", primitive.NewObjectID(), models.LocationRef{CountryID: &withTask.ID})

	tests := []struct {
		name string
		id   primitive.ObjectID
	}{
		{"active state", withState.ID},
		{"active city under inactive state", withCity.ID},
		{"referencing user", withUser.ID},
		{"referencing task", withTask.ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check, err := g.CanDelete(ctx, location.KindCountry, tt.id)
			if err != nil {
				t.Fatal(err)
			}
			if check.Allowed {
				t.Error("delete should be blocked")
			}
		})
	}
}

func TestGuard_CityRules(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	g := newGuard(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	st := fx.CreateState(ctx, "S", fx.CreateCountry(ctx, "C").ID)
	used := fx.CreateCity(ctx, "Used", st.ID)
	free := fx.CreateCity(ctx, "Free", st.ID)
	u := fx.CreateUserAt(ctx, "u@example.com", models.LocationRef{CityID: &used.ID})

	if err := g.Delete(ctx, location.KindCity, used.ID, nil); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("used city: got %v, want conflict", err)
	}

	// Deleted users no longer block.
	_, _ = db.Collection("users").UpdateOne(ctx, bson.M{"_id": u.ID}, bson.M{"$set": bson.M{"is_deleted": true}})
	if err := g.Delete(ctx, location.KindCity, used.ID, nil); err != nil {
		t.Errorf("after user deleted: %v", err)
	}

	if err := g.Delete(ctx, location.KindCity, free.ID, nil); err != nil {
		t.Fatalf("free city: %v", err)
	}
	if n := count(t, db, "cities", bson.M{"_id": free.ID}); n != 0 {
		t.Error("city should be removed permanently")
	}
	if _, err := g.CanDelete(ctx, location.KindCity, free.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("missing city: got %v", err)
	}
}

func TestGuard_StateReferencedByTask(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	g := newGuard(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	st := fx.CreateState(ctx, "S", fx.CreateCountry(ctx, "C").ID)
	fx.CreateTaskAt(ctx, "T", primitive.NewObjectID(), models.LocationRef{StateID: &st.ID})

	check, err := g.CanDelete(ctx, location.KindState, st.ID)
	if err != nil || check.Allowed {
		t.Errorf("CanDelete = %+v, %v", check, err)
	}
}

func TestGuard_UnknownKind(t *testing.T) {
	db := testutil.SetupTestDB(t)
	g := newGuard(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := g.CanDelete(ctx, location.Kind("planet"), primitive.NewObjectID()); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("got %v, want validation error", err)
	}
}
