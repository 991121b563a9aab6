package countries_test

import (
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/features/countries"
	uierrors "github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/features/errors"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/location"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/auth"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/domain/models"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newRouter(t *testing.T, db *mongo.Database) chi.Router {
	t.Helper()
	logger := zap.NewNop()
	sm, err := auth.NewSessionManager(auth.Config{Secret: "countries-test-secret-0123456789abcdef"}, logger)
	if err != nil {
		t.Fatal(err)
	}
	h := countries.NewHandler(db, location.NewGuard(db, nil, logger), uierrors.NewErrorLogger(logger), logger)
	return countries.Routes(h, sm)
}

func serve(r chi.Router, req *http.Request) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestInsert_AdminOnly(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r := newRouter(t, db)
	body := map[string]string{"name": "India"}

	rec := serve(r, testutil.NewJSONRequest(t, "POST", "/", body))
	rec.AssertStatus(t, http.StatusUnauthorized)

	rec = serve(r, testutil.NewAuthenticatedRequest(t, "POST", "/", body, testutil.RegularUser()))
	rec.AssertStatus(t, http.StatusForbidden)

	rec = serve(r, testutil.NewAuthenticatedRequest(t, "POST", "/", body, testutil.AdminUser()))
	rec.AssertStatus(t, http.StatusCreated)
	var c models.Country
	rec.DecodeJSON(t, &c)
	if c.Name != "India" || c.ID.IsZero() {
		t.Errorf("created %+v", c)
	}

	rec = serve(r, testutil.NewAuthenticatedRequest(t, "POST", "/", map[string]string{"name": " INDIA "}, testutil.AdminUser()))
	rec.AssertStatus(t, http.StatusConflict)

	rec = serve(r, testutil.NewAuthenticatedRequest(t, "POST", "/", map[string]string{"name": "  "}, testutil.AdminUser()))
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestListAndLookup(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	r := newRouter(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx.CreateCountry(ctx, "India")
	fx.CreateCountry(ctx, "Indonesia")
	fx.CreateCountry(ctx, "Chile")

	rec := serve(r, testutil.NewAuthenticatedRequest(t, "GET", "/?q=ind&sort=-name&page_size=1", nil, testutil.RegularUser()))
	rec.AssertStatus(t, http.StatusOK)
	var page struct {
		Items      []models.Country `json:"items"`
		Total      int64            `json:"total"`
		TotalPages int              `json:"total_pages"`
	}
	rec.DecodeJSON(t, &page)
	if page.Total != 2 || page.TotalPages != 2 || len(page.Items) != 1 || page.Items[0].Name != "Indonesia" {
		t.Errorf("page = %+v", page)
	}

	rec = serve(r, testutil.NewAuthenticatedRequest(t, "GET", "/?sort=bogus", nil, testutil.RegularUser()))
	rec.AssertStatus(t, http.StatusBadRequest)

	rec = serve(r, testutil.NewAuthenticatedRequest(t, "GET", "/lookup", nil, testutil.RegularUser()))
	rec.AssertStatus(t, http.StatusOK)
	var lookup []map[string]string
	rec.DecodeJSON(t, &lookup)
	if len(lookup) != 3 || lookup[0]["name"] != "Chile" {
		t.Errorf("lookup = %v", lookup)
	}
}

func TestCheckDuplicateName(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	r := newRouter(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	c := fx.CreateCountry(ctx, "India")

	var out map[string]bool
	rec := serve(r, testutil.NewAuthenticatedRequest(t, "GET", "/check-duplicate?name=%20india", nil, testutil.RegularUser()))
	rec.AssertStatus(t, http.StatusOK)
	rec.DecodeJSON(t, &out)
	if !out["exists"] {
		t.Error("expected exists=true")
	}

	rec = serve(r, testutil.NewAuthenticatedRequest(t, "GET", "/check-duplicate?name=India&exclude_id="+c.ID.Hex(), nil, testutil.RegularUser()))
	rec.DecodeJSON(t, &out)
	if out["exists"] {
		t.Error("excluding self should report exists=false")
	}

	rec = serve(r, testutil.NewAuthenticatedRequest(t, "GET", "/check-duplicate", nil, testutil.RegularUser()))
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestGetModel(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	r := newRouter(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	c := fx.CreateCountry(ctx, "Chile")
	rec := serve(r, testutil.NewAuthenticatedRequest(t, "GET", "/"+c.ID.Hex(), nil, testutil.RegularUser()))
	rec.AssertStatus(t, http.StatusOK)

	rec = serve(r, testutil.NewAuthenticatedRequest(t, "GET", "/not-an-id", nil, testutil.RegularUser()))
	rec.AssertStatus(t, http.StatusBadRequest)

	rec = serve(r, testutil.NewAuthenticatedRequest(t, "GET", "/"+primitive.NewObjectID().Hex(), nil, testutil.RegularUser()))
	rec.AssertStatus(t, http.StatusNotFound)
}

func TestDelete_GuardedAndRestorable(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	r := newRouter(t, db)
	admin := testutil.AdminUser()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	busy := fx.CreateCountry(ctx, "Busy")
	fx.CreateState(ctx, "S", busy.ID)

	rec := serve(r, testutil.NewAuthenticatedRequest(t, "GET", "/"+busy.ID.Hex()+"/can-delete", nil, admin))
	rec.AssertStatus(t, http.StatusOK)
	var check location.Check
	rec.DecodeJSON(t, &check)
	if check.Allowed || check.Reason == "" {
		t.Errorf("check = %+v", check)
	}

	rec = serve(r, testutil.NewAuthenticatedRequest(t, "DELETE", "/"+busy.ID.Hex(), nil, admin))
	rec.AssertStatus(t, http.StatusConflict)

	free := fx.CreateCountry(ctx, "Testland")
	rec = serve(r, testutil.NewAuthenticatedRequest(t, "DELETE", "/"+free.ID.Hex(), nil, admin))
	rec.AssertStatus(t, http.StatusNoContent)

	rec = serve(r, testutil.NewAuthenticatedRequest(t, "GET", "/"+free.ID.Hex(), nil, admin))
	rec.AssertStatus(t, http.StatusNotFound)

	rec = serve(r, testutil.NewAuthenticatedRequest(t, "POST", "/", map[string]string{"name": "testland"}, admin))
	rec.AssertStatus(t, http.StatusCreated)
	var restored models.Country
	rec.DecodeJSON(t, &restored)
	if restored.ID != free.ID {
		t.Errorf("restored id = %s, want %s", restored.ID.Hex(), free.ID.Hex())
	}
	n, _ := db.Collection("countries").CountDocuments(ctx, bson.M{"name_key": "testland"})
	if n != 1 {
		t.Errorf("rows for testland = %d, want 1", n)
	}
}
