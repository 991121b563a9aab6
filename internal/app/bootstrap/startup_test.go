package bootstrap

import (
	"net/http"
	"strings"
	"testing"

	"github.com/dalemusser/waffle/config"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/domain/models"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func TestEnsureAdmin_CreatesWhenNone(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	deps := DBDeps{MongoDatabase: db}
	if err := ensureAdmin(ctx, deps, "Root", " Root@Example.com ", "secret123", testLogger()); err != nil {
		t.Fatalf("ensureAdmin failed: %v", err)
	}

	var user models.User
	if err := db.Collection("users").FindOne(ctx, bson.M{"email": "root@example.com"}).Decode(&user); err != nil {
		t.Fatalf("failed to find created admin: %v", err)
	}
	if user.Role != models.RoleAdmin {
		t.Errorf("expected role admin, got %q", user.Role)
	}
	if user.PasswordHash == "" || user.PasswordHash == "secret123" {
		t.Error("expected a bcrypt hash to be stored")
	}
}

func TestEnsureAdmin_SkipsWhenAdminExists(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	fx.CreateAdmin(ctx, "Existing Admin", "existing@example.com")

	deps := DBDeps{MongoDatabase: db}
	if err := ensureAdmin(ctx, deps, "Root", "root@example.com", "secret123", testLogger()); err != nil {
		t.Fatalf("ensureAdmin failed: %v", err)
	}

	n, err := db.Collection("users").CountDocuments(ctx, bson.M{"email": "root@example.com"})
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("expected no new admin, found %d", n)
	}
}

func TestEnsureAdmin_RejectsShortPassword(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	deps := DBDeps{MongoDatabase: db}
	if err := ensureAdmin(ctx, deps, "Root", "root@example.com", "abc", testLogger()); err == nil {
		t.Fatal("expected short admin password to fail")
	}
}

func validAppConfig() AppConfig {
	return AppConfig{
		MongoURI:      "mongodb://localhost:27017",
		MongoDatabase: "taskflow",
		JWTSecret:     strings.Repeat("k", 40),
	}
}

func TestStopBackground_RunsDrainsOnce(t *testing.T) {
	calls := 0
	drainOnStop(func() { calls++ })

	stopBackground()
	stopBackground()

	if calls != 1 {
		t.Errorf("expected drain to run once, ran %d times", calls)
	}
}

func TestValidateConfig(t *testing.T) {
	dev := &config.CoreConfig{Env: "dev"}
	prod := &config.CoreConfig{Env: "prod"}

	tests := []struct {
		name    string
		core    *config.CoreConfig
		mutate  func(*AppConfig)
		wantErr bool
	}{
		{"valid", dev, func(*AppConfig) {}, false},
		{"missing database", dev, func(c *AppConfig) { c.MongoDatabase = "" }, true},
		{"missing secret", dev, func(c *AppConfig) { c.JWTSecret = "" }, true},
		{"short secret in dev", dev, func(c *AppConfig) { c.JWTSecret = "short" }, false},
		{"short secret in prod", prod, func(c *AppConfig) { c.JWTSecret = "short" }, true},
		{"admin email without password", dev, func(c *AppConfig) { c.AdminEmail = "a@example.com" }, true},
		{"admin email with password", dev, func(c *AppConfig) {
			c.AdminEmail = "a@example.com"
			c.AdminPassword = "secret123"
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validAppConfig()
			tt.mutate(&cfg)
			err := ValidateConfig(tt.core, cfg, testLogger())
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBuildHandler_Routes(t *testing.T) {
	db := testutil.SetupTestDB(t)

	cfg := validAppConfig()
	cfg.LoginRateLimit = 100
	deps := DBDeps{MongoClient: db.Client(), MongoDatabase: db}

	h, err := BuildHandler(&config.CoreConfig{Env: "dev"}, cfg, deps, testLogger())
	if err != nil {
		t.Fatalf("BuildHandler failed: %v", err)
	}
	t.Cleanup(stopBackground)

	serve := func(req *http.Request) *testutil.ResponseRecorder {
		rec := testutil.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := serve(testutil.NewJSONRequest(t, http.MethodGet, "/health", nil))
	rec.AssertStatus(t, http.StatusOK)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}

	rec = serve(testutil.NewJSONRequest(t, http.MethodGet, "/no-such-route", nil))
	rec.AssertStatus(t, http.StatusNotFound)

	rec = serve(testutil.NewJSONRequest(t, http.MethodGet, "/api/tasks", nil))
	rec.AssertStatus(t, http.StatusUnauthorized)

	rec = serve(testutil.NewJSONRequest(t, http.MethodPost, "/api/auth/signup", map[string]any{
		"full_name": "Asha Rao",
		"email":     "asha@example.com",
		"password":  "secret123",
	}))
	rec.AssertStatus(t, http.StatusCreated)
	var session struct {
		Token string `json:"token"`
	}
	rec.DecodeJSON(t, &session)
	if session.Token == "" {
		t.Fatal("expected a token from signup")
	}

	req := testutil.NewJSONRequest(t, http.MethodPost, "/api/tasks", map[string]any{"title": "Write report"})
	req.Header.Set("Authorization", "Bearer "+session.Token)
	rec = serve(req)
	rec.AssertStatus(t, http.StatusCreated)

	req = testutil.NewJSONRequest(t, http.MethodGet, "/api/tasks", nil)
	req.Header.Set("Authorization", "Bearer "+session.Token)
	rec = serve(req)
	rec.AssertStatus(t, http.StatusOK)

	rec = serve(testutil.NewJSONRequest(t, http.MethodGet, "/metrics", nil))
	rec.AssertStatus(t, http.StatusOK)
	if !strings.Contains(rec.Body.String(), "taskflow_http_requests_total") {
		t.Error("expected request counter in /metrics output")
	}
}
