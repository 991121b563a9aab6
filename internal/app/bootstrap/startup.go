// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"fmt"
	"sync"

	"github.com/dalemusser/waffle/config"
	userstore "github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/store/users"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/authutil"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/timeouts"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/workers"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/domain/models"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. TaskFlow
// seeds the first admin account here.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if appCfg.AdminEmail == "" {
		return nil
	}
	return ensureAdmin(ctx, deps, appCfg.AdminName, appCfg.AdminEmail, appCfg.AdminPassword, logger)
}

// ensureAdmin creates an admin account when the database has none. An
// existing admin of any email leaves the database untouched.
func ensureAdmin(ctx context.Context, deps DBDeps, name, email, password string, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	users := userstore.New(deps.MongoDatabase)
	n, err := users.CountAdmins(ctx)
	if err != nil {
		return fmt.Errorf("count admins: %w", err)
	}
	if n > 0 {
		logger.Debug("admin account present; skipping seed")
		return nil
	}
	if err := authutil.ValidatePassword(password); err != nil {
		return fmt.Errorf("admin_password: %w", err)
	}
	if name == "" {
		name = "Administrator"
	}
	hash, err := authutil.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	u, err := users.Create(ctx, models.User{
		FullName:     name,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
	})
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	logger.Info("created admin account", zap.String("email", u.Email), zap.String("id", u.ID.Hex()))
	return nil
}

// cleanupWorker runs the periodic purge jobs started by BuildHandler.
// drains wait for work handlers queued off the request path.
var (
	cleanupMu     sync.Mutex
	cleanupWorker *workers.Cleanup
	drains        []func()
)

func drainOnStop(wait func()) {
	cleanupMu.Lock()
	defer cleanupMu.Unlock()
	drains = append(drains, wait)
}

func startCleanup(w *workers.Cleanup) {
	cleanupMu.Lock()
	defer cleanupMu.Unlock()
	if cleanupWorker != nil {
		cleanupWorker.Stop()
	}
	cleanupWorker = w
	w.Start()
}

func stopBackground() {
	cleanupMu.Lock()
	w := cleanupWorker
	cleanupWorker = nil
	pending := drains
	drains = nil
	cleanupMu.Unlock()
	if w != nil {
		w.Stop()
	}
	for _, wait := range pending {
		wait()
	}
}
