// internal/app/bootstrap/routes.go
package bootstrap

import (
	"context"
	"net/http"
	"time"

	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	accountfeature "github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/features/account"
	citiesfeature "github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/features/cities"
	countriesfeature "github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/features/countries"
	errorsfeature "github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/features/errors"
	healthfeature "github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/features/health"
	statesfeature "github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/features/states"
	tasksfeature "github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/features/tasks"
	usersfeature "github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/features/users"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/location"
	resetstore "github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/store/passwordresets"
	revokedstore "github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/store/revokedtokens"
	userstore "github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/store/users"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/auth"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/mailer"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/metrics"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/ratelimit"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/reqlog"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/timeouts"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/workers"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. TaskFlow builds the token session
// manager, applies request id, logging, metrics and session middleware, and
// mounts the JSON feature routers under /api.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.MongoDatabase

	// Secure cookies are enabled in production mode.
	sessionMgr, err := auth.NewSessionManager(auth.Config{
		Secret:      appCfg.JWTSecret,
		CookieName:  appCfg.AuthCookieName,
		Domain:      appCfg.CookieDomain,
		Secure:      coreCfg.Env == "prod",
		TTL:         appCfg.TokenTTL,
		RememberTTL: appCfg.RememberTTL,
		CrossSite:   appCfg.CookieCrossSite,
	}, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Reload the user on each request so role changes and deletions take
	// effect immediately, and reject tokens that were logged out.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(db))
	sessionMgr.SetRevocationChecker(revokedstore.New(db))

	reg := metrics.New()
	errLog := errorsfeature.NewErrorLogger(logger)
	guard := location.NewGuard(db, reg, logger)
	resolver := location.NewResolver(db, reg, logger)

	jobs := []workers.Job{
		{Name: "revoked-tokens", Run: revokedstore.New(db).DeleteExpired},
		{Name: "password-resets", Run: resetstore.New(db, appCfg.ResetTokenTTL).DeleteExpired},
	}

	// A non-positive limit disables login throttling.
	var limiter *ratelimit.Limiter
	if appCfg.LoginRateLimit > 0 {
		limiter = ratelimit.New(appCfg.LoginRateLimit, time.Minute)
		jobs = append(jobs, workers.Job{Name: "login-limiter", Run: func(context.Context) (int64, error) {
			limiter.Sweep()
			return 0, nil
		}})
	}
	startCleanup(workers.NewCleanup(logger, 10*time.Minute, timeouts.Medium(), jobs...))

	r := chi.NewRouter()
	r.Use(reqlog.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(reqlog.Logger(logger))
	r.Use(reg.Middleware)

	// Loads the signed-in user into context when a valid token is present.
	r.Use(sessionMgr.LoadSessionUser)

	r.NotFound(errorsfeature.NotFound)
	r.MethodNotAllowed(errorsfeature.MethodNotAllowed)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, Version, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	r.Method(http.MethodGet, "/metrics", reg.Handler())

	r.Route("/api", func(api chi.Router) {
		accountHandler := accountfeature.NewHandler(db, sessionMgr, accountfeature.Config{
			Mailer: mailer.New(mailer.Config{
				Host:     appCfg.MailSMTPHost,
				Port:     appCfg.MailSMTPPort,
				Username: appCfg.MailSMTPUser,
				Password: appCfg.MailSMTPPass,
				From:     appCfg.MailFrom,
				FromName: appCfg.MailFromName,
			}, logger),
			Limiter:  limiter,
			Metrics:  reg,
			Resolver: resolver,
			BaseURL:  appCfg.BaseURL,
			SiteName: appCfg.MailFromName,
			ResetTTL: appCfg.ResetTokenTTL,
		}, errLog, logger)
		drainOnStop(accountHandler.Wait)
		api.Mount("/auth", accountfeature.Routes(accountHandler, sessionMgr))

		// Location hierarchy
		countriesHandler := countriesfeature.NewHandler(db, guard, errLog, logger)
		api.Mount("/countries", countriesfeature.Routes(countriesHandler, sessionMgr))

		statesHandler := statesfeature.NewHandler(db, guard, errLog, logger)
		api.Mount("/states", statesfeature.Routes(statesHandler, sessionMgr))

		citiesHandler := citiesfeature.NewHandler(db, guard, errLog, logger)
		api.Mount("/cities", citiesfeature.Routes(citiesHandler, sessionMgr))

		// People and work
		usersHandler := usersfeature.NewHandler(db, resolver, errLog, logger)
		api.Mount("/users", usersfeature.Routes(usersHandler, sessionMgr))

		tasksHandler := tasksfeature.NewHandler(db, resolver, errLog, logger)
		api.Mount("/tasks", tasksfeature.Routes(tasksHandler, sessionMgr))
	})

	return r, nil
}
