// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for TaskFlow.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, jwt_secret, etc.
//   - Environment variables: TASKFLOW_MONGO_URI, TASKFLOW_JWT_SECRET, etc.
//   - Command-line flags: --mongo_uri, --jwt_secret, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "taskflow", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},

	// Tokens
	{Name: "jwt_secret", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "HS256 signing key (must be strong in production)"},
	{Name: "auth_cookie_name", Default: "taskflow_token", Desc: "Auth cookie name"},
	{Name: "cookie_domain", Default: "", Desc: "Auth cookie domain (blank means current host)"},
	{Name: "cookie_cross_site", Default: false, Desc: "Send the auth cookie with SameSite=None for a frontend on another site (prod only)"},
	{Name: "token_ttl", Default: "24h", Desc: "Token lifetime without remember_me"},
	{Name: "remember_ttl", Default: "720h", Desc: "Token lifetime with remember_me"},
	{Name: "reset_token_ttl", Default: "1h", Desc: "Password reset link lifetime"},

	// Email/SMTP configuration
	{Name: "mail_smtp_host", Default: "", Desc: "SMTP server host (blank logs emails instead of sending)"},
	{Name: "mail_smtp_port", Default: 1025, Desc: "SMTP server port"},
	{Name: "mail_smtp_user", Default: "", Desc: "SMTP username"},
	{Name: "mail_smtp_pass", Default: "", Desc: "SMTP password"},
	{Name: "mail_from", Default: "noreply@taskflow.local", Desc: "From email address"},
	{Name: "mail_from_name", Default: "TaskFlow", Desc: "From display name"},

	// Base URL for email links
	{Name: "base_url", Default: "http://localhost:3000", Desc: "Base URL for password reset links"},

	// Admin bootstrap
	{Name: "admin_email", Default: "", Desc: "Email of the first admin (created on startup when no admin exists)"},
	{Name: "admin_password", Default: "", Desc: "Password of the first admin"},
	{Name: "admin_name", Default: "Administrator", Desc: "Display name of the first admin"},

	{Name: "login_rate_limit", Default: 10, Desc: "Login attempts per IP and email per minute"},

	// Database deadlines
	{Name: "timeout_ping", Default: "2s", Desc: "Health check ping deadline"},
	{Name: "timeout_short", Default: "5s", Desc: "Single-document operation deadline"},
	{Name: "timeout_medium", Default: "10s", Desc: "List and resolver deadline"},
	{Name: "timeout_long", Default: "30s", Desc: "Schema setup deadline"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig merges .env files, config files,
// environment variables (WAFFLE_* for core, TASKFLOW_* for app) and flags
// with precedence flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "TASKFLOW", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),

		JWTSecret:       appValues.String("jwt_secret"),
		AuthCookieName:  appValues.String("auth_cookie_name"),
		CookieDomain:    appValues.String("cookie_domain"),
		CookieCrossSite: appValues.Bool("cookie_cross_site"),
		TokenTTL:        appValues.Duration("token_ttl", 24*time.Hour),
		RememberTTL:     appValues.Duration("remember_ttl", 30*24*time.Hour),
		ResetTokenTTL:   appValues.Duration("reset_token_ttl", time.Hour),

		MailSMTPHost: appValues.String("mail_smtp_host"),
		MailSMTPPort: appValues.Int("mail_smtp_port"),
		MailSMTPUser: appValues.String("mail_smtp_user"),
		MailSMTPPass: appValues.String("mail_smtp_pass"),
		MailFrom:     appValues.String("mail_from"),
		MailFromName: appValues.String("mail_from_name"),

		BaseURL: appValues.String("base_url"),

		AdminEmail:    appValues.String("admin_email"),
		AdminPassword: appValues.String("admin_password"),
		AdminName:     appValues.String("admin_name"),

		LoginRateLimit: appValues.Int("login_rate_limit"),

		TimeoutPing:   appValues.Duration("timeout_ping", timeouts.DefaultPing),
		TimeoutShort:  appValues.Duration("timeout_short", timeouts.DefaultShort),
		TimeoutMedium: appValues.Duration("timeout_medium", timeouts.DefaultMedium),
		TimeoutLong:   appValues.Duration("timeout_long", timeouts.DefaultLong),
	}

	timeouts.Configure(timeouts.Config{
		Ping:   appCfg.TimeoutPing,
		Short:  appCfg.TimeoutShort,
		Medium: appCfg.TimeoutMedium,
		Long:   appCfg.TimeoutLong,
	})

	return coreCfg, appCfg, nil
}

// minProdSecret is the shortest JWT secret accepted in prod.
const minProdSecret = 32

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// TaskFlow checks the MongoDB URI format before connecting and refuses a
// weak signing key in production.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if appCfg.MongoDatabase == "" {
		return errors.New("mongo_database is required")
	}
	if appCfg.JWTSecret == "" {
		return errors.New("jwt_secret is required")
	}
	if coreCfg.Env == "prod" && len(appCfg.JWTSecret) < minProdSecret {
		return fmt.Errorf("jwt_secret must be at least %d characters in prod", minProdSecret)
	}
	if (appCfg.AdminEmail == "") != (appCfg.AdminPassword == "") {
		return errors.New("admin_email and admin_password must be set together")
	}
	return nil
}
