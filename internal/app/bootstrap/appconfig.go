// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// Values come from environment variables (TASKFLOW_*), configuration files
// or command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers
// framework-level settings such as ports, TLS, log level and CORS; this
// struct carries everything specific to TaskFlow.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64

	// Token and cookie configuration
	JWTSecret       string        // HS256 signing key (32+ chars; required in prod)
	AuthCookieName  string        // default: taskflow_token
	CookieDomain    string        // blank means current host
	CookieCrossSite bool          // SameSite=None; otherwise Lax
	TokenTTL        time.Duration // default session lifetime
	RememberTTL     time.Duration // lifetime with remember_me
	ResetTokenTTL   time.Duration // password reset link lifetime

	// Email/SMTP configuration. An empty host logs reset links instead.
	MailSMTPHost string
	MailSMTPPort int
	MailSMTPUser string
	MailSMTPPass string
	MailFrom     string
	MailFromName string

	// Base URL for reset links, e.g. "https://taskflow.example.com"
	BaseURL string

	// First admin, created on startup when no admin exists.
	AdminEmail    string
	AdminPassword string
	AdminName     string

	// Login attempts allowed per IP and email each minute.
	LoginRateLimit int

	// Database deadlines (see system/timeouts).
	TimeoutPing   time.Duration
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration
}
