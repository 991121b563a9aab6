// internal/app/features/account/handler.go
package account

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	uierrors "github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/features/errors"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/location"
	resetstore "github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/store/passwordresets"
	revokedstore "github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/store/revokedtokens"
	userstore "github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/store/users"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/apperr"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/auth"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/jsonio"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/mailer"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/metrics"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/ratelimit"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Config carries the account endpoints' collaborators. Nil Mailer logs
// reset links instead of sending them; nil Limiter disables rate limiting.
type Config struct {
	Mailer   mailer.Sender
	Limiter  *ratelimit.Limiter
	Metrics  *metrics.Registry
	Resolver *location.Resolver
	BaseURL  string // prefix of emailed reset links, e.g. "https://taskflow.example.com"
	SiteName string
	ResetTTL time.Duration
}

type Handler struct {
	Users    *userstore.Store
	Resets   *resetstore.Store
	Revoked  *revokedstore.Store
	Namer    *location.Namer
	Resolver *location.Resolver
	Sessions *auth.SessionManager
	Mailer   mailer.Sender
	Limiter  *ratelimit.Limiter
	Metrics  *metrics.Registry
	BaseURL  string
	SiteName string
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger

	pending sync.WaitGroup // in-flight reset emails
}

func NewHandler(db *mongo.Database, sm *auth.SessionManager, cfg Config, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	if cfg.Mailer == nil {
		cfg.Mailer = &mailer.LogSender{Log: logger}
	}
	if cfg.Resolver == nil {
		cfg.Resolver = location.NewResolver(db, cfg.Metrics, logger)
	}
	if cfg.SiteName == "" {
		cfg.SiteName = "TaskFlow"
	}
	return &Handler{
		Users:    userstore.New(db),
		Resets:   resetstore.New(db, cfg.ResetTTL),
		Revoked:  revokedstore.New(db),
		Namer:    location.NewNamer(db),
		Resolver: cfg.Resolver,
		Sessions: sm,
		Mailer:   cfg.Mailer,
		Limiter:  cfg.Limiter,
		Metrics:  cfg.Metrics,
		BaseURL:  cfg.BaseURL,
		SiteName: cfg.SiteName,
		ErrLog:   errLog,
		Log:      logger,
	}
}

// me is the signed-in user as returned by login, signup and /me.
type me struct {
	models.User
	Location location.AddressNames `json:"location"`
}

// session is the body returned when a token is issued. The same token is
// also set as an HttpOnly cookie.
type session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      me        `json:"user"`
}

func (h *Handler) profile(ctx context.Context, u models.User) (me, error) {
	names, err := h.Namer.Names(ctx, u.LocationRef)
	if err != nil {
		return me{}, err
	}
	return me{User: u, Location: names.Of(u.LocationRef)}, nil
}

// startSession issues a token for u, sets the cookie and writes the body.
func (h *Handler) startSession(ctx context.Context, w http.ResponseWriter, r *http.Request, status int, u models.User, remember bool) {
	token, claims, err := h.Sessions.Issue(auth.SessionUser{
		ID:    u.ID.Hex(),
		Name:  u.FullName,
		Email: u.Email,
		Role:  u.Role,
	}, remember)
	if err != nil {
		h.ErrLog.Write(w, r, apperr.Internal("account.issueToken", err))
		return
	}
	profile, err := h.profile(ctx, u)
	if err != nil {
		h.ErrLog.Write(w, r, apperr.Internal("account.profile", err))
		return
	}
	expires := claims.ExpiresAt.Time
	h.Sessions.SetCookie(w, token, expires)
	jsonio.Write(w, status, session{Token: token, ExpiresAt: expires, User: profile})
}

// allow consumes one hit for key, writing 429 when the limit is exhausted.
// The hits left in the window are reported in X-RateLimit-Remaining.
func (h *Handler) allow(w http.ResponseWriter, key string) bool {
	if h.Limiter == nil {
		return true
	}
	ok := h.Limiter.Allow(key)
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(h.Limiter.Remaining(key)))
	if ok {
		return true
	}
	jsonio.Write(w, http.StatusTooManyRequests, uierrors.Body{Error: "too many attempts, try again later"})
	return false
}

func formatExpiry(d time.Duration) string {
	minutes := int(d.Minutes())
	if minutes < 60 {
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}
	hours := minutes / 60
	if hours == 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", hours)
}
