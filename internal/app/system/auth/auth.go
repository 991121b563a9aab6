// internal/app/system/auth/auth.go
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/jsonio"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Current user                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

// SessionUser is the authenticated principal injected into r.Context().
type SessionUser struct {
	ID    string
	Name  string
	Email string
	Role  string
}

// IsAdmin reports whether the user has the admin role.
func (u *SessionUser) IsAdmin() bool { return u != nil && u.Role == "admin" }

type ctxKey string

const (
	currentUserKey ctxKey = "currentUser"
	claimsKey      ctxKey = "claims"
)

// CurrentUser returns the user and a found flag.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok && u != nil
}

// CurrentClaims returns the verified token claims for the request, if any.
func CurrentClaims(r *http.Request) (*Claims, bool) {
	c, ok := r.Context().Value(claimsKey).(*Claims)
	return c, ok && c != nil
}

// WithTestUser injects u without a token. Tests only.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

/*─────────────────────────────────────────────────────────────────────────────*
| Tokens                                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

// Claims is the signed token payload.
type Claims struct {
	Role string `json:"role"`
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// UserFetcher reloads a user on every request so role changes and deletions
// take effect before the token expires. A nil return means "no such user".
type UserFetcher interface {
	FetchUser(ctx context.Context, userID string) *SessionUser
}

// RevocationChecker reports whether a token id was logged out.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Config configures a SessionManager.
type Config struct {
	Secret      string
	CookieName  string
	Domain      string
	Secure      bool
	TTL         time.Duration // default lifetime
	RememberTTL time.Duration // lifetime with remember_me
	CrossSite   bool          // SameSite=None for a frontend on another site; needs Secure
}

// SessionManager issues and verifies HS256 tokens and guards routes.
type SessionManager struct {
	secret      []byte
	cookieName  string
	domain      string
	secure      bool
	ttl         time.Duration
	rememberTTL time.Duration
	crossSite   bool
	fetcher     UserFetcher
	revoked     RevocationChecker
	log         *zap.Logger
	now         func() time.Time
}

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	errEmptySecret  = errors.New("jwt secret is empty; provide 32+ random chars")
)

// NewSessionManager validates cfg and fills defaults (1 day, 30 days,
// cookie "taskflow_token").
func NewSessionManager(cfg Config, logger *zap.Logger) (*SessionManager, error) {
	if cfg.Secret == "" {
		return nil, errEmptySecret
	}
	if len(cfg.Secret) < 32 {
		logger.Warn("jwt secret is short; 32+ chars recommended", zap.Int("length", len(cfg.Secret)))
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "taskflow_token"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.RememberTTL <= 0 {
		cfg.RememberTTL = 30 * 24 * time.Hour
	}
	return &SessionManager{
		secret:      []byte(cfg.Secret),
		cookieName:  cfg.CookieName,
		domain:      cfg.Domain,
		secure:      cfg.Secure,
		ttl:         cfg.TTL,
		rememberTTL: cfg.RememberTTL,
		crossSite:   cfg.CrossSite,
		log:         logger,
		now:         time.Now,
	}, nil
}

// SetUserFetcher enables per-request user reloads.
func (sm *SessionManager) SetUserFetcher(f UserFetcher) { sm.fetcher = f }

// SetRevocationChecker enables logout checks.
func (sm *SessionManager) SetRevocationChecker(c RevocationChecker) { sm.revoked = c }

// Issue signs a token for u. remember selects the long lifetime.
func (sm *SessionManager) Issue(u SessionUser, remember bool) (string, *Claims, error) {
	ttl := sm.ttl
	if remember {
		ttl = sm.rememberTTL
	}
	now := sm.now()
	claims := &Claims{
		Role: u.Role,
		Name: u.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(sm.secret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// Parse verifies signature, algorithm and expiry.
func (sm *SessionManager) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	t, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return sm.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(sm.now))
	if err != nil || !t.Valid || claims.Subject == "" || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// SetCookie stores token in an HttpOnly cookie that expires with it.
func (sm *SessionManager) SetCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, sm.cookie(token, expires, int(time.Until(expires).Seconds())))
}

// ClearCookie expires the auth cookie.
func (sm *SessionManager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, sm.cookie("", time.Unix(0, 0), -1))
}

func (sm *SessionManager) cookie(value string, expires time.Time, maxAge int) *http.Cookie {
	c := &http.Cookie{
		Name:     sm.cookieName,
		Value:    value,
		Path:     "/",
		Domain:   sm.domain,
		Expires:  expires,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if sm.crossSite && sm.secure {
		c.SameSite = http.SameSiteNoneMode
	}
	return c
}

// TokenFromRequest prefers an Authorization bearer header over the cookie.
func (sm *SessionManager) TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, tok, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(tok)
		}
		return ""
	}
	if c, err := r.Cookie(sm.cookieName); err == nil {
		return c.Value
	}
	return ""
}

/*─────────────────────────────────────────────────────────────────────────────*
| Middleware                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

// LoadSessionUser verifies the request's token, if any, and injects the user.
// Invalid, revoked or orphaned tokens leave the request anonymous.
func (sm *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := sm.TokenFromRequest(r)
		if tok == "" {
			next.ServeHTTP(w, r)
			return
		}
		claims, err := sm.Parse(tok)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		if sm.revoked != nil {
			revoked, err := sm.revoked.IsRevoked(r.Context(), claims.ID)
			if err != nil {
				sm.log.Warn("revocation check failed", zap.Error(err))
			}
			if revoked || err != nil {
				next.ServeHTTP(w, r)
				return
			}
		}

		u := &SessionUser{ID: claims.Subject, Name: claims.Name, Role: claims.Role}
		if sm.fetcher != nil {
			if u = sm.fetcher.FetchUser(r.Context(), claims.Subject); u == nil {
				next.ServeHTTP(w, r)
				return
			}
		}

		ctx := context.WithValue(r.Context(), currentUserKey, u)
		ctx = context.WithValue(ctx, claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireSignedIn answers 401 unless LoadSessionUser found a user.
func (sm *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); !ok {
			jsonio.Write(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole answers 401 without a user and 403 for any other role.
func (sm *SessionManager) RequireRole(allowed ...string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		set[strings.ToLower(strings.TrimSpace(role))] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := CurrentUser(r)
			if !ok {
				jsonio.Write(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
				return
			}
			if _, has := set[strings.ToLower(u.Role)]; !has {
				jsonio.Write(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
