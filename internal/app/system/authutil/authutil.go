// internal/app/system/authutil/authutil.go
package authutil

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/gorilla/securecookie"
	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 6
	// bcrypt ignores bytes past 72.
	MaxPasswordLength = 72
	BcryptCost        = 12
	resetTokenBytes   = 32
)

var (
	ErrPasswordTooShort = errors.New("password must be at least 6 characters")
	ErrPasswordTooLong  = errors.New("password must be at most 72 characters")
	ErrBadPassword      = errors.New("password does not match")
	errNoEntropy        = errors.New("could not generate random token")
)

// ValidatePassword checks length bounds only.
func ValidatePassword(pw string) error {
	switch {
	case len(pw) < MinPasswordLength:
		return ErrPasswordTooShort
	case len(pw) > MaxPasswordLength:
		return ErrPasswordTooLong
	}
	return nil
}

// HashPassword bcrypts pw.
func HashPassword(pw string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(pw), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// CheckPassword compares pw against a stored bcrypt hash.
func CheckPassword(hash, pw string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)); err != nil {
		return ErrBadPassword
	}
	return nil
}

// NewResetToken returns a URL-safe random token and the hash to store.
func NewResetToken() (token, hash string, err error) {
	b := securecookie.GenerateRandomKey(resetTokenBytes)
	if b == nil {
		return "", "", errNoEntropy
	}
	token = base64.RawURLEncoding.EncodeToString(b)
	return token, HashResetToken(token), nil
}

// HashResetToken is the lookup key stored for a reset token.
func HashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// IsValidEmail is a shape check: one @, non-empty local part, and a dotted
// domain that neither starts nor ends with a dot.
func IsValidEmail(email string) bool {
	if strings.ContainsAny(email, " \t\r\n") {
		return false
	}
	at := strings.Index(email, "@")
	if at <= 0 || at != strings.LastIndex(email, "@") {
		return false
	}
	domain := email[at+1:]
	if !strings.Contains(domain, ".") {
		return false
	}
	return !strings.HasPrefix(domain, ".") && !strings.HasSuffix(domain, ".")
}
