// internal/auth/auth.go
//
// Host authentication for lifecycle commands.
// Responsibilities:
//   - Checking the host password (bcrypt hash, or a plaintext password
//     hashed once at startup).
//   - Issuing and verifying HS256 JWTs with role "host".
//   - Reading the token from `Authorization: Bearer` or the auth cookie.
//
// When no host password is configured, Authorized always returns true.

package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	// CookieName carries the host token for browser clients.
	CookieName = "soup_host_token"
	roleHost   = "host"
)

var (
	ErrBadPassword = errors.New("auth: wrong password")
	ErrDisabled    = errors.New("auth: host login is not configured")
)

// Config configures a Host.
type Config struct {
	Password     string // plaintext, hashed at startup
	PasswordHash string // bcrypt hash; wins over Password
	Secret       string
	Expires      time.Duration
	Secure       bool // mark cookies Secure / SameSite=None
}

// Host guards lifecycle commands.
type Host struct {
	hash    []byte
	secret  []byte
	expires time.Duration
	secure  bool
	now     func() time.Time
}

// New prepares a Host. With neither password set, auth is disabled.
func New(cfg Config) (*Host, error) {
	h := &Host{secret: []byte(cfg.Secret), expires: cfg.Expires, secure: cfg.Secure, now: time.Now}
	if h.expires <= 0 {
		h.expires = 12 * time.Hour
	}
	switch {
	case cfg.PasswordHash != "":
		h.hash = []byte(cfg.PasswordHash)
	case cfg.Password != "":
		b, err := HashPassword(cfg.Password)
		if err != nil {
			return nil, err
		}
		h.hash = []byte(b)
	}
	if h.Enabled() && len(h.secret) == 0 {
		return nil, errors.New("auth: a JWT secret is required")
	}
	return h, nil
}

// Enabled reports whether a host password is configured.
func (h *Host) Enabled() bool { return len(h.hash) > 0 }

// HashPassword returns a bcrypt hash suitable for HOST_PASSWORD_HASH.
func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost) // cost=10
	return string(b), err
}

// Login checks pw and issues a signed token with its expiry.
func (h *Host) Login(pw string) (string, time.Time, error) {
	if !h.Enabled() {
		return "", time.Time{}, ErrDisabled
	}
	if bcrypt.CompareHashAndPassword(h.hash, []byte(pw)) != nil {
		return "", time.Time{}, ErrBadPassword
	}
	now := h.now()
	exp := now.Add(h.expires)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": roleHost,
		"exp":  exp.Unix(),
		"iat":  now.Unix(),
	})
	ss, err := token.SignedString(h.secret)
	return ss, exp, err
}

// Verify checks a token's signature, expiry and role.
func (h *Host) Verify(tokenStr string) bool {
	if tokenStr == "" {
		return false
	}
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return h.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(h.now))
	if err != nil || !token.Valid {
		return false
	}
	role, _ := claims["role"].(string)
	return role == roleHost
}

// Authorized reports whether r may run lifecycle commands.
func (h *Host) Authorized(r *http.Request) bool {
	if !h.Enabled() {
		return true
	}
	return h.Verify(bearerOrCookie(r))
}

// SetCookie stores the token for browser clients.
func (h *Host) SetCookie(w http.ResponseWriter, token string, exp time.Time) {
	http.SetCookie(w, h.cookie(token, exp, 0))
}

// ClearCookie removes the token cookie.
func (h *Host) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, h.cookie("", time.Time{}, -1))
}

func (h *Host) cookie(value string, exp time.Time, maxAge int) *http.Cookie {
	sameSite := http.SameSiteLaxMode
	if h.secure {
		sameSite = http.SameSiteNoneMode
	}
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: sameSite,
		Expires:  exp,
		MaxAge:   maxAge,
	}
}

func bearerOrCookie(r *http.Request) string {
	// Authorization: Bearer <token>
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}
