package authapi

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

// DefaultCookieName is the session cookie the web app has always used.
const DefaultCookieName = "auth-session"

// Config controls auth API behavior and security defaults.
type Config struct {
	CookieName     string
	CookiePath     string
	CookieDomain   string
	CookieSecure   bool
	CookieSameSite http.SameSite

	TrustProxy   bool
	MaxBodyBytes int64

	// Failed logins allowed per window, per client IP and per username.
	LoginIPMax      int
	LoginUserMax    int
	LoginFailWindow time.Duration
}

// DefaultConfig returns the cookie contract of the web app: auth-session,
// path /, HttpOnly, SameSite=Lax, Secure.
func DefaultConfig() Config {
	return Config{
		CookieName:      DefaultCookieName,
		CookiePath:      "/",
		CookieSecure:    true,
		CookieSameSite:  http.SameSiteLaxMode,
		MaxBodyBytes:    16 << 10,
		LoginIPMax:      20,
		LoginUserMax:    5,
		LoginFailWindow: 15 * time.Minute,
	}
}

// Validate fills gaps with defaults and rejects unusable values.
func (c *Config) Validate() error {
	def := DefaultConfig()

	c.CookieName = strings.TrimSpace(c.CookieName)
	if c.CookieName == "" {
		c.CookieName = def.CookieName
	}
	if c.CookiePath == "" {
		c.CookiePath = def.CookiePath
	}
	if c.CookieSameSite == 0 {
		c.CookieSameSite = def.CookieSameSite
	}
	if c.CookieSameSite == http.SameSiteNoneMode && !c.CookieSecure {
		return errors.New("authapi: SameSite=None requires a Secure cookie")
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = def.MaxBodyBytes
	}
	if c.LoginFailWindow <= 0 {
		c.LoginFailWindow = def.LoginFailWindow
	}
	return nil
}

// ParseSameSite maps "lax", "strict", "none" to http.SameSite.
func ParseSameSite(s string) (http.SameSite, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, errors.New("authapi: invalid SameSite value")
	}
}
