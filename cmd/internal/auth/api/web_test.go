package authapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tj/assert"
)

func cookieHandler(t *testing.T, cfg Config) *Handler {
	t.Helper()
	assert.NoError(t, cfg.Validate())
	return &Handler{cfg: cfg}
}

func TestSetSessionCookie(t *testing.T) {
	h := cookieHandler(t, DefaultConfig())
	exp := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	rr := httptest.NewRecorder()
	h.setSessionCookie(rr, "secret-value", exp)

	res := rr.Result()
	defer func() { _ = res.Body.Close() }()
	cookies := res.Cookies()
	assert.Len(t, cookies, 1)

	c := cookies[0]
	assert.Equal(t, "auth-session", c.Name)
	assert.Equal(t, "secret-value", c.Value)
	assert.Equal(t, "/", c.Path)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, exp.Unix(), c.Expires.Unix())
}

func TestExpireSessionCookie(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CookieSecure = false
	cfg.CookieDomain = "beer.example"
	h := cookieHandler(t, cfg)

	rr := httptest.NewRecorder()
	h.expireSessionCookie(rr)

	res := rr.Result()
	defer func() { _ = res.Body.Close() }()
	cookies := res.Cookies()
	assert.Len(t, cookies, 1)

	c := cookies[0]
	assert.Equal(t, "auth-session", c.Name)
	assert.Equal(t, "", c.Value)
	assert.Equal(t, "beer.example", c.Domain)
	assert.True(t, c.MaxAge < 0)
	assert.False(t, c.Secure)
}

func TestSessionSecretFromCookie(t *testing.T) {
	h := cookieHandler(t, DefaultConfig())

	r := httptest.NewRequest(http.MethodGet, "/me", nil)
	_, ok := h.sessionSecretFromCookie(r)
	assert.False(t, ok)

	r.AddCookie(&http.Cookie{Name: "auth-session", Value: ""})
	_, ok = h.sessionSecretFromCookie(r)
	assert.False(t, ok, "empty cookie is no session")

	r = httptest.NewRequest(http.MethodGet, "/me", nil)
	r.AddCookie(&http.Cookie{Name: "other", Value: "x"})
	r.AddCookie(&http.Cookie{Name: "auth-session", Value: "abc"})
	v, ok := h.sessionSecretFromCookie(r)
	assert.True(t, ok)
	assert.Equal(t, "abc", v)
}
