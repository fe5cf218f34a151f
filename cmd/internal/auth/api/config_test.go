package authapi

import (
	"net/http"
	"testing"
)

func TestConfigValidate_FillsDefaults(t *testing.T) {
	cfg := Config{CookieSecure: true}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.CookieName != "auth-session" || cfg.CookiePath != "/" || cfg.CookieSameSite != http.SameSiteLaxMode {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.MaxBodyBytes <= 0 || cfg.LoginFailWindow <= 0 {
		t.Fatalf("limits not applied: %+v", cfg)
	}
}

func TestConfigValidate_SameSiteNoneNeedsSecure(t *testing.T) {
	cfg := Config{CookieSameSite: http.SameSiteNoneMode}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for SameSite=None without Secure")
	}
}

func TestParseSameSite(t *testing.T) {
	cases := map[string]http.SameSite{
		"":       http.SameSiteLaxMode,
		"Lax":    http.SameSiteLaxMode,
		"strict": http.SameSiteStrictMode,
		"NONE":   http.SameSiteNoneMode,
	}
	for in, want := range cases {
		got, err := ParseSameSite(in)
		if err != nil || got != want {
			t.Fatalf("ParseSameSite(%q)=%v,%v want %v", in, got, err, want)
		}
	}
	if _, err := ParseSameSite("sometimes"); err == nil {
		t.Fatalf("expected error")
	}
}
