package password

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

// testConfig keeps hashing fast.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Cost = bcrypt.MinCost
	return cfg
}

func TestHashAndVerify_OK(t *testing.T) {
	cfg := testConfig()

	h, err := cfg.Hash("pils og pizza")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	ok, err := cfg.Verify(h, "pils og pizza")
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if !ok {
		t.Fatalf("expected match")
	}
}

func TestVerify_WrongPassword(t *testing.T) {
	cfg := testConfig()

	h, err := cfg.Hash("pils og pizza")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	ok, err := cfg.Verify(h, "wrong password")
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if ok {
		t.Fatalf("expected mismatch")
	}

	ok, err = cfg.Verify(h, strings.Repeat("x", MaxBytes+1))
	if err != nil || ok {
		t.Fatalf("overlong input must be a plain mismatch: ok=%v err=%v", ok, err)
	}
}

func TestVerify_InvalidHash(t *testing.T) {
	cfg := testConfig()

	ok, err := cfg.Verify("not-a-hash", "whatever")
	if err != ErrInvalidHash {
		t.Fatalf("expected ErrInvalidHash, got %v", err)
	}
	if ok {
		t.Fatalf("expected false")
	}
}

func TestVerify_RejectsExcessiveCost(t *testing.T) {
	cfg := testConfig()

	h, err := bcrypt.GenerateFromPassword([]byte("pils og pizza"), bcrypt.MinCost+1)
	if err != nil {
		t.Fatalf("GenerateFromPassword: %v", err)
	}

	cfg.MaxVerifyCost = bcrypt.MinCost
	if _, err := cfg.Verify(string(h), "pils og pizza"); err != ErrInvalidHash {
		t.Fatalf("expected ErrInvalidHash, got %v", err)
	}
}

func TestValidate_MinMax(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Policy.MinLength = 6
	cfg.Policy.MaxLength = 16

	if err := cfg.Validate("short"); err != ErrPasswordTooShort {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
	if err := cfg.Validate("this password is definitely too long"); err != ErrPasswordTooLong {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
	if err := cfg.Validate("goodpassw0rd!"); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	// 30 runes but 75 bytes.
	cfg.Policy.MaxLength = MaxBytes
	if err := cfg.Validate(strings.Repeat("ø€", 15)); err != ErrPasswordTooLong {
		t.Fatalf("expected ErrPasswordTooLong for multi-byte input, got %v", err)
	}
}

func TestPolicy_RejectVeryWeak(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Policy.RejectVeryWeak = true

	for _, pw := range []string{"password", "11111111", "aaaaaaa", "123456"} {
		if err := cfg.Validate(pw); err != ErrWeakPassword {
			t.Fatalf("Validate(%q): expected ErrWeakPassword, got %v", pw, err)
		}
	}
	if err := cfg.Validate("a-very-ok-pass"); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}
