package token

import (
	"encoding/base64"
	"testing"
)

func TestHash_KnownVector(t *testing.T) {
	var c Codec

	// sha256("abc")
	const want = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := c.Hash("abc"); got != want {
		t.Fatalf("Hash(abc)=%q want=%q", got, want)
	}
	if c.Hash("abc") != c.Hash("abc") {
		t.Fatalf("hash must be deterministic")
	}
}

func TestHash_KeyedModeDiffers(t *testing.T) {
	plain := Codec{}
	keyed, err := NewCodec([]byte("0123456789abcdef0123456789abcdef"), 0)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	if !keyed.Keyed() || plain.Keyed() {
		t.Fatalf("unexpected keyed flags")
	}

	a, b := plain.Hash("secret"), keyed.Hash("secret")
	if a == b {
		t.Fatalf("keyed hash must differ from plain hash")
	}
	if len(b) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(b))
	}
}

func TestNewSecret_EntropyAndUniqueness(t *testing.T) {
	c, err := NewCodec(nil, 0)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}

	seen := make(map[string]struct{}, 256)
	for i := 0; i < 256; i++ {
		s, err := c.NewSecret()
		if err != nil {
			t.Fatalf("NewSecret: %v", err)
		}
		raw, err := base64.RawURLEncoding.DecodeString(s)
		if err != nil {
			t.Fatalf("secret is not base64url: %v", err)
		}
		if len(raw)*8 < 128 {
			t.Fatalf("secret has %d bits, want >= 128", len(raw)*8)
		}
		if _, dup := seen[s]; dup {
			t.Fatalf("duplicate secret %q", s)
		}
		seen[s] = struct{}{}
	}
}

func TestNewCodec_RejectsShortSecrets(t *testing.T) {
	if _, err := NewCodec(nil, 8); err != ErrSecretTooShort {
		t.Fatalf("expected ErrSecretTooShort, got %v", err)
	}
}

func TestHMACKeyFromEnv(t *testing.T) {
	t.Setenv(HMACEnvKey, "")
	if _, err := HMACKeyFromEnv(MinHMACKeyBytes); err != ErrHMACKeyMissing {
		t.Fatalf("expected ErrHMACKeyMissing, got %v", err)
	}

	t.Setenv(HMACEnvKey, "short")
	if _, err := HMACKeyFromEnv(MinHMACKeyBytes); err != ErrHMACKeyTooShort {
		t.Fatalf("expected ErrHMACKeyTooShort, got %v", err)
	}

	t.Setenv(HMACEnvKey, "0123456789abcdef0123456789abcdef")
	c, err := CodecFromEnv(0)
	if err != nil {
		t.Fatalf("CodecFromEnv: %v", err)
	}
	if !c.Keyed() {
		t.Fatalf("expected keyed codec from env")
	}
}

func TestEqual(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{a: "s3cret", b: "s3cret", want: true},
		{a: "s3cret", b: "s3creT", want: false},
		{a: "s3cret", b: "s3cret-longer", want: false},
		{a: "", b: "", want: false},
	}
	for _, tc := range cases {
		if got := Equal(tc.a, tc.b); got != tc.want {
			t.Fatalf("Equal(%q,%q)=%v want=%v", tc.a, tc.b, got, tc.want)
		}
	}
}
