package identity

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"
)

func storesUnderTest(t *testing.T) map[string]Store {
	t.Helper()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "identity.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	lite, err := NewSQLiteStore(context.Background(), db)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": lite,
	}
}

func TestStore_CreateAndLookup(t *testing.T) {
	for name, st := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			u, err := st.CreateUser(ctx, CreateUserInput{
				Username:     " ola ",
				PasswordHash: "$2a$04$hash",
				Now:          time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			})
			if err != nil {
				t.Fatalf("CreateUser: %v", err)
			}
			if u.Username != "ola" || len(u.ID) != 26 {
				t.Fatalf("unexpected user: %+v", u)
			}

			c, err := st.Credentials(ctx, "ola")
			if err != nil {
				t.Fatalf("Credentials: %v", err)
			}
			if c.UserID != u.ID || c.PasswordHash != "$2a$04$hash" {
				t.Fatalf("unexpected credentials: %+v", c)
			}

			got, err := st.User(ctx, u.ID)
			if err != nil || got.Username != "ola" {
				t.Fatalf("User=%+v err=%v", got, err)
			}
		})
	}
}

func TestStore_Errors(t *testing.T) {
	for name, st := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			in := CreateUserInput{Username: "kari", PasswordHash: "h"}
			if _, err := st.CreateUser(ctx, in); err != nil {
				t.Fatalf("CreateUser: %v", err)
			}
			if _, err := st.CreateUser(ctx, in); !IsConflict(err) {
				t.Fatalf("expected conflict, got %v", err)
			}

			if _, err := st.CreateUser(ctx, CreateUserInput{Username: "no spaces", PasswordHash: "h"}); !IsInvalidInput(err) {
				t.Fatalf("expected invalid input, got %v", err)
			}
			if _, err := st.CreateUser(ctx, CreateUserInput{Username: "nohash"}); !IsInvalidInput(err) {
				t.Fatalf("expected invalid input, got %v", err)
			}

			if _, err := st.Credentials(ctx, "ghost"); !IsNotFound(err) {
				t.Fatalf("expected not found, got %v", err)
			}
			if _, err := st.User(ctx, "01HZZZZZZZZZZZZZZZZZZZZZZZ"); !IsNotFound(err) {
				t.Fatalf("expected not found, got %v", err)
			}
		})
	}
}

func TestValidUsername(t *testing.T) {
	cases := map[string]bool{
		"ab":       false,
		"abc":      true,
		"Ola123":   true,
		"ola nord": false,
		"øl":       false,
		"":         false,
	}
	for in, want := range cases {
		if got := ValidUsername(in); got != want {
			t.Fatalf("ValidUsername(%q)=%v want=%v", in, got, want)
		}
	}
}
