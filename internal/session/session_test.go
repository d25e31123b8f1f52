package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func testDirectory(t *testing.T) *Directory {
	t.Helper()
	hash, err := HashPassword("s3cret", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	d, err := NewDirectory(
		User{Username: "alice", DisplayName: "Alice Tan", PasswordHash: hash},
		User{Username: "bob_smith", DisplayName: "Bob Smith"},
	)
	if err != nil {
		t.Fatalf("NewDirectory() error = %v", err)
	}
	return d
}

func TestDirectory_Authenticate(t *testing.T) {
	d := testDirectory(t)

	tests := []struct {
		name     string
		username string
		password string
		wantErr  bool
	}{
		{"valid", "alice", "s3cret", false},
		{"case-insensitive username", "ALICE", "s3cret", false},
		{"wrong password", "alice", "nope", true},
		{"unknown user", "mallory", "s3cret", true},
		{"user without password", "bob_smith", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := d.Authenticate(tt.username, tt.password)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidCredentials) {
					t.Errorf("Authenticate() error = %v, want ErrInvalidCredentials", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Authenticate() error = %v", err)
			}
			if u.Username != "alice" {
				t.Errorf("Username = %q, want alice", u.Username)
			}
		})
	}
}

func TestDummyHash(t *testing.T) {
	h := dummyHash()
	if cost, err := bcrypt.Cost(h); err != nil || cost != bcrypt.DefaultCost {
		t.Fatalf("dummyHash() cost = %d, %v; want a bcrypt hash at DefaultCost", cost, err)
	}
	if err := bcrypt.CompareHashAndPassword(h, []byte("s3cret")); err == nil {
		t.Error("dummy hash must not match a real password")
	}
}

func TestDirectory_AuthenticateUnknownUserDoesBcryptWork(t *testing.T) {
	d := testDirectory(t)

	_, _ = d.Authenticate("alice", "s3cret")
	start := time.Now()
	_, _ = d.Authenticate("alice", "wrong")
	known := time.Since(start)

	start = time.Now()
	if _, err := d.Authenticate("mallory", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Authenticate(mallory) error = %v, want ErrInvalidCredentials", err)
	}
	unknown := time.Since(start)

	// testDirectory hashes at MinCost and the dummy uses DefaultCost, so the
	// unknown path can only be slower than a known user's check.
	if unknown < known {
		t.Errorf("unknown user took %v, known user %v; the unknown path skipped bcrypt", unknown, known)
	}
}

func TestNewDirectory_RejectsDuplicates(t *testing.T) {
	_, err := NewDirectory(User{Username: "alice"}, User{Username: "Alice"})
	if err == nil {
		t.Fatal("NewDirectory() should reject case-insensitive duplicate usernames")
	}
}

func TestLoadDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.yaml")
	os.WriteFile(path, []byte(`
users:
  - username: alice
    display_name: Alice Tan
    email: alice@example.com
  - username: carol
`), 0o644)

	d, err := LoadDirectory(path)
	if err != nil {
		t.Fatalf("LoadDirectory() error = %v", err)
	}
	if d.Len() != 2 {
		t.Errorf("Len() = %d, want 2", d.Len())
	}
	if !d.Has("Carol") {
		t.Error("Has(Carol) = false, want true")
	}
	u, _ := d.Lookup("alice")
	if u.Email != "alice@example.com" {
		t.Errorf("Email = %q, want alice@example.com", u.Email)
	}
}

func TestLoadDirectory_MissingFile(t *testing.T) {
	if _, err := LoadDirectory(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("LoadDirectory() should fail for a missing file")
	}
}

func TestManager_Lifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewManager(testDirectory(t), NewMemoryStore(), time.Hour)

	token, s, err := m.Initialize(ctx, "alice", "s3cret")
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if token == "" {
		t.Fatal("Initialize() returned empty token")
	}
	if s.Username != "alice" || s.DisplayName != "Alice Tan" {
		t.Errorf("session = %+v, want alice / Alice Tan", s)
	}

	got, err := m.Lookup(ctx, token)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if got.Username != "alice" {
		t.Errorf("Lookup().Username = %q, want alice", got.Username)
	}

	if err := m.Teardown(ctx, token); err != nil {
		t.Fatalf("Teardown() error = %v", err)
	}
	if _, err := m.Lookup(ctx, token); !errors.Is(err, ErrNoSession) {
		t.Errorf("Lookup() after Teardown error = %v, want ErrNoSession", err)
	}
	if err := m.Teardown(ctx, token); err != nil {
		t.Errorf("second Teardown() error = %v, want nil", err)
	}
}

func TestManager_InitializeRejectsBadPassword(t *testing.T) {
	m := NewManager(testDirectory(t), nil, time.Hour)

	_, _, err := m.Initialize(context.Background(), "alice", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Initialize() error = %v, want ErrInvalidCredentials", err)
	}
}

func TestManager_Expiry(t *testing.T) {
	ctx := context.Background()
	m := NewManager(testDirectory(t), NewMemoryStore(), time.Minute)

	start := time.Now()
	m.now = func() time.Time { return start }
	token, _, err := m.Initialize(ctx, "alice", "s3cret")
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	m.now = func() time.Time { return start.Add(2 * time.Minute) }
	if _, err := m.Lookup(ctx, token); !errors.Is(err, ErrNoSession) {
		t.Errorf("Lookup() after expiry error = %v, want ErrNoSession", err)
	}
}

func TestManager_LookupUnknownToken(t *testing.T) {
	m := NewManager(testDirectory(t), nil, time.Hour)

	for _, token := range []string{"", "not-a-token"} {
		if _, err := m.Lookup(context.Background(), token); !errors.Is(err, ErrNoSession) {
			t.Errorf("Lookup(%q) error = %v, want ErrNoSession", token, err)
		}
	}
}

func TestDigest(t *testing.T) {
	a := Digest("token-a")
	if a == Digest("token-b") {
		t.Error("different tokens produced the same digest")
	}
	if a != Digest("token-a") {
		t.Error("Digest() is not deterministic")
	}
	if len(a) != 64 {
		t.Errorf("len(Digest()) = %d, want 64 hex chars", len(a))
	}
}
