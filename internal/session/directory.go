// Package session authenticates users and manages their sessions.
//
// A session is created explicitly with Manager.Initialize and destroyed with
// Manager.Teardown. Callers receive an opaque bearer token; only a digest of
// the token is ever stored.
package session

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/p-n-ai/pai-grc/internal/mention"
)

// ErrInvalidCredentials is returned when a username/password pair does not match.
var ErrInvalidCredentials = errors.New("invalid credentials")

// User is a person who can sign in and be mentioned in comments.
type User struct {
	Username     string `yaml:"username" json:"username"`
	DisplayName  string `yaml:"display_name" json:"display_name,omitempty"`
	Email        string `yaml:"email" json:"email,omitempty"`
	PasswordHash string `yaml:"password_hash" json:"-"`

	// TelegramChatID links the user to a Telegram chat for notifications.
	TelegramChatID string `yaml:"telegram_chat_id" json:"-"`
}

// Directory is the read-only set of known users, keyed case-insensitively.
type Directory struct {
	users map[string]User
}

// NewDirectory indexes users by case-folded username.
func NewDirectory(users ...User) (*Directory, error) {
	d := &Directory{users: make(map[string]User, len(users))}
	for _, u := range users {
		if u.Username == "" {
			return nil, fmt.Errorf("user with empty username")
		}
		key := mention.Key(u.Username)
		if _, dup := d.users[key]; dup {
			return nil, fmt.Errorf("duplicate username %q", u.Username)
		}
		d.users[key] = u
	}
	return d, nil
}

// LoadDirectory reads users from a YAML file of the form
//
//	users:
//	  - username: alice
//	    password_hash: $2a$10$...
func LoadDirectory(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading users file: %w", err)
	}
	var doc struct {
		Users []User `yaml:"users"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing users file: %w", err)
	}
	return NewDirectory(doc.Users...)
}

// Lookup returns the user with the given username, ignoring case.
func (d *Directory) Lookup(username string) (User, bool) {
	u, ok := d.users[mention.Key(username)]
	return u, ok
}

// Has reports whether username is a known user.
func (d *Directory) Has(username string) bool {
	_, ok := d.Lookup(username)
	return ok
}

// Len returns the number of users.
func (d *Directory) Len() int {
	return len(d.users)
}

// TelegramChatID returns the linked Telegram chat for username, if any.
func (d *Directory) TelegramChatID(username string) (string, bool) {
	u, ok := d.Lookup(username)
	if !ok || u.TelegramChatID == "" {
		return "", false
	}
	return u.TelegramChatID, true
}

var (
	dummyHashOnce sync.Once
	dummyHashVal  []byte
)

// dummyHash is compared against when there is no real hash, so unknown
// usernames cost the same bcrypt work as known ones.
func dummyHash() []byte {
	dummyHashOnce.Do(func() {
		dummyHashVal, _ = bcrypt.GenerateFromPassword([]byte("grc-unknown-user"), bcrypt.DefaultCost)
	})
	return dummyHashVal
}

// Authenticate checks password against the user's bcrypt hash.
func (d *Directory) Authenticate(username, password string) (User, error) {
	u, ok := d.Lookup(username)
	if !ok || u.PasswordHash == "" {
		_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

// HashPassword returns a bcrypt hash suitable for the users file.
func HashPassword(password string, cost int) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(h), nil
}
