// Package comment stores discussion threads on GRC resources and notifies
// the users mentioned in them.
package comment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/p-n-ai/pai-grc/internal/audit"
	"github.com/p-n-ai/pai-grc/internal/mention"
	"github.com/p-n-ai/pai-grc/internal/notify"
)

// ErrInvalidComment marks comments missing a resource, author or body.
var ErrInvalidComment = errors.New("invalid comment")

// maxBodyLen bounds a comment body in bytes.
const maxBodyLen = 10000

// Comment is a message posted on a resource such as "vendor:acme".
type Comment struct {
	ID        string    `json:"id"`
	Resource  string    `json:"resource"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	Mentions  []string  `json:"mentions"`
	CreatedAt time.Time `json:"created_at"`

	// Notified lists the known users a notification was sent to. It is
	// only populated on the comment returned by Post.
	Notified []string `json:"notified,omitempty"`
}

// Directory resolves mentioned usernames to known users.
type Directory interface {
	Has(username string) bool
}

// Service posts comments and fans out mention notifications.
type Service struct {
	store    Store
	users    Directory
	notifier notify.Notifier
	audit    audit.Logger
}

// NewService creates a comment service. A nil notifier or audit logger
// disables that side effect.
func NewService(store Store, users Directory, notifier notify.Notifier, logger audit.Logger) *Service {
	if store == nil {
		store = NewMemoryStore()
	}
	if logger == nil {
		logger = audit.NopLogger{}
	}
	return &Service{store: store, users: users, notifier: notifier, audit: logger}
}

// Post validates and stores a comment, then notifies each distinct known
// user it mentions. Unknown handles stay on the comment but are not notified.
func (s *Service) Post(ctx context.Context, resource, author, body string) (Comment, error) {
	body = strings.TrimSpace(body)
	switch {
	case resource == "":
		return Comment{}, fmt.Errorf("%w: resource is required", ErrInvalidComment)
	case author == "":
		return Comment{}, fmt.Errorf("%w: author is required", ErrInvalidComment)
	case body == "":
		return Comment{}, fmt.Errorf("%w: body is required", ErrInvalidComment)
	case len(body) > maxBodyLen:
		return Comment{}, fmt.Errorf("%w: body exceeds %d bytes", ErrInvalidComment, maxBodyLen)
	}

	mentions := mention.Extract(body)
	if mentions == nil {
		mentions = []string{}
	}

	c, err := s.store.Add(ctx, Comment{
		Resource: resource,
		Author:   author,
		Body:     body,
		Mentions: mentions,
	})
	if err != nil {
		return Comment{}, fmt.Errorf("saving comment: %w", err)
	}

	if err := s.audit.Log(ctx, audit.Event{
		Actor:    author,
		Action:   "comment.posted",
		Resource: resource,
		Data: map[string]any{
			"comment_id": c.ID,
			"mentions":   mentions,
		},
	}); err != nil {
		slog.Warn("failed to log audit event", "comment_id", c.ID, "error", err)
	}

	c.Notified = s.notifyMentioned(ctx, c)

	slog.Info("comment posted",
		"comment_id", c.ID,
		"resource", resource,
		"author", author,
		"mentions", len(mentions),
		"notified", len(c.Notified),
	)
	return c, nil
}

// List returns the comments on resource, oldest first.
func (s *Service) List(ctx context.Context, resource string) ([]Comment, error) {
	return s.store.List(ctx, resource)
}

func (s *Service) notifyMentioned(ctx context.Context, c Comment) []string {
	var notified []string
	for _, username := range mention.Unique(c.Mentions) {
		if s.users == nil || !s.users.Has(username) {
			continue
		}
		if mention.Key(username) == mention.Key(c.Author) {
			continue
		}
		notified = append(notified, username)
		if s.notifier == nil {
			continue
		}
		err := s.notifier.Notify(ctx, notify.Notification{
			User:     username,
			Kind:     "mention",
			Title:    fmt.Sprintf("%s mentioned you on %s", c.Author, c.Resource),
			Body:     c.Body,
			Resource: c.Resource,
		})
		if err != nil {
			slog.Warn("mention notification failed", "user", username, "comment_id", c.ID, "error", err)
		}
	}
	return notified
}
