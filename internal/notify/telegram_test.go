package notify_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/p-n-ai/pai-grc/internal/notify"
)

func TestSplitMessage(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		maxLen    int
		wantParts int
	}{
		{"short", "Hello", 4096, 1},
		{"exact", "Hello", 5, 1},
		{"split-needed", "Hello World, this is a test", 10, 4},
		{"empty", "", 4096, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parts := notify.SplitMessage(tt.text, tt.maxLen)
			if len(parts) != tt.wantParts {
				t.Errorf("SplitMessage() = %d parts, want %d", len(parts), tt.wantParts)
			}
		})
	}
}

func TestSplitMessage_PartsNotExceedMax(t *testing.T) {
	text := "Vendor acme scored 42 on the annual assessment and now sits in the critical risk band."
	maxLen := 20
	for i, part := range notify.SplitMessage(text, maxLen) {
		if len(part) > maxLen {
			t.Errorf("part[%d] len=%d exceeds maxLen=%d: %q", i, len(part), maxLen, part)
		}
	}
}

func TestSplitMessage_MultibyteText(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		maxLen int
	}{
		{"euro signs without spaces", strings.Repeat("€", 3000), 4096},
		{"cjk without spaces", strings.Repeat("供应商风险评估", 700), 4096},
		{"four-byte runes", strings.Repeat("😀", 50), 10},
		{"ascii prefix shifts the boundary", "ab" + strings.Repeat("€", 20), 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parts := notify.SplitMessage(tt.text, tt.maxLen)
			for i, part := range parts {
				if len(part) > tt.maxLen {
					t.Errorf("part[%d] len=%d exceeds maxLen=%d", i, len(part), tt.maxLen)
				}
				if !utf8.ValidString(part) {
					t.Errorf("part[%d] (len %d) is not valid UTF-8", i, len(part))
				}
			}
			if got := strings.Join(parts, ""); got != tt.text {
				t.Error("joined parts differ from the input")
			}
		})
	}
}

func TestNewTelegramChannel_Validation(t *testing.T) {
	resolve := func(string) (string, bool) { return "", false }

	if _, err := notify.NewTelegramChannel("", resolve); err == nil {
		t.Error("NewTelegramChannel() should error with empty token")
	}
	if _, err := notify.NewTelegramChannel("test-token", nil); err == nil {
		t.Error("NewTelegramChannel() should error without a resolver")
	}
}

func TestTelegramChannel_Notify(t *testing.T) {
	var (
		mu    sync.Mutex
		forms []map[string]string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/sendMessage") {
			t.Errorf("path = %q, want .../sendMessage", r.URL.Path)
		}
		_ = r.ParseForm()
		mu.Lock()
		forms = append(forms, map[string]string{
			"chat_id": r.PostForm.Get("chat_id"),
			"text":    r.PostForm.Get("text"),
		})
		mu.Unlock()
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	chats := map[string]string{"alice": "1001"}
	ch, err := notify.NewTelegramChannel("test-token",
		func(u string) (string, bool) { id, ok := chats[u]; return id, ok },
		notify.WithTelegramBaseURL(srv.URL),
	)
	if err != nil {
		t.Fatalf("NewTelegramChannel() error = %v", err)
	}

	ctx := context.Background()
	if err := ch.Notify(ctx, notify.Notification{User: "alice", Title: "bob mentioned you", Body: "see vendor:acme"}); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	// Users without a linked chat are skipped silently.
	if err := ch.Notify(ctx, notify.Notification{User: "carol", Title: "hi"}); err != nil {
		t.Fatalf("Notify() for unlinked user error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(forms) != 1 {
		t.Fatalf("sendMessage calls = %d, want 1", len(forms))
	}
	if forms[0]["chat_id"] != "1001" {
		t.Errorf("chat_id = %q, want 1001", forms[0]["chat_id"])
	}
	if forms[0]["text"] != "bob mentioned you\n\nsee vendor:acme" {
		t.Errorf("text = %q", forms[0]["text"])
	}
}

func TestTelegramChannel_NotifyAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ok":false}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	ch, _ := notify.NewTelegramChannel("test-token",
		func(string) (string, bool) { return "1", true },
		notify.WithTelegramBaseURL(srv.URL),
	)
	if err := ch.Notify(context.Background(), notify.Notification{User: "alice", Title: "hi"}); err == nil {
		t.Error("Notify() should surface non-200 responses")
	}
}
