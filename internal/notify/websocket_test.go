package notify_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/p-n-ai/pai-grc/internal/notify"
)

func TestHub_DeliversToConnectedUser(t *testing.T) {
	hub := notify.NewHub()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r, r.URL.Query().Get("user"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?user=Alice"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	waitFor(t, func() bool { return hub.Connections("alice") == 1 })

	want := notify.Notification{User: "alice", Kind: "mention", Title: "bob mentioned you"}
	if err := hub.Notify(ctx, want); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}

	var got notify.Notification
	if err := wsjson.Read(ctx, conn, &got); err != nil {
		t.Fatalf("wsjson.Read() error = %v", err)
	}
	if got.Title != want.Title || got.Kind != want.Kind {
		t.Errorf("got %+v, want %+v", got, want)
	}

	conn.Close(websocket.StatusNormalClosure, "bye")
	waitFor(t, func() bool { return hub.Connections("alice") == 0 })
}

func TestHub_NotifyWithoutConnections(t *testing.T) {
	hub := notify.NewHub()
	if err := hub.Notify(context.Background(), notify.Notification{User: "nobody", Title: "hi"}); err != nil {
		t.Errorf("Notify() error = %v, want nil", err)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
