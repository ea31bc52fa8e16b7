package progress

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

func TestPublishWithoutListenersIsNoop(t *testing.T) {
	hub := NewHub(zerolog.Nop(), 4)
	hub.Publish("nobody", Stage("audio", 0, "", nil))
	if hub.Listeners("nobody") != 0 {
		t.Fatalf("listeners = %d", hub.Listeners("nobody"))
	}
	if hub.Dropped() != 0 {
		t.Fatalf("dropped = %d", hub.Dropped())
	}
}

func TestPublishIsOwnerScopedAndOrdered(t *testing.T) {
	hub := NewHub(zerolog.Nop(), 16)
	alice := hub.Subscribe("alice")
	alice2 := hub.Subscribe("alice")
	bob := hub.Subscribe("bob")
	defer alice.Close()
	defer alice2.Close()
	defer bob.Close()

	for i := 0; i <= 4; i++ {
		hub.Publish("alice", Stage("scenes", float64(i*25), "", map[string]any{"jobId": "j1"}))
	}

	for _, sub := range []*Subscription{alice, alice2} {
		for i := 0; i <= 4; i++ {
			msg := <-sub.C()
			if msg.Progress != float64(i*25) {
				t.Fatalf("message %d progress = %v", i, msg.Progress)
			}
			if msg.JobID() != "j1" {
				t.Fatalf("job id = %q", msg.JobID())
			}
		}
	}
	select {
	case msg := <-bob.C():
		t.Fatalf("bob received %+v", msg)
	default:
	}
}

func TestSlowListenerDropsInsteadOfBlocking(t *testing.T) {
	hub := NewHub(zerolog.Nop(), 1)
	sub := hub.Subscribe("alice")
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			hub.Publish("alice", Stage("audio", float64(i), "", nil))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("publish blocked on a full listener")
	}
	if hub.Dropped() != 4 {
		t.Fatalf("dropped = %d, want 4", hub.Dropped())
	}
	if msg := <-sub.C(); msg.Progress != 0 {
		t.Fatalf("first message progress = %v", msg.Progress)
	}
}

func TestSubscriptionCloseIsIdempotent(t *testing.T) {
	hub := NewHub(zerolog.Nop(), 1)
	sub := hub.Subscribe("alice")
	sub.Close()
	sub.Close()
	if _, ok := <-sub.C(); ok {
		t.Fatalf("channel should be closed")
	}
	if hub.Listeners("alice") != 0 {
		t.Fatalf("listeners = %d", hub.Listeners("alice"))
	}
	hub.Publish("alice", Complete(nil))
}

func TestConcurrentPublishAndUnsubscribe(t *testing.T) {
	hub := NewHub(zerolog.Nop(), 2)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			sub := hub.Subscribe("alice")
			time.Sleep(time.Millisecond)
			sub.Close()
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				hub.Publish("alice", Stage("script", 0, "", nil))
			}
		}()
	}
	wg.Wait()
	if hub.Listeners("alice") != 0 {
		t.Fatalf("listeners = %d", hub.Listeners("alice"))
	}
}

func TestMessageBuilders(t *testing.T) {
	if msg := Stage("audio", 140, "", nil); msg.Progress != 100 {
		t.Fatalf("clamped progress = %v", msg.Progress)
	}
	if msg := Error("boom", nil); !msg.Terminal() || msg.Stage != StageError {
		t.Fatalf("error message = %+v", msg)
	}
	if msg := Complete(nil); !msg.Terminal() || msg.Progress != 100 {
		t.Fatalf("complete message = %+v", msg)
	}
	if Stage("audio", 50, "", nil).Terminal() {
		t.Fatalf("stage message reported terminal")
	}
}

func TestServeWSStreamsOwnerMessages(t *testing.T) {
	hub := NewHub(zerolog.Nop(), 8)
	ownerOf := func(ctx context.Context) string { return ownerFromTest(ctx) }
	handler := ServeWS(hub, zerolog.Nop(), NewUpgrader([]string{"*"}), ownerOf)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), testOwnerKey{}, r.URL.Query().Get("owner"))
		handler(w, r.WithContext(ctx))
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?owner=alice"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Listeners("alice") == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("listener never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.Publish("bob", Stage("audio", 0, "", nil))
	hub.Publish("alice", Complete(map[string]any{"jobId": "j1"}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Stage != StageComplete || msg.JobID() != "j1" {
		t.Fatalf("unexpected message %+v", msg)
	}

	_ = conn.Close()
	deadline = time.Now().Add(2 * time.Second)
	for hub.Listeners("alice") != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("listener not removed after disconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestServeWSRejectsAnonymous(t *testing.T) {
	hub := NewHub(zerolog.Nop(), 8)
	handler := ServeWS(hub, zerolog.Nop(), NewUpgrader(nil), func(context.Context) string { return "" })
	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/v1/progress", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

type testOwnerKey struct{}

func ownerFromTest(ctx context.Context) string {
	v, _ := ctx.Value(testOwnerKey{}).(string)
	return v
}
