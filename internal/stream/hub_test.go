package stream

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func TestHubBroadcastLocal(t *testing.T) {
	hub := NewHub(nil, zap.NewNop())
	client := hub.Register("user-1")
	defer hub.Unregister(client)

	hub.Broadcast("user-1", []byte("hello"))

	select {
	case msg := <-client.Send:
		if string(msg) != "hello" {
			t.Fatalf("unexpected message")
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("timeout waiting for message")
	}
}

func TestHubBroadcastIsolatesUsers(t *testing.T) {
	hub := NewHub(nil, zap.NewNop())
	other := hub.Register("user-2")
	defer hub.Unregister(other)

	hub.Broadcast("user-1", []byte("hello"))

	select {
	case <-other.Send:
		t.Fatalf("event leaked to another user")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestChannelHelpers(t *testing.T) {
	ch := eventChannel("user-1")
	if ch != "trips:user-1:events" {
		t.Fatalf("unexpected channel: %s", ch)
	}
	if userIDFromChannel(ch) != "user-1" {
		t.Fatalf("unexpected user id")
	}
	if userIDFromChannel("bad") != "" {
		t.Fatalf("expected empty user id")
	}
}

func TestUnregisterCloses(t *testing.T) {
	hub := NewHub(nil, zap.NewNop())
	client := hub.Register("user-3")
	hub.Unregister(client)
	_, ok := <-client.Send
	if ok {
		t.Fatalf("expected channel closed")
	}
}

func TestHubRedisRoundTrip(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	hub := NewHub(client, zap.NewNop())
	ws := hub.Register("user-redis")
	defer hub.Unregister(ws)

	// Let the pattern subscription establish before publishing.
	time.Sleep(50 * time.Millisecond)
	hub.Broadcast("user-redis", []byte("ping"))

	select {
	case msg := <-ws.Send:
		if string(msg) != "ping" {
			t.Fatalf("unexpected message")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timeout waiting for broadcast")
	}

	// A publish from another instance reaches local clients too.
	if err := client.Publish(context.Background(), "trips:user-redis:events", "pong").Err(); err != nil {
		t.Fatalf("publish error: %v", err)
	}
	select {
	case msg := <-ws.Send:
		if string(msg) != "pong" {
			t.Fatalf("unexpected message from redis")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timeout waiting for redis message")
	}
}

func TestHubRedisDownFallsBackToLocal(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	server.Close()
	defer client.Close()

	hub := NewHub(client, zap.NewNop())
	ws := hub.Register("user-bad")
	defer hub.Unregister(ws)

	hub.Broadcast("user-bad", []byte("ping"))

	select {
	case msg := <-ws.Send:
		if string(msg) != "ping" {
			t.Fatalf("unexpected message")
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("expected local fallback delivery")
	}
}
