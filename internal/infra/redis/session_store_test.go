package redis

import (
	"math/rand"
	"testing"
	"time"

	"quizbank-service/internal/app"
	"quizbank-service/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestSessionStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewSessionStore(client, time.Minute)

	session := app.NewSession("s1", "alice", domain.ModeFresh, nil, 1, nil, rand.New(rand.NewSource(1)))
	store.Put("s1", session)
	if !mr.Exists("quiz:session:s1") {
		t.Fatalf("expected redis liveness key to be set")
	}
	if got, err := mr.Get("quiz:session:s1"); err != nil || got != "alice" {
		t.Fatalf("expected liveness key to carry the user, got %q err=%v", got, err)
	}

	if got, ok := store.Get("s1"); !ok || got != session {
		t.Fatalf("expected local session back")
	}

	store.Delete("s1")
	if mr.Exists("quiz:session:s1") {
		t.Fatalf("expected redis key removed")
	}
	if _, ok := store.Get("s1"); ok {
		t.Fatalf("expected local session removed")
	}
}
