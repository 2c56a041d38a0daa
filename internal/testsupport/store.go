package testsupport

import (
	"context"
	"testing"

	"tubedigest/internal/config"
	"tubedigest/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedVideo inserts a feed-discovered video for tests using the provided store.
func SeedVideo(t testing.TB, store *queue.Store, videoID, title string) *queue.Item {
	t.Helper()

	created, err := store.NewFromFeed(context.Background(), videoID, "UCtest", "Test Channel", title, "20250101")
	if err != nil {
		t.Fatalf("store.NewFromFeed: %v", err)
	}
	if !created {
		t.Fatalf("video %s already present", videoID)
	}
	item, err := store.GetByID(context.Background(), videoID)
	if err != nil {
		t.Fatalf("store.GetByID: %v", err)
	}
	return item
}
