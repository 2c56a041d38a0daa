package queue_test

import (
	"context"
	"testing"

	"tubedigest/internal/queue"
	"tubedigest/internal/testsupport"
)

func TestOpenCreatesSchemaAndInserts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	created, err := store.NewFromFeed(ctx, "abc123", "UCchan", "Chan", "First Video", "20250110")
	if err != nil {
		t.Fatalf("NewFromFeed failed: %v", err)
	}
	if !created {
		t.Fatal("expected first insert to create a row")
	}

	fetched, err := store.GetByID(ctx, "abc123")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched == nil || fetched.Title != "First Video" {
		t.Fatalf("unexpected fetched item: %#v", fetched)
	}
	if fetched.Status != queue.StatusPending {
		t.Fatalf("expected pending status, got %s", fetched.Status)
	}
	if fetched.RetryCount != 0 {
		t.Fatalf("expected zero retry count, got %d", fetched.RetryCount)
	}
	if fetched.Source != queue.SourceFeed {
		t.Fatalf("expected feed source, got %q", fetched.Source)
	}
}

func TestNewFromFeedIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if _, err := store.NewFromFeed(ctx, "abc123", "UCchan", "Chan", "First Video", "20250110"); err != nil {
		t.Fatalf("NewFromFeed failed: %v", err)
	}

	item, err := store.GetByID(ctx, "abc123")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	item.Status = queue.StatusSuccess
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	created, err := store.NewFromFeed(ctx, "abc123", "UCchan", "Chan", "First Video", "20250110")
	if err != nil {
		t.Fatalf("second NewFromFeed failed: %v", err)
	}
	if created {
		t.Fatal("re-discovery must not create a second row")
	}

	again, err := store.GetByID(ctx, "abc123")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if again.Status != queue.StatusSuccess {
		t.Fatalf("re-discovery must not reset status, got %s", again.Status)
	}
}

func TestNewFromFeedRequiresVideoID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	if _, err := store.NewFromFeed(context.Background(), "  ", "UCchan", "Chan", "Video", ""); err == nil {
		t.Fatal("expected error when video id missing")
	}
}

func TestClaimCountsAttemptAndClearsOnWin(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	testsupport.SeedVideo(t, store, "abc123", "Video")

	claimed, ok, err := store.Claim(ctx, "abc123", 3)
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if !ok {
		t.Fatal("expected claim to succeed")
	}
	if claimed.Status != queue.StatusProcessing {
		t.Fatalf("expected processing status, got %s", claimed.Status)
	}
	if claimed.RetryCount != 1 {
		t.Fatalf("expected retry count 1 after first claim, got %d", claimed.RetryCount)
	}

	// A second claim while processing must lose.
	_, ok, err = store.Claim(ctx, "abc123", 3)
	if err != nil {
		t.Fatalf("second Claim failed: %v", err)
	}
	if ok {
		t.Fatal("claim of a processing video must fail")
	}
}

func TestClaimRefusedAtRetryCeiling(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.SeedVideo(t, store, "xyz789", "Stubborn Video")
	item.Status = queue.StatusFailedTranscript
	item.RetryCount = 3
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	prior, ok, err := store.Claim(ctx, "xyz789", 3)
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if ok {
		t.Fatal("claim must be refused at the retry ceiling")
	}
	if prior.RetryCount != 3 {
		t.Fatalf("retry count must be unchanged, got %d", prior.RetryCount)
	}
}

func TestClaimRefusedForTerminalStatuses(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	for _, status := range []queue.Status{queue.StatusSuccess, queue.StatusFailedPermanent} {
		id := "vid-" + string(status)
		item := testsupport.SeedVideo(t, store, id, "Video")
		item.Status = status
		if err := store.Update(ctx, item); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if _, ok, err := store.Claim(ctx, id, 3); err != nil {
			t.Fatalf("Claim failed: %v", err)
		} else if ok {
			t.Fatalf("claim must be refused for status %s", status)
		}
	}
}

func TestResetToPendingKeepsRetryCount(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	testsupport.SeedVideo(t, store, "abc123", "Video")
	if _, ok, err := store.Claim(ctx, "abc123", 3); err != nil || !ok {
		t.Fatalf("Claim failed: ok=%v err=%v", ok, err)
	}

	if err := store.ResetToPending(ctx, "abc123", "worker crashed"); err != nil {
		t.Fatalf("ResetToPending failed: %v", err)
	}

	item, err := store.GetByID(ctx, "abc123")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if item.Status != queue.StatusPending {
		t.Fatalf("expected pending status, got %s", item.Status)
	}
	if item.RetryCount != 1 {
		t.Fatalf("stuck reset must not change retry count, got %d", item.RetryCount)
	}
	if item.LastError != "worker crashed" {
		t.Fatalf("expected recovery reason recorded, got %q", item.LastError)
	}
}

func TestMarkPermanent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	testsupport.SeedVideo(t, store, "abc123", "Video")
	if err := store.MarkPermanent(ctx, "abc123", "retry limit reached"); err != nil {
		t.Fatalf("MarkPermanent failed: %v", err)
	}

	item, err := store.GetByID(ctx, "abc123")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if item.Status != queue.StatusFailedPermanent {
		t.Fatalf("expected failed_permanent, got %s", item.Status)
	}
	if item.LastError != "retry limit reached" {
		t.Fatalf("expected reason recorded, got %q", item.LastError)
	}

	if err := store.MarkPermanent(ctx, "missing", "x"); err == nil {
		t.Fatal("expected error for unknown video")
	}
}

func TestBacklogOrdersOldestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	testsupport.SeedVideo(t, store, "vid1", "Oldest")
	testsupport.SeedVideo(t, store, "vid2", "Middle")
	testsupport.SeedVideo(t, store, "vid3", "Newest")

	mid, err := store.GetByID(ctx, "vid2")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	mid.Status = queue.StatusFailedDelivery
	if err := store.Update(ctx, mid); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	last, err := store.GetByID(ctx, "vid3")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	last.Status = queue.StatusSuccess
	if err := store.Update(ctx, last); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	backlog, err := store.Backlog(ctx)
	if err != nil {
		t.Fatalf("Backlog failed: %v", err)
	}
	if len(backlog) != 2 {
		t.Fatalf("expected 2 backlog items, got %d", len(backlog))
	}
	if backlog[0].VideoID != "vid1" || backlog[1].VideoID != "vid2" {
		t.Fatalf("unexpected backlog order: %s, %s", backlog[0].VideoID, backlog[1].VideoID)
	}
}

func TestUpdatePreservesSummaryOnDeliveryFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	testsupport.SeedVideo(t, store, "abc123", "Video")

	item, err := store.GetByID(ctx, "abc123")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	item.Status = queue.StatusSuccess
	item.SummaryText = "A fine summary."
	item.SummaryLength = len(item.SummaryText)
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	item.Status = queue.StatusFailedDelivery
	item.LastError = "smtp connect refused"
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	reloaded, err := store.GetByID(ctx, "abc123")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if reloaded.Status != queue.StatusFailedDelivery {
		t.Fatalf("expected failed_delivery, got %s", reloaded.Status)
	}
	if reloaded.SummaryText != "A fine summary." {
		t.Fatalf("summary text must survive delivery failure, got %q", reloaded.SummaryText)
	}
	if !reloaded.HasSummary() {
		t.Fatal("expected HasSummary to report true")
	}
}

func TestRetryFailedResetsCounters(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.SeedVideo(t, store, "abc123", "Video")
	item.Status = queue.StatusFailedPermanent
	item.RetryCount = 3
	item.LastError = "gave up"
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	count, err := store.RetryFailed(ctx)
	if err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 reset, got %d", count)
	}

	reloaded, err := store.GetByID(ctx, "abc123")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if reloaded.Status != queue.StatusPending || reloaded.RetryCount != 0 {
		t.Fatalf("expected pending with zero retries, got %s/%d", reloaded.Status, reloaded.RetryCount)
	}
	if reloaded.LastError != "" {
		t.Fatalf("expected error cleared, got %q", reloaded.LastError)
	}
}

func TestStatsAndHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	testsupport.SeedVideo(t, store, "vid1", "One")
	two := testsupport.SeedVideo(t, store, "vid2", "Two")
	two.Status = queue.StatusFailedTranscript
	if err := store.Update(ctx, two); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	three := testsupport.SeedVideo(t, store, "vid3", "Three")
	three.Status = queue.StatusSuccess
	if err := store.Update(ctx, three); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats[queue.StatusPending] != 1 || stats[queue.StatusFailedTranscript] != 1 || stats[queue.StatusSuccess] != 1 {
		t.Fatalf("unexpected stats: %#v", stats)
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if health.Total != 3 || health.Pending != 1 || health.Retryable != 1 || health.Success != 1 {
		t.Fatalf("unexpected health: %#v", health)
	}
}

func TestCheckHealthReportsDatabaseState(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	testsupport.SeedVideo(t, store, "vid1", "One")

	health, err := store.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable || !health.TableExists {
		t.Fatalf("unexpected health: %#v", health)
	}
	if !health.IntegrityCheck {
		t.Fatal("expected integrity check to pass")
	}
	if health.TotalItems != 1 {
		t.Fatalf("expected 1 item, got %d", health.TotalItems)
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := queue.ParseStatus(" Failed_Transcript "); !ok || status != queue.StatusFailedTranscript {
		t.Fatalf("unexpected parse result: %s %v", status, ok)
	}
	if _, ok := queue.ParseStatus("bogus"); ok {
		t.Fatal("expected unknown status to be rejected")
	}
	if _, ok := queue.ParseStatus(""); ok {
		t.Fatal("expected empty status to be rejected")
	}
}

func TestClearRemovesVideosAndCache(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	testsupport.SeedVideo(t, store, "vid1", "One")
	if err := store.SetCacheEntry(ctx, "vid1", queue.CacheNotFound, "no captions published"); err != nil {
		t.Fatalf("SetCacheEntry failed: %v", err)
	}

	count, err := store.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 removed, got %d", count)
	}

	entry, err := store.GetCacheEntry(ctx, "vid1")
	if err != nil {
		t.Fatalf("GetCacheEntry failed: %v", err)
	}
	if entry != nil {
		t.Fatalf("expected cache cleared, got %#v", entry)
	}
}
