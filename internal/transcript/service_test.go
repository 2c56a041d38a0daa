package transcript

import (
	"context"
	"errors"
	"testing"
	"time"

	"tubedigest/internal/queue"
	"tubedigest/internal/services"
)

func isTransientForTest(err error) bool {
	return err != nil && !services.IsTerminal(err)
}

type fakeProvider struct {
	name    string
	results []func() (Result, error)
	calls   int
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Fetch(ctx context.Context, videoID string) (Result, error) {
	idx := p.calls
	if idx >= len(p.results) {
		idx = len(p.results) - 1
	}
	p.calls++
	return p.results[idx]()
}

func succeedWith(text string) func() (Result, error) {
	return func() (Result, error) { return Result{Text: text}, nil }
}

func failWith(err error) func() (Result, error) {
	return func() (Result, error) { return Result{}, err }
}

type fakeCache struct {
	entries map[string]*queue.CacheEntry
	sets    int
	clears  int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]*queue.CacheEntry)}
}

func (c *fakeCache) GetCacheEntry(ctx context.Context, videoID string) (*queue.CacheEntry, error) {
	return c.entries[videoID], nil
}

func (c *fakeCache) SetCacheEntry(ctx context.Context, videoID string, status queue.CacheStatus, reason string) error {
	c.sets++
	c.entries[videoID] = &queue.CacheEntry{VideoID: videoID, Status: status, Reason: reason, UpdatedAt: time.Now()}
	return nil
}

func (c *fakeCache) ClearCacheEntry(ctx context.Context, videoID string) error {
	c.clears++
	delete(c.entries, videoID)
	return nil
}

func fastPolicy(attempts int) services.RetryPolicy {
	return services.RetryPolicy{
		MaxAttempts: attempts,
		BaseDelay:   time.Millisecond,
		MaxDelay:    time.Millisecond,
		Sleep:       func(ctx context.Context, d time.Duration) error { return nil },
	}
}

func TestServiceReturnsFirstProviderSuccess(t *testing.T) {
	first := &fakeProvider{name: "one", results: []func() (Result, error){succeedWith("text one")}}
	second := &fakeProvider{name: "two", results: []func() (Result, error){succeedWith("text two")}}
	cache := newFakeCache()
	service := NewService([]Provider{first, second}, cache, fastPolicy(2), nil)

	result, err := service.Fetch(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if result.Text != "text one" {
		t.Fatalf("unexpected text: %q", result.Text)
	}
	if second.calls != 0 {
		t.Fatal("second provider must not run after a success")
	}
	if cache.clears != 1 {
		t.Fatalf("success must clear the cache, clears=%d", cache.clears)
	}
}

func TestServiceFallsThroughTerminalRefusals(t *testing.T) {
	first := &fakeProvider{name: "one", results: []func() (Result, error){failWith(ErrDisabled)}}
	second := &fakeProvider{name: "two", results: []func() (Result, error){succeedWith("rescued")}}
	service := NewService([]Provider{first, second}, newFakeCache(), fastPolicy(2), nil)

	result, err := service.Fetch(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if result.Text != "rescued" {
		t.Fatalf("unexpected text: %q", result.Text)
	}
	if first.calls != 1 {
		t.Fatalf("terminal refusal must not be retried, calls=%d", first.calls)
	}
}

func TestServiceRetriesTransientThenSucceeds(t *testing.T) {
	transient := services.Wrap(services.ErrTransient, "transcript", "fetch", "", errors.New("flaky network"))
	provider := &fakeProvider{name: "one", results: []func() (Result, error){
		failWith(transient),
		succeedWith("second try"),
	}}
	service := NewService([]Provider{provider}, newFakeCache(), fastPolicy(3), nil)

	result, err := service.Fetch(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if result.Text != "second try" {
		t.Fatalf("unexpected text: %q", result.Text)
	}
	if provider.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", provider.calls)
	}
}

func TestServiceCachesOnlyOnFullTerminalExhaustion(t *testing.T) {
	cache := newFakeCache()
	providers := []Provider{
		&fakeProvider{name: "one", results: []func() (Result, error){failWith(ErrDisabled)}},
		&fakeProvider{name: "two", results: []func() (Result, error){failWith(ErrNotFound)}},
	}
	service := NewService(providers, cache, fastPolicy(1), nil)

	_, err := service.Fetch(context.Background(), "abc123")
	if err == nil {
		t.Fatal("expected error")
	}
	if !services.IsTerminal(err) {
		t.Fatalf("expected terminal error, got %v", err)
	}
	if cache.sets != 1 {
		t.Fatalf("expected one cache write, got %d", cache.sets)
	}
	entry := cache.entries["abc123"]
	if entry == nil || entry.Status != queue.CacheTranscriptsDisabled {
		t.Fatalf("unexpected cache entry: %#v", entry)
	}
}

func TestServiceNeverCachesWithTransientFailure(t *testing.T) {
	cache := newFakeCache()
	transient := services.Wrap(services.ErrTransient, "transcript", "fetch", "", errors.New("timeout"))
	providers := []Provider{
		&fakeProvider{name: "one", results: []func() (Result, error){failWith(ErrDisabled)}},
		&fakeProvider{name: "two", results: []func() (Result, error){failWith(transient)}},
	}
	service := NewService(providers, cache, fastPolicy(1), nil)

	_, err := service.Fetch(context.Background(), "abc123")
	if err == nil {
		t.Fatal("expected error")
	}
	if cache.sets != 0 {
		t.Fatalf("transient failure must not write the cache, sets=%d", cache.sets)
	}
	if !isTransientForTest(err) {
		t.Fatalf("expected transient error surfaced, got %v", err)
	}
}

func TestServiceVideoUnavailableDominatesCacheStatus(t *testing.T) {
	cache := newFakeCache()
	providers := []Provider{
		&fakeProvider{name: "one", results: []func() (Result, error){failWith(ErrNotFound)}},
		&fakeProvider{name: "two", results: []func() (Result, error){failWith(ErrUnavailable)}},
	}
	service := NewService(providers, cache, fastPolicy(1), nil)

	if _, err := service.Fetch(context.Background(), "abc123"); err == nil {
		t.Fatal("expected error")
	}
	entry := cache.entries["abc123"]
	if entry == nil || entry.Status != queue.CacheVideoUnavailable {
		t.Fatalf("unexpected cache entry: %#v", entry)
	}
}

func TestServiceShortCircuitsOnMemoizedRefusal(t *testing.T) {
	cache := newFakeCache()
	cache.entries["abc123"] = &queue.CacheEntry{
		VideoID: "abc123",
		Status:  queue.CacheNotFound,
		Reason:  "no captions published",
	}
	provider := &fakeProvider{name: "one", results: []func() (Result, error){succeedWith("should not run")}}
	service := NewService([]Provider{provider}, cache, fastPolicy(1), nil)

	_, err := service.Fetch(context.Background(), "abc123")
	if !errors.Is(err, ErrCached) {
		t.Fatalf("expected ErrCached, got %v", err)
	}
	if provider.calls != 0 {
		t.Fatal("memoized refusal must skip providers entirely")
	}
	if !services.IsTerminal(err) {
		t.Fatal("memoized refusal must classify as terminal")
	}
}

func TestCacheStatusForPrecedence(t *testing.T) {
	if got := cacheStatusFor([]error{ErrNotFound}); got != queue.CacheNotFound {
		t.Fatalf("unexpected status: %s", got)
	}
	if got := cacheStatusFor([]error{ErrNotFound, ErrDisabled}); got != queue.CacheTranscriptsDisabled {
		t.Fatalf("unexpected status: %s", got)
	}
	if got := cacheStatusFor([]error{ErrDisabled, ErrUnavailable, ErrNotFound}); got != queue.CacheVideoUnavailable {
		t.Fatalf("unexpected status: %s", got)
	}
}
