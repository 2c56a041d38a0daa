package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a queued video.
type Status string

const (
	StatusPending          Status = "pending"
	StatusProcessing       Status = "processing"
	StatusSuccess          Status = "success"
	StatusFailedTranscript Status = "failed_transcript"
	StatusFailedGeneration Status = "failed_generation"
	StatusFailedDelivery   Status = "failed_delivery"
	StatusFailedPermanent  Status = "failed_permanent"
)

// Source values record how a video entered the queue.
const (
	SourceFeed   = "feed"
	SourceManual = "manual"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusSuccess,
	StatusFailedTranscript,
	StatusFailedGeneration,
	StatusFailedDelivery,
	StatusFailedPermanent,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// retryableStatuses are the states a worker may claim for another attempt.
var retryableStatuses = map[Status]struct{}{
	StatusPending:          {},
	StatusFailedTranscript: {},
	StatusFailedGeneration: {},
	StatusFailedDelivery:   {},
}

// terminalStatuses never re-enter the pipeline.
var terminalStatuses = map[Status]struct{}{
	StatusSuccess:         {},
	StatusFailedPermanent: {},
}

// Item represents a video persisted in SQLite.
type Item struct {
	VideoID         string
	ChannelID       string
	ChannelName     string
	Title           string
	DurationSeconds int64
	ViewCount       int64
	UploadDate      string
	Source          string
	Status          Status
	RetryCount      int
	LastError       string
	SummaryText     string
	SummaryLength   int
	EmailSent       bool
	CreatedAt       time.Time
	ProcessedAt     time.Time
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsRetryable reports whether a status may be claimed for another attempt.
func IsRetryable(status Status) bool {
	_, ok := retryableStatuses[status]
	return ok
}

// IsTerminal reports whether a status permanently ends processing.
func IsTerminal(status Status) bool {
	_, ok := terminalStatuses[status]
	return ok
}

// HasSummary reports whether a prior attempt already produced summary text,
// meaning only delivery needs to be repeated.
func (i Item) HasSummary() bool {
	return strings.TrimSpace(i.SummaryText) != ""
}

// WatchURL returns the public watch-page address for the video.
func (i Item) WatchURL() string {
	return "https://www.youtube.com/watch?v=" + i.VideoID
}

// HealthSummary describes aggregated queue counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Retryable  int
	Permanent  int
	Success    int
}

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    string
	TableExists      bool
	IntegrityCheck   bool
	TotalItems       int
	Error            string
}

// CacheStatus enumerates the permanent transcript outcomes worth memoizing.
type CacheStatus string

const (
	CacheTranscriptsDisabled CacheStatus = "transcripts_disabled"
	CacheNotFound            CacheStatus = "not_found"
	CacheVideoUnavailable    CacheStatus = "video_unavailable"
)

// CacheEntry records that every transcript source permanently refused a video.
type CacheEntry struct {
	VideoID   string
	Status    CacheStatus
	Reason    string
	UpdatedAt time.Time
}
