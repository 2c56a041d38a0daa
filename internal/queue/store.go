package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"tubedigest/internal/config"
)

// Store manages video persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the video database and verifies the schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.DatabasePath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// NewFromFeed inserts a freshly discovered video in the pending state. The
// insert is a no-op when the video is already tracked, making feed discovery
// idempotent; the bool reports whether a new row was created.
func (s *Store) NewFromFeed(ctx context.Context, videoID, channelID, channelName, title, uploadDate string) (bool, error) {
	return s.insert(ctx, videoID, channelID, channelName, title, uploadDate, SourceFeed)
}

// NewManual enqueues a single video outside of feed discovery.
func (s *Store) NewManual(ctx context.Context, videoID, title string) (bool, error) {
	return s.insert(ctx, videoID, "", "", title, "", SourceManual)
}

func (s *Store) insert(ctx context.Context, videoID, channelID, channelName, title, uploadDate, source string) (bool, error) {
	if strings.TrimSpace(videoID) == "" {
		return false, errors.New("video id is required")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.db.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO videos (
            video_id, channel_id, channel_name, title, upload_date,
            source, status, retry_count, email_sent, created_at, processed_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, 0, 0, ?, ?)`,
		videoID,
		channelID,
		nullableString(channelName),
		title,
		nullableString(uploadDate),
		source,
		StatusPending,
		now,
		now,
	)
	if err != nil {
		return false, fmt.Errorf("insert video: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return rows > 0, nil
}

// GetByID fetches a video by its identifier. Returns nil when absent.
func (s *Store) GetByID(ctx context.Context, videoID string) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM videos WHERE video_id = ?`, videoID)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get video: %w", err)
	}
	return item, nil
}

// Update persists the mutable fields of an item and refreshes processed_at.
func (s *Store) Update(ctx context.Context, item *Item) error {
	if item == nil {
		return errors.New("item is nil")
	}
	item.ProcessedAt = time.Now().UTC()

	res, err := s.db.ExecContext(
		ctx,
		`UPDATE videos SET
            channel_name = ?, title = ?, duration_seconds = ?, view_count = ?,
            upload_date = ?, status = ?, retry_count = ?, last_error = ?,
            summary_text = ?, summary_length = ?, email_sent = ?, processed_at = ?
        WHERE video_id = ?`,
		nullableString(item.ChannelName),
		item.Title,
		nullableInt(item.DurationSeconds),
		nullableInt(item.ViewCount),
		nullableString(item.UploadDate),
		item.Status,
		item.RetryCount,
		nullableString(item.LastError),
		nullableString(item.SummaryText),
		nullableInt(int64(item.SummaryLength)),
		boolToInt(item.EmailSent),
		item.ProcessedAt.Format(time.RFC3339Nano),
		item.VideoID,
	)
	if err != nil {
		return fmt.Errorf("update video: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("video %s not found", item.VideoID)
	}
	return nil
}

// Claim atomically transitions a retryable video to processing and counts the
// attempt. The transition is a compare-and-set against the status and retry
// count read here, so two workers racing for the same video see exactly one
// winner. Claims are refused once the retry count reaches ceiling; callers
// should then retire the video with MarkPermanent.
func (s *Store) Claim(ctx context.Context, videoID string, ceiling int) (*Item, bool, error) {
	item, err := s.GetByID(ctx, videoID)
	if err != nil {
		return nil, false, err
	}
	if item == nil {
		return nil, false, fmt.Errorf("video %s not found", videoID)
	}
	if !IsRetryable(item.Status) || item.RetryCount >= ceiling {
		return item, false, nil
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE videos SET status = ?, retry_count = retry_count + 1, processed_at = ?
        WHERE video_id = ? AND status = ? AND retry_count = ?`,
		StatusProcessing,
		now.Format(time.RFC3339Nano),
		videoID,
		item.Status,
		item.RetryCount,
	)
	if err != nil {
		return nil, false, fmt.Errorf("claim video: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		// Lost the race; another worker moved the video first.
		return item, false, nil
	}

	claimed := *item
	claimed.Status = StatusProcessing
	claimed.RetryCount = item.RetryCount + 1
	claimed.ProcessedAt = now
	return &claimed, true, nil
}

// ResetToPending returns a stuck video to the pending state without counting
// an attempt. Used by dead-worker recovery.
func (s *Store) ResetToPending(ctx context.Context, videoID, reason string) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE videos SET status = ?, last_error = ?, processed_at = ?
        WHERE video_id = ? AND status = ?`,
		StatusPending,
		nullableString(reason),
		time.Now().UTC().Format(time.RFC3339Nano),
		videoID,
		StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("reset video: %w", err)
	}
	if _, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	return nil
}

// MarkPermanent retires a video from the pipeline for good.
func (s *Store) MarkPermanent(ctx context.Context, videoID, reason string) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE videos SET status = ?, last_error = ?, processed_at = ?
        WHERE video_id = ?`,
		StatusFailedPermanent,
		nullableString(reason),
		time.Now().UTC().Format(time.RFC3339Nano),
		videoID,
	)
	if err != nil {
		return fmt.Errorf("mark permanent: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("video %s not found", videoID)
	}
	return nil
}

// Backlog returns every video eligible for processing, oldest first.
func (s *Store) Backlog(ctx context.Context) ([]*Item, error) {
	return s.List(ctx, StatusPending, StatusFailedTranscript, StatusFailedGeneration, StatusFailedDelivery)
}

// ListProcessing returns videos currently marked as in-flight.
func (s *Store) ListProcessing(ctx context.Context) ([]*Item, error) {
	return s.List(ctx, StatusProcessing)
}

// ItemsByStatus returns all videos in the given status ordered by creation time.
func (s *Store) ItemsByStatus(ctx context.Context, status Status) ([]*Item, error) {
	return s.List(ctx, status)
}

// List returns videos filtered to the provided statuses, oldest first. With no
// statuses it returns the entire table.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Item, error) {
	query := `SELECT ` + itemColumns + ` FROM videos`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY created_at ASC, video_id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// RetryFailed returns failed videos to pending and resets their attempt
// counters. With no ids it sweeps every retryable failure plus videos retired
// as failed_permanent.
func (s *Store) RetryFailed(ctx context.Context, videoIDs ...string) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	if len(videoIDs) == 0 {
		res, err := s.db.ExecContext(
			ctx,
			`UPDATE videos SET status = ?, retry_count = 0, last_error = NULL, processed_at = ?
            WHERE status IN (?, ?, ?, ?)`,
			StatusPending,
			now,
			StatusFailedTranscript,
			StatusFailedGeneration,
			StatusFailedDelivery,
			StatusFailedPermanent,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed videos: %w", err)
		}
		return res.RowsAffected()
	}

	args := []any{StatusPending, now}
	for _, id := range videoIDs {
		args = append(args, id)
	}
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE videos SET status = ?, retry_count = 0, last_error = NULL, processed_at = ?
        WHERE video_id IN (`+makePlaceholders(len(videoIDs))+`) AND status != 'processing'`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("retry selected videos: %w", err)
	}
	return res.RowsAffected()
}

// Remove deletes a single video and its cached transcript outcome.
func (s *Store) Remove(ctx context.Context, videoID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM videos WHERE video_id = ?`, videoID)
	if err != nil {
		return false, fmt.Errorf("remove video: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if rows > 0 {
		if err := s.ClearCacheEntry(ctx, videoID); err != nil {
			return true, err
		}
	}
	return rows > 0, nil
}

// ClearCompleted removes successfully delivered videos.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM videos WHERE status = ?`, StatusSuccess)
	if err != nil {
		return 0, fmt.Errorf("clear completed: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes every tracked video and cached transcript outcome.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM videos`)
	if err != nil {
		return 0, fmt.Errorf("clear videos: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM transcript_cache`); err != nil {
		return 0, fmt.Errorf("clear transcript cache: %w", err)
	}
	return res.RowsAffected()
}

// Stats returns a count of videos grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM videos GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("video stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health aggregates queue state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for status, count := range stats {
		health.Total += count
		switch status {
		case StatusPending:
			health.Pending += count
		case StatusProcessing:
			health.Processing += count
		case StatusSuccess:
			health.Success += count
		case StatusFailedPermanent:
			health.Permanent += count
		default:
			if IsRetryable(status) {
				health.Retryable += count
			}
		}
	}
	return health, nil
}

// CheckHealth returns diagnostic information about the video database.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{
		DBPath:        s.path,
		SchemaVersion: fmt.Sprintf("%d", schemaVersion),
	}

	if s.path == "" {
		return health, errors.New("database path is unknown")
	}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			health.DatabaseExists = false
			return health, nil
		}
		return health, fmt.Errorf("stat database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("database path %q is a directory", s.path)
	}
	health.DatabaseExists = true

	if s.db == nil {
		return health, errors.New("database connection unavailable")
	}

	connCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping database: %w", err)
	}
	health.DatabaseReadable = true

	var tableName string
	row := s.db.QueryRowContext(connCtx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'videos'")
	if err := row.Scan(&tableName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return health, nil
		}
		health.Error = err.Error()
		return health, fmt.Errorf("inspect schema: %w", err)
	}
	health.TableExists = true

	var integrity string
	if err := s.db.QueryRowContext(connCtx, "PRAGMA integrity_check").Scan(&integrity); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = strings.EqualFold(integrity, "ok")

	if err := s.db.QueryRowContext(connCtx, "SELECT COUNT(1) FROM videos").Scan(&health.TotalItems); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("count videos: %w", err)
	}

	return health, nil
}

const itemColumns = "video_id, channel_id, channel_name, title, duration_seconds, view_count, upload_date, source, status, retry_count, last_error, summary_text, summary_length, email_sent, created_at, processed_at"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		videoID       string
		channelID     string
		channelName   sql.NullString
		title         string
		duration      sql.NullInt64
		viewCount     sql.NullInt64
		uploadDate    sql.NullString
		source        sql.NullString
		statusStr     string
		retryCount    int
		lastError     sql.NullString
		summaryText   sql.NullString
		summaryLength sql.NullInt64
		emailSent     sql.NullInt64
		createdRaw    sql.NullString
		processedRaw  sql.NullString
	)

	if err := scanner.Scan(
		&videoID,
		&channelID,
		&channelName,
		&title,
		&duration,
		&viewCount,
		&uploadDate,
		&source,
		&statusStr,
		&retryCount,
		&lastError,
		&summaryText,
		&summaryLength,
		&emailSent,
		&createdRaw,
		&processedRaw,
	); err != nil {
		return nil, err
	}

	item := &Item{
		VideoID:         videoID,
		ChannelID:       channelID,
		ChannelName:     channelName.String,
		Title:           title,
		DurationSeconds: duration.Int64,
		ViewCount:       viewCount.Int64,
		UploadDate:      uploadDate.String,
		Source:          source.String,
		Status:          Status(statusStr),
		RetryCount:      retryCount,
		LastError:       lastError.String,
		SummaryText:     summaryText.String,
		SummaryLength:   int(summaryLength.Int64),
	}
	if emailSent.Valid {
		item.EmailSent = emailSent.Int64 != 0
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		item.CreatedAt = created
	}
	if processed, err := parseTimeString(processedRaw.String); err == nil {
		item.ProcessedAt = processed
	}
	return item, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
