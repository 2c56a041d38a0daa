package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetCacheEntry returns the memoized transcript outcome for a video, or nil
// when no source has permanently refused it yet.
func (s *Store) GetCacheEntry(ctx context.Context, videoID string) (*CacheEntry, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT video_id, status, reason, updated_at FROM transcript_cache WHERE video_id = ?`,
		videoID,
	)

	var (
		id         string
		status     string
		reason     sql.NullString
		updatedRaw sql.NullString
	)
	if err := row.Scan(&id, &status, &reason, &updatedRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cache entry: %w", err)
	}

	entry := &CacheEntry{
		VideoID: id,
		Status:  CacheStatus(status),
		Reason:  reason.String,
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		entry.UpdatedAt = updated
	}
	return entry, nil
}

// SetCacheEntry records that every transcript source permanently refused the
// video. Callers must only write after full-cascade exhaustion; a transient
// failure anywhere in the cascade leaves the cache untouched.
func (s *Store) SetCacheEntry(ctx context.Context, videoID string, status CacheStatus, reason string) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO transcript_cache (video_id, status, reason, updated_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT(video_id) DO UPDATE SET status = excluded.status,
            reason = excluded.reason, updated_at = excluded.updated_at`,
		videoID,
		status,
		nullableString(reason),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("set cache entry: %w", err)
	}
	return nil
}

// ClearCacheEntry drops the memoized outcome so the next attempt hits the
// sources again.
func (s *Store) ClearCacheEntry(ctx context.Context, videoID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM transcript_cache WHERE video_id = ?`, videoID); err != nil {
		return fmt.Errorf("clear cache entry: %w", err)
	}
	return nil
}
