// Package queue persists videos in SQLite and exposes helpers for driving
// their lifecycle from discovery through delivery.
//
// The Store manages database connections, schema initialization, claim
// semantics for concurrent workers, stats queries, and the status transitions
// that mirror the public pipeline enum. It also owns the transcript outcome
// cache, a per-video memo that records when every transcript source has
// permanently refused a video so later cycles can skip the network entirely.
//
// The database is treated as transient storage for in-flight jobs rather than
// a long-term archive. Schema changes bump the version in schema.go; users
// clear the database to adopt the new schema.
//
// Treat this package as the single source of truth for queue semantics; when
// you add new statuses or metadata fields, update schema.sql and bump
// schemaVersion.
package queue
