// Package transcript acquires caption text for queued videos.
//
// Acquisition runs as a cascade of providers tried in a fixed order: caption
// tracks scraped from the watch page, the public timedtext endpoint, then an
// optional hosted transcript API. Each provider gets its own bounded retry
// budget for transient failures. Permanent refusals (captions disabled,
// nothing published in a wanted language, video gone) are memoized in the
// transcript cache only when every provider refused permanently; a single
// transient failure anywhere keeps the cache untouched so the next attempt
// retries the network.
package transcript
