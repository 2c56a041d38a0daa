// Command tubedigest monitors YouTube channel feeds, fetches transcripts for
// new videos, generates AI summaries, and emails them to a configured
// recipient. Subcommands run a single pipeline cycle, host the long-running
// daemon, and inspect or manage the queue.
package main
