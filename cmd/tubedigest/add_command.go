package main

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"tubedigest/internal/config"
	"tubedigest/internal/queue"
)

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "add <video-id-or-url>",
		Short: "Queue a video manually",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			videoID, err := parseVideoID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				created, err := store.NewManual(cmd.Context(), videoID, strings.TrimSpace(title))
				if err != nil {
					return err
				}
				if !created {
					fmt.Fprintf(cmd.OutOrStdout(), "Video %s is already queued\n", videoID)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued video %s\n", videoID)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Title to record for the video")
	return cmd
}

// parseVideoID accepts a bare 11-character video ID or any of the common
// watch URL shapes (watch?v=, youtu.be/, shorts/, embed/, live/).
func parseVideoID(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if videoIDPattern.MatchString(trimmed) {
		return trimmed, nil
	}

	candidate := trimmed
	if !strings.Contains(candidate, "://") {
		candidate = "https://" + candidate
	}
	parsed, err := url.Parse(candidate)
	if err != nil {
		return "", fmt.Errorf("invalid video reference %q", input)
	}

	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
	switch host {
	case "youtube.com", "m.youtube.com", "music.youtube.com":
		if id := parsed.Query().Get("v"); videoIDPattern.MatchString(id) {
			return id, nil
		}
		for _, prefix := range []string{"/shorts/", "/embed/", "/live/"} {
			if rest, ok := strings.CutPrefix(parsed.Path, prefix); ok {
				id := strings.SplitN(rest, "/", 2)[0]
				if videoIDPattern.MatchString(id) {
					return id, nil
				}
			}
		}
	case "youtu.be":
		id := strings.TrimPrefix(parsed.Path, "/")
		if videoIDPattern.MatchString(id) {
			return id, nil
		}
	}

	return "", fmt.Errorf("could not extract a video ID from %q", input)
}
