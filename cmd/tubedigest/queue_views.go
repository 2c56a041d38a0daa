package main

import (
	"strconv"
	"unicode/utf8"

	"tubedigest/internal/queue"
)

const listTitleWidth = 48

func buildQueueStatusRows(stats map[queue.Status]int) [][]string {
	rows := make([][]string, 0, len(stats))
	for _, status := range queue.AllStatuses() {
		count, ok := stats[status]
		if !ok || count == 0 {
			continue
		}
		rows = append(rows, []string{string(status), strconv.Itoa(count)})
	}
	return rows
}

func buildQueueListRows(items []*queue.Item) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			item.VideoID,
			truncateTitle(item.Title, listTitleWidth),
			item.ChannelName,
			string(item.Status),
			strconv.Itoa(item.RetryCount),
			item.CreatedAt.Format("2006-01-02 15:04"),
		})
	}
	return rows
}

func truncateTitle(title string, width int) string {
	if utf8.RuneCountInString(title) <= width {
		return title
	}
	runes := []rune(title)
	return string(runes[:width-1]) + "…"
}
