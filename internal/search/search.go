// Package search runs a full-text scan over a project tree.
package search

import (
	"strings"
	"time"

	"codeworkspace/internal/metrics"
	"codeworkspace/internal/vfs"
)

// Result is one matching line.
type Result struct {
	FileID   string `json:"fileId"`
	FileName string `json:"fileName"`
	Line     int    `json:"line"`
	Text     string `json:"text"`
}

// Search returns one Result per line containing query, ignoring case.
// Files are visited in DFS pre-order and lines are numbered from 1.
// An empty query matches nothing.
func Search(root *vfs.Node, query string) []Result {
	results := []Result{}
	if query == "" {
		return results
	}
	start := time.Now()
	needle := strings.ToLower(query)
	for _, file := range vfs.ListFiles(root) {
		for i, line := range strings.Split(file.Content, "\n") {
			if !strings.Contains(strings.ToLower(line), needle) {
				continue
			}
			results = append(results, Result{
				FileID:   file.ID,
				FileName: file.Name,
				Line:     i + 1,
				Text:     strings.TrimSpace(line),
			})
		}
	}
	metrics.RecordSearch(time.Since(start), len(results))
	return results
}
