package ingest

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileError records one payload file that could not be processed.
type FileError struct {
	File string `json:"file"`
	Err  string `json:"error"`
}

// Summary aggregates a batch run over a payload directory.
type Summary struct {
	Files     int         `json:"files"`     // JSON files seen
	Processed int         `json:"processed"` // files processed as payloads
	Skipped   int         `json:"skipped"`   // files that were not webhook payloads
	Messages  int         `json:"messages"`
	Statuses  int         `json:"statuses"`
	Failures  []Failure   `json:"failures,omitempty"`
	Errors    []FileError `json:"errors,omitempty"`
}

// ProcessDir ingests every *.json file under dir, recursively. Files are
// isolated from each other: an unreadable or malformed file is recorded
// and the run continues. Re-running over the same directory is idempotent.
func (m *Merger) ProcessDir(ctx context.Context, dir string) (Summary, error) {
	var summary Summary

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".json") {
			return nil
		}

		summary.Files++
		name := filepath.Base(path)

		data, err := os.ReadFile(path)
		if err != nil {
			m.logger.Error().Err(err).Str("file", name).Msg("cannot read payload file")
			summary.Errors = append(summary.Errors, FileError{File: name, Err: err.Error()})
			return nil
		}

		payload, err := ParsePayload(data)
		if err != nil {
			if errors.Is(err, ErrNotWebhookPayload) {
				m.logger.Warn().Str("file", name).Msg("not a webhook payload, skipping")
				summary.Skipped++
				return nil
			}
			m.logger.Error().Err(err).Str("file", name).Msg("cannot parse payload file")
			summary.Errors = append(summary.Errors, FileError{File: name, Err: err.Error()})
			return nil
		}

		res := m.Process(ctx, payload, name)
		summary.Processed++
		summary.Messages += res.Messages
		summary.Statuses += res.Statuses
		summary.Failures = append(summary.Failures, res.Failures...)

		m.logger.Info().
			Str("file", name).
			Int("messages", res.Messages).
			Int("statuses", res.Statuses).
			Int("failures", len(res.Failures)).
			Msg("processed payload file")
		return nil
	})

	return summary, err
}
