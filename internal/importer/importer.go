// Package importer ingests message batches exported from external
// collaboration platforms. Imported records flow through the same
// CreateMessage path as normal sends, tagged with a provenance marker.
package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/seamlabs/weave/internal/store"
	"github.com/seamlabs/weave/internal/types"
)

// Record is one imported message tuple before mapping.
type Record struct {
	Author    string
	Body      string
	CreatedAt time.Time
}

// Importer writes imported batches into the store.
type Importer struct {
	store store.Store
	log   *slog.Logger
}

// New creates an importer over the given store.
func New(s store.Store, log *slog.Logger) *Importer {
	if log == nil {
		log = slog.Default()
	}
	return &Importer{store: s, log: log}
}

// Result summarizes one ingestion run.
type Result struct {
	Imported int
	Skipped  int
}

// Ingest maps records into outgoing messages and writes them. Source is
// the provenance marker (e.g. "slack"). Records with an empty body are
// skipped, not fatal; a failed write aborts the run.
func (i *Importer) Ingest(ctx context.Context, channelID, source string, records []Record) (Result, error) {
	var res Result
	for idx, rec := range records {
		body := strings.TrimSpace(rec.Body)
		if body == "" {
			res.Skipped++
			continue
		}
		createdAt := rec.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}

		payload := types.OutgoingMessage{
			// Deterministic client id so a re-run of the same export
			// deduplicates instead of double-importing.
			ClientID:     fmt.Sprintf("%s-%s-%d-%d", source, channelID, createdAt.UnixMilli(), idx),
			ChannelID:    channelID,
			AuthorID:     rec.Author,
			Body:         body,
			CreatedAt:    createdAt,
			ImportedFrom: source,
		}
		if _, err := i.store.CreateMessage(ctx, payload); err != nil {
			return res, fmt.Errorf("import record %d: %w", idx, err)
		}
		res.Imported++
	}

	i.log.Info("import finished", "source", source, "channel", channelID,
		"imported", res.Imported, "skipped", res.Skipped)
	return res, nil
}

// IngestFile parses a Slack-style CSV export and ingests it.
func (i *Importer) IngestFile(ctx context.Context, channelID, source, path string) (Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open export: %w", err)
	}
	defer file.Close()

	records, err := ParseCSV(file)
	if err != nil {
		return Result{}, err
	}
	return i.Ingest(ctx, channelID, source, records)
}

// ParseCSV reads a Slack-style export with at least the columns
// "user", "text" and "ts" (unix seconds, fractional allowed). Unknown
// columns are ignored; rows missing a timestamp keep zero time.
func ParseCSV(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	columns := make(map[string]int)
	for idx, col := range header {
		columns[strings.TrimSpace(strings.ToLower(col))] = idx
	}
	for _, required := range []string{"user", "text"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("required column %q not found in export", required)
		}
	}

	var records []Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		rec := Record{
			Author: field(row, columns, "user"),
			Body:   field(row, columns, "text"),
		}
		if raw := field(row, columns, "ts"); raw != "" {
			if ts, err := strconv.ParseFloat(raw, 64); err == nil {
				sec := int64(ts)
				nsec := int64((ts - float64(sec)) * 1e9)
				rec.CreatedAt = time.Unix(sec, nsec).UTC()
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func field(row []string, columns map[string]int, name string) string {
	idx, ok := columns[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return row[idx]
}
