// Package export writes aggregation snapshots to object storage.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/marketagg/internal/domain"
)

// multipartThreshold is the snapshot size above which the exporter
// switches to a multipart upload.
const multipartThreshold = 8 * 1024 * 1024

// Exporter uploads export snapshots as JSON objects, keyed by date and
// snapshot ID so exports sort chronologically in bucket listings.
type Exporter struct {
	writer domain.BlobWriter
	logger *slog.Logger
}

// New creates an Exporter.
func New(writer domain.BlobWriter, logger *slog.Logger) *Exporter {
	return &Exporter{
		writer: writer,
		logger: logger.With(slog.String("component", "exporter")),
	}
}

// Path returns the object key a snapshot is stored under.
//
//	exports/2026-09-01/1a2b3c....json
func Path(snap domain.ExportSnapshot) string {
	return fmt.Sprintf("exports/%s/%s.json", snap.CreatedAt.Format("2006-01-02"), snap.ID)
}

// Export serializes the snapshot and uploads it. It returns the object key.
func (e *Exporter) Export(ctx context.Context, snap domain.ExportSnapshot) (string, error) {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("export: marshal snapshot %s: %w", snap.ID, err)
	}

	path := Path(snap)
	if len(data) > multipartThreshold {
		err = e.writer.PutMultipart(ctx, path, bytes.NewReader(data), multipartThreshold)
	} else {
		err = e.writer.Put(ctx, path, bytes.NewReader(data), "application/json")
	}
	if err != nil {
		return "", fmt.Errorf("export: upload snapshot %s: %w", snap.ID, err)
	}

	e.logger.Info("snapshot exported",
		slog.String("snapshot_id", snap.ID),
		slog.String("path", path),
		slog.Int("bytes", len(data)),
		slog.Int("comparisons", len(snap.Comparisons)),
	)
	return path, nil
}
