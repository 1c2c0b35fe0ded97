package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alanyoungcy/marketagg/internal/domain"
)

// HistoryLister is the narrow read surface the archiver needs from the
// history archive. The Postgres history store satisfies it.
type HistoryLister interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.PriceHistoryPoint, error)
}

// Archiver serializes old price history to JSONL and uploads it to object
// storage, partitioned by year-month. Deletion of archived rows from the
// primary store is intentionally NOT performed here; that is a separate,
// explicit step to be executed after the archive has been verified.
type Archiver struct {
	writer  domain.BlobWriter
	history HistoryLister
}

// NewArchiver creates a new Archiver.
func NewArchiver(writer domain.BlobWriter, history HistoryLister) *Archiver {
	return &Archiver{
		writer:  writer,
		history: history,
	}
}

// ArchiveHistory queries all price history points before the cutoff,
// serializes them to JSONL, and uploads the file to
// archive/price_history/YYYY-MM.jsonl. It returns the count of archived
// records.
func (a *Archiver) ArchiveHistory(ctx context.Context, before time.Time) (int64, error) {
	points, err := a.history.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive history query: %w", err)
	}
	if len(points) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(points)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive history marshal: %w", err)
	}

	path := archivePath("price_history", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive history upload: %w", err)
	}

	return int64(len(points)), nil
}

// archivePath builds the S3 key for an archive file, partitioned by the
// year-month of the cutoff time.
//
//	archive/price_history/2026-08.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON.
// Each element is marshalled as a single compact JSON line followed by '\n'.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
