package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/alanyoungcy/marketagg/internal/domain"
	"github.com/alanyoungcy/marketagg/internal/export"
)

// Snapshotter builds an export snapshot from the latest cycle state.
type Snapshotter interface {
	Snapshot(ctx context.Context) (domain.ExportSnapshot, error)
}

// HistoryArchiver moves old price history rows to object storage.
type HistoryArchiver interface {
	ArchiveHistory(ctx context.Context, before time.Time) (int64, error)
}

// ExportHandler serves snapshot export and retrieval. Exporter, reader,
// snapshot store, and archiver are each optional; endpoints that need a
// missing dependency return 501.
type ExportHandler struct {
	snapshotter Snapshotter
	exporter    *export.Exporter
	reader      domain.BlobReader
	snapshots   domain.SnapshotStore
	archiver    HistoryArchiver
	logger      *slog.Logger
}

// NewExportHandler creates an ExportHandler.
func NewExportHandler(
	snapshotter Snapshotter,
	exporter *export.Exporter,
	reader domain.BlobReader,
	snapshots domain.SnapshotStore,
	archiver HistoryArchiver,
	logger *slog.Logger,
) *ExportHandler {
	return &ExportHandler{
		snapshotter: snapshotter,
		exporter:    exporter,
		reader:      reader,
		snapshots:   snapshots,
		archiver:    archiver,
		logger:      logHandler(logger, "export"),
	}
}

// exportResponse describes a completed export.
type exportResponse struct {
	SnapshotID  string `json:"snapshot_id"`
	Path        string `json:"path,omitempty"`
	Comparisons int    `json:"comparisons"`
}

// Export snapshots the latest cycle output and uploads it to object
// storage when an exporter is configured.
// POST /api/export
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	snap, err := h.snapshotter.Snapshot(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "snapshot failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to build snapshot")
		return
	}

	resp := exportResponse{
		SnapshotID:  snap.ID,
		Comparisons: len(snap.Comparisons),
	}
	if h.exporter != nil {
		path, err := h.exporter.Export(r.Context(), snap)
		if err != nil {
			h.logger.ErrorContext(r.Context(), "export upload failed",
				slog.String("snapshot_id", snap.ID),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusBadGateway, "snapshot saved but upload failed")
			return
		}
		resp.Path = path
	}

	writeJSON(w, http.StatusCreated, resp)
}

// ListExports lists snapshot objects previously uploaded to object storage.
// GET /api/exports
func (h *ExportHandler) ListExports(w http.ResponseWriter, r *http.Request) {
	if h.reader == nil {
		writeError(w, http.StatusNotImplemented, "object storage not configured")
		return
	}

	infos, err := h.reader.List(r.Context(), "exports/")
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list exports failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list exports")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"exports": infos,
		"total":   len(infos),
	})
}

// ListSnapshots returns recent persisted snapshots, newest first.
// GET /api/snapshots?limit=20
func (h *ExportHandler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	if h.snapshots == nil {
		writeError(w, http.StatusNotImplemented, "snapshot store not configured")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	snaps, err := h.snapshots.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list snapshots failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list snapshots")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"snapshots": snaps,
		"total":     len(snaps),
	})
}

// GetSnapshot returns one persisted snapshot by ID.
// GET /api/snapshots/{id}
func (h *ExportHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	if h.snapshots == nil {
		writeError(w, http.StatusNotImplemented, "snapshot store not configured")
		return
	}

	id := pathParam(r, "id")
	snap, err := h.snapshots.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "snapshot not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "get snapshot failed",
			slog.String("snapshot_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load snapshot")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// ArchiveHistory uploads all price history older than the cutoff (default
// 30 days) to object storage.
// POST /api/admin/archive?before=2026-08-01T00:00:00Z
func (h *ExportHandler) ArchiveHistory(w http.ResponseWriter, r *http.Request) {
	if h.archiver == nil {
		writeError(w, http.StatusNotImplemented, "archiver not configured")
		return
	}

	before := time.Now().UTC().AddDate(0, 0, -30)
	if v := r.URL.Query().Get("before"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "before must be RFC 3339")
			return
		}
		before = t
	}

	count, err := h.archiver.ArchiveHistory(r.Context(), before)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "archive failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "archive failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"archived": count,
		"before":   before,
	})
}
