package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/marketagg/internal/domain"
)

// MappingHandler serves CRUD over manual market mappings.
type MappingHandler struct {
	store  domain.MappingStore
	logger *slog.Logger
}

// NewMappingHandler creates a MappingHandler.
func NewMappingHandler(store domain.MappingStore, logger *slog.Logger) *MappingHandler {
	return &MappingHandler{
		store:  store,
		logger: logHandler(logger, "mappings"),
	}
}

// listMappingsResponse wraps the list endpoint output with metadata.
type listMappingsResponse struct {
	Mappings []domain.ManualMapping `json:"mappings"`
	Total    int                    `json:"total"`
}

// ListMappings returns all manual mappings, oldest first.
// GET /api/mappings
func (h *MappingHandler) ListMappings(w http.ResponseWriter, r *http.Request) {
	mappings, err := h.store.List(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list mappings failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list mappings")
		return
	}
	writeJSON(w, http.StatusOK, listMappingsResponse{
		Mappings: mappings,
		Total:    len(mappings),
	})
}

// createMappingRequest is the POST body for creating or replacing a mapping.
type createMappingRequest struct {
	ID             string          `json:"id,omitempty"`
	PlatformA      domain.Platform `json:"platform_a"`
	MarketIDA      string          `json:"market_id_a"`
	PlatformB      domain.Platform `json:"platform_b"`
	MarketIDB      string          `json:"market_id_b"`
	CanonicalTitle string          `json:"canonical_title"`
}

func (req createMappingRequest) validate() error {
	if !req.PlatformA.Valid() {
		return errors.New("unknown platform_a " + string(req.PlatformA))
	}
	if !req.PlatformB.Valid() {
		return errors.New("unknown platform_b " + string(req.PlatformB))
	}
	if req.PlatformA == req.PlatformB {
		return errors.New("platform_a and platform_b must differ")
	}
	if req.MarketIDA == "" || req.MarketIDB == "" {
		return errors.New("market_id_a and market_id_b are required")
	}
	if req.CanonicalTitle == "" {
		return errors.New("canonical_title is required")
	}
	return nil
}

// CreateMapping creates a manual mapping, or replaces the one with the
// given ID. The mapping takes effect at the next aggregation cycle.
// POST /api/mappings
func (h *MappingHandler) CreateMapping(w http.ResponseWriter, r *http.Request) {
	var req createMappingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	m := domain.ManualMapping{
		ID:             req.ID,
		PlatformA:      req.PlatformA,
		MarketIDA:      req.MarketIDA,
		PlatformB:      req.PlatformB,
		MarketIDB:      req.MarketIDB,
		CanonicalTitle: req.CanonicalTitle,
		CreatedAt:      time.Now().UTC(),
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}

	if err := h.store.Upsert(r.Context(), m); err != nil {
		h.logger.ErrorContext(r.Context(), "upsert mapping failed",
			slog.String("mapping_id", m.ID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to save mapping")
		return
	}

	h.logger.InfoContext(r.Context(), "mapping saved",
		slog.String("mapping_id", m.ID),
		slog.String("canonical_title", m.CanonicalTitle),
	)
	writeJSON(w, http.StatusCreated, m)
}

// GetMapping returns a single mapping by ID.
// GET /api/mappings/{id}
func (h *MappingHandler) GetMapping(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	m, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "mapping not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "get mapping failed",
			slog.String("mapping_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load mapping")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// DeleteMapping removes a mapping. The pair becomes eligible for automatic
// matching again at the next cycle.
// DELETE /api/mappings/{id}
func (h *MappingHandler) DeleteMapping(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	if err := h.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "mapping not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "delete mapping failed",
			slog.String("mapping_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to delete mapping")
		return
	}

	h.logger.InfoContext(r.Context(), "mapping deleted", slog.String("mapping_id", id))
	w.WriteHeader(http.StatusNoContent)
}
