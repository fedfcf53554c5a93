// Package api exposes the coordinator's surface over HTTP: the current
// snapshot, write requests, and service status.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/tsoiks/heliotherm-bridge/internal/coordinator"
	"github.com/tsoiks/heliotherm-bridge/internal/domain"
)

// Handler serves the bridge API.
type Handler struct {
	coord  *coordinator.Coordinator
	logger zerolog.Logger
}

// NewHandler creates an API handler around the coordinator.
func NewHandler(coord *coordinator.Coordinator, logger zerolog.Logger) *Handler {
	return &Handler{
		coord:  coord,
		logger: logger.With().Str("component", "api").Logger(),
	}
}

// snapshotResponse is the wire shape of GET /api/snapshot.
type snapshotResponse struct {
	domain.Snapshot
	Connected bool `json:"connected"`
}

// SnapshotHandler returns the last-known-good snapshot.
func (h *Handler) SnapshotHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, snapshotResponse{
		Snapshot:  h.coord.Snapshot(),
		Connected: h.coord.IsConnected(),
	})
}

// writeRequest is the wire shape of POST /api/write. Either a field key
// with an engineering value, or a raw register address and value.
type writeRequest struct {
	Key     string   `json:"key,omitempty"`
	Value   *float64 `json:"value,omitempty"`
	Address *uint16  `json:"address,omitempty"`
	Raw     *int16   `json:"raw,omitempty"`
}

// writeResponse is the wire shape of the write result.
type writeResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// WriteHandler issues a guarded register write through the coordinator.
func (h *Handler) WriteHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req writeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, writeResponse{Error: "invalid request body"})
		return
	}

	var ok bool
	var err error
	switch {
	case req.Key != "" && req.Value != nil:
		ok, err = h.coord.WriteValue(r.Context(), req.Key, *req.Value)
	case req.Address != nil && req.Raw != nil:
		ok, err = h.coord.RequestWrite(r.Context(), *req.Address, *req.Raw)
	default:
		writeJSON(w, http.StatusBadRequest, writeResponse{Error: "need key+value or address+raw"})
		return
	}

	switch {
	case errors.Is(err, domain.ErrWriteRejected):
		writeJSON(w, http.StatusForbidden, writeResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrFieldNotFound),
		errors.Is(err, domain.ErrFieldNotWritable),
		errors.Is(err, domain.ErrValueOutOfRange):
		writeJSON(w, http.StatusBadRequest, writeResponse{Error: err.Error()})
	case err != nil:
		h.logger.Error().Err(err).Msg("Write request failed")
		writeJSON(w, http.StatusInternalServerError, writeResponse{Error: err.Error()})
	case !ok:
		writeJSON(w, http.StatusBadGateway, writeResponse{Error: "write failed at device"})
	default:
		writeJSON(w, http.StatusOK, writeResponse{OK: true})
	}
}

// statusResponse is the wire shape of GET /status.
type statusResponse struct {
	Service    string `json:"service"`
	Version    string `json:"version"`
	Connected  bool   `json:"connected"`
	ReadOnly   bool   `json:"read_only"`
	Success    bool   `json:"success"`
	Generation uint64 `json:"generation"`
	Fields     int    `json:"fields"`
}

// StatusHandler reports a compact service status.
func (h *Handler) StatusHandler(serviceName, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := h.coord.Snapshot()
		writeJSON(w, http.StatusOK, statusResponse{
			Service:    serviceName,
			Version:    version,
			Connected:  h.coord.IsConnected(),
			ReadOnly:   h.coord.ReadOnly(),
			Success:    snap.Success,
			Generation: snap.Generation,
			Fields:     len(snap.Values),
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
