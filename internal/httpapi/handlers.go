package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrijs2005/mediatrack/internal/common"
	"github.com/dmitrijs2005/mediatrack/internal/models"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePlexConnect(w http.ResponseWriter, r *http.Request) {
	req, err := s.handshake.Initiate(r.Context(), userID(r.Context()))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "could not start handshake")
		return
	}
	s.writeJSON(w, http.StatusOK, req)
}

func (s *Server) handlePlexCallback(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		s.writeError(w, http.StatusBadRequest, "missing id parameter")
		return
	}

	err := s.handshake.Complete(r.Context(), userID(r.Context()), id)
	switch {
	case err == nil:
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "connected"})
	case errors.Is(err, common.ErrCorrelation):
		s.writeError(w, http.StatusConflict, "unknown or mismatched handshake")
	case errors.Is(err, common.ErrAuthTimeout):
		s.writeError(w, http.StatusGatewayTimeout, "authorization was not granted in time")
	default:
		s.writeError(w, http.StatusInternalServerError, "handshake failed")
	}
}

func (s *Server) handlePlexCancel(w http.ResponseWriter, r *http.Request) {
	s.handshake.Cancel(userID(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

type integrationResponse struct {
	ID                  string     `json:"id"`
	Platform            string     `json:"platform"`
	DisplayName         string     `json:"display_name,omitempty"`
	Status              string     `json:"status"`
	LastSync            *time.Time `json:"last_sync,omitempty"`
	SyncEnabled         bool       `json:"sync_enabled"`
	SyncIntervalMinutes int        `json:"sync_interval_minutes"`
	ErrorMessage        *string    `json:"error_message,omitempty"`
}

func toIntegrationResponse(integ *models.Integration) integrationResponse {
	resp := integrationResponse{
		ID:                  integ.ID,
		Status:              string(integ.Status),
		LastSync:            integ.LastSync,
		SyncEnabled:         integ.SyncEnabled,
		SyncIntervalMinutes: integ.SyncIntervalMinutes,
		ErrorMessage:        integ.ErrorMessage,
	}
	if integ.Platform != nil {
		resp.Platform = integ.Platform.Name
		resp.DisplayName = integ.Platform.DisplayName
	}
	return resp
}

// handleListIntegrations returns the user's integrations. Credential blobs
// never leave the server.
func (s *Server) handleListIntegrations(w http.ResponseWriter, r *http.Request) {
	list, err := s.integrations.GetByUser(r.Context(), userID(r.Context()))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "could not list integrations")
		return
	}

	resp := make([]integrationResponse, 0, len(list))
	for _, integ := range list {
		resp = append(resp, toIntegrationResponse(integ))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteIntegration(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "platform")

	platform, err := s.platforms.GetByName(r.Context(), name)
	if errors.Is(err, common.ErrorNotFound) {
		s.writeError(w, http.StatusNotFound, "unknown platform")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "could not resolve platform")
		return
	}

	err = s.integrations.Delete(r.Context(), userID(r.Context()), platform.ID)
	if errors.Is(err, common.ErrorNotFound) {
		s.writeError(w, http.StatusNotFound, "integration not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "could not delete integration")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type syncRequest struct {
	Platform string `json:"platform"`
}

type syncItemResult struct {
	Platform      string `json:"platform"`
	ItemsImported int    `json:"items_imported"`
	Error         string `json:"error,omitempty"`
}

// handleSync triggers a sync run for the caller. With a platform in the body
// only that integration runs and its failure is reported as a 502; without
// one every due integration runs and per-platform outcomes are listed.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	// an absent or malformed body means "sync everything"
	var req syncRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	if req.Platform != "" {
		s.syncPlatform(w, r, req.Platform)
		return
	}

	batch, err := s.orchestrator.SyncDue(r.Context(), userID(r.Context()))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "sync run failed")
		return
	}

	results := make([]syncItemResult, 0, len(batch))
	for _, item := range batch {
		res := syncItemResult{}
		if item.Integration.Platform != nil {
			res.Platform = item.Integration.Platform.Name
		}
		if item.Err != nil {
			res.Error = item.Err.Error()
		} else if item.Result != nil {
			res.ItemsImported = item.Result.ItemsImported
		}
		results = append(results, res)
	}
	s.writeJSON(w, http.StatusOK, results)
}

func (s *Server) syncPlatform(w http.ResponseWriter, r *http.Request, platformName string) {
	list, err := s.integrations.GetByUser(r.Context(), userID(r.Context()))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "could not list integrations")
		return
	}

	for _, integ := range list {
		if integ.Platform == nil || integ.Platform.Name != platformName {
			continue
		}
		result, err := s.orchestrator.SyncOne(r.Context(), integ)
		if err != nil {
			s.writeError(w, http.StatusBadGateway, "sync failed: "+err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, syncItemResult{Platform: platformName, ItemsImported: result.ItemsImported})
		return
	}

	s.writeError(w, http.StatusNotFound, "no integration for platform "+platformName)
}

type historyResponse struct {
	ID                  string     `json:"id"`
	MediaItemID         string     `json:"media_item_id"`
	StartedAt           time.Time  `json:"started_at"`
	EndedAt             *time.Time `json:"ended_at,omitempty"`
	ProgressSeconds     int        `json:"progress_seconds"`
	TotalRuntimeSeconds *int       `json:"total_runtime_seconds,omitempty"`
	Completed           bool       `json:"completed"`
	DeviceType          *string    `json:"device_type,omitempty"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	sessions, err := s.sessions.ListByUser(r.Context(), userID(r.Context()), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "could not load history")
		return
	}

	resp := make([]historyResponse, 0, len(sessions))
	for _, session := range sessions {
		resp = append(resp, historyResponse{
			ID:                  session.ID,
			MediaItemID:         session.MediaItemID,
			StartedAt:           session.StartedAt,
			EndedAt:             session.EndedAt,
			ProgressSeconds:     session.ProgressSeconds,
			TotalRuntimeSeconds: session.TotalRuntimeSeconds,
			Completed:           session.Completed,
			DeviceType:          session.DeviceType,
		})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleArtwork redirects a stable artwork route to a freshly presigned
// object storage URL. Catalog rows store the route, never an expiring link.
func (s *Server) handleArtwork(w http.ResponseWriter, r *http.Request) {
	if s.artwork == nil || !s.artwork.Enabled() {
		s.writeError(w, http.StatusNotFound, "artwork storage is not configured")
		return
	}

	key := chi.URLParam(r, "*")
	if key == "" {
		s.writeError(w, http.StatusBadRequest, "missing artwork key")
		return
	}

	url, err := s.artwork.PresignGet(r.Context(), key)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "could not resolve artwork")
		return
	}

	http.Redirect(w, r, url, http.StatusFound)
}
