package httpapi

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"subsniff/internal/ingest"
	"subsniff/internal/naming"
	"subsniff/pkg/icron"
)

type observeRequestBody struct {
	URL       string              `json:"url"`
	Headers   map[string][]string `json:"headers"`
	Initiator string              `json:"initiator"`
}

func (s *Server) handleObserveRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req observeRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	s.orch.ObserveRequest(ingest.RequestEvent{
		URL:       req.URL,
		Headers:   http.Header(req.Headers),
		Initiator: req.Initiator,
	})
	// Observation ingestion never reports per-event failures; the pipeline
	// handles or drops each event on its own.
	writeJSON(w, http.StatusAccepted, map[string]any{"ok": true})
}

type observeResponseBody struct {
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	TabID       string `json:"tab_id"`
}

func (s *Server) handleObserveResponse(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req observeResponseBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	s.orch.ObserveResponse(ingest.ResponseEvent{
		URL:         req.URL,
		ContentType: req.ContentType,
		TabID:       req.TabID,
	})
	writeJSON(w, http.StatusAccepted, map[string]any{"ok": true})
}

type observePageBody struct {
	TabID string `json:"tab_id"`
	URL   string `json:"url"`
	Title string `json:"title"`
}

func (s *Server) handleObservePage(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req observePageBody
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		if req.TabID == "" {
			writeError(w, http.StatusBadRequest, "tab_id is required")
			return
		}
		s.tabs.Update(req.TabID, naming.PageContext{Title: req.Title, URL: req.URL})
		writeJSON(w, http.StatusAccepted, map[string]any{"ok": true})
	case http.MethodDelete:
		tabID := r.URL.Query().Get("tab_id")
		if tabID == "" {
			writeError(w, http.StatusBadRequest, "tab_id is required")
			return
		}
		s.tabs.Remove(tabID)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type scanRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.scanner == nil {
		writeError(w, http.StatusNotImplemented, "page scanner is not configured")
		return
	}
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	report, err := s.scanner.Scan(r.Context(), req.URL)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleCaptures(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		captures, err := s.store.List(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, captures)
	case http.MethodDelete:
		if err := s.store.Clear(r.Context()); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		// Clearing captures also resets the attempted and failed sets so the
		// same URLs can be captured again. Observed headers are kept.
		s.orch.State().ResetTransient()
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleCaptureByName(w http.ResponseWriter, r *http.Request) {
	// /api/captures/{name}/download
	path := strings.TrimPrefix(r.URL.Path, "/api/captures/")
	if !strings.HasSuffix(path, "/download") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	name := strings.TrimSuffix(path, "/download")
	name = strings.TrimSuffix(name, "/")
	if decoded, err := url.PathUnescape(name); err == nil {
		name = decoded
	}
	if name == "" {
		writeError(w, http.StatusBadRequest, "missing capture name")
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.downloads == nil {
		writeError(w, http.StatusNotImplemented, "downloads are not configured")
		return
	}

	savedPath, err := s.downloads.Save(r.Context(), name)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"path": savedPath})
}

func (s *Server) handleDownloadAll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.downloads == nil {
		writeError(w, http.StatusNotImplemented, "downloads are not configured")
		return
	}
	result, err := s.downloads.SaveAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type statusResponse struct {
	UptimeSeconds int64          `json:"uptime_seconds"`
	Captures      int            `json:"captures"`
	CaptureBytes  int64          `json:"capture_bytes"`
	HeaderCache   int            `json:"header_cache"`
	Attempted     int            `json:"attempted"`
	Failed        int            `json:"failed"`
	Tabs          int            `json:"tabs"`
	Sweep         *sweepSchedule `json:"sweep,omitempty"`
}

type sweepSchedule struct {
	Expression    string `json:"expression"`
	NextAt        string `json:"next_at"`
	SecondsToNext int64  `json:"seconds_to_next"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	count, totalBytes, err := s.store.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	headers, attempted, failed := s.orch.State().Sizes()

	resp := statusResponse{
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		Captures:      count,
		CaptureBytes:  totalBytes,
		HeaderCache:   headers,
		Attempted:     attempted,
		Failed:        failed,
		Tabs:          s.tabs.Len(),
	}
	if s.sweepExpr != "" {
		if info, err := icron.GetTriggerInfo(s.sweepExpr, time.Now()); err == nil {
			resp.Sweep = &sweepSchedule{
				Expression:    info.Expression,
				NextAt:        info.Next.Format(time.RFC3339),
				SecondsToNext: int64(info.TimeUntilNext.Seconds()),
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}
