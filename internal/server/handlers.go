package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/voyagen/guidevault/internal/cache"
	"github.com/voyagen/guidevault/internal/epg"
	"github.com/voyagen/guidevault/internal/fetcher"
	"github.com/voyagen/guidevault/internal/reminder"
	"github.com/voyagen/guidevault/internal/service"
	"github.com/voyagen/guidevault/internal/xmltv"
)

// --- health ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health.Ping(r.Context()); err != nil {
			writeErr(w, http.StatusServiceUnavailable, fmt.Errorf("store: %w", err))
			return
		}
	}
	body := map[string]any{
		"status":    "ok",
		"driver":    s.cfg.StoreDriver,
		"updatedAt": s.guide.UpdatedAt(),
	}
	q, err := s.guide.ImportQueue(r.Context())
	switch {
	case err == nil:
		body["imports"] = q
	case !errors.Is(err, service.ErrNoQueue):
		log.Warn().Err(err).Msg("health: import queue")
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.guide.Reload(r.Context()); err != nil {
		writeErr(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"channels":  len(s.guide.Guide()),
		"updatedAt": s.guide.UpdatedAt(),
	})
}

// --- roster handlers ---

func (s *Server) handleListChannels(w http.ResponseWriter, r *http.Request) {
	channels := s.guide.Channels(r.URL.Query().Get("category"))
	writeJSON(w, http.StatusOK, map[string]any{
		"channels": channels,
		"total":    len(channels),
	})
}

func (s *Server) handleListCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.guide.Categories())
}

// --- guide handlers ---

func (s *Server) handleGuide(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"updatedAt": s.guide.UpdatedAt(),
		"channels":  s.guide.Guide(),
	})
}

func (s *Server) handleGuideXML(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := xmltv.Encode(w, s.guide.Guide(), "guidevault"); err != nil {
		log.Error().Err(err).Msg("encode xmltv")
	}
}

func (s *Server) handleWhatsOn(w http.ResponseWriter, r *http.Request) {
	at, err := parseAt(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, s.guide.WhatsOn(at))
}

func (s *Server) handleGuideChannel(w http.ResponseWriter, r *http.Request) {
	ch, err := s.guide.Channel(r.PathValue("id"))
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

func (s *Server) handleNowNext(w http.ResponseWriter, r *http.Request) {
	at, err := parseAt(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	np, err := s.guide.NowNext(r.PathValue("id"), at)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, np)
}

type offsetRequest struct {
	Minutes *int `json:"minutes"`
}

func (s *Server) handleAdjustOffset(w http.ResponseWriter, r *http.Request) {
	var req offsetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	if req.Minutes == nil {
		writeErr(w, http.StatusBadRequest, errors.New("minutes is required"))
		return
	}
	ch, err := s.guide.AdjustOffset(r.Context(), r.PathValue("id"), *req.Minutes)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

func (s *Server) handleRemap(w http.ResponseWriter, r *http.Request) {
	var mapping map[string]epg.Remapping
	if err := json.NewDecoder(r.Body).Decode(&mapping); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	if len(mapping) == 0 {
		writeErr(w, http.StatusBadRequest, errors.New("mapping is empty"))
		return
	}
	if err := s.guide.Remap(r.Context(), mapping); err != nil {
		writeServiceErr(w, err)
		return
	}
	writeNoContent(w)
}

// --- import handlers ---

// handleImport accepts the document as the request body, or a ?url= to
// fetch it from. With the job queue enabled URL imports are accepted
// asynchronously.
func (s *Server) handleImport(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if u := r.URL.Query().Get("url"); u != "" {
			if s.queue {
				job, err := s.guide.EnqueueImport(r.Context(), kind, u)
				if err != nil {
					writeServiceErr(w, err)
					return
				}
				writeJSON(w, http.StatusAccepted, job)
				return
			}
			res, err := s.guide.ImportFromURL(r.Context(), kind, u)
			if err != nil {
				writeServiceErr(w, err)
				return
			}
			writeJSON(w, http.StatusOK, res)
			return
		}

		body := http.MaxBytesReader(w, r.Body, s.maxUpload)
		var (
			res any
			err error
		)
		if kind == cache.JobPlaylist {
			res, err = s.guide.ImportPlaylist(r.Context(), body)
		} else {
			res, err = s.guide.ImportGuide(r.Context(), body)
		}
		if err != nil {
			writeServiceErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// --- reminder handlers ---

func (s *Server) handleListReminders(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.guide.Reminders())
}

type reminderRequest struct {
	ChannelID   string `json:"channelId"`
	EventID     string `json:"eventId"`
	LeadMinutes *int   `json:"leadMinutes"`
}

func (s *Server) handleCreateReminder(w http.ResponseWriter, r *http.Request) {
	var req reminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	if req.ChannelID == "" {
		writeErr(w, http.StatusBadRequest, errors.New("channelId is required"))
		return
	}
	var lead time.Duration
	if req.LeadMinutes != nil {
		if *req.LeadMinutes < 0 {
			writeErr(w, http.StatusBadRequest, errors.New("leadMinutes must not be negative"))
			return
		}
		lead = time.Duration(*req.LeadMinutes) * time.Minute
	}

	h, ev, err := s.guide.Remind(req.ChannelID, req.EventID, lead)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	if h == nil {
		writeJSON(w, http.StatusOK, map[string]any{"fired": true, "event": ev})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"fired": false, "event": ev, "reminder": h})
}

func (s *Server) handleCancelReminder(w http.ResponseWriter, r *http.Request) {
	if !s.guide.CancelReminder(r.PathValue("id")) {
		writeErr(w, http.StatusNotFound, fmt.Errorf("reminder %s not pending", r.PathValue("id")))
		return
	}
	writeNoContent(w)
}

// --- helpers ---

// APIError is the standard error envelope for all error responses.
type APIError struct {
	Status int    `json:"status"`
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// parseAt reads the ?at= instant (RFC 3339 or Unix seconds); now when absent.
func parseAt(r *http.Request) (time.Time, error) {
	v := r.URL.Query().Get("at")
	if v == "" {
		return time.Now(), nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	if sec, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Unix(sec, 0), nil
	}
	return time.Time{}, fmt.Errorf("invalid at: %s (use RFC 3339 or unix seconds)", v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("writeJSON")
	}
}

func writeNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func writeErr(w http.ResponseWriter, status int, err error) {
	if status >= 500 {
		log.Error().Err(err).Int("status", status).Msg("request failed")
	}
	writeJSON(w, status, APIError{
		Status: status,
		Error:  http.StatusText(status),
		Detail: err.Error(),
	})
}

// writeServiceErr maps domain errors onto HTTP statuses.
func writeServiceErr(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		writeErr(w, http.StatusRequestEntityTooLarge, err)
	case errors.Is(err, service.ErrChannelNotFound), errors.Is(err, service.ErrEventNotFound):
		writeErr(w, http.StatusNotFound, err)
	case errors.Is(err, service.ErrNoUpcomingEvent):
		writeErr(w, http.StatusConflict, err)
	case errors.Is(err, service.ErrImportInProgress):
		writeErr(w, http.StatusConflict, err)
	case errors.Is(err, xmltv.ErrMalformedDocument):
		writeErr(w, http.StatusUnprocessableEntity, err)
	case errors.Is(err, fetcher.ErrUnsupportedURL):
		writeErr(w, http.StatusBadRequest, err)
	case errors.Is(err, fetcher.ErrStatus), errors.Is(err, fetcher.ErrTooLarge), errors.Is(err, fetcher.ErrUpstream):
		writeErr(w, http.StatusBadGateway, err)
	case errors.Is(err, service.ErrNoReminders), errors.Is(err, service.ErrNoQueue):
		writeErr(w, http.StatusNotImplemented, err)
	case errors.Is(err, reminder.ErrStopped):
		writeErr(w, http.StatusServiceUnavailable, err)
	case errors.Is(err, io.ErrUnexpectedEOF):
		writeErr(w, http.StatusBadRequest, err)
	default:
		writeErr(w, http.StatusInternalServerError, err)
	}
}
