package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"codeberg.org/mutker/powerhintd/internal/errors"
	"codeberg.org/mutker/powerhintd/internal/power"
	"github.com/go-chi/chi/v5"
)

type setModeRequest struct {
	Enabled *bool `json:"enabled"`
}

type setBoostRequest struct {
	DurationMs *int32 `json:"duration_ms"`
}

type supportedResponse struct {
	Supported bool `json:"supported"`
}

type rateResponse struct {
	Nanoseconds int64 `json:"nanoseconds"`
}

type createSessionRequest struct {
	TGID             int32   `json:"tgid"`
	UID              int32   `json:"uid"`
	ThreadIDs        []int32 `json:"thread_ids"`
	TargetDurationNs int64   `json:"target_duration_ns"`
	Tag              string  `json:"tag"`
}

type sessionResponse struct {
	ID     int64  `json:"id"`
	Handle string `json:"handle"`
}

var sessionTags = map[string]power.SessionTag{
	"":               power.SessionTagOther,
	"OTHER":          power.SessionTagOther,
	"SURFACEFLINGER": power.SessionTagSurface,
	"HWUI":           power.SessionTagHWUI,
	"GAME":           power.SessionTagGame,
	"APP":            power.SessionTagApp,
}

func (s *Server) parseMode(w http.ResponseWriter, r *http.Request) (power.Mode, bool) {
	name := chi.URLParam(r, "mode")
	mode, ok := power.ParseMode(name)
	if !ok {
		writeError(w, http.StatusBadRequest, errors.ErrIllegalArgument, unknownName("mode", name, power.SuggestMode(name)))
	}

	return mode, ok
}

func (s *Server) parseBoost(w http.ResponseWriter, r *http.Request) (power.Boost, bool) {
	name := chi.URLParam(r, "boost")
	boost, ok := power.ParseBoost(name)
	if !ok {
		writeError(w, http.StatusBadRequest, errors.ErrIllegalArgument, unknownName("boost", name, power.SuggestBoost(name)))
	}

	return boost, ok
}

func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	mode, ok := s.parseMode(w, r)
	if !ok {
		return
	}

	var req setModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
		writeError(w, http.StatusBadRequest, errors.ErrIllegalArgument, `body must be {"enabled": bool}`)
		return
	}

	if err := s.svc.SetMode(mode, *req.Enabled); err != nil {
		writeErr(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleModeSupported(w http.ResponseWriter, r *http.Request) {
	mode, ok := s.parseMode(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, supportedResponse{Supported: s.svc.IsModeSupported(mode)})
}

func (s *Server) handleSetBoost(w http.ResponseWriter, r *http.Request) {
	boost, ok := s.parseBoost(w, r)
	if !ok {
		return
	}

	var req setBoostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DurationMs == nil {
		writeError(w, http.StatusBadRequest, errors.ErrIllegalArgument, `body must be {"duration_ms": int}`)
		return
	}

	if err := s.svc.SetBoost(boost, *req.DurationMs); err != nil {
		writeErr(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBoostSupported(w http.ResponseWriter, r *http.Request) {
	boost, ok := s.parseBoost(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, supportedResponse{Supported: s.svc.IsBoostSupported(boost)})
}

func (s *Server) handleDump(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.svc.Dump(&buf); err != nil {
		writeErr(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (s *Server) handlePreferredRate(w http.ResponseWriter, r *http.Request) {
	rate, err := s.svc.HintSessionPreferredRate()
	if err != nil {
		writeErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rateResponse{Nanoseconds: rate})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.ErrIllegalArgument, "invalid session request: "+err.Error())
		return
	}

	tag, ok := sessionTags[req.Tag]
	if !ok {
		writeError(w, http.StatusBadRequest, errors.ErrIllegalArgument, "unknown session tag "+req.Tag)
		return
	}

	info, err := s.svc.CreateHintSession(power.SessionConfig{
		TGID:           req.TGID,
		UID:            req.UID,
		ThreadIDs:      req.ThreadIDs,
		TargetDuration: time.Duration(req.TargetDurationNs),
		Tag:            tag,
	})
	if err != nil {
		writeErr(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, sessionResponse{ID: info.ID, Handle: info.Handle})
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.CloseHintSession(chi.URLParam(r, "handle")); err != nil {
		writeErr(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
