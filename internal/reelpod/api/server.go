// Package api exposes the music generation queue over HTTP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"nvst/internal/reelpod/queue"
)

// ImageGenerator renders PNG cover images. The imagegen pipeline
// implements it.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string, targetWidth, targetHeight int) ([]byte, error)
}

// Server handles the generation API. Create with [NewServer] and mount
// [Server.Handler].
type Server struct {
	queue       *queue.Queue
	images      ImageGenerator
	waitTimeout time.Duration
	logger      *slog.Logger
}

// NewServer wires the API onto a queue and image generator. A nil
// logger discards log output.
func NewServer(q *queue.Queue, images ImageGenerator, waitTimeout time.Duration, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{queue: q, images: images, waitTimeout: waitTimeout, logger: logger}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/generate", s.handleGenerate)
	mux.HandleFunc("POST /api/generate-requests", s.handleCreateRequest)
	mux.HandleFunc("GET /api/generate-requests/{id}", s.handleRequestStatus)
	mux.HandleFunc("GET /api/generate-requests/{id}/audio", s.handleRequestAudio)
	mux.HandleFunc("POST /api/generate-image", s.handleGenerateImage)
	return mux
}

// handleGenerate runs a generation synchronously and streams the WAV.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	req, err := decodeGenerateRequest(r.Body)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, invalidPayloadMessage)
		return
	}

	item := s.enqueue(req)
	done, ok := s.queue.Wait(item.ID, s.waitTimeout)
	if !ok {
		s.writeError(w, http.StatusGatewayTimeout, "Audio generation timed out")
		return
	}
	if done.Status == queue.StatusFailed || done.WAV == nil {
		s.writeError(w, http.StatusInternalServerError, "Audio generation failed")
		return
	}

	s.writeWAV(w, done.WAV)
}

// handleCreateRequest enqueues a generation and returns its id.
func (s *Server) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	req, err := decodeGenerateRequest(r.Body)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, invalidPayloadMessage)
		return
	}

	item := s.enqueue(req)
	s.writeJSON(w, http.StatusOK, map[string]string{
		"id":     item.ID,
		"status": string(item.Status),
	})
}

func (s *Server) handleRequestStatus(w http.ResponseWriter, r *http.Request) {
	item, ok := s.queue.Snapshot(r.PathValue("id"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "Queue item not found")
		return
	}

	payload := map[string]any{
		"id":     item.ID,
		"status": string(item.Status),
		"error":  nil,
	}
	if item.Error != "" {
		payload["error"] = item.Error
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleRequestAudio(w http.ResponseWriter, r *http.Request) {
	item, ok := s.queue.Snapshot(r.PathValue("id"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "Queue item not found")
		return
	}
	if item.Status == queue.StatusFailed {
		s.writeError(w, http.StatusInternalServerError, "Audio generation failed")
		return
	}
	if item.Status != queue.StatusCompleted || item.WAV == nil {
		s.writeError(w, http.StatusConflict, "Audio not ready")
		return
	}

	s.writeWAV(w, item.WAV)
}

func (s *Server) handleGenerateImage(w http.ResponseWriter, r *http.Request) {
	req, err := decodeImageRequest(r.Body)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, invalidPayloadMessage)
		return
	}

	data, err := s.images.Generate(r.Context(), req.Prompt, req.TargetWidth, req.TargetHeight)
	if err != nil {
		s.logger.Error("image generation failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("Image generation failed: %v", err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(data)
}

func (s *Server) enqueue(req *generateRequest) *queue.Item {
	return s.queue.Enqueue(buildPrompt(req), effectiveTempo(req), req.Duration)
}

func (s *Server) writeWAV(w http.ResponseWriter, wav []byte) {
	w.Header().Set("Content-Type", "audio/wav")
	w.Write(wav)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("writing response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
