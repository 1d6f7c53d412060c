package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"palmbot/internal/bot"
	"palmbot/internal/imaging"
	"palmbot/internal/model"
)

// Pipeline is the slice of the dispatcher the HTTP layer needs.
type Pipeline interface {
	Dispatch(ctx context.Context, events []bot.Event)
	Analyze(ctx context.Context, imageData []byte) (*bot.Reading, error)
}

// Readiness reports whether the classifier finished loading.
type Readiness interface {
	State() model.State
}

type Handler struct {
	pipeline  Pipeline
	readiness Readiness
	log       *zap.SugaredLogger
}

func NewHandler(pipeline Pipeline, readiness Readiness, log *zap.SugaredLogger) *Handler {
	return &Handler{pipeline: pipeline, readiness: readiness, log: log}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	state := h.readiness.State()
	status := http.StatusOK
	if state != model.StateReady {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "running",
		"model":  state.String(),
	})
}

type webhookPayload struct {
	Events []bot.Event `json:"events"`
}

// Webhook accepts one delivery of events and dispatches them before
// responding. The transport's signature verification sits in front of this
// handler and is not part of the core.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var payload webhookPayload
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&payload); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	h.pipeline.Dispatch(r.Context(), payload.Events)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// PredictFromImage is the standalone entry point: same pipeline as the
// webhook path, fed by a multipart upload instead of a chat event.
func (h *Handler) PredictFromImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// 10MB upload cap
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		http.Error(w, "No image file provided. Use 'image' as the form field name", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, 10<<20))
	if err != nil {
		http.Error(w, "Failed to read upload", http.StatusBadRequest)
		return
	}

	reading, err := h.pipeline.Analyze(r.Context(), data)
	if err != nil {
		h.writeAnalyzeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(reading)
}

func (h *Handler) writeAnalyzeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, imaging.ErrDecode), errors.Is(err, imaging.ErrTooLarge):
		http.Error(w, "Invalid image. Supported: JPEG, PNG, GIF, WebP, BMP", http.StatusBadRequest)
	case errors.Is(err, model.ErrModelNotLoaded):
		http.Error(w, "Classifier unavailable", http.StatusServiceUnavailable)
	default:
		h.log.Errorw("analysis failed", "error", err)
		http.Error(w, "Analysis failed", http.StatusInternalServerError)
	}
}
