package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/davidbz/basalt/internal/domain"
	"github.com/davidbz/basalt/internal/metrics"
	"github.com/davidbz/basalt/internal/observability"
)

// Handler handles HTTP requests.
type Handler struct {
	service *domain.GenerationService
}

// NewHandler creates a new HTTP handler (DI constructor).
func NewHandler(service *domain.GenerationService) *Handler {
	return &Handler{
		service: service,
	}
}

// statusForError maps the domain error taxonomy onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnknownModel):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAuthorization):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrTransport):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// HandleGenerate processes generation requests.
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Early validation.
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Parse request.
	var req domain.GenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	// Inject model into context for downstream logging.
	ctx = observability.WithModel(ctx, req.Model)

	logger := observability.FromContext(ctx)
	logger.Info("generation request received",
		zap.String("model", req.Model),
		zap.Bool("stream", req.Stream),
	)

	if req.Stream {
		h.handleStream(ctx, w, &req)
		return
	}

	start := time.Now()
	result, err := h.service.Generate(ctx, &req)
	if err != nil {
		logger.Error("generation failed", zap.Error(err))
		metrics.RequestCount.WithLabelValues(req.Model, "error").Inc()
		http.Error(w, err.Error(), statusForError(err))
		return
	}

	logger.Info("generation succeeded",
		zap.Int("input_tokens", result.InputTokens),
		zap.Int("output_tokens", result.OutputTokens),
		zap.Float64("cost", result.Cost),
	)
	recordMetrics(result, time.Since(start))

	w.Header().Set("Content-Type", "application/json")
	if encodeErr := json.NewEncoder(w).Encode(result); encodeErr != nil {
		logger.Error("failed to encode response", zap.Error(encodeErr))
		http.Error(w, fmt.Sprintf("failed to encode response: %v", encodeErr), http.StatusInternalServerError)
		return
	}
}

func (h *Handler) handleStream(
	ctx context.Context,
	w http.ResponseWriter,
	req *domain.GenerationRequest,
) {
	logger := observability.FromContext(ctx)
	logger.Info("stream request started")

	flusher, ok := w.(http.Flusher)
	if !ok {
		logger.Error("streaming not supported")
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	start := time.Now()
	stream, err := h.service.GenerateStream(ctx, req)
	if err != nil {
		logger.Error("stream failed", zap.Error(err))
		metrics.RequestCount.WithLabelValues(req.Model, "error").Inc()
		http.Error(w, err.Error(), statusForError(err))
		return
	}
	defer stream.Close()

	// Set headers for SSE.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for stream.Next(ctx) {
		data, _ := json.Marshal(map[string]string{"text": stream.Fragment()})
		fmt.Fprintf(w, "data: %s\n\n", string(data))
		flusher.Flush()
	}

	if streamErr := stream.Err(); streamErr != nil {
		logger.Error("stream chunk error", zap.Error(streamErr))
		metrics.RequestCount.WithLabelValues(req.Model, "error").Inc()
		fmt.Fprintf(w, "event: error\ndata: %s\n\n", streamErr.Error())
		flusher.Flush()
		return
	}

	result, done := stream.Result()
	if !done {
		// Context cancelled mid-stream: nothing recorded, nothing final to send.
		logger.Warn("stream ended without final result")
		return
	}

	logger.Info("stream completed",
		zap.Int("output_tokens", result.OutputTokens),
		zap.Bool("tokens_estimated", result.TokensEstimated),
	)
	recordMetrics(result, time.Since(start))

	data, _ := json.Marshal(result)
	fmt.Fprintf(w, "event: result\ndata: %s\n\n", string(data))
	flusher.Flush()
}

// HandleModels returns the model catalog for comparison display.
func (h *Handler) HandleModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"models": h.service.Models(),
	}); err != nil {
		observability.FromContext(r.Context()).Error("failed to encode models", zap.Error(err))
	}
}

// HandleUsage returns (GET) or clears (DELETE) the session usage totals.
func (h *Handler) HandleUsage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	switch r.Method {
	case http.MethodGet:
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(h.service.Usage()); err != nil {
			observability.FromContext(ctx).Error("failed to encode usage", zap.Error(err))
		}
	case http.MethodDelete:
		h.service.ResetUsage(ctx)
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleHealth handles health check requests.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
	}); err != nil {
		// Already written status, can't change it, just log.
		return
	}
}

func recordMetrics(res *domain.GenerationResult, elapsed time.Duration) {
	metrics.RequestDuration.WithLabelValues(res.Model).Observe(elapsed.Seconds())
	metrics.PromptTokens.WithLabelValues(res.Model).Add(float64(res.InputTokens))
	metrics.CompletionTokens.WithLabelValues(res.Model).Add(float64(res.OutputTokens))
	metrics.CostUSD.WithLabelValues(res.Model).Add(res.Cost)
	metrics.RequestCount.WithLabelValues(res.Model, "success").Inc()
}
