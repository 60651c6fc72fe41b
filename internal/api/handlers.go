package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/miradorstack/alertmanager-cachet/internal/metrics"
	"github.com/miradorstack/alertmanager-cachet/internal/models"
	"github.com/miradorstack/alertmanager-cachet/internal/utils"
)

// RequestIDHeader carries the correlation id of a webhook delivery.
const RequestIDHeader = "X-Request-Id"

const serializationFailureBody = "Couldn't serialize cachet responses."

// Reconciler applies one decoded alert batch to Cachet.
type Reconciler interface {
	Reconcile(ctx context.Context, batch models.AlertBatch, token string) ([]models.DirectiveOutcome, error)
}

// Handler serves the Alertmanager webhook and the health endpoint.
type Handler struct {
	logger        *slog.Logger
	reconciler    Reconciler
	fallbackToken string
	maxBodyBytes  int64
	marshal       func(any) ([]byte, error)
	routes        http.Handler
}

// NewHandler wires the webhook routes. fallbackToken is used when a request carries no
// bearer token; maxBodyBytes bounds the accepted payload size.
func NewHandler(logger *slog.Logger, reconciler Reconciler, fallbackToken string, maxBodyBytes int64) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = 1 << 20
	}
	h := &Handler{
		logger:        logger,
		reconciler:    reconciler,
		fallbackToken: fallbackToken,
		maxBodyBytes:  maxBodyBytes,
		marshal:       json.Marshal,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/{$}", h.webhook)
	mux.HandleFunc("GET /health", h.health)
	h.routes = h.withRequestContext(mux)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.routes.ServeHTTP(w, r)
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) webhook(w http.ResponseWriter, r *http.Request) {
	logger := utils.LoggerFromContext(r.Context(), h.logger)

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		metrics.ObserveWebhook(metrics.ResultMethodRejected)
		return
	}

	batch, err := DecodeWebhook(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		logger.Warn("rejecting alertmanager payload", slog.String("op", utils.Op(err)), slog.Any("error", err))
		http.Error(w, "malformed alertmanager payload", status)
		metrics.ObserveWebhook(metrics.ResultMalformed)
		return
	}

	token := ResolveCredential(r.Header.Get("Authorization"), h.fallbackToken)
	outcomes, err := h.reconciler.Reconcile(r.Context(), batch, token)
	switch {
	case errors.Is(err, models.ErrMissingCredential):
		w.WriteHeader(http.StatusUnauthorized)
		metrics.ObserveWebhook(metrics.ResultUnauthorized)
		return
	case err != nil:
		logger.Error("reconcile failed", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		metrics.ObserveWebhook(metrics.ResultInternal)
		return
	}

	if outcomes == nil {
		outcomes = []models.DirectiveOutcome{}
	}
	body, err := h.marshal(outcomes)
	if err != nil {
		err = utils.NewAppError("encode outcomes", "serialize cachet responses", errors.Join(models.ErrSerialization, err))
		logger.Error("couldn't serialize the cachet responses", slog.Any("error", err))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(serializationFailureBody))
		metrics.ObserveWebhook(metrics.ResultSerialization)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
	metrics.ObserveWebhook(metrics.ResultOK)
}

// withRequestContext assigns a request id, attaches a request-scoped logger and writes
// an access log line once the request completes.
func (h *Handler) withRequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		logger := h.logger.With(slog.String("request_id", requestID))
		ctx := utils.ContextWithLogger(r.Context(), logger)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(ctx))

		logger.Debug("request served",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote", r.RemoteAddr),
			slog.Int("status", rec.status),
			slog.Duration("duration", time.Since(start)),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
