package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/punchamoorthee/idempay/internal/models"
	"github.com/punchamoorthee/idempay/internal/service"
	"github.com/punchamoorthee/idempay/internal/store"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payments_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"method", "endpoint"})

	paymentOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_outcomes_total",
		Help: "Coordinator outcomes per submission",
	}, []string{"outcome"})
)

type Handler struct {
	service *service.PaymentService
}

func NewHandler(svc *service.PaymentService) *Handler {
	return &Handler{service: svc}
}

func (h *Handler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) SubmitPaymentHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/payments"))
	defer timer.ObserveDuration()

	var req models.PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.count("POST", "/payments", 400)
		respondWithError(w, http.StatusBadRequest, "Malformed JSON body")
		return
	}

	// Validations, rejected before any state lookup
	if req.IdempotencyKey == "" {
		h.count("POST", "/payments", 400)
		respondWithError(w, http.StatusBadRequest, "idempotency_key is required")
		return
	}
	if req.Amount <= 0 {
		h.count("POST", "/payments", 422)
		respondWithError(w, http.StatusUnprocessableEntity, "Positive amount required")
		return
	}
	if req.SimulatedOutcome == "" {
		req.SimulatedOutcome = models.OutcomeSuccess
	}
	if !req.SimulatedOutcome.Valid() {
		h.count("POST", "/payments", 422)
		respondWithError(w, http.StatusUnprocessableEntity, "Unknown simulated_outcome")
		return
	}

	result, err := h.service.Submit(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrFingerprintMismatch):
			h.count("POST", "/payments", 400)
			respondWithError(w, http.StatusBadRequest, "Idempotency key reuse with different request data is not allowed")
		case errors.Is(err, service.ErrInFlight):
			h.count("POST", "/payments", 409)
			respondWithJSON(w, http.StatusConflict, map[string]interface{}{
				"message": "Payment is still processing. Please try again later.",
				"state":   models.StateProcessing,
			})
		case errors.Is(err, service.ErrConcurrentRequest):
			h.count("POST", "/payments", 409)
			respondWithError(w, http.StatusConflict, "Concurrent request detected. Please retry.")
		default:
			h.count("POST", "/payments", 500)
			respondWithError(w, http.StatusInternalServerError, "Internal Server Error")
		}
		return
	}

	paymentOutcomesTotal.WithLabelValues(string(result.Status)).Inc()

	switch result.Status {
	case service.ResultFailed:
		h.count("POST", "/payments", 502)
		respondWithJSON(w, http.StatusBadGateway, map[string]interface{}{
			"message": "Bank failure simulated. Retry allowed.",
			"state":   models.StateFailed,
		})
	case service.ResultLost:
		// The payment committed, but this response stands in for one lost
		// in transit. A retry with the same key replays the real payload.
		h.count("POST", "/payments", 504)
		respondWithError(w, http.StatusGatewayTimeout, "Network timeout simulated")
	default:
		h.count("POST", "/payments", 200)
		respondWithJSON(w, http.StatusOK, result.Response)
	}
}

func (h *Handler) GetPaymentHandler(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	rec, err := h.service.GetPayment(r.Context(), key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.count("GET", "/payments/{key}", 404)
			respondWithError(w, http.StatusNotFound, "Payment not found")
			return
		}
		h.count("GET", "/payments/{key}", 500)
		respondWithError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	h.count("GET", "/payments/{key}", 200)
	respondWithJSON(w, http.StatusOK, rec)
}

func (h *Handler) count(method, endpoint string, code int) {
	httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(code)).Inc()
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"message": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}
