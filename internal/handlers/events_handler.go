package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/attolytics/attolytics/internal/auth"
	"github.com/attolytics/attolytics/internal/executor"
	"github.com/attolytics/attolytics/internal/httputil"
	"github.com/attolytics/attolytics/internal/service"
	"github.com/attolytics/attolytics/internal/validator"
)

// EventsHandler exposes the ingestion endpoint over HTTP. All pipeline
// semantics live in the service; this layer only decodes, maps errors
// to statuses, and answers per-tenant CORS.
type EventsHandler struct {
	service      *service.IngestService
	maxBodyBytes int64
}

func NewEventsHandler(svc *service.IngestService, maxBodyBytes int64) *EventsHandler {
	return &EventsHandler{service: svc, maxBodyBytes: maxBodyBytes}
}

// submitRequest is the wire shape of one batch submission.
type submitRequest struct {
	SecretKey string               `json:"secret_key"`
	Events    []validator.RawEvent `json:"events"`
}

// submitResponse acknowledges a committed batch with per-table counts.
type submitResponse struct {
	Inserted map[string]int `json:"inserted"`
}

// HandleSubmit handles POST /apps/{tenant}/events.
func (h *EventsHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("tenant")
	h.setCORSHeaders(w, tenantID)

	if h.maxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}
	defer r.Body.Close()

	// UseNumber keeps i64 values exact instead of collapsing every
	// number to float64.
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()

	var req submitRequest
	if err := dec.Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid_json", "request body is not valid JSON")
		return
	}

	ack, err := h.service.SubmitEvents(r.Context(), tenantID, req.SecretKey, req.Events)
	if err != nil {
		h.writeSubmitError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, submitResponse{Inserted: ack.Rows})
}

// HandlePreflight handles OPTIONS /apps/{tenant}/events.
func (h *EventsHandler) HandlePreflight(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.service.Tenant(r.PathValue("tenant")); !ok {
		httputil.WriteError(w, http.StatusNotFound, "unknown_tenant", "no such tenant")
		return
	}
	h.setCORSHeaders(w, r.PathValue("tenant"))
	w.WriteHeader(http.StatusNoContent)
}

// setCORSHeaders serves each tenant's declared allowed origin. CORS is
// per tenant, not global, so this cannot live in router middleware.
func (h *EventsHandler) setCORSHeaders(w http.ResponseWriter, tenantID string) {
	tenant, ok := h.service.Tenant(tenantID)
	if !ok || tenant.AllowOrigin == "" {
		return
	}
	w.Header().Set("Access-Control-Allow-Origin", tenant.AllowOrigin)
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func (h *EventsHandler) writeSubmitError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrUnknownTenant):
		httputil.WriteError(w, http.StatusNotFound, "unknown_tenant", "no such tenant")

	case errors.Is(err, auth.ErrInvalidCredential):
		httputil.WriteError(w, http.StatusForbidden, "invalid_credential", "credential does not match")

	case errors.Is(err, service.ErrRateLimited):
		httputil.WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many batches, slow down")

	default:
		var evErr *service.EventError
		if errors.As(err, &evErr) {
			status := http.StatusBadRequest
			if evErr.Err.Kind == validator.KindTableNotPermitted {
				// Authorization failure, not a malformed payload.
				status = http.StatusForbidden
			}
			idx := evErr.Index
			httputil.WriteJSON(w, status, httputil.ErrorBody{
				Kind:       string(evErr.Err.Kind),
				Message:    evErr.Error(),
				EventIndex: &idx,
				Table:      evErr.Err.Table,
				Column:     evErr.Err.Column,
			})
			return
		}

		var execErr *executor.Error
		if errors.As(err, &execErr) {
			status := http.StatusInternalServerError
			if errors.Is(execErr, executor.ErrPoolTimeout) {
				status = http.StatusServiceUnavailable
			}
			httputil.WriteJSON(w, status, httputil.ErrorBody{
				Kind:    "execution_error",
				Message: execErr.Error(),
				Table:   execErr.Table,
			})
			return
		}

		httputil.WriteError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// Health handles GET /healthz.
func (h *EventsHandler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Ready handles GET /readyz. Ready means the schema is loaded (implied
// by the process running) and the database answers.
func (h *EventsHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ready(r.Context()); err != nil {
		httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "database unreachable",
		})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
