/*
handlers.go - HTTP API handlers for the rent engine

PURPOSE:
  Exposes the contract service via REST API. Handles HTTP request/response,
  JSON decoding through the factory, and delegates to lease.Service.

ENDPOINTS:
  Contracts:
    GET    /api/contracts                         List contract summaries
    POST   /api/contracts                         Create contract from JSON
    GET    /api/contracts/{id}                    Get the full record
    PATCH  /api/contracts/{id}                    Update terms, regenerate rents
    DELETE /api/contracts/{id}                    Delete contract
    POST   /api/contracts/{id}/renew              Renew for another cycle
    POST   /api/contracts/{id}/terminate          Terminate at a date
    POST   /api/contracts/{id}/terms/{term}/payments  Settle one term
    GET    /api/contracts/{id}/rents              Rent schedule with balance

  Scenarios:
    GET    /api/scenarios                         List demo scenarios
    POST   /api/scenarios                         Load a demo scenario

REQUEST FLOW:
  1. Read body (bounded by maxBodyBytes)
  2. Parse through factory (InvalidDocument on bad JSON)
  3. Call lease.Service
  4. Record metrics, serialize response

ERROR HANDLING:
  See errors.go for the kind to status mapping.

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/warp/rent-engine/billing"
	"github.com/warp/rent-engine/factory"
	"github.com/warp/rent-engine/lease"
)

const maxBodyBytes = 1 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Pinger is implemented by stores that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	Service *lease.Service
	Metrics *Metrics
	Logger  *slog.Logger
	Health  Pinger // optional

	mu              sync.Mutex
	currentScenario string
}

func NewHandler(svc *lease.Service, metrics *Metrics, logger *slog.Logger) *Handler {
	if metrics == nil {
		metrics = NewMetrics()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{Service: svc, Metrics: metrics, Logger: logger}
}

// =============================================================================
// CONTRACT HANDLERS
// =============================================================================

// ListContracts returns a summary of every contract.
func (h *Handler) ListContracts(w http.ResponseWriter, r *http.Request) {
	records, err := h.Service.List(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to list contracts", err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaries(records))
}

// CreateContract parses a contract document and generates its rents.
func (h *Handler) CreateContract(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeDomainError(w, "Invalid request body", err)
		return
	}
	name, spec, err := factory.ParseContract(body)
	if err != nil {
		writeDomainError(w, "Invalid contract", err)
		return
	}

	start := time.Now()
	rec, err := h.Service.Create(r.Context(), name, spec)
	h.Metrics.Observe("create", start, err)
	if err != nil {
		writeDomainError(w, "Failed to create contract", err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *Handler) GetContract(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Contract not found", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// UpdateContract applies a patch and regenerates the rent schedule.
func (h *Handler) UpdateContract(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeDomainError(w, "Invalid request body", err)
		return
	}
	patch, err := factory.ParsePatch(body)
	if err != nil {
		writeDomainError(w, "Invalid patch", err)
		return
	}

	start := time.Now()
	rec, err := h.Service.Update(r.Context(), chi.URLParam(r, "id"), patch)
	h.Metrics.Observe("update", start, err)
	if err != nil {
		writeDomainError(w, "Failed to update contract", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) DeleteContract(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	err := h.Service.Delete(r.Context(), chi.URLParam(r, "id"))
	h.Metrics.Observe("delete", start, err)
	if err != nil {
		writeDomainError(w, "Failed to delete contract", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RenewContract(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec, err := h.Service.Renew(r.Context(), chi.URLParam(r, "id"))
	h.Metrics.Observe("renew", start, err)
	if err != nil {
		writeDomainError(w, "Failed to renew contract", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) TerminateContract(w http.ResponseWriter, r *http.Request) {
	var req TerminateRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeDomainError(w, "Invalid request body", err)
		return
	}
	if req.Date == "" {
		writeDomainError(w, "Invalid request body", billing.NewError(billing.KindInvalidDocument, "date is required"))
		return
	}
	date, err := billing.ParseTimePoint(req.Date)
	if err != nil {
		writeDomainError(w, "Invalid termination date",
			billing.NewError(billing.KindInvalidDocument, "invalid date %q: %v", req.Date, err))
		return
	}

	start := time.Now()
	rec, err := h.Service.Terminate(r.Context(), chi.URLParam(r, "id"), date)
	h.Metrics.Observe("terminate", start, err)
	if err != nil {
		writeDomainError(w, "Failed to terminate contract", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// PayTerm posts a settlement (payments, discounts, debts, VAT rows) to one term.
func (h *Handler) PayTerm(w http.ResponseWriter, r *http.Request) {
	term, err := parseTerm(chi.URLParam(r, "term"))
	if err != nil {
		writeDomainError(w, "Invalid term", err)
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		writeDomainError(w, "Invalid request body", err)
		return
	}
	settlement, err := factory.ParseSettlement(body)
	if err != nil {
		writeDomainError(w, "Invalid settlement", err)
		return
	}

	start := time.Now()
	rec, err := h.Service.PayTerm(r.Context(), chi.URLParam(r, "id"), term, settlement)
	h.Metrics.Observe("pay_term", start, err)
	if err != nil {
		writeDomainError(w, "Failed to settle term", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// GetRents returns the rent schedule and closing balance.
func (h *Handler) GetRents(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Contract not found", err)
		return
	}
	writeJSON(w, http.StatusOK, toRentsResponse(rec))
}

// =============================================================================
// OPERATIONS
// =============================================================================

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if h.Health != nil {
		if err := h.Health.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Error: err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, billing.NewError(billing.KindInvalidDocument, "failed to read body: %v", err)
	}
	return body, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	body, err := readBody(w, r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return billing.NewError(billing.KindInvalidDocument, "failed to parse JSON: %v", err)
	}
	return nil
}
