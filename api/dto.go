/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication that are not already
  covered by the factory documents (request bodies) or lease.Record
  (contract responses).

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

SEE ALSO:
  - handlers.go: Uses these types
  - factory/contract.go: ContractJSON, PatchJSON, SettlementJSON bodies
*/
package api

import (
	"github.com/warp/rent-engine/billing"
	"github.com/warp/rent-engine/lease"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// TerminateRequest is the body of POST /api/contracts/{id}/terminate.
type TerminateRequest struct {
	Date string `json:"date"` // DD/MM/YYYY or DD/MM/YYYY HH:mm
}

// RentsResponse lists a contract's rents with its closing balance.
type RentsResponse struct {
	ContractID string       `json:"contractId"`
	Terms      int          `json:"terms"`
	Balance    string       `json:"balance"`
	Rents      []lease.Rent `json:"rents"`
}

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// LoadScenarioRequest is the body of POST /api/scenarios.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenarioId"`
}

// LoadScenarioResponse lists the contracts a scenario created.
type LoadScenarioResponse struct {
	Scenario  string          `json:"scenario"`
	Contracts []lease.Summary `json:"contracts"`
}

type HealthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// ErrorResponse is the body of every non-2xx response. Code is the
// billing error kind when known.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toRentsResponse(rec lease.Record) RentsResponse {
	rents := rec.Contract.Rents
	if rents == nil {
		rents = []lease.Rent{}
	}
	return RentsResponse{
		ContractID: rec.ID,
		Terms:      rec.Contract.Terms,
		Balance:    rec.Contract.Balance().StringFixed(2),
		Rents:      rents,
	}
}

func toSummaries(records []lease.Record) []lease.Summary {
	out := make([]lease.Summary, len(records))
	for i, rec := range records {
		out[i] = lease.Summarize(rec)
	}
	return out
}

func parseTerm(raw string) (billing.Term, error) {
	var term int64
	for _, c := range raw {
		if c < '0' || c > '9' {
			return 0, billing.NewError(billing.KindInvalidDocument, "term %q must be a YYYYMMDDHH number", raw)
		}
		term = term*10 + int64(c-'0')
	}
	if len(raw) != 10 {
		return 0, billing.NewError(billing.KindInvalidDocument, "term %q must be a YYYYMMDDHH number", raw)
	}
	return billing.Term(term), nil
}
