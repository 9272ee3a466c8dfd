package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/warp/rent-engine/billing"
)

// statusFor maps an error to an HTTP status:
//   - 400: malformed request documents
//   - 404: unknown contract or term
//   - 409: version conflict that survived the service retries
//   - 422: well-formed input the ledger rejects
//   - 500: everything else
func statusFor(err error) int {
	switch billing.KindOf(err) {
	case billing.KindInvalidDocument:
		return http.StatusBadRequest
	case billing.KindContractNotFound, billing.KindTermNotFound:
		return http.StatusNotFound
	case billing.KindConcurrentModification:
		return http.StatusConflict
	case billing.KindUnsupportedFrequency, billing.KindInvalidDateRange, billing.KindMissingProperties,
		billing.KindTerminationOutOfRange, billing.KindRentsNotGenerated, billing.KindInvalidAmount,
		billing.KindPaidTermDropped, billing.KindContractTerminated:
		return http.StatusUnprocessableEntity
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
		resp.Code = string(billing.KindOf(err))
	}
	writeJSON(w, status, resp)
}

// writeDomainError picks the status from the error itself.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	writeError(w, statusFor(err), message, err)
}
