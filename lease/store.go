/*
store.go - Persistence interface for lease contracts

PURPOSE:
  Defines the interface between the contract service and the database.
  A Record wraps a Contract with its identity and an optimistic-lock
  version; implementations can use SQLite or in-memory storage.

OPTIMISTIC LOCKING:
  Update(rec, expectedVersion) only succeeds if the stored version still
  equals expectedVersion, then stores rec with version+1. A mismatch returns
  ErrConcurrentModification and the caller reloads and retries.

IMPLEMENTATIONS:
  - store.Memory (lease/store): map + RWMutex, for tests and dev
  - sqlite.Store (store/sqlite): SQLite with a per-term projection

SEE ALSO:
  - service.go: Load/apply/save loop using Store
*/
package lease

import (
	"context"
	"time"

	"github.com/warp/rent-engine/billing"
)

// Store sentinels, shared with the engine's error kinds.
var (
	ErrContractNotFound       = billing.ErrContractNotFound
	ErrConcurrentModification = billing.ErrConcurrentModification
)

// Record is a persisted contract.
type Record struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Version   int       `json:"version"`
	Contract  Contract  `json:"contract"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Summary is the list view of a record.
type Summary struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Version   int               `json:"version"`
	Begin     billing.TimePoint `json:"begin"`
	End       billing.TimePoint `json:"end"`
	Terms     int               `json:"terms"`
	Rents     int               `json:"rents"`
	Balance   string            `json:"balance"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// Summarize builds the list view of rec.
func Summarize(rec Record) Summary {
	return Summary{
		ID:        rec.ID,
		Name:      rec.Name,
		Version:   rec.Version,
		Begin:     rec.Contract.Begin,
		End:       rec.Contract.EffectiveEnd(),
		Terms:     rec.Contract.Terms,
		Rents:     len(rec.Contract.Rents),
		Balance:   rec.Contract.Balance().StringFixed(2),
		UpdatedAt: rec.UpdatedAt,
	}
}

// Store persists contract records.
type Store interface {
	// Create inserts rec with Version 1.
	Create(ctx context.Context, rec Record) error

	// Get returns the record or ErrContractNotFound.
	Get(ctx context.Context, id string) (Record, error)

	// List returns all records ordered by creation time.
	List(ctx context.Context) ([]Record, error)

	// Update replaces the record if its stored version is expectedVersion.
	// The stored version becomes expectedVersion+1.
	Update(ctx context.Context, rec Record, expectedVersion int) error

	// Delete removes the record or returns ErrContractNotFound.
	Delete(ctx context.Context, id string) error
}
