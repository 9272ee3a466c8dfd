/*
service.go - Contract operations backed by a Store

PURPOSE:
  Runs each ledger operation as load -> apply -> conditional save. The
  ledger stays pure; the service owns ids, timestamps and versions.

CONCURRENCY:
  Two writers on the same contract both load version N. The first save
  moves the record to N+1; the second gets ErrConcurrentModification,
  reloads and re-applies its operation on the fresh contract. After
  maxAttempts conflicts the error is returned to the caller. Domain errors
  are returned immediately.

SEE ALSO:
  - ledger.go: The operations being applied
  - store.go: Store interface and Record
*/
package lease

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/rent-engine/billing"
)

const maxAttempts = 3

// Service applies ledger operations to stored contracts.
type Service struct {
	Store  Store
	Ledger Ledger
	Logger *slog.Logger

	// Now and NewID are replaceable in tests.
	Now   func() time.Time
	NewID func() string
}

func NewService(store Store, policy Policy, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		Store:  store,
		Ledger: Ledger{Policy: policy},
		Logger: logger,
		Now:    func() time.Time { return time.Now().UTC() },
		NewID:  uuid.NewString,
	}
}

// =============================================================================
// READS
// =============================================================================

func (s *Service) Get(ctx context.Context, id string) (Record, error) {
	return s.Store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Record, error) {
	return s.Store.List(ctx)
}

// Outstanding sums the closing balance of every stored contract.
func (s *Service) Outstanding(ctx context.Context) (decimal.Decimal, error) {
	records, err := s.Store.List(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return billing.SumBy(records, func(rec Record) decimal.Decimal { return rec.Contract.Balance() }), nil
}

// =============================================================================
// WRITES
// =============================================================================

// Create generates the contract's rents and stores it under a new id.
func (s *Service) Create(ctx context.Context, name string, spec Spec) (Record, error) {
	c, err := s.Ledger.Create(spec)
	if err != nil {
		return Record{}, err
	}
	now := s.Now()
	rec := Record{
		ID:        s.NewID(),
		Name:      name,
		Version:   1,
		Contract:  c,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Store.Create(ctx, rec); err != nil {
		return Record{}, fmt.Errorf("store contract: %w", err)
	}
	s.Logger.Info("contract created", "id", rec.ID, "name", name, "rents", len(c.Rents))
	return rec, nil
}

func (s *Service) Update(ctx context.Context, id string, patch Patch) (Record, error) {
	return s.mutate(ctx, id, "update", func(c Contract) (Contract, error) {
		return s.Ledger.Update(c, patch)
	})
}

func (s *Service) Renew(ctx context.Context, id string) (Record, error) {
	return s.mutate(ctx, id, "renew", s.Ledger.Renew)
}

func (s *Service) Terminate(ctx context.Context, id string, date billing.TimePoint) (Record, error) {
	return s.mutate(ctx, id, "terminate", func(c Contract) (Contract, error) {
		return s.Ledger.Terminate(c, date)
	})
}

func (s *Service) PayTerm(ctx context.Context, id string, term billing.Term, settlement Settlement) (Record, error) {
	return s.mutate(ctx, id, "pay_term", func(c Contract) (Contract, error) {
		return s.Ledger.PayTerm(c, term, settlement)
	})
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.Store.Delete(ctx, id); err != nil {
		return err
	}
	s.Logger.Info("contract deleted", "id", id)
	return nil
}

// mutate loads the record, applies op and saves with the loaded version,
// retrying on version conflicts.
func (s *Service) mutate(ctx context.Context, id, operation string, op func(Contract) (Contract, error)) (Record, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Record{}, err
		}
		rec, err := s.Store.Get(ctx, id)
		if err != nil {
			return Record{}, err
		}
		next, err := op(rec.Contract)
		if err != nil {
			return Record{}, err
		}

		updated := rec
		updated.Contract = next
		updated.UpdatedAt = s.Now()
		err = s.Store.Update(ctx, updated, rec.Version)
		if err == nil {
			updated.Version = rec.Version + 1
			s.Logger.Info("contract "+operation, "id", id, "version", updated.Version, "rents", len(next.Rents))
			return updated, nil
		}
		if !billing.IsRetryable(err) {
			return Record{}, fmt.Errorf("save contract %s: %w", id, err)
		}
		s.Logger.Warn("version conflict, retrying", "id", id, "operation", operation, "attempt", attempt)
		lastErr = err
	}
	return Record{}, fmt.Errorf("%s contract %s after %d attempts: %w", operation, id, maxAttempts, lastErr)
}
