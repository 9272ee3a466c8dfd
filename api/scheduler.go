/*
scheduler.go - Periodic outstanding balance refresh

PURPOSE:
  Recomputes the total outstanding balance across all contracts on a
  ticker and publishes it to the rentengine_outstanding_balance gauge.

DESIGN:
  - Runs a background goroutine with configurable interval
  - Refreshes once immediately on Start
  - Errors are logged and the previous gauge value is kept

USAGE:
  refresher := NewBalanceRefresher(store, metrics, logger)
  refresher.Start()
  // ... later
  refresher.Stop()

SEE ALSO:
  - metrics.go: The gauge being updated
  - store/sqlite/sqlite.go: Outstanding over the rent_terms projection
  - lease/service.go: Outstanding over any Store
*/
package api

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// OutstandingSource reports the sum of every contract's closing balance.
type OutstandingSource interface {
	Outstanding(ctx context.Context) (decimal.Decimal, error)
}

// BalanceRefresher keeps the outstanding balance gauge current.
type BalanceRefresher struct {
	Source   OutstandingSource
	Metrics  *Metrics
	Logger   *slog.Logger
	Interval time.Duration
	Timeout  time.Duration

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

func NewBalanceRefresher(source OutstandingSource, metrics *Metrics, logger *slog.Logger) *BalanceRefresher {
	if logger == nil {
		logger = slog.Default()
	}
	return &BalanceRefresher{
		Source:   source,
		Metrics:  metrics,
		Logger:   logger,
		Interval: time.Minute,
		Timeout:  10 * time.Second,
	}
}

// Start begins refreshing. Calling Start twice is a no-op.
func (br *BalanceRefresher) Start() {
	br.mu.Lock()
	defer br.mu.Unlock()

	if br.ticker != nil {
		return
	}
	if br.Interval <= 0 {
		br.Logger.Info("balance refresher disabled")
		return
	}

	br.ticker = time.NewTicker(br.Interval)
	br.stop = make(chan struct{})
	br.wg.Add(1)
	go br.run(br.ticker, br.stop)

	br.Logger.Info("balance refresher started", "interval", br.Interval)
}

// Stop halts the refresher and waits for the running refresh to finish.
func (br *BalanceRefresher) Stop() {
	br.mu.Lock()
	defer br.mu.Unlock()

	if br.ticker == nil {
		return
	}
	br.ticker.Stop()
	close(br.stop)
	br.wg.Wait()
	br.ticker = nil
	br.Logger.Info("balance refresher stopped")
}

func (br *BalanceRefresher) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer br.wg.Done()

	br.Refresh()

	for {
		select {
		case <-ticker.C:
			br.Refresh()
		case <-stop:
			return
		}
	}
}

// Refresh computes the outstanding total once and updates the gauge.
func (br *BalanceRefresher) Refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), br.Timeout)
	defer cancel()

	total, err := br.Source.Outstanding(ctx)
	if err != nil {
		br.Logger.Error("refresh outstanding balance", "error", err)
		return
	}
	br.Metrics.SetOutstanding(total)
	br.Logger.Debug("outstanding balance refreshed", "total", total.StringFixed(2))
}
