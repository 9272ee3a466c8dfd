package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	total decimal.Decimal
	err   error
	calls atomic.Int32
}

func (f *fakeSource) Outstanding(ctx context.Context) (decimal.Decimal, error) {
	f.calls.Add(1)
	return f.total, f.err
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBalanceRefresher_PublishesOutstanding(t *testing.T) {
	m := NewMetrics()
	br := NewBalanceRefresher(&fakeSource{total: decimal.RequireFromString("7200")}, m, quietLogger())

	br.Refresh()

	assert.Contains(t, scrape(t, m), "rentengine_outstanding_balance 7200")
}

func TestBalanceRefresher_KeepsLastValueOnError(t *testing.T) {
	m := NewMetrics()
	src := &fakeSource{total: decimal.NewFromInt(100)}
	br := NewBalanceRefresher(src, m, quietLogger())
	br.Refresh()

	src.err = errors.New("database is locked")
	br.Refresh()

	assert.Contains(t, scrape(t, m), "rentengine_outstanding_balance 100")
}

func TestBalanceRefresher_StartStop(t *testing.T) {
	src := &fakeSource{total: decimal.NewFromInt(1)}
	br := NewBalanceRefresher(src, NewMetrics(), quietLogger())
	br.Interval = 5 * time.Millisecond

	br.Start()
	br.Start()
	require.Eventually(t, func() bool { return src.calls.Load() >= 3 }, time.Second, time.Millisecond)
	br.Stop()

	after := src.calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, src.calls.Load())

	// Stopping twice is harmless.
	br.Stop()
}

func TestBalanceRefresher_DisabledWithZeroInterval(t *testing.T) {
	src := &fakeSource{}
	br := NewBalanceRefresher(src, NewMetrics(), quietLogger())
	br.Interval = 0

	br.Start()
	br.Stop()

	assert.Zero(t, src.calls.Load())
}
