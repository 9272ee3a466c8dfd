/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with realistic
	contracts. Each scenario creates contracts from factory presets and
	posts settlements that demonstrate specific ledger features.

AVAILABLE SCENARIOS:

	office-lease:     Serviced office, first quarter paid on time
	late-payer:       Partial payments carried forward as arrears
	early-exit:       Yearly lease terminated mid-year
	parking-hourly:   Hourly parking spot over one day

HOW SCENARIOS WORK:
 1. Delete every stored contract
 2. Build contract JSON via factory presets
 3. Create contracts through the service
 4. Post settlements, renewals or terminations

USAGE VIA API:

	POST /api/scenarios
	{"scenarioId": "late-payer"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx)
 3. Add case to LoadScenario handler

NOTE:

	Scenarios wipe the store. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Contract handlers
  - factory/presets.go: Contract JSON presets
*/
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/warp/rent-engine/billing"
	"github.com/warp/rent-engine/factory"
	"github.com/warp/rent-engine/lease"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "office-lease",
		Name:        "Serviced Office",
		Description: "Monthly office lease with charges and a discount, first quarter paid",
		Category:    "monthly",
	},
	{
		ID:          "late-payer",
		Name:        "Late Payer",
		Description: "Retail lease with partial payments, arrears carried forward",
		Category:    "monthly",
	},
	{
		ID:          "early-exit",
		Name:        "Early Exit",
		Description: "Yearly lease terminated at the end of June",
		Category:    "lifecycle",
	},
	{
		ID:          "parking-hourly",
		Name:        "Hourly Parking",
		Description: "Parking spot billed by the hour over one day",
		Category:    "hourly",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario wipes the store and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeDomainError(w, "Invalid request body", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ctx := r.Context()
	var load func(context.Context) error
	switch req.ScenarioID {
	case "office-lease":
		load = h.loadOfficeLeaseScenario
	case "late-payer":
		load = h.loadLatePayerScenario
	case "early-exit":
		load = h.loadEarlyExitScenario
	case "parking-hourly":
		load = h.loadParkingHourlyScenario
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	if err := h.reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset store", err)
		return
	}
	h.currentScenario = ""

	if err := load(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}
	h.currentScenario = req.ScenarioID
	h.Logger.Info("scenario loaded", "scenario", req.ScenarioID)

	records, err := h.Service.List(ctx)
	if err != nil {
		writeDomainError(w, "Failed to list contracts", err)
		return
	}
	writeJSON(w, http.StatusOK, LoadScenarioResponse{Scenario: req.ScenarioID, Contracts: toSummaries(records)})
}

// CurrentScenario returns the id of the last loaded scenario, if any.
func (h *Handler) CurrentScenario() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.currentScenario
}

func (h *Handler) reset(ctx context.Context) error {
	records, err := h.Service.List(ctx)
	if err != nil {
		return err
	}
	for _, rec := range records {
		if err := h.Service.Delete(ctx, rec.ID); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// loadOfficeLeaseScenario: 1000 rent + 150 charges - 50 discount, 20% VAT,
// January to March paid by transfer.
func (h *Handler) loadOfficeLeaseScenario(ctx context.Context) error {
	rec, err := h.createFromJSON(ctx, factory.ServicedOfficeJSON("Harbor Office", "01/01/2023", "31/12/2023", 1000, 100, 50, 50))
	if err != nil {
		return err
	}
	for i, day := range []string{"05/01/2023", "03/02/2023", "06/03/2023"} {
		due := rec.Contract.Rents[i].Total.GrandTotal
		rec, err = h.pay(ctx, rec, i, payment(day, due, lease.PaymentTransfer, fmt.Sprintf("VIR-%03d", i+1)))
		if err != nil {
			return err
		}
	}
	return nil
}

// loadLatePayerScenario: 2000 rent at 20% VAT, tenant pays 2000 of 2400 a
// month, plus a late fee debt in March.
func (h *Handler) loadLatePayerScenario(ctx context.Context) error {
	rec, err := h.createFromJSON(ctx, factory.MonthlyLeaseJSON("Corner Shop", "01/01/2023", "31/12/2023", "Retail Unit 4", 2000, 0.2))
	if err != nil {
		return err
	}
	for i, day := range []string{"10/01/2023", "14/02/2023", "20/03/2023"} {
		rec, err = h.pay(ctx, rec, i, payment(day, decimal.NewFromInt(2000), lease.PaymentCheck, fmt.Sprintf("CHK-%d", 1001+i)))
		if err != nil {
			return err
		}
	}
	_, err = h.Service.PayTerm(ctx, rec.ID, rec.Contract.Rents[2].Term, lease.Settlement{
		Debts: []lease.Debt{{Description: "Late payment fee", Amount: decimal.NewFromInt(50)}},
	})
	return err
}

// loadEarlyExitScenario: tenant leaves on 30/06, the second half-year is dropped.
func (h *Handler) loadEarlyExitScenario(ctx context.Context) error {
	rec, err := h.createFromJSON(ctx, factory.MonthlyLeaseJSON("Studio Lease", "01/01/2023", "31/12/2023", "Studio 12", 750, 0))
	if err != nil {
		return err
	}
	rec, err = h.pay(ctx, rec, 0, payment("02/01/2023", decimal.NewFromInt(750), lease.PaymentCash, ""))
	if err != nil {
		return err
	}
	_, err = h.Service.Terminate(ctx, rec.ID, billing.NewTimePoint(2023, 6, 30))
	return err
}

// loadParkingHourlyScenario: 24 hourly terms, the morning paid by card levy.
func (h *Handler) loadParkingHourlyScenario(ctx context.Context) error {
	rec, err := h.createFromJSON(ctx, factory.ParkingHourlyJSON("Lot B Spot 7", "15/03/2023", 2.5))
	if err != nil {
		return err
	}
	_, err = h.pay(ctx, rec, 8, payment("15/03/2023 08:00", decimal.NewFromInt(27), lease.PaymentLevy, "PARK-0315"))
	return err
}

// =============================================================================
// LOADER HELPERS
// =============================================================================

func (h *Handler) createFromJSON(ctx context.Context, doc string) (lease.Record, error) {
	name, spec, err := factory.ParseContract([]byte(doc))
	if err != nil {
		return lease.Record{}, fmt.Errorf("parse %q: %w", name, err)
	}
	return h.Service.Create(ctx, name, spec)
}

func (h *Handler) pay(ctx context.Context, rec lease.Record, index int, p lease.Payment) (lease.Record, error) {
	return h.Service.PayTerm(ctx, rec.ID, rec.Contract.Rents[index].Term, lease.Settlement{Payments: []lease.Payment{p}})
}

func payment(day string, amount decimal.Decimal, typ lease.PaymentType, ref string) lease.Payment {
	return lease.Payment{Date: billing.MustParseTimePoint(day), Amount: amount, Type: typ, Reference: ref}
}
