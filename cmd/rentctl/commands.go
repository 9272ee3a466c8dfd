package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/warp/rent-engine/billing"
	"github.com/warp/rent-engine/config"
	"github.com/warp/rent-engine/factory"
	"github.com/warp/rent-engine/lease"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	asJSON             bool
	carry              string
	discountAllocation string
	proration          string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:           "rentctl",
		Short:         "Rent schedule and payment tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := rootCmd.PersistentFlags()
	flags.BoolVar(&opts.asJSON, "json", false, "print the contract as JSON instead of a term table")
	flags.StringVar(&opts.carry, "carry", "", "balance carry: term_remainder or running")
	flags.StringVar(&opts.discountAllocation, "discount-allocation", "", "discount allocation: per_term or per_property")
	flags.StringVar(&opts.proration, "proration", "", "proration: time or none")

	rootCmd.AddCommand(
		scheduleCmd(opts),
		payCmd(opts),
		terminateCmd(opts),
		renewCmd(opts),
	)
	return rootCmd
}

// =============================================================================
// COMMANDS
// =============================================================================

func scheduleCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule <spec.json>",
		Short: "Generate the rent schedule of a new contract",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := opts.ledger()
			if err != nil {
				return err
			}
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			_, spec, err := factory.ParseContract(data)
			if err != nil {
				return err
			}
			c, err := ledger.Create(spec)
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), c)
		},
	}
}

func payCmd(opts *globalOptions) *cobra.Command {
	var (
		term      string
		amount    string
		payType   string
		reference string
		date      string
	)
	cmd := &cobra.Command{
		Use:   "pay <contract.json>",
		Short: "Post a payment against one term",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := opts.ledger()
			if err != nil {
				return err
			}
			c, err := readContract(cmd, args[0])
			if err != nil {
				return err
			}
			id, err := strconv.ParseInt(term, 10, 64)
			if err != nil {
				return fmt.Errorf("--term %q must be a YYYYMMDDHH number", term)
			}
			value, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("--amount %q is not a number", amount)
			}
			if date == "" {
				// Default to the first day (or hour) of the paid term.
				date = billing.TimePoint{Time: billing.Term(id).Time(), Granularity: c.Frequency.Granularity()}.String()
			}

			settlement, err := factory.SettlementJSON{
				Payments: []factory.PaymentJSON{{Date: date, Amount: value, Type: payType, Reference: reference}},
			}.Settlement()
			if err != nil {
				return err
			}
			next, err := ledger.PayTerm(c, billing.Term(id), settlement)
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), next)
		},
	}
	cmd.Flags().StringVar(&term, "term", "", "term identifier, YYYYMMDDHH")
	cmd.Flags().StringVar(&amount, "amount", "", "amount paid")
	cmd.Flags().StringVar(&payType, "type", string(lease.PaymentTransfer), "cash, check, transfer or levy")
	cmd.Flags().StringVar(&reference, "reference", "", "payment reference")
	cmd.Flags().StringVar(&date, "date", "", "payment date, DD/MM/YYYY (default: term start)")
	_ = cmd.MarkFlagRequired("term")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func terminateCmd(opts *globalOptions) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "terminate <contract.json>",
		Short: "Terminate a contract, dropping the terms after the date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := opts.ledger()
			if err != nil {
				return err
			}
			c, err := readContract(cmd, args[0])
			if err != nil {
				return err
			}
			at, err := billing.ParseTimePoint(date)
			if err != nil {
				return fmt.Errorf("--date: %w", err)
			}
			next, err := ledger.Terminate(c, at)
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), next)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "termination date, DD/MM/YYYY")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func renewCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "renew <contract.json>",
		Short: "Extend a contract by another cycle of terms",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := opts.ledger()
			if err != nil {
				return err
			}
			c, err := readContract(cmd, args[0])
			if err != nil {
				return err
			}
			next, err := ledger.Renew(c)
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), next)
		},
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// ledger builds the policy from the environment, then the flags.
func (o *globalOptions) ledger() (lease.Ledger, error) {
	cfg, err := config.FromLookup(os.LookupEnv)
	if err != nil {
		return lease.Ledger{}, err
	}
	policy := cfg.Policy
	if o.carry != "" {
		policy.BalanceCarry = lease.BalanceCarry(o.carry)
	}
	if o.discountAllocation != "" {
		policy.DiscountAllocation = lease.DiscountAllocation(o.discountAllocation)
	}
	if o.proration != "" {
		policy.Proration = billing.Proration(o.proration)
	}
	if err := policy.Validate(); err != nil {
		return lease.Ledger{}, err
	}
	return lease.Ledger{Policy: policy}, nil
}

func (o *globalOptions) print(w io.Writer, c lease.Contract) error {
	if o.asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(c)
	}
	return printTable(w, c)
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// readContract loads a contract as printed by --json.
func readContract(cmd *cobra.Command, path string) (lease.Contract, error) {
	data, err := readInput(cmd, path)
	if err != nil {
		return lease.Contract{}, err
	}
	var c lease.Contract
	if err := json.Unmarshal(data, &c); err != nil {
		return lease.Contract{}, billing.NewError(billing.KindInvalidDocument, "failed to parse contract JSON: %v", err)
	}
	return c, nil
}

func printTable(w io.Writer, c lease.Contract) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "TERM\tPRE-TAX\tCHARGES\tDISCOUNT\tDEBTS\tVAT\tTOTAL\tBALANCE\tPAID\tNEW BALANCE\t")
	for _, r := range c.Rents {
		t := r.Total
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			r.Term,
			t.PreTaxAmount.StringFixed(2),
			t.Charges.StringFixed(2),
			t.Discount.StringFixed(2),
			t.Debts.StringFixed(2),
			t.VAT.StringFixed(2),
			t.GrandTotal.StringFixed(2),
			t.Balance.StringFixed(2),
			t.Payment.StringFixed(2),
			t.NewBalance.StringFixed(2),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%s to %s, %d terms, balance %s\n",
		c.Begin, c.EffectiveEnd(), len(c.Rents), c.Balance().StringFixed(2))
	return err
}
