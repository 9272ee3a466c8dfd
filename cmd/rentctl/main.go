/*
main.go - rentctl, offline rent schedule tool

PURPOSE:
  Runs the contract ledger on JSON files without a server or database.
  Contract documents in, contract state (with rents) out.

COMMANDS:
  schedule <spec.json>       Generate the rent schedule of a new contract
  pay <contract.json>        Post a payment against one term
  terminate <contract.json>  Terminate at a date, dropping later terms
  renew <contract.json>      Extend by one more cycle of terms

  "-" reads the document from stdin, so commands chain:
    rentctl schedule lease.json --json | rentctl pay - --term 2023010100 --amount 2400

OUTPUT:
  A term table by default, the contract JSON with --json.

POLICY:
  The RENT_* variables (see config/config.go) pick the billing policy;
  --carry, --discount-allocation and --proration override them.
*/
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
