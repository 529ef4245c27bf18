package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ipandis/dorakit/pkg/config"
	"github.com/ipandis/dorakit/pkg/workload"
)

var runCmd = &cobra.Command{
	Use:   "run <trx-type> <input-json>",
	Short: "Run one transaction and block for its outcome",
	Long: `run submits a single transaction of the given type, built from
the supplied JSON input, and blocks until the coordinator reports its
commit/abort outcome.

Recognized trx-type values: tm1.get_new_dest, tm1.upd_sub_data,
tm1.ins_call_fwd, tpcc.payment, tpcc.balance_update.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		trxType, raw := args[0], args[1]

		input, err := decodeInput(trxType, raw)
		if err != nil {
			return err
		}

		sys, err := buildSystem(config.FromEnv(), dataDirFlag(cmd))
		if err != nil {
			return err
		}
		defer sys.Close()

		out, err := sys.coord.Run(context.Background(), trxType, input)
		if err != nil {
			return fmt.Errorf("dorakit: run %s: %w", trxType, err)
		}

		fmt.Printf("status=%s reason=%s\n", out.Status, out.Reason)
		return nil
	},
}

// decodeInput unmarshals raw JSON into the workload.*Input type
// trxType expects. A type switch rather than reflection keeps each
// transaction type's shape explicit and in one place.
func decodeInput(trxType, raw string) (any, error) {
	var target any
	switch trxType {
	case "tm1.get_new_dest":
		target = &workload.GetNewDestInput{}
	case "tm1.upd_sub_data":
		target = &workload.UpdSubDataInput{}
	case "tm1.ins_call_fwd":
		target = &workload.InsCallFwdInput{}
	case "tpcc.payment":
		target = &workload.PaymentInput{}
	case "tpcc.balance_update":
		target = &workload.BalanceUpdateInput{}
	default:
		return nil, fmt.Errorf("dorakit: unknown transaction type %q", trxType)
	}

	if err := json.Unmarshal([]byte(raw), target); err != nil {
		return nil, fmt.Errorf("dorakit: decode input for %s: %w", trxType, err)
	}

	switch v := target.(type) {
	case *workload.GetNewDestInput:
		return *v, nil
	case *workload.UpdSubDataInput:
		return *v, nil
	case *workload.InsCallFwdInput:
		return *v, nil
	case *workload.PaymentInput:
		return *v, nil
	case *workload.BalanceUpdateInput:
		return *v, nil
	default:
		return nil, fmt.Errorf("dorakit: unreachable: unknown input type for %s", trxType)
	}
}
