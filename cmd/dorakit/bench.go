package main

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/ipandis/dorakit/pkg/config"
	"github.com/ipandis/dorakit/pkg/txn"
	"github.com/ipandis/dorakit/pkg/workload"
)

var benchCmd = &cobra.Command{
	Use:   "bench <trx-type> <count> <concurrency>",
	Short: "Run many transactions concurrently and report aggregate outcomes",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		trxType := args[0]
		count, err := parsePositiveInt(args[1])
		if err != nil {
			return fmt.Errorf("dorakit: count: %w", err)
		}
		concurrency, err := parsePositiveInt(args[2])
		if err != nil {
			return fmt.Errorf("dorakit: concurrency: %w", err)
		}

		sys, err := buildSystem(config.FromEnv(), dataDirFlag(cmd))
		if err != nil {
			return err
		}
		defer sys.Close()

		var committed, aborted uint64
		var totalLatency time.Duration
		var latencyMu sync.Mutex

		sem := make(chan struct{}, concurrency)
		var wg sync.WaitGroup
		start := time.Now()

		for i := 0; i < count; i++ {
			input, err := benchInput(trxType, i)
			if err != nil {
				return err
			}

			sem <- struct{}{}
			wg.Add(1)
			go func(input any) {
				defer wg.Done()
				defer func() { <-sem }()

				attemptStart := time.Now()
				out, err := sys.coord.Run(context.Background(), trxType, input)
				latencyMu.Lock()
				totalLatency += time.Since(attemptStart)
				latencyMu.Unlock()
				if err != nil || out.Status != txn.Committed {
					atomic.AddUint64(&aborted, 1)
					return
				}
				atomic.AddUint64(&committed, 1)
			}(input)
		}
		wg.Wait()
		elapsed := time.Since(start)

		fmt.Printf("transactions=%d committed=%d aborted=%d elapsed=%s avg_latency=%s throughput=%.1f/s\n",
			count, committed, aborted, elapsed, totalLatency/time.Duration(count), float64(count)/elapsed.Seconds())
		return nil
	},
}

func parsePositiveInt(s string) (int, error) {
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive, got %d", n)
	}
	return n, nil
}

// benchInput builds the i-th synthetic input for trxType, spreading
// generated ids across a handful of values so a benchmark run exercises
// more than one partition.
func benchInput(trxType string, i int) (any, error) {
	id := int64(i%64) + 1

	switch trxType {
	case "tm1.get_new_dest":
		return workload.GetNewDestInput{SubscriberID: id, SFType: 1}, nil
	case "tm1.upd_sub_data":
		return workload.UpdSubDataInput{SubscriberID: id, SFType: 1, Bit: 1, BitValue: true, Data: int64(i)}, nil
	case "tm1.ins_call_fwd":
		return workload.InsCallFwdInput{SubscriberID: id, SFType: 1, StartTime: int64(i), EndTime: int64(i + 100), Numberx: "555-0100"}, nil
	case "tpcc.payment":
		return workload.PaymentInput{WarehouseID: id, CustomerID: id, Amount: 10}, nil
	case "tpcc.balance_update":
		return workload.BalanceUpdateInput{AccountID: id, Delta: 1}, nil
	default:
		return nil, fmt.Errorf("dorakit: unknown transaction type %q", trxType)
	}
}
