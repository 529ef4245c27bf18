package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ipandis/dorakit/pkg/config"
)

var submitCmd = &cobra.Command{
	Use:   "submit <trx-type> <input-json>",
	Short: "Submit one transaction without blocking, then wait on its future",
	Long: `submit demonstrates the non-blocking Client API: it calls
Coordinator.Submit, prints the returned future immediately, and only
then waits on it, so the two steps are visibly independent of each
other (a real caller could do other work between them).`,
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

		ctx := context.Background()
		submittedAt := time.Now()

		fut, err := sys.coord.Submit(ctx, trxType, input)
		if err != nil {
			return fmt.Errorf("dorakit: submit %s: %w", trxType, err)
		}
		fmt.Printf("submitted %s, waiting on future...\n", trxType)

		out, err := fut.Wait(ctx)
		if err != nil {
			return fmt.Errorf("dorakit: wait %s: %w", trxType, err)
		}

		fmt.Printf("status=%s reason=%s latency=%s\n", out.Status, out.Reason, time.Since(submittedAt))
		return nil
	},
}
