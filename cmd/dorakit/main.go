package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ipandis/dorakit/pkg/log"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "dorakit",
	Short: "dorakit runs DORA-style transactions over partitioned in-process workers",
	Long: `dorakit is a data-oriented transaction execution engine: each
partition is owned by exactly one worker goroutine, transactions are
graphs of partition-bound actions joined by rendezvous points, and
commits are grouped by a dedicated flusher before a client ever sees
the outcome.`,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "output logs in JSON format")
	rootCmd.PersistentFlags().String("data-dir", "", "bolt-backed storage directory (defaults to an in-memory adapter with no durability)")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(benchCmd)
	rootCmd.AddCommand(statsCmd)
}

func initLogging() {
	level, _ := rootCmd.PersistentFlags().GetString("log-level")
	jsonOut, _ := rootCmd.PersistentFlags().GetBool("log-json")
	log.Init(log.Config{Level: log.Level(level), JSONOutput: jsonOut})
}

func dataDirFlag(cmd *cobra.Command) string {
	v, _ := cmd.Flags().GetString("data-dir")
	return v
}
