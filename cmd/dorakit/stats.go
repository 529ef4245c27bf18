package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/ipandis/dorakit/pkg/config"
	"github.com/ipandis/dorakit/pkg/log"
	"github.com/ipandis/dorakit/pkg/metrics"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Build the system and serve /metrics, /health, /ready, /live until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")

		sys, err := buildSystem(config.FromEnv(), dataDirFlag(cmd))
		if err != nil {
			return err
		}
		defer sys.Close()

		metrics.SetVersion("dev")

		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		mux.Handle("/health", metrics.HealthHandler())
		mux.Handle("/ready", metrics.ReadyHandler())
		mux.Handle("/live", metrics.LivenessHandler())

		log.WithComponent("stats").Info().Str("addr", addr).Msg("dorakit: serving stats endpoints")
		fmt.Printf("serving /metrics /health /ready /live on %s\n", addr)
		return http.ListenAndServe(addr, mux)
	},
}

func init() {
	statsCmd.Flags().String("addr", "127.0.0.1:9090", "address to serve stats endpoints on")
}
