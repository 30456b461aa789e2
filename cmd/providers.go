package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/quizgen/internal/imagegen"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List image providers, their pacing and whether they are configured",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := imagegen.ConfigFromEnv()
		configs := imagegen.DefaultProviderConfigs()
		out := cmd.OutOrStdout()

		fmt.Fprintf(out, "%-8s  %6s  %10s  %11s  %7s  %s\n",
			"Provider", "Window", "Delay", "Retry Delay", "Retries", "Status")
		fmt.Fprintln(out, strings.Repeat("─", 80))

		for _, p := range imagegen.Providers {
			pc, err := configs.Lookup(p)
			if err != nil {
				return err
			}
			status := "ready"
			if err := cfg.Validate(p); err != nil {
				status = err.Error()
			}
			fmt.Fprintf(out, "%-8s  %6d  %10s  %11s  %7d  %s\n",
				p, pc.MaxConcurrentRequests, pc.DelayBetweenBatches, pc.RetryDelay, pc.MaxRetries, status)
		}
		return nil
	},
}
