package cmd

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/quizgen/internal/llm"
	"github.com/abhisek/quizgen/internal/store"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect recorded image and LLM requests",
}

var eventsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent image generation attempts",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		provider, _ := cmd.Flags().GetString("provider")
		purpose, _ := cmd.Flags().GetString("purpose")

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		events, err := s.EventRepo().QueryImageEvents(cmd.Context(), store.QueryOpts{Limit: limit, Provider: provider})
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(events) == 0 {
			fmt.Fprintln(out, "No image events found.")
			return nil
		}

		fmt.Fprintf(out, "%-5s  %-19s  %-8s  %-8s  %-16s  %-8s  %-7s  %s\n",
			"ID", "Timestamp", "Provider", "Kind", "Purpose", "Bytes", "Ms", "OK")
		fmt.Fprintln(out, strings.Repeat("─", 100))

		for _, e := range events {
			if purpose != "" && e.Purpose != purpose {
				continue
			}
			ok := "✓"
			if !e.Success {
				ok = "✗ " + truncate(oneLine(e.ErrorMessage), 40)
			}
			fmt.Fprintf(out, "%-5d  %-19s  %-8s  %-8s  %-16s  %-8d  %-7d  %s\n",
				e.ID,
				e.Timestamp.Local().Format("2006-01-02 15:04:05"),
				e.Provider,
				e.Kind,
				truncate(e.Purpose, 16),
				e.PayloadBytes,
				e.LatencyMs,
				ok,
			)
		}
		return nil
	},
}

var eventsViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "View one image generation attempt",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid ID %q: %w", args[0], err)
		}

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		e, err := s.EventRepo().GetImageEvent(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("get event: %w", err)
		}
		if e == nil {
			return fmt.Errorf("event %d not found", id)
		}

		out := cmd.OutOrStdout()
		sep := strings.Repeat("─", 60)
		fmt.Fprintf(out, "ID:        %d\n", e.ID)
		fmt.Fprintf(out, "Time:      %s\n", e.Timestamp.Local().Format("2006-01-02 15:04:05"))
		fmt.Fprintf(out, "Provider:  %s\n", e.Provider)
		fmt.Fprintf(out, "Kind:      %s\n", e.Kind)
		fmt.Fprintf(out, "Purpose:   %s\n", e.Purpose)
		fmt.Fprintf(out, "Bytes:     %d\n", e.PayloadBytes)
		fmt.Fprintf(out, "Latency:   %dms\n", e.LatencyMs)
		fmt.Fprintf(out, "Success:   %v\n", e.Success)
		if e.ErrorMessage != "" {
			fmt.Fprintf(out, "Error:     %s\n", e.ErrorMessage)
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, sep)
		fmt.Fprintln(out, "PROMPT")
		fmt.Fprintln(out, sep)
		fmt.Fprintln(out, e.Prompt)
		return nil
	},
}

var eventsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show image success rates per provider and estimated LLM cost",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		usage, err := s.EventRepo().ImageUsageByProvider(ctx)
		if err != nil {
			return fmt.Errorf("query usage: %w", err)
		}

		if len(usage) == 0 {
			fmt.Fprintln(out, "No image requests recorded yet.")
		} else {
			fmt.Fprintln(out, "Images by Provider")
			fmt.Fprintln(out, strings.Repeat("─", 72))
			fmt.Fprintf(out, "%-10s  %8s  %8s  %8s  %12s  %8s\n",
				"Provider", "Attempts", "OK", "Rate", "Throttled", "Avg Ms")
			fmt.Fprintln(out, strings.Repeat("─", 72))
			for _, u := range usage {
				rate := 0.0
				if u.Attempts > 0 {
					rate = 100 * float64(u.Successes) / float64(u.Attempts)
				}
				fmt.Fprintf(out, "%-10s  %8d  %8d  %7.1f%%  %12d  %8d\n",
					u.Provider, u.Attempts, u.Successes, rate, u.RateLimited, u.AvgLatencyMs)
			}
		}

		llmEvents, err := s.EventRepo().QueryLLMEvents(ctx, store.QueryOpts{})
		if err != nil {
			return fmt.Errorf("query LLM events: %w", err)
		}
		if len(llmEvents) == 0 {
			return nil
		}

		models := aggregateByModel(llmEvents)

		fmt.Fprintln(out)
		fmt.Fprintln(out, "Prompt Drafting Cost (USD)")
		fmt.Fprintln(out, strings.Repeat("─", 72))
		fmt.Fprintf(out, "%-32s  %6s  %10s  %10s  %10s\n", "Model", "Calls", "Input", "Output", "Cost")
		fmt.Fprintln(out, strings.Repeat("─", 72))

		var totalCost float64
		var unknownModels []string
		for _, m := range models {
			cost := llm.LookupCost(m.model)
			if cost == nil {
				unknownModels = append(unknownModels, m.model)
				fmt.Fprintf(out, "%-32s  %6d  %10d  %10d  %10s\n",
					truncate(m.model, 32), m.calls, m.usage.InputTokens, m.usage.OutputTokens, "?")
				continue
			}
			c := cost.Cost(m.usage)
			totalCost += c
			fmt.Fprintf(out, "%-32s  %6d  %10d  %10d  %10s\n",
				truncate(m.model, 32), m.calls, m.usage.InputTokens, m.usage.OutputTokens, formatCost(c))
		}

		fmt.Fprintln(out, strings.Repeat("─", 72))
		label := "TOTAL"
		if len(unknownModels) > 0 {
			label = "TOTAL (partial)"
		}
		fmt.Fprintf(out, "%-32s  %6s  %10s  %10s  %10s\n", label, "", "", "", formatCost(totalCost))
		if len(unknownModels) > 0 {
			fmt.Fprintf(out, "\nPricing unavailable for: %s\n", strings.Join(unknownModels, ", "))
		}
		return nil
	},
}

type modelUsage struct {
	model string
	calls int
	usage llm.Usage
}

// aggregateByModel sums token usage per model, busiest model first.
func aggregateByModel(events []store.LLMRequestEvent) []modelUsage {
	byModel := map[string]*modelUsage{}
	for _, e := range events {
		m, ok := byModel[e.Model]
		if !ok {
			m = &modelUsage{model: e.Model}
			byModel[e.Model] = m
		}
		m.calls++
		m.usage.InputTokens += e.InputTokens
		m.usage.OutputTokens += e.OutputTokens
	}

	out := make([]modelUsage, 0, len(byModel))
	for _, m := range byModel {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].calls != out[j].calls {
			return out[i].calls > out[j].calls
		}
		return out[i].model < out[j].model
	})
	return out
}

func formatCost(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}

func init() {
	eventsListCmd.Flags().IntP("limit", "n", 20, "Number of events to show")
	eventsListCmd.Flags().StringP("provider", "p", "", "Filter by image provider")
	eventsListCmd.Flags().String("purpose", "", "Filter by purpose (quiz ID)")

	eventsCmd.AddCommand(eventsListCmd)
	eventsCmd.AddCommand(eventsViewCmd)
	eventsCmd.AddCommand(eventsStatsCmd)
}
