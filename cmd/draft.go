package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Draft image prompts for quiz questions with the LLM",
	Long: `Read a JSON array of questions ({"text", "options", "answer"}) and print
the question and answer image prompts for each, ready for "quizgen generate --file".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")

		questions, err := readQuestions(file)
		if err != nil {
			return err
		}

		d, err := buildDeps(cmd)
		if err != nil {
			return err
		}
		defer d.Close()
		if d.drafter == nil {
			return fmt.Errorf("no LLM provider configured; set QUIZGEN_LLM_PROVIDER or an API key")
		}

		prompts, kinds, err := d.drafter.DraftBatch(cmd.Context(), questions)
		if err != nil {
			return err
		}

		set := promptSet{Prompts: prompts, Kinds: make([]string, len(kinds))}
		for i, k := range kinds {
			set.Kinds[i] = string(k)
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(set)
	},
}

func init() {
	draftCmd.Flags().StringP("file", "f", "", "JSON file of quiz questions (required)")
	_ = draftCmd.MarkFlagRequired("file")
}
