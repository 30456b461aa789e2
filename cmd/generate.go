package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/quizgen/internal/imagegen"
	"github.com/abhisek/quizgen/internal/imageprompt"
	"github.com/abhisek/quizgen/internal/reqctx"
	"github.com/abhisek/quizgen/internal/upload"
)

// promptSet is the file format shared by draft output and generate input.
type promptSet struct {
	Prompts []string `json:"prompts"`
	Kinds   []string `json:"kinds"`
}

var generateCmd = &cobra.Command{
	Use:   "generate [prompt...]",
	Short: "Generate and store images for a quiz",
	Long: `Generate one image per prompt and store the successful ones.

Prompts come from the arguments (all of --kind), from --file (the output
of "quizgen draft"), or from --questions (quiz questions drafted on the fly).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		providerName, _ := cmd.Flags().GetString("provider")
		quizID, _ := cmd.Flags().GetString("quiz")
		kindName, _ := cmd.Flags().GetString("kind")
		file, _ := cmd.Flags().GetString("file")
		questionsFile, _ := cmd.Flags().GetString("questions")
		timeout, _ := cmd.Flags().GetDuration("timeout")
		allOrNothing, _ := cmd.Flags().GetBool("all-or-nothing")

		provider, err := imagegen.ParseProvider(providerName)
		if err != nil {
			return err
		}
		if err := upload.ValidateQuizID(quizID); err != nil {
			return err
		}

		d, err := buildDeps(cmd)
		if err != nil {
			return err
		}
		defer d.Close()

		ctx := reqctx.WithPurpose(cmd.Context(), quizID)
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		var prompts []string
		var kinds []imagegen.ImageKind
		switch {
		case questionsFile != "":
			if d.drafter == nil {
				return fmt.Errorf("--questions needs an LLM provider; set QUIZGEN_LLM_PROVIDER or an API key")
			}
			questions, err := readQuestions(questionsFile)
			if err != nil {
				return err
			}
			prompts, kinds, err = d.drafter.DraftBatch(ctx, questions)
			if err != nil {
				return err
			}
		case file != "":
			prompts, kinds, err = readPromptSet(file)
			if err != nil {
				return err
			}
		default:
			kind, err := imagegen.ParseImageKind(kindName)
			if err != nil {
				return err
			}
			prompts = args
			kinds = make([]imagegen.ImageKind, len(args))
			for i := range kinds {
				kinds[i] = kind
			}
		}
		if len(prompts) == 0 {
			return fmt.Errorf("no prompts given")
		}

		stderr := cmd.ErrOrStderr()
		start := time.Now()
		outcome, err := d.images.Generate(ctx, provider, prompts, kinds, func(completed, total int) {
			fmt.Fprintf(stderr, "  %d/%d images\n", completed, total)
		})
		if err != nil {
			return err
		}

		// A timeout ends generation, not the storing of what finished.
		storeCtx := context.WithoutCancel(ctx)
		report, err := d.uploader.Upload(storeCtx, quizID, outcome, kinds)
		if err != nil {
			return err
		}

		if allOrNothing && (outcome.FailureCount > 0 || len(report.UploadErrors) > 0) {
			if err := d.uploader.Rollback(storeCtx, report); err != nil {
				return fmt.Errorf("rolling back %d stored images: %w", report.Stored(), err)
			}
			printReport(cmd.OutOrStdout(), prompts, kinds, report)
			return fmt.Errorf("%d of %d images failed; removed the %d stored images",
				outcome.FailureCount+len(report.UploadErrors), len(prompts), report.Stored())
		}

		printReport(cmd.OutOrStdout(), prompts, kinds, report)
		fmt.Fprintf(cmd.OutOrStdout(), "\n%d succeeded, %d failed, %d stored in %s\n",
			outcome.SuccessCount, outcome.FailureCount, report.Stored(), time.Since(start).Round(time.Second))
		return nil
	},
}

func printReport(w io.Writer, prompts []string, kinds []imagegen.ImageKind, report upload.Report) {
	fmt.Fprintf(w, "%-4s  %-8s  %-40s  %s\n", "#", "Kind", "Prompt", "Result")
	fmt.Fprintln(w, strings.Repeat("─", 100))
	for i := range prompts {
		var result string
		switch {
		case report.URLs[i] != nil:
			result = *report.URLs[i]
		case report.UploadErrors[i] != "":
			result = "✗ upload: " + report.UploadErrors[i]
		default:
			result = "✗ " + report.GenerationErrors[i]
		}
		fmt.Fprintf(w, "%-4d  %-8s  %-40s  %s\n", i, kinds[i], truncate(oneLine(prompts[i]), 40), result)
	}
}

func readQuestions(path string) ([]imageprompt.Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read questions: %w", err)
	}
	var questions []imageprompt.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("parse questions %s: %w", path, err)
	}
	return questions, nil
}

func readPromptSet(path string) ([]string, []imagegen.ImageKind, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read prompts: %w", err)
	}
	var set promptSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, nil, fmt.Errorf("parse prompts %s: %w", path, err)
	}
	kinds := make([]imagegen.ImageKind, len(set.Kinds))
	for i, s := range set.Kinds {
		k, err := imagegen.ParseImageKind(s)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: kind %d: %w", path, i, err)
		}
		kinds[i] = k
	}
	return set.Prompts, kinds, nil
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func init() {
	generateCmd.Flags().StringP("provider", "p", string(imagegen.ProviderOpenAI), "Image provider: openai, imagen or mock")
	generateCmd.Flags().StringP("quiz", "q", "", "Quiz ID the images belong to (required)")
	generateCmd.Flags().StringP("kind", "k", string(imagegen.KindQuestion), "Kind for prompts given as arguments: question or answer")
	generateCmd.Flags().StringP("file", "f", "", "JSON file of prompts and kinds, as written by \"quizgen draft\"")
	generateCmd.Flags().String("questions", "", "JSON file of quiz questions to draft prompts from")
	generateCmd.Flags().Duration("timeout", 0, "Abort the batch after this long (0 = no limit)")
	generateCmd.Flags().Bool("all-or-nothing", false, "Remove the stored images if any image fails")
	_ = generateCmd.MarkFlagRequired("quiz")
	generateCmd.MarkFlagsMutuallyExclusive("file", "questions")
}
