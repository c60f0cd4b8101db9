package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pnote/pnote/internal/app"
)

var (
	quizCount     int
	questionCount int
)

var summaryCmd = &cobra.Command{
	Use:   "summary <course-id>",
	Short: "Summarize a course's documents",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, a *app.App, args []string) error {
		summary, err := a.Engine.Summarize(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Println(summary)
		return nil
	}),
}

var quizCmd = &cobra.Command{
	Use:   "quiz <course-id>",
	Short: "Generate a multiple-choice quiz from a course's documents",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, a *app.App, args []string) error {
		quiz, err := a.Engine.GenerateQuiz(ctx, args[0], quizCount)
		if err != nil {
			return err
		}
		for i, q := range quiz {
			fmt.Printf("%d. %s\n", i+1, q.Question)
			for j, opt := range q.Options {
				fmt.Printf("   %c) %s\n", 'a'+j, opt)
			}
			fmt.Printf("   Answer: %s\n\n", q.Answer)
		}
		return nil
	}),
}

var keywordsCmd = &cobra.Command{
	Use:   "keywords <course-id>",
	Short: "Extract key terms from a course's documents",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, a *app.App, args []string) error {
		keywords, err := a.Engine.ExtractKeywords(ctx, args[0])
		if err != nil {
			return err
		}
		for _, kw := range keywords {
			fmt.Printf("- %s\n", kw)
		}
		return nil
	}),
}

var questionsCmd = &cobra.Command{
	Use:   "questions <course-id>",
	Short: "Generate open-ended study questions from a course's documents",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, a *app.App, args []string) error {
		questions, err := a.Engine.GenerateStudyQuestions(ctx, args[0], questionCount)
		if err != nil {
			return err
		}
		for i, q := range questions {
			fmt.Printf("%d. %s\n", i+1, q)
		}
		return nil
	}),
}

func init() {
	quizCmd.Flags().IntVarP(&quizCount, "count", "n", 5, "number of quiz questions")
	questionsCmd.Flags().IntVarP(&questionCount, "count", "n", 5, "number of study questions")
	rootCmd.AddCommand(summaryCmd, quizCmd, keywordsCmd, questionsCmd)
}
