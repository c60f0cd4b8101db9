package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pnote/pnote/internal/app"
	"github.com/pnote/pnote/internal/model"
)

var askCmd = &cobra.Command{
	Use:   "ask <course-id> <question>...",
	Short: "Ask a single question about a course's documents",
	Args:  cobra.MinimumNArgs(2),
	RunE: withApp(func(ctx context.Context, a *app.App, args []string) error {
		courseID := args[0]
		if err := requireCourse(ctx, a, courseID); err != nil {
			return err
		}

		question := strings.Join(args[1:], " ")
		err := a.Engine.Answer(ctx, courseID, question, nil, printFragment)
		fmt.Println()
		return err
	}),
}

var chatCmd = &cobra.Command{
	Use:   "chat <course-id>",
	Short: "Start an interactive chat over a course's documents",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, a *app.App, args []string) error {
		courseID := args[0]
		if err := requireCourse(ctx, a, courseID); err != nil {
			return err
		}

		fmt.Printf("Chatting with course %s. Ctrl+D to exit.\n", courseID)

		var history []model.Turn
		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print("> ")
			if !scanner.Scan() {
				break
			}
			question := strings.TrimSpace(scanner.Text())
			if question == "" {
				continue
			}

			var answer strings.Builder
			err := a.Engine.Answer(ctx, courseID, question, history,
				func(ctx context.Context, fragment string) error {
					answer.WriteString(fragment)
					return printFragment(ctx, fragment)
				})
			fmt.Println()
			if err != nil {
				return err
			}

			history = append(history,
				model.Turn{Role: model.RoleUser, Text: question},
				model.Turn{Role: model.RoleModel, Text: answer.String()})
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("reading input: %w", err)
		}
		fmt.Println()
		return nil
	}),
}

func printFragment(_ context.Context, fragment string) error {
	_, err := fmt.Print(fragment)
	return err
}

func init() {
	rootCmd.AddCommand(askCmd, chatCmd)
}
