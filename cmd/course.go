package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pnote/pnote/internal/app"
)

var courseCmd = &cobra.Command{
	Use:   "course",
	Short: "Manage course workspaces",
}

var courseCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new course",
	Args:  cobra.MinimumNArgs(1),
	RunE: withApp(func(ctx context.Context, a *app.App, args []string) error {
		name := strings.Join(args, " ")
		id, err := a.Courses.Create(ctx, name)
		if err != nil {
			return fmt.Errorf("creating course: %w", err)
		}
		fmt.Printf("Created course %q (id: %s)\n", name, id)
		return nil
	}),
}

var courseListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all courses",
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app.App, args []string) error {
		courses := a.Courses.List(ctx)
		if len(courses) == 0 {
			fmt.Println("No courses yet. Create one with: pnote course create <name>")
			return nil
		}
		for _, c := range courses {
			fmt.Printf("%-24s %s  (created %s)\n", c.ID, c.DisplayName, c.CreatedAt.Format("2006-01-02"))
		}
		return nil
	}),
}

var courseDeleteCmd = &cobra.Command{
	Use:   "delete <course-id>",
	Short: "Delete a course and all of its documents",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, a *app.App, args []string) error {
		if err := a.Courses.Delete(ctx, args[0]); err != nil {
			return fmt.Errorf("deleting course: %w", err)
		}
		fmt.Printf("Deleted course %s\n", args[0])
		return nil
	}),
}

var courseStatsCmd = &cobra.Command{
	Use:   "stats <course-id>",
	Short: "Show course statistics",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, a *app.App, args []string) error {
		stats, err := a.Analytics.Statistics(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Course:           %s\n", stats.CourseID)
		fmt.Printf("Documents:        %d\n", stats.DocumentCount)
		fmt.Printf("Chunks:           %d\n", stats.ChunkCount)
		fmt.Printf("Estimated tokens: %d\n", stats.EstimatedTokens)
		return nil
	}),
}

func init() {
	courseCmd.AddCommand(courseCreateCmd, courseListCmd, courseDeleteCmd, courseStatsCmd)
	rootCmd.AddCommand(courseCmd)
}
