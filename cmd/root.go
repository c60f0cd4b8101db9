// Package cmd implements the pnote command-line interface.
//
// Following the pattern used by kubectl, hugo, and other standard Go
// CLI tools, all application logic is contained in the cmd package,
// leaving main.go as a minimal entry point.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/pnote/pnote/internal/app"
	"github.com/pnote/pnote/internal/config"
	"github.com/pnote/pnote/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "pnote",
	Short: "PNote - a retrieval-augmented study workspace",
	Long: `PNote manages per-course document workspaces: ingest PDFs, DOCX
files, web pages and YouTube transcripts, then chat with the material
or derive summaries, quizzes, keywords and study questions from it.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// initLogger builds the structured logger. DEBUG=1 enables debug level;
// logs go to stderr so stdout stays clean for command output.
func initLogger() log.Logger {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	return log.NewWithWriter(os.Stderr, log.Config{Level: level})
}

// checkRequiredEnv verifies provider credentials before a full setup.
func checkRequiredEnv(cfg *config.Config) error {
	switch cfg.Provider {
	case config.ProviderOllama:
		return nil
	case config.ProviderOpenAI:
		if os.Getenv("OPENAI_API_KEY") == "" {
			fmt.Fprintln(os.Stderr, "Error: OPENAI_API_KEY environment variable not set")
			fmt.Fprintln(os.Stderr, "")
			fmt.Fprintln(os.Stderr, "To set your API key:")
			fmt.Fprintln(os.Stderr, "  export OPENAI_API_KEY=your-api-key")
			return fmt.Errorf("OPENAI_API_KEY not set")
		}
		return nil
	default:
		if os.Getenv("GEMINI_API_KEY") == "" {
			fmt.Fprintln(os.Stderr, "Error: GEMINI_API_KEY environment variable not set")
			fmt.Fprintln(os.Stderr, "")
			fmt.Fprintln(os.Stderr, "To set your API key:")
			fmt.Fprintln(os.Stderr, "  export GEMINI_API_KEY=your-api-key")
			fmt.Fprintln(os.Stderr, "")
			fmt.Fprintln(os.Stderr, "Get your API key at: https://ai.google.dev/")
			return fmt.Errorf("GEMINI_API_KEY not set")
		}
		return nil
	}
}

// withApp wraps a command handler with the full application lifecycle:
// load config, initialize the app, run the handler, release resources.
func withApp(fn func(ctx context.Context, a *app.App, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		logger := initLogger()
		slog.SetDefault(logger)

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		if err := checkRequiredEnv(cfg); err != nil {
			return err
		}

		ctx := cmd.Context()
		a, err := app.Setup(ctx, cfg, logger)
		if err != nil {
			return fmt.Errorf("initializing application: %w", err)
		}
		defer func() {
			if closeErr := a.Close(); closeErr != nil {
				logger.Warn("closing application", "error", closeErr)
			}
		}()

		return fn(ctx, a, args)
	}
}
