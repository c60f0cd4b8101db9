package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pnote/pnote/internal/app"
	"github.com/pnote/pnote/internal/ingest"
)

var docCmd = &cobra.Command{
	Use:   "doc",
	Short: "Manage course documents",
}

var docAddCmd = &cobra.Command{
	Use:   "add <course-id> <file>...",
	Short: "Ingest PDF or DOCX files into a course",
	Args:  cobra.MinimumNArgs(2),
	RunE: withApp(func(ctx context.Context, a *app.App, args []string) error {
		courseID := args[0]
		if err := requireCourse(ctx, a, courseID); err != nil {
			return err
		}

		files := make([]ingest.FileInput, 0, len(args)-1)
		for _, path := range args[1:] {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			files = append(files, ingest.FileInput{Name: filepath.Base(path), Data: data})
		}

		results := a.Pipeline.IngestFiles(ctx, courseID, files)
		printResults(results)
		return nil
	}),
}

var docWebCmd = &cobra.Command{
	Use:   "web <course-id> <url>...",
	Short: "Ingest web pages into a course",
	Args:  cobra.MinimumNArgs(2),
	RunE: withApp(func(ctx context.Context, a *app.App, args []string) error {
		courseID := args[0]
		if err := requireCourse(ctx, a, courseID); err != nil {
			return err
		}
		results := make([]ingest.Result, 0, len(args)-1)
		for _, url := range args[1:] {
			results = append(results, a.Pipeline.IngestWeb(ctx, courseID, url))
		}
		printResults(results)
		return nil
	}),
}

var docYouTubeCmd = &cobra.Command{
	Use:   "youtube <course-id> <url>...",
	Short: "Ingest YouTube transcripts into a course",
	Args:  cobra.MinimumNArgs(2),
	RunE: withApp(func(ctx context.Context, a *app.App, args []string) error {
		courseID := args[0]
		if err := requireCourse(ctx, a, courseID); err != nil {
			return err
		}
		results := make([]ingest.Result, 0, len(args)-1)
		for _, url := range args[1:] {
			results = append(results, a.Pipeline.IngestYouTube(ctx, courseID, url))
		}
		printResults(results)
		return nil
	}),
}

var docListCmd = &cobra.Command{
	Use:   "list <course-id>",
	Short: "List documents in a course",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, a *app.App, args []string) error {
		docs, err := a.Courses.ListDocuments(ctx, args[0])
		if err != nil {
			return fmt.Errorf("listing documents: %w", err)
		}
		if len(docs) == 0 {
			fmt.Println("No documents yet. Add some with: pnote doc add")
			return nil
		}
		for _, d := range docs {
			fmt.Printf("%s  %4d chunks  %s\n", d.Hash[:12], d.ChunkCount, d.Name)
		}
		return nil
	}),
}

var docRemoveCmd = &cobra.Command{
	Use:   "remove <course-id> <hash>",
	Short: "Remove a document by content hash",
	Long: `Remove a document and all of its chunks from a course. The hash is
the content hash shown by "pnote doc list"; a unique prefix is enough.`,
	Args: cobra.ExactArgs(2),
	RunE: withApp(func(ctx context.Context, a *app.App, args []string) error {
		courseID, prefix := args[0], args[1]
		hash, err := resolveHash(ctx, a, courseID, prefix)
		if err != nil {
			return err
		}
		if err := a.Courses.DeleteDocument(ctx, courseID, hash); err != nil {
			return fmt.Errorf("removing document: %w", err)
		}
		fmt.Printf("Removed document %s\n", hash[:12])
		return nil
	}),
}

// requireCourse fails fast with a friendly message when the course does
// not exist, instead of letting a foreign key violation surface.
func requireCourse(ctx context.Context, a *app.App, courseID string) error {
	exists, err := a.Courses.Exists(ctx, courseID)
	if err != nil {
		return fmt.Errorf("checking course: %w", err)
	}
	if !exists {
		return fmt.Errorf("course %q not found, create it with: pnote course create", courseID)
	}
	return nil
}

// resolveHash expands a hash prefix to the full content hash, requiring
// it to match exactly one document.
func resolveHash(ctx context.Context, a *app.App, courseID, prefix string) (string, error) {
	docs, err := a.Courses.ListDocuments(ctx, courseID)
	if err != nil {
		return "", fmt.Errorf("listing documents: %w", err)
	}

	var matches []string
	for _, d := range docs {
		if len(prefix) <= len(d.Hash) && d.Hash[:len(prefix)] == prefix {
			matches = append(matches, d.Hash)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return "", fmt.Errorf("no document matches hash %q", prefix)
	default:
		return "", fmt.Errorf("hash %q is ambiguous, matches %d documents", prefix, len(matches))
	}
}

func printResults(results []ingest.Result) {
	for _, r := range results {
		switch r.Status {
		case ingest.StatusAdded:
			fmt.Printf("added      %s (%d chunks)\n", r.SourceName, r.Chunks)
		case ingest.StatusDuplicate:
			fmt.Printf("duplicate  %s (already ingested)\n", r.SourceName)
		default:
			fmt.Printf("failed     %s: %v\n", r.SourceName, r.Err)
		}
	}
}

func init() {
	docCmd.AddCommand(docAddCmd, docWebCmd, docYouTubeCmd, docListCmd, docRemoveCmd)
	rootCmd.AddCommand(docCmd)
}
