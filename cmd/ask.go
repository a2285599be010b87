package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Yates-Labs/coursebot/internal/config"
	"github.com/Yates-Labs/coursebot/internal/logging"
)

var (
	topK    int
	verbose bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question about the courses",
	Long: `Ask a natural language question about the configured course pages.

This command:
1. Scrapes the pages named by BASE_URL
2. Splits them into overlapping chunks and embeds them
3. Retrieves the chunks most relevant to your question
4. Generates an answer from that context using an LLM (OpenAI)

Required environment variables:
  OPENAI_API_KEY     - OpenAI API key for answer generation

Examples:
  coursebot ask "Which Python courses are available?"
  coursebot ask "How long is the web development course?" --topk 5
  coursebot ask "What does the data science course cost?" --verbose`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().IntVar(&topK, "topk", 0, "Number of chunks to retrieve as context (overrides TOP_K_RESULTS)")
	askCmd.Flags().BoolVar(&verbose, "verbose", false, "Show detailed progress and retrieved context")
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.TrimSpace(args[0])
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Styling
	var (
		headerColor   = lipgloss.Color("#F780FF") // Bright pink
		questionColor = lipgloss.Color("#8BE9FD") // Cyan
		answerColor   = lipgloss.Color("#E9E9F4") // Light purple/white
		contextColor  = lipgloss.Color("#6272A4") // Muted purple
		errorColor    = lipgloss.Color("#FF5555") // Red
		successColor  = lipgloss.Color("#50FA7B") // Green
	)

	headerStyle := lipgloss.NewStyle().
		Foreground(headerColor).
		Bold(true)

	questionStyle := lipgloss.NewStyle().
		Foreground(questionColor).
		Italic(true)

	answerStyle := lipgloss.NewStyle().
		Foreground(answerColor)

	contextStyle := lipgloss.NewStyle().
		Foreground(contextColor).
		Italic(true)

	errorStyle := lipgloss.NewStyle().
		Foreground(errorColor).
		Bold(true)

	successStyle := lipgloss.NewStyle().
		Foreground(successColor)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("%s %w", errorStyle.Render("Error:"), err)
	}
	if topK > 0 {
		cfg.TopK = topK
	}

	// Pipeline logs go to the log file only so the terminal shows the answer.
	logger := logging.New(io.Discard, false)
	if cfg.LogFile != "" {
		l, closeLog, err := logging.Setup(cfg.LogFile, false)
		if err == nil {
			logger = l
			defer closeLog()
		}
	}

	// Print question
	fmt.Println()
	fmt.Println(headerStyle.Render("Question:"))
	fmt.Println(questionStyle.Render(question))
	fmt.Println()

	// Step 1: Build the system
	if verbose {
		fmt.Println(contextStyle.Render("→ Initializing chatbot..."))
	}
	sys, closeSystem, err := newSystem(cfg, logger)
	if err != nil {
		return fmt.Errorf("%s %w", errorStyle.Render("Error:"), err)
	}
	defer closeSystem()

	// Step 2: Scrape and index the sources
	if verbose {
		fmt.Println(contextStyle.Render(fmt.Sprintf("→ Indexing %d source(s)...", len(cfg.SourceURLs))))
	}
	if err := sys.Initialize(ctx); err != nil {
		return fmt.Errorf("%s Failed to index sources: %w", errorStyle.Render("Error:"), err)
	}
	if verbose {
		stats := sys.Stats()
		fmt.Println(successStyle.Render(fmt.Sprintf("✓ Indexed %d chunks from %d documents", stats.Chunks, stats.Documents)))
		fmt.Println(contextStyle.Render("→ Retrieving relevant context and generating answer..."))
	}

	// Step 3: Answer
	res, err := sys.Ask(ctx, question)
	if err != nil {
		return fmt.Errorf("%s Failed to generate answer: %w", errorStyle.Render("Error:"), err)
	}

	if verbose {
		fmt.Println()
		fmt.Println(headerStyle.Render("Context:"))
		for i, ch := range res.Context {
			fmt.Println(contextStyle.Render(fmt.Sprintf("[%d] %s (score %.3f)", i+1, ch.Source, ch.Score)))
			fmt.Println(answerStyle.Render(truncate(ch.Text, 300)))
		}
	}

	// Print answer
	fmt.Println()
	fmt.Println(headerStyle.Render("Answer:"))
	fmt.Println()
	fmt.Println(answerStyle.Render(strings.TrimSpace(res.Answer.Text)))
	fmt.Println()

	return nil
}

// truncate shortens s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	r := []rune(strings.Join(strings.Fields(s), " "))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "..."
}
