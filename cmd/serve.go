package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Yates-Labs/coursebot/internal/config"
	"github.com/Yates-Labs/coursebot/internal/logging"
	"github.com/Yates-Labs/coursebot/internal/server"
)

var (
	serveHost  string
	servePort  int
	serveDebug bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chat HTTP service",
	Long: `Scrape and index the configured course pages, then serve questions over HTTP.

Endpoints:
  POST /chat     body {"question": "your question here"}
  GET  /healthz  index status

Required environment variables:
  OPENAI_API_KEY     - OpenAI API key for answer generation

Examples:
  coursebot serve
  coursebot serve --host 0.0.0.0 --port 8080 --debug=false`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Listen host (overrides API_HOST)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (overrides API_PORT)")
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable debug logging (overrides DEBUG_MODE)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("host") {
		cfg.Host = serveHost
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = servePort
	}
	if cmd.Flags().Changed("debug") {
		cfg.Debug = serveDebug
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, closeLog, err := logging.Setup(cfg.LogFile, cfg.Debug)
	if err != nil {
		return err
	}
	defer closeLog()

	sys, closeSystem, err := newSystem(cfg, logger)
	if err != nil {
		return err
	}
	defer closeSystem()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// A failed initialization leaves the service up; /chat then reports
	// that the system is not initialized.
	if err := sys.Initialize(ctx); err != nil {
		logger.Error("chatbot initialization failed, serving in degraded mode", "error", err)
	}

	fmt.Println(renderBanner(cfg))

	api := server.NewAPI(sys, logger, server.Options{RateLimit: cfg.RateLimit})
	return server.Run(ctx, cfg.Addr(), api.Handler(), logger)
}

func renderBanner(cfg config.Config) string {
	titleStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#F780FF")).
		Bold(true)

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#8BE9FD")).
		Width(14)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#E9E9F4"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#6272A4")).
		Padding(0, 2)

	rows := [][2]string{
		{"Endpoint", fmt.Sprintf("http://%s/chat", cfg.Addr())},
		{"Method", "POST"},
		{"Body format", `{"question": "your question here"}`},
		{"Sources", strings.Join(cfg.SourceURLs, ", ")},
		{"Embeddings", fmt.Sprintf("%s (%s)", cfg.EmbeddingModel, cfg.EmbeddingProvider)},
	}

	lines := []string{titleStyle.Render("Coursebot API server"), ""}
	for _, row := range rows {
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(row[0]+":"), valueStyle.Render(row[1])))
	}

	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
