// Package cli provides the command-line interface for docchat.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/raphaelgruber/docchat/internal/client"
	"github.com/raphaelgruber/docchat/internal/config"
	"github.com/raphaelgruber/docchat/internal/metrics"
	"github.com/raphaelgruber/docchat/internal/render"
	"github.com/raphaelgruber/docchat/internal/session"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool
	apiURL  string

	// Global config, backend client and session
	cfg        config.Config
	logger     *slog.Logger
	closeLog   func() error
	collector  *metrics.Collector
	apiClient  *client.Client
	sess       *session.Session
	forceColor bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "docchat",
	Short: "Chat with your documents",
	Long: `Docchat is a terminal client for a document-grounded chat backend.

Upload documents, create chats bound to a selection of them, and ask
questions. Answers come with citations pointing back into the documents.

Run 'docchat ui' for the interactive interface.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip backend setup for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if apiURL != "" {
			cfg.APIURL = apiURL
		}

		level := cfg.LogLevel
		if verbose {
			level = slog.LevelDebug
		}
		// The interactive UI owns the terminal: log to the file only.
		console := verbose && cmd.Name() != "ui"
		logger, closeLog = config.SetupLogger(cfg.LogFile, level, console)
		for _, w := range cfg.Warnings {
			logger.Warn("ignoring invalid setting", "detail", w)
		}
		logger.Debug("config loaded", "api_url", cfg.APIURL, "config_file", cfg.ConfigFile,
			"timeout", cfg.ClientTimeout, "provider", cfg.LLMProvider, "model", cfg.LLMModel)

		collector = metrics.NewCollector()
		apiClient = client.New(cfg.APIURL,
			client.WithTimeout(cfg.ClientTimeout),
			client.WithLogger(logger),
			client.WithMetrics(collector),
		)
		sess = session.New(apiClient, logger, session.WithDefaults(session.Defaults{
			Provider:    cfg.LLMProvider,
			Model:       cfg.LLMModel,
			Temperature: cfg.LLMTemperature,
		}))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if verbose && collector != nil && cmd.Name() != "ui" {
			printClientStats(cmd.ErrOrStderr(), collector.Snapshot())
		}
		if closeLog != nil {
			if err := closeLog(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
			}
			closeLog = nil
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext is Execute with a caller-provided context.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "backend base URL (overrides DOCCHAT_API_URL)")
	rootCmd.PersistentFlags().BoolVar(&forceColor, "color", false, "render markdown even when stdout is not a terminal")

	// Add subcommands
	rootCmd.AddCommand(uiCmd)
	rootCmd.AddCommand(chatsCmd)
	rootCmd.AddCommand(messagesCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(docsCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(modelsCmd)
}

// commandContext returns the command's context, or Background when run
// outside ExecuteContext.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// isTerminal reports whether stdout is an interactive terminal.
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// markdown returns the renderer for assistant replies: glamour on a terminal,
// plain text when the output is piped.
func markdown() *render.Markdown {
	if forceColor || isTerminal() {
		width := render.DefaultWrap
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 && w < width {
			width = w
		}
		return render.NewMarkdown("", width)
	}
	return render.Plain()
}

// outputWidth is the wrap width for plain text.
func outputWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return min(w, render.DefaultWrap)
	}
	return render.DefaultWrap
}
