// Package main runs the chat widget in a terminal.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/capitalize-ai/assistant-widget/internal/chatapi"
	"github.com/capitalize-ai/assistant-widget/internal/config"
	"github.com/capitalize-ai/assistant-widget/internal/tui"
	"github.com/capitalize-ai/assistant-widget/internal/widget"
	"github.com/capitalize-ai/assistant-widget/pkg/logger"
)

var (
	endpoint     string
	timeout      time.Duration
	greeting     string
	logLevel     string
	logFile      string
	glamourStyle string
)

var rootCmd = &cobra.Command{
	Use:   "widget-tui",
	Short: "Chat with the AI assistant from a terminal",
	Long: `widget-tui is a terminal rendition of the website chat widget.

Press ctrl+o to open or close the chat panel, type a message and press enter
to send it. Replies come from the same remote chat endpoint the web widget
uses. Logs go to a file so they never draw over the screen.`,
	SilenceUsage: true,
	RunE:         runWidget,
}

func init() {
	cfg := config.Load()

	rootCmd.Flags().StringVar(&endpoint, "endpoint", cfg.ChatAPIURL, "chat API endpoint")
	rootCmd.Flags().DurationVar(&timeout, "timeout", cfg.ChatAPITimeout, "chat API request timeout")
	rootCmd.Flags().StringVar(&greeting, "greeting", cfg.Greeting, "first assistant message, empty for none")
	rootCmd.Flags().StringVar(&logLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	rootCmd.Flags().StringVar(&logFile, "log-file", filepath.Join(os.TempDir(), "widget-tui.log"), "log file path")
	rootCmd.Flags().StringVar(&glamourStyle, "style", "", "glamour style for replies (dark, light, notty), empty to detect")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runWidget(cmd *cobra.Command, args []string) error {
	log, err := logger.NewWithOutput(logLevel, logFile)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	client, err := chatapi.NewHTTPClient(endpoint, chatapi.WithTimeout(timeout))
	if err != nil {
		return err
	}

	sessionID := uuid.NewString()
	log.Info("starting terminal widget",
		zap.String("session_id", sessionID),
		zap.String("endpoint", endpoint),
	)

	ctrl := widget.New(client, widget.Options{
		SessionID: sessionID,
		Greeting:  greeting,
		Logger:    log,
	})

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	p := tea.NewProgram(
		tui.New(ctx, ctrl, tui.Options{GlamourStyle: glamourStyle, Logger: log}),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run terminal widget: %w", err)
	}
	return nil
}
