package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	logger_lib "github.com/s21platform/logger-lib"
	"github.com/s21platform/metrics-lib/pkg"

	"github.com/turfbook/chat-service/internal/chatsync"
	"github.com/turfbook/chat-service/internal/client/chatapi"
	"github.com/turfbook/chat-service/internal/config"
	"github.com/turfbook/chat-service/internal/metrics"
)

var rootCmd = &cobra.Command{
	Use:   "chatcli",
	Short: "Terminal client for TurfBook booking chats",
	Long: `chatcli talks to the TurfBook chat API. It can follow a conversation live,
print its history, send one-off messages and sign development access tokens.`,
	SilenceUsage:      true,
	PersistentPreRunE: connectMetrics,
	PersistentPostRun: disconnectMetrics,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "ship client logs to the logger service")
	rootCmd.PersistentFlags().String("api", "", "chat API base URL (overrides CHAT_API_URL)")
	rootCmd.PersistentFlags().String("token", "", "access token (overrides CHAT_TOKEN)")
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to read env variables: %w", err)
	}

	if api, _ := cmd.Flags().GetString("api"); api != "" {
		cfg.Client.BaseURL = api
	}
	if token, _ := cmd.Flags().GetString("token"); token != "" {
		cfg.Client.Token = token
	}

	return cfg, nil
}

func newAPI(cfg *config.Config) *chatapi.Client {
	return chatapi.New(cfg.Client.BaseURL, cfg.Client.Token, cfg.Client.RequestTimeout)
}

// connectMetrics puts a statsd client under config.KeyMetrics. Commands run
// without metrics when it cannot be created.
func connectMetrics(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	m, err := pkg.NewMetrics(cfg.Metrics.Host, cfg.Metrics.Port, "chatcli", cfg.Platform.Env)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "metrics disabled: %v\n", err)
		return nil
	}

	cmd.SetContext(context.WithValue(cmd.Context(), config.KeyMetrics, m))
	return nil
}

func disconnectMetrics(cmd *cobra.Command, _ []string) {
	if m, ok := cmd.Context().Value(config.KeyMetrics).(*pkg.Metrics); ok {
		m.Disconnect()
	}
}

// clientMetrics returns nil when the command runs without metrics.
func clientMetrics(ctx context.Context) *metrics.Client {
	m := pkg.FromContext(ctx, config.KeyMetrics)
	if m == nil {
		return nil
	}
	return metrics.NewClient(m)
}

// newLogger keeps the terminal clean unless --verbose is set.
func newLogger(cmd *cobra.Command, cfg *config.Config) chatsync.Logger {
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		return logger_lib.New(cfg.Logger.Host, cfg.Logger.Port, "chatcli", cfg.Platform.Env)
	}
	return quietLogger{}
}

type quietLogger struct{}

func (quietLogger) Info(string)  {}
func (quietLogger) Warn(string)  {}
func (quietLogger) Error(string) {}
