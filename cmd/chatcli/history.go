package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(historyCmd, chatsCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history [chat-id]",
	Short: "Print every message of a conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		api := newAPI(cfg)
		defer api.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Client.RequestTimeout)
		defer cancel()

		messages, err := api.FetchMessages(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to load messages: %w", err)
		}

		if len(messages) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no messages yet")
			return nil
		}

		now := time.Now()
		for _, msg := range messages {
			fmt.Fprintln(cmd.OutOrStdout(), formatMessage(msg, cfg.Client.UserID, now))
		}
		return nil
	},
}

var chatsCmd = &cobra.Command{
	Use:   "chats",
	Short: "List the conversations you have written in",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		api := newAPI(cfg)
		defer api.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Client.RequestTimeout)
		defer cancel()

		previews, err := api.FetchConversations(ctx)
		if err != nil {
			return fmt.Errorf("failed to load conversations: %w", err)
		}

		now := time.Now()
		for _, p := range previews {
			fmt.Fprintln(cmd.OutOrStdout(), formatPreview(p, now))
		}
		return nil
	},
}
