package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turfbook/chat-service/internal/chatsync"
)

func init() {
	rootCmd.AddCommand(sendCmd)
}

var sendCmd = &cobra.Command{
	Use:   "send [chat-id] [text...]",
	Short: "Send a single message",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		content := strings.TrimSpace(strings.Join(args[1:], " "))
		if content == "" {
			return fmt.Errorf("message is empty")
		}

		api := newAPI(cfg)
		defer api.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Client.RequestTimeout)
		defer cancel()

		m := clientMetrics(cmd.Context())

		msg, err := api.SendMessage(ctx, args[0], content)
		if err != nil {
			if m != nil {
				m.ObserveSend(chatsync.OutcomeError)
			}
			return fmt.Errorf("failed to send message: %w", err)
		}
		if m != nil {
			m.ObserveSend(chatsync.OutcomeOK)
		}

		if msg.ID != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "sent %s\n", msg.ID)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "sent")
		}
		return nil
	},
}
