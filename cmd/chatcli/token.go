package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/turfbook/chat-service/internal/model"
	"github.com/turfbook/chat-service/internal/pkg/jwt"
)

func init() {
	tokenCmd.Flags().String("user", "", "user id to sign the token for")
	tokenCmd.Flags().String("role", model.RolePlayer, "role claim (owner, player or admin)")
	_ = tokenCmd.MarkFlagRequired("user")

	rootCmd.AddCommand(tokenCmd)
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Sign a development access token with SOCKET_JWT_SECRET",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.Socket.JWTSecret == "" {
			return fmt.Errorf("SOCKET_JWT_SECRET is not set")
		}

		user, _ := cmd.Flags().GetString("user")
		role, _ := cmd.Flags().GetString("role")
		switch role {
		case model.RoleOwner, model.RolePlayer, model.RoleAdmin:
		default:
			return fmt.Errorf("unknown role %q", role)
		}

		token, expiresAt, err := jwt.New(cfg.Socket.JWTSecret, cfg.Socket.TokenTTL).GenerateAccessToken(user, role)
		if err != nil {
			return fmt.Errorf("failed to sign token: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), token)
		fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", time.Unix(expiresAt, 0).Format(time.RFC3339))
		return nil
	},
}
