package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/turfbook/chat-service/internal/chatsync"
	"github.com/turfbook/chat-service/internal/client/socket"
)

func init() {
	watchCmd.Flags().Bool("no-push", false, "poll only, without the push socket")
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch [chat-id]",
	Short: "Follow a conversation live and send lines typed on stdin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger := newLogger(cmd, cfg)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		api := newAPI(cfg)
		defer api.Close()

		var push chatsync.PushChannel
		if noPush, _ := cmd.Flags().GetBool("no-push"); !noPush {
			conn, err := socket.Dial(ctx, cfg.Client.SocketURL, cfg.Client.Token, logger)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "live updates unavailable, polling every %s\n", cfg.Client.PollInterval)
				logger.Warn(fmt.Sprintf("failed to connect push socket: %v", err))
			} else {
				defer conn.Close() //nolint:errcheck // .
				push = conn
			}
		}

		opts := []chatsync.Option{
			chatsync.WithPollInterval(cfg.Client.PollInterval),
			chatsync.WithTypingTimeout(cfg.Client.TypingTimeout),
			chatsync.WithRequestTimeout(cfg.Client.RequestTimeout),
			chatsync.WithLogger(logger),
		}
		if m := clientMetrics(cmd.Context()); m != nil {
			opts = append(opts, chatsync.WithMetrics(m))
		}

		session := chatsync.New(api, push, chatsync.Identity{UserID: cfg.Client.UserID, Role: cfg.Client.Role}, opts...)
		defer session.Close()

		session.Activate(args[0])

		readCtx, cancel := context.WithTimeout(ctx, cfg.Client.RequestTimeout)
		if _, err := api.MarkRead(readCtx, args[0]); err != nil {
			logger.Warn(fmt.Sprintf("failed to mark chat read: %v", err))
		}
		cancel()

		g, gCtx := errgroup.WithContext(ctx)
		g.Go(func() error {
			render(gCtx, session, newScreen(cmd.OutOrStdout(), cfg.Client.UserID))
			return nil
		})
		g.Go(func() error {
			return readInput(gCtx, session, cmd.InOrStdin(), cmd.ErrOrStderr())
		})

		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

// screen prints each message once and reports typing and error changes.
type screen struct {
	out     io.Writer
	selfID  string
	printed map[string]struct{}
	typing  bool
	lastErr string
	state   chatsync.State
}

func newScreen(out io.Writer, selfID string) *screen {
	return &screen{
		out:     out,
		selfID:  selfID,
		printed: make(map[string]struct{}),
	}
}

func (s *screen) draw(snap chatsync.Snapshot, now time.Time) {
	if snap.State != s.state {
		s.state = snap.State
		if snap.State == chatsync.StateLoading {
			fmt.Fprintf(s.out, "-- loading %s\n", snap.ChatID)
		}
	}

	for _, msg := range snap.Messages {
		if _, ok := s.printed[msg.ID]; ok {
			continue
		}
		s.printed[msg.ID] = struct{}{}
		fmt.Fprintln(s.out, formatMessage(msg, s.selfID, now))
	}

	if snap.Typing && !s.typing {
		fmt.Fprintln(s.out, "-- typing...")
	}
	s.typing = snap.Typing

	if snap.Err != s.lastErr {
		if snap.Err != "" {
			fmt.Fprintf(s.out, "-- %s\n", snap.Err)
		}
		s.lastErr = snap.Err
	}
}

func render(ctx context.Context, session *chatsync.Session, scr *screen) {
	scr.draw(session.Snapshot(), time.Now())

	for {
		select {
		case <-ctx.Done():
			return
		case <-session.Updates():
			scr.draw(session.Snapshot(), time.Now())
		}
	}
}

func readInput(ctx context.Context, session *chatsync.Session, in io.Reader, errOut io.Writer) error {
	lines := make(chan string)
	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				// stdin closed, keep following until interrupted
				<-ctx.Done()
				return ctx.Err()
			}

			_ = session.NotifyTyping()
			if err := session.Send(ctx, line); err != nil {
				if errors.Is(err, chatsync.ErrEmptyContent) {
					continue
				}
				fmt.Fprintf(errOut, "-- %v\n", err)
			}
		}
	}
}
