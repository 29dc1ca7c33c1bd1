package main

import (
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/matheus3301/tele/internal/api"
	"github.com/matheus3301/tele/internal/session"
	"github.com/matheus3301/tele/internal/tui/client"
)

func newWatchCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:       "watch [topic...]",
		Short:     "Stream state changes until interrupted",
		ValidArgs: api.AllTopics,
		Args:      cobra.OnlyValidArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !session.Running(c.session) {
				return fmt.Errorf("daemon not running for session %q", c.session)
			}
			cl, err := client.New(session.SocketPath(c.session))
			if err != nil {
				return fmt.Errorf("cannot connect to daemon for session %q: %w", c.session, err)
			}
			defer func() { _ = cl.Close() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			w, err := cl.Watch(ctx, args...)
			if err != nil {
				return err
			}
			for {
				env, err := w.Recv()
				if err != nil {
					if ctx.Err() != nil || errors.Is(err, io.EOF) || grpcstatus.Code(err) == codes.Canceled {
						return nil
					}
					return err
				}
				c.print(env, func() { printEnvelope(env) })
			}
		},
	}
}

func printEnvelope(env *api.Envelope) {
	at := time.UnixMilli(env.AtUnixMs).Format("15:04:05.000")
	switch {
	case env.Status != nil:
		fmt.Printf("%s status     %s %s\n", at, env.Status.Connection, env.Status.Reason)
	case env.Auth != nil:
		fmt.Printf("%s auth       %s %s\n", at, env.Auth.State, env.Auth.Message)
	case env.Media != nil:
		fmt.Printf("%s media      %s items=%d more=%t loading=%t %s\n", at,
			env.Media.Collection.Title, len(env.Media.Items), env.Media.HasMore, env.Media.Loading || env.Media.LoadingMore, env.Media.Error)
	case env.Search != nil:
		fmt.Printf("%s search     %s %q results=%d %s\n", at,
			env.Search.Phase, env.Search.Query, len(env.Search.Results), env.Search.Error)
	case env.Candidates != nil:
		fmt.Printf("%s candidates %d loading=%t %s\n", at,
			len(env.Candidates.Candidates), env.Candidates.Loading, env.Candidates.Error)
	}
}
