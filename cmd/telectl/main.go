package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/matheus3301/tele/internal/config"
	"github.com/matheus3301/tele/internal/session"
	"github.com/matheus3301/tele/internal/tui/client"
)

type cli struct {
	session string
	json    bool
	timeout time.Duration
	cfg     *config.Config
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", errorText(err))
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "telectl",
		Short:         "Script a tele session daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadOrDefault(session.ConfigPath())
			if err != nil {
				return err
			}
			c.cfg = cfg
			name, err := session.Resolve(c.session, cfg)
			if err != nil {
				return err
			}
			c.session = name
			return nil
		},
	}
	root.PersistentFlags().StringVar(&c.session, "session", "", "session name (overrides config default)")
	root.PersistentFlags().BoolVar(&c.json, "json", false, "output in JSON format")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", 10*time.Second, "per-command deadline")

	root.AddCommand(
		newStatusCommand(c),
		newSessionsCommand(),
		newAuthCommand(c),
		newMediaCommand(c),
		newCandidatesCommand(c),
		newSearchCommand(c),
		newWatchCommand(c),
	)
	return root
}

// run dials the session daemon and calls fn under the command deadline.
func (c *cli) run(cmd *cobra.Command, fn func(ctx context.Context, cl *client.Client) error) error {
	if !session.Running(c.session) {
		return fmt.Errorf("daemon not running for session %q", c.session)
	}
	cl, err := client.New(session.SocketPath(c.session))
	if err != nil {
		return fmt.Errorf("cannot connect to daemon for session %q: %w", c.session, err)
	}
	defer func() { _ = cl.Close() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), c.timeout)
	defer cancel()
	return fn(ctx, cl)
}

// print writes v as JSON with --json, otherwise calls text.
func (c *cli) print(v any, text func()) {
	if c.json {
		outputJSON(v)
		return
	}
	text()
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}

// errorText strips the gRPC framing from daemon errors.
func errorText(err error) string {
	if st, ok := grpcstatus.FromError(err); ok {
		return st.Message()
	}
	return err.Error()
}
