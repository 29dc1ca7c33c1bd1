package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matheus3301/tele/internal/auth"
	"github.com/matheus3301/tele/internal/lock"
	"github.com/matheus3301/tele/internal/media"
	"github.com/matheus3301/tele/internal/model"
	"github.com/matheus3301/tele/internal/player"
	"github.com/matheus3301/tele/internal/search"
	"github.com/matheus3301/tele/internal/session"
	"github.com/matheus3301/tele/internal/tui/client"
)

func newStatusCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and session status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, func(ctx context.Context, cl *client.Client) error {
				st, err := cl.Status(ctx)
				if err != nil {
					return err
				}
				c.print(st, func() {
					fmt.Printf("Session:    %s (pid %d)\n", st.Session, st.PID)
					fmt.Printf("Connection: %s\n", st.Connection)
					if st.Reason != "" {
						fmt.Printf("Reason:     %s\n", st.Reason)
					}
					fmt.Printf("Auth:       %s\n", st.Auth.State)
					fmt.Printf("Uptime:     %dms\n", st.UptimeMs)
				})
				return nil
			})
		},
	}
}

func newSessionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List known sessions",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			names, err := session.List()
			if err != nil {
				return err
			}
			if len(names) == 0 {
				fmt.Println("No sessions found.")
				return nil
			}
			for _, n := range names {
				running := "stopped"
				if pid, held := lock.Holder(session.LockPath(n)); held {
					running = fmt.Sprintf("running, pid %d", pid)
				}
				fmt.Printf("%-20s %s (%s)\n", n, session.Dir(n), running)
			}
			return nil
		},
	}
}

func newAuthCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Show or advance the login sequence",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.authStep(cmd, func(ctx context.Context, cl *client.Client) (*auth.Snapshot, error) {
				return cl.AuthState(ctx)
			})
		},
	}
	step := func(use, short string, nargs int, fn func(ctx context.Context, cl *client.Client, args []string) (*auth.Snapshot, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.ExactArgs(nargs),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.authStep(cmd, func(ctx context.Context, cl *client.Client) (*auth.Snapshot, error) {
					return fn(ctx, cl, args)
				})
			},
		}
	}
	cmd.AddCommand(
		step("query", "Ask the backend for its state again", 0, func(ctx context.Context, cl *client.Client, _ []string) (*auth.Snapshot, error) {
			return cl.QueryAuth(ctx)
		}),
		step("credentials <api-id> <api-hash>", "Store API credentials", 2, func(ctx context.Context, cl *client.Client, args []string) (*auth.Snapshot, error) {
			return cl.SubmitCredentials(ctx, args[0], args[1])
		}),
		step("phone <number>", "Submit the phone number", 1, func(ctx context.Context, cl *client.Client, args []string) (*auth.Snapshot, error) {
			return cl.SubmitPhone(ctx, args[0])
		}),
		step("code <code>", "Submit the login code", 1, func(ctx context.Context, cl *client.Client, args []string) (*auth.Snapshot, error) {
			return cl.SubmitCode(ctx, args[0])
		}),
		step("password", "Submit the 2FA password read from stdin", 0, func(ctx context.Context, cl *client.Client, _ []string) (*auth.Snapshot, error) {
			pw, err := readLine(cmd.InOrStdin())
			if err != nil {
				return nil, err
			}
			return cl.SubmitPassword(ctx, pw)
		}),
		step("logout", "Log out and close the session", 0, func(ctx context.Context, cl *client.Client, _ []string) (*auth.Snapshot, error) {
			return cl.LogOut(ctx)
		}),
	)
	return cmd
}

func (c *cli) authStep(cmd *cobra.Command, fn func(ctx context.Context, cl *client.Client) (*auth.Snapshot, error)) error {
	return c.run(cmd, func(ctx context.Context, cl *client.Client) error {
		snap, err := fn(ctx, cl)
		if err != nil {
			return err
		}
		c.print(snap, func() { printAuth(snap) })
		return nil
	})
}

func printAuth(snap *auth.Snapshot) {
	line := string(snap.State)
	if snap.Pending {
		line += " (pending)"
	}
	fmt.Println(line)
	if snap.Message != "" {
		fmt.Println(snap.Message)
	}
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newMediaCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "media",
		Short: "Browse photos and videos of a collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.mediaStep(cmd, func(ctx context.Context, cl *client.Client) (*media.State, error) {
				return cl.MediaState(ctx)
			})
		},
	}

	var title string
	load := &cobra.Command{
		Use:   "load [collection-id]",
		Short: "Load the first page of a collection (Saved Messages by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := model.PersonalStore()
			if len(args) == 1 {
				id, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("collection id: %w", err)
				}
				ref = model.CollectionRef{ID: id, Title: title}
			}
			return c.mediaStep(cmd, func(ctx context.Context, cl *client.Client) (*media.State, error) {
				return cl.LoadFresh(ctx, ref)
			})
		},
	}
	load.Flags().StringVar(&title, "title", "", "display title of the collection")

	more := &cobra.Command{
		Use:   "more",
		Short: "Load the next page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.mediaStep(cmd, func(ctx context.Context, cl *client.Client) (*media.State, error) {
				return cl.LoadMore(ctx)
			})
		},
	}

	del := &cobra.Command{
		Use:   "delete <collection-id> <item-id>",
		Short: "Delete an item for everyone",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return c.mediaStep(cmd, func(ctx context.Context, cl *client.Client) (*media.State, error) {
				return cl.DeleteItem(ctx, ids[0], ids[1])
			})
		},
	}

	show := &cobra.Command{
		Use:   "show <item-id>",
		Short: "Show item details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return c.run(cmd, func(ctx context.Context, cl *client.Client) error {
				st, err := cl.MediaState(ctx)
				if err != nil {
					return err
				}
				i := st.Find(ids[0])
				if i < 0 {
					return fmt.Errorf("item %d is not loaded", ids[0])
				}
				item := st.Items[i]
				c.print(item, func() { fmt.Print(model.Details(item)) })
				return nil
			})
		},
	}

	var linkOnly bool
	play := &cobra.Command{
		Use:   "play <item-id>",
		Short: "Resolve a playback link for a video and open it in the player",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return c.run(cmd, func(ctx context.Context, cl *client.Client) error {
				url, err := cl.ResolveLink(ctx, ids[0])
				if err != nil {
					return err
				}
				if linkOnly || c.json {
					c.print(map[string]string{"url": url}, func() { fmt.Println(url) })
					return nil
				}
				return launch(c.cfg.Player, url, fmt.Sprintf("item %d", ids[0]))
			})
		},
	}
	play.Flags().BoolVar(&linkOnly, "link", false, "print the link instead of launching the player")

	dismiss := &cobra.Command{
		Use:   "dismiss",
		Short: "Clear the error banner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.mediaStep(cmd, func(ctx context.Context, cl *client.Client) (*media.State, error) {
				return cl.DismissError(ctx)
			})
		},
	}

	cmd.AddCommand(load, more, del, show, play, dismiss)
	return cmd
}

// launch opens url in the player, printing it as a QR code when no player
// is installed.
func launch(command, url, title string) error {
	err := player.New(command).Launch(url, title)
	if !errors.Is(err, player.ErrNoPlayer) {
		return err
	}
	fmt.Printf("%s. Open this link on another device:\n%s\n", player.ErrNoPlayer, url)
	if qr, err := player.QR(url); err == nil {
		fmt.Print(qr)
	}
	return nil
}

func (c *cli) mediaStep(cmd *cobra.Command, fn func(ctx context.Context, cl *client.Client) (*media.State, error)) error {
	return c.run(cmd, func(ctx context.Context, cl *client.Client) error {
		st, err := fn(ctx, cl)
		if err != nil {
			return err
		}
		c.print(st, func() { printMedia(st) })
		return nil
	})
}

func printMedia(st *media.State) {
	if !st.Active {
		fmt.Println("No collection selected.")
		return
	}
	header := st.Collection.Title
	switch {
	case st.Loading:
		header += " (loading)"
	case st.LoadingMore:
		header += " (loading more)"
	}
	fmt.Println(header)
	if st.Error != "" {
		fmt.Printf("error: %s\n", st.Error)
	}
	for _, item := range st.Items {
		fmt.Printf("%-12d %-6s %-8s %s\n", item.ItemID, item.Kind, model.FormatDuration(item.DurationSeconds), item.Title)
	}
	if st.HasMore {
		fmt.Println("more available")
	}
}

func newCandidatesCommand(c *cli) *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "candidates",
		Short: "List Saved Messages and chats with an active call",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, func(ctx context.Context, cl *client.Client) error {
				get := cl.Candidates
				if refresh {
					get = cl.RefreshCandidates
				}
				st, err := get(ctx)
				if err != nil {
					return err
				}
				c.print(st, func() {
					if st.Loading {
						fmt.Println("loading")
					}
					if st.Error != "" {
						fmt.Printf("error: %s\n", st.Error)
					}
					for _, ref := range st.Candidates {
						fmt.Printf("%-16d %s\n", ref.ID, ref.Title)
					}
				})
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "reload from the server")
	return cmd
}

func newSearchCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Ask the search bot",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.searchStep(cmd, func(ctx context.Context, cl *client.Client) (*search.Snapshot, error) {
				return cl.Search(ctx, strings.Join(args, " "))
			})
		},
	}
	show := &cobra.Command{
		Use:   "show",
		Short: "Show the current results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.searchStep(cmd, func(ctx context.Context, cl *client.Client) (*search.Snapshot, error) {
				return cl.SearchState(ctx)
			})
		},
	}
	sel := &cobra.Command{
		Use:   "select <n>",
		Short: "Press the n-th result (1-based)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("result number: %w", err)
			}
			return c.searchStep(cmd, func(ctx context.Context, cl *client.Client) (*search.Snapshot, error) {
				snap, err := cl.SearchState(ctx)
				if err != nil {
					return nil, err
				}
				if n < 1 || n > len(snap.Results) {
					return nil, fmt.Errorf("no result %d", n)
				}
				return cl.SelectResult(ctx, snap.Results[n-1])
			})
		},
	}
	reset := &cobra.Command{
		Use:   "clear",
		Short: "Reset the search",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.searchStep(cmd, func(ctx context.Context, cl *client.Client) (*search.Snapshot, error) {
				return cl.ClearSearch(ctx)
			})
		},
	}
	cmd.AddCommand(show, sel, reset)
	return cmd
}

func (c *cli) searchStep(cmd *cobra.Command, fn func(ctx context.Context, cl *client.Client) (*search.Snapshot, error)) error {
	return c.run(cmd, func(ctx context.Context, cl *client.Client) error {
		snap, err := fn(ctx, cl)
		if err != nil {
			return err
		}
		c.print(snap, func() { printSearch(snap) })
		return nil
	})
}

func printSearch(snap *search.Snapshot) {
	switch snap.Phase {
	case search.Searching:
		fmt.Printf("Searching %q…\n", snap.Query)
	case search.Error:
		fmt.Printf("error: %s\n", snap.Error)
	default:
		if snap.HasSearched && len(snap.Results) == 0 {
			fmt.Println("No results")
		}
		for i, r := range snap.Results {
			fmt.Printf("%3d. %s\n", i+1, r.Label)
		}
	}
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, len(args))
	for i, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("id %q: %w", a, err)
		}
		ids[i] = id
	}
	return ids, nil
}
