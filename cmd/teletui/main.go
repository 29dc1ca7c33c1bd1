package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/matheus3301/tele/internal/config"
	"github.com/matheus3301/tele/internal/player"
	"github.com/matheus3301/tele/internal/session"
	"github.com/matheus3301/tele/internal/tui"
	"github.com/matheus3301/tele/internal/tui/client"
)

func main() {
	sessionFlag := flag.String("session", "", "session name (overrides config default)")
	noStart := flag.Bool("no-autostart", false, "fail instead of starting teled when it is not running")
	flag.Parse()

	cfg, err := config.LoadOrDefault(session.ConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	sessionName, err := session.Resolve(*sessionFlag, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	socketPath := session.SocketPath(sessionName)

	if !probeDaemon(sessionName) {
		if *noStart {
			fmt.Fprintf(os.Stderr, "teled is not running for session %q\n", sessionName)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "starting teled for session %q...\n", sessionName)
		if err := startDaemon(sessionName); err != nil {
			fmt.Fprintf(os.Stderr, "failed to start teled: %v\n", err)
			os.Exit(1)
		}
		if !waitForDaemon(sessionName, 10*time.Second) {
			fmt.Fprintf(os.Stderr, "daemon did not become ready, see %s\n", session.LogPath(sessionName))
			os.Exit(1)
		}
	}

	c, err := client.New(socketPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to daemon: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = c.Close() }()

	app := tui.NewApp(c, sessionName, player.New(cfg.Player))
	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// probeDaemon reports whether the session's daemon holds its lock and
// answers a status call.
func probeDaemon(sessionName string) bool {
	if !session.Running(sessionName) {
		return false
	}
	c, err := client.New(session.SocketPath(sessionName))
	if err != nil {
		return false
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err = c.Status(ctx)
	return err == nil
}

// startDaemon launches teled from next to this binary, or from PATH.
func startDaemon(sessionName string) error {
	executable, err := os.Executable()
	if err != nil {
		return err
	}
	teled := filepath.Join(filepath.Dir(executable), "teled")
	if _, err := os.Stat(teled); err != nil {
		teled = "teled"
	}

	cmd := exec.Command(teled, "--session", sessionName)
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

func waitForDaemon(sessionName string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if probeDaemon(sessionName) {
			return true
		}
		time.Sleep(300 * time.Millisecond)
	}
	return false
}
