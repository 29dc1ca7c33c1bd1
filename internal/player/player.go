// Package player hands resolved playback URLs to an external media player.
package player

import (
	"errors"
	"fmt"
	"os/exec"
)

// ErrNoPlayer is returned when the configured player is not installed.
var ErrNoPlayer = errors.New("No player found")

// Player launches a named executable.
type Player struct {
	Command string
	// lookPath is replaced in tests.
	lookPath func(string) (string, error)
}

// New returns a player for the given executable name.
func New(command string) *Player {
	if command == "" {
		command = "mpv"
	}
	return &Player{Command: command, lookPath: exec.LookPath}
}

// Available reports whether the player executable can be found.
func (p *Player) Available() bool {
	_, err := p.lookPath(p.Command)
	return err == nil
}

// Launch starts the player and returns once the process has started. The
// player outlives the caller.
func (p *Player) Launch(url, title string) error {
	path, err := p.lookPath(p.Command)
	if err != nil {
		return ErrNoPlayer
	}
	cmd := exec.Command(path, Args(p.Command, url, title)...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", p.Command, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// Args builds the command line for known players.
func Args(command, url, title string) []string {
	switch command {
	case "mpv":
		if title != "" {
			return []string{"--force-window=immediate", "--title=" + title, url}
		}
		return []string{"--force-window=immediate", url}
	case "vlc", "cvlc":
		if title != "" {
			return []string{"--meta-title", title, url}
		}
	}
	return []string{url}
}
