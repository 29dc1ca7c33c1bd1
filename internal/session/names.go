package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"

	"github.com/matheus3301/tele/internal/config"
	"github.com/matheus3301/tele/internal/lock"
)

const DefaultSessionName = "main"

// ErrInvalidName is wrapped by every name validation failure.
var ErrInvalidName = errors.New("invalid session name")

var validName = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// Validate checks that name is usable as a directory and socket name.
func Validate(name string) error {
	if !validName.MatchString(name) {
		return fmt.Errorf("%w %q: use up to 64 lowercase letters, digits, '-' or '_', starting with a letter or digit", ErrInvalidName, name)
	}
	return nil
}

// Resolve picks the active session: the flag, then cfg.DefaultSession,
// then "main". cfg may be nil.
func Resolve(flagOverride string, cfg *config.Config) (string, error) {
	name := flagOverride
	if name == "" && cfg != nil {
		name = cfg.DefaultSession
	}
	if name == "" {
		name = DefaultSessionName
	}
	if err := Validate(name); err != nil {
		return "", err
	}
	return name, nil
}

// List returns the names of the sessions on disk, sorted.
func List() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(BaseDir(), "sessions"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && Validate(e.Name()) == nil {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}

// Running reports whether a daemon holds the session lock.
func Running(name string) bool {
	_, held := lock.Holder(LockPath(name))
	return held
}
