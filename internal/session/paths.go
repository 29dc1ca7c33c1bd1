package session

import (
	"os"
	"path/filepath"
)

// BaseDir returns ~/.tele, or $TELE_HOME when set.
func BaseDir() string {
	if dir := os.Getenv("TELE_HOME"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".tele")
}

// Dir returns the session-specific directory.
func Dir(name string) string {
	return filepath.Join(BaseDir(), "sessions", name)
}

// SocketPath returns the UDS socket path for a session.
func SocketPath(name string) string {
	return filepath.Join(Dir(name), "daemon.sock")
}

// LockPath returns the lock file path for a session.
func LockPath(name string) string {
	return filepath.Join(Dir(name), "daemon.lock")
}

// DBPath returns the app-owned tele.db path holding credentials, the
// remote session blob and the thumbnail index.
func DBPath(name string) string {
	return filepath.Join(Dir(name), "tele.db")
}

// ThumbnailDir returns where downloaded thumbnails are written.
func ThumbnailDir(name string) string {
	return filepath.Join(Dir(name), "thumbnails")
}

// EnvPath returns the optional dotenv file with API credentials.
func EnvPath(name string) string {
	return filepath.Join(Dir(name), ".env")
}

// LogDir returns the log directory for a session.
func LogDir(name string) string {
	return filepath.Join(Dir(name), "logs")
}

// LogPath returns the daemon log file path.
func LogPath(name string) string {
	return filepath.Join(LogDir(name), "teled.log")
}

// ConfigPath returns the global config file path.
func ConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// EnsureDir creates the session directory tree with proper permissions.
func EnsureDir(name string) error {
	for _, d := range []string{Dir(name), LogDir(name), ThumbnailDir(name)} {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}
