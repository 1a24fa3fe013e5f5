package session

import (
	"os"
	"path/filepath"
)

// BaseDir returns ~/.cove.
func BaseDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cove")
}

// ConfigPath returns the global config file path.
func ConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// Dir returns the account-specific directory.
func Dir(account string) string {
	return filepath.Join(BaseDir(), "accounts", account)
}

// TokenPath returns the durable access-token file path for an account.
func TokenPath(account string) string {
	return filepath.Join(Dir(account), "token")
}

// CacheDBPath returns the app-owned cove.db path.
func CacheDBPath(account string) string {
	return filepath.Join(Dir(account), "cove.db")
}

// LogDir returns the log directory for an account.
func LogDir(account string) string {
	return filepath.Join(Dir(account), "logs")
}

// LogPath returns the client log file path.
func LogPath(account string) string {
	return filepath.Join(LogDir(account), "cove.log")
}

// EnsureDir creates the account directory if it does not exist.
func EnsureDir(account string) error {
	return os.MkdirAll(Dir(account), 0700)
}
