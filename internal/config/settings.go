package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var v *viper.Viper

// InitSettings sets up the viper singleton for ambient (non-workflow)
// settings. Environment variables take precedence over defaults:
// TASKORC_DB, TASKORC_LOG, TASKORC_DIR, TASKORC_LOG_LEVEL.
func InitSettings() {
	v = viper.New()
	v.SetEnvPrefix("TASKORC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("db", "")
	v.SetDefault("dir", "")
	v.SetDefault("log", "")
	v.SetDefault("log-level", "info")
}

// GetString retrieves a string setting.
func GetString(key string) string {
	if v == nil {
		return ""
	}
	return v.GetString(key)
}

// WorkingDir returns the directory config discovery starts from:
// TASKORC_DIR when set, otherwise the process working directory.
func WorkingDir() string {
	if dir := GetString("dir"); dir != "" {
		return dir
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return cwd
}

// DatabasePath resolves the state database location. TASKORC_DB wins;
// otherwise the database lives next to the discovered (or would-be) config:
// <project>/.taskorchestrator/state.db.
func DatabasePath() string {
	if db := GetString("db"); db != "" {
		return db
	}
	root := WorkingDir()
	if cfgPath := Discover(root); cfgPath != "" {
		return filepath.Join(filepath.Dir(cfgPath), "state.db")
	}
	return filepath.Join(root, ConfigDirName, "state.db")
}

// LogPath resolves the server log file. Empty means log to stderr.
func LogPath() string {
	return GetString("log")
}
