package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	// EnvConfigFile overrides the config file location.
	EnvConfigFile = "GWA_CONFIG"

	homeDirName    = ".gwa"
	configFileName = "config.yaml"
)

// Paths locates gwa's per-user files.
type Paths struct {
	// HomeDir holds gwa's user state (~/.gwa).
	HomeDir string

	// ConfigFile holds user defaults for new projects.
	ConfigFile string
}

// DefaultPaths returns the per-user paths under the home directory.
func DefaultPaths() (*Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(home, homeDirName)
	return &Paths{HomeDir: dir, ConfigFile: filepath.Join(dir, configFileName)}, nil
}

// GetConfigFile returns $GWA_CONFIG when set, else the default location.
func GetConfigFile() (string, error) {
	if p := os.Getenv(EnvConfigFile); p != "" {
		return p, nil
	}
	paths, err := DefaultPaths()
	if err != nil {
		return "", err
	}
	return paths.ConfigFile, nil
}

// ExpandPath replaces a leading "~" or "~/" with the home directory.
// Other forms, including "~user", are returned unchanged.
func ExpandPath(path string) (string, error) {
	rest, ok := strings.CutPrefix(path, "~")
	if !ok || (rest != "" && rest[0] != '/' && rest[0] != filepath.Separator) {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, rest), nil
}
