package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Default values applied when spate.yaml is absent or leaves fields unset.
const (
	defaultLogLevel        = "info"
	defaultWorkspaceFolder = "/workspaces"

	// defaultPieceLength is 256 KiB, the common default for torrents of
	// moderate size. Must stay a power of two.
	defaultPieceLength = 256 * 1024
)

// Load reads the spate settings file and returns the populated Settings.
//
// Search order:
//  1. The explicit path, when non-empty.
//  2. $XDG_CONFIG_HOME/spate/spate.yaml (or ~/.config/spate/spate.yaml).
//  3. ./spate.yaml in the current directory.
//
// A missing file is not an error; defaults are returned instead. A file
// that exists but cannot be parsed is an error, because silently ignoring
// a user's settings would be worse than failing loudly.
func Load(path string) (*Settings, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	// Register defaults first so Unmarshal fills unset fields.
	v.SetDefault("logLevel", defaultLogLevel)
	v.SetDefault("workspaceFolder", defaultWorkspaceFolder)
	v.SetDefault("torrent.pieceLength", defaultPieceLength)
	v.SetDefault("torrent.createdBy", "spate")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading settings file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("spate")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "spate"))
		}
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			// Both viper's own not-found type and fs.ErrNotExist count as
			// "no settings file": viper returns the former when no search
			// path had the file, the latter when a candidate disappeared.
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("error reading settings file: %w", err)
			}
		}
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("unable to decode settings: %w", err)
	}

	if err := validate(&settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// validate rejects settings values that would produce broken output later.
func validate(s *Settings) error {
	if s.Torrent.PieceLength <= 0 {
		return fmt.Errorf("torrent.pieceLength must be positive, got %d", s.Torrent.PieceLength)
	}
	// Power-of-two check: a power of two has a single set bit.
	if s.Torrent.PieceLength&(s.Torrent.PieceLength-1) != 0 {
		return fmt.Errorf("torrent.pieceLength must be a power of two, got %d", s.Torrent.PieceLength)
	}
	return nil
}
