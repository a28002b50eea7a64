// Package config loads the optional spate tool settings file.
//
// The settings file (spate.yaml) tunes tool behavior: log level, label
// prefix overrides, and defaults for torrent creation. It is entirely
// optional; every field has a working default so first-run users never
// need to create one.
package config

// Settings represents the root of spate.yaml.
type Settings struct {
	// LogLevel sets the zerolog level ("debug", "info", "warn", "error").
	LogLevel string `mapstructure:"logLevel"`

	// WorkspaceFolder is the default mount target inside containers when
	// devcontainer.json does not specify workspaceFolder.
	WorkspaceFolder string `mapstructure:"workspaceFolder"`

	// Torrent holds defaults for `spate torrent create`.
	Torrent TorrentSettings `mapstructure:"torrent"`
}

// TorrentSettings holds defaults for metainfo creation.
type TorrentSettings struct {
	// PieceLength is the piece size in bytes. Must be a power of two.
	PieceLength int `mapstructure:"pieceLength"`

	// Trackers lists announce URLs added to every created torrent.
	Trackers []string `mapstructure:"trackers"`

	// CreatedBy overrides the "created by" field in generated metainfo.
	CreatedBy string `mapstructure:"createdBy"`
}
