// Package main is the entry point for the spate CLI.
//
// This binary manages Dev Container workspace environments and the
// torrent metainfo files used to distribute workspace assets. It
// delegates all functionality to the internal/cli package, which
// defines cobra commands.
package main

import (
	"github.com/mmr-tortoise/spate/internal/cli"
)

// version, commit, and date are set at build time via ldflags. They
// provide binary identification for the --version flag output.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	rootCmd := cli.NewRootCommand()
	cli.Execute(rootCmd)
}
