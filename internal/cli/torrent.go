// torrent.go implements the "spate torrent" command group.
//
// Workspace assets (base images exported as tarballs, dataset snapshots,
// cached toolchains) are distributed between machines as torrents.
// "torrent create" builds a .torrent metainfo file for a file or
// directory; "torrent inspect" prints the contents of an existing one.
package cli

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/spate/internal/logging"
	"github.com/mmr-tortoise/spate/internal/metainfo"
	"github.com/mmr-tortoise/spate/internal/model"
)

// torrentCreateFlags holds the flag values for "torrent create".
type torrentCreateFlags struct {
	// output is the .torrent file to write; "<name>.torrent" when empty.
	output string

	// pieceLength overrides the configured piece size in bytes.
	pieceLength int64

	// trackers are announce URLs; they replace the configured defaults.
	trackers []string

	// comment is stored verbatim in the metainfo document.
	comment string

	// private marks the torrent tracker-only.
	private bool
}

// NewTorrentCommand creates the "torrent" cobra command and its
// subcommands.
func NewTorrentCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "torrent",
		Short: "Create and inspect .torrent files for workspace assets",
	}

	cmd.AddCommand(newTorrentCreateCommand())
	cmd.AddCommand(newTorrentInspectCommand())
	return cmd
}

func newTorrentCreateCommand() *cobra.Command {
	flags := &torrentCreateFlags{}

	cmd := &cobra.Command{
		Use:   "create <path>",
		Short: "Create a .torrent file for a file or directory",
		Long: `Create a .torrent metainfo file for the file or directory at <path>.

A directory produces a multi-file torrent; files are hashed in sorted
path order so repeated runs over the same content yield the same
info-hash. Defaults for piece length, trackers, and the created-by
field come from spate.yaml and can be overridden per invocation.

Examples:
  spate torrent create ./rust-toolchain.tar
  spate torrent create ./dataset --tracker http://tracker.local:6969/announce
  spate torrent create ./dataset --piece-length 1048576 -o dataset.torrent`,

		Args: cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runTorrentCreate(args[0], flags)
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output file (default: <name>.torrent)")
	cmd.Flags().Int64Var(&flags.pieceLength, "piece-length", 0, "Piece size in bytes, power of two (default: from config)")
	cmd.Flags().StringArrayVar(&flags.trackers, "tracker", nil, "Tracker announce URL (repeatable; default: from config)")
	cmd.Flags().StringVar(&flags.comment, "comment", "", "Free-form comment stored in the torrent")
	cmd.Flags().BoolVar(&flags.private, "private", false, "Mark the torrent private (tracker-only peers)")

	return cmd
}

func newTorrentInspectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Print the contents of a .torrent file",

		Args: cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runTorrentInspect(args[0])
		},
	}
	return cmd
}

// runTorrentCreate is the main logic function for "torrent create".
func runTorrentCreate(path string, flags *torrentCreateFlags) error {
	log := logging.WithComponent("torrent")

	// Step 1: Merge flags over configured defaults.
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	pieceLength := flags.pieceLength
	if pieceLength == 0 {
		pieceLength = int64(settings.Torrent.PieceLength)
	}
	trackers := flags.trackers
	if len(trackers) == 0 {
		trackers = settings.Torrent.Trackers
	}
	if len(trackers) == 0 {
		return model.NewCLIError(model.ExitTorrentError,
			"no tracker URL: pass --tracker or set torrent.trackers in spate.yaml")
	}

	// Step 2: Hash the payload and assemble the metainfo document.
	m, err := metainfo.Build(path, metainfo.BuildOptions{
		PieceLength: pieceLength,
		Trackers:    trackers,
		Comment:     flags.comment,
		CreatedBy:   settings.Torrent.CreatedBy,
		Private:     flags.private,
	})
	if err != nil {
		return model.WrapCLIError(model.ExitTorrentError, "failed to build torrent", err)
	}

	// Step 3: Write the .torrent file.
	output := flags.output
	if output == "" {
		output = m.Info.Name + ".torrent"
	}
	f, err := os.Create(output)
	if err != nil {
		return model.WrapCLIError(model.ExitTorrentError,
			fmt.Sprintf("failed to create %s", output), err)
	}
	defer func() { _ = f.Close() }()

	if err := m.WriteTo(f); err != nil {
		return model.WrapCLIError(model.ExitTorrentError,
			fmt.Sprintf("failed to write %s", output), err)
	}

	hash, err := m.InfoHash()
	if err != nil {
		return model.WrapCLIError(model.ExitTorrentError, "failed to compute info-hash", err)
	}

	log.Info().Str("output", output).Int("pieces", m.Info.PieceCount()).Msg("torrent created")
	printTorrentSummary(m, hash, output)
	return nil
}

// runTorrentInspect is the main logic function for "torrent inspect".
func runTorrentInspect(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return model.WrapCLIError(model.ExitTorrentError,
			fmt.Sprintf("failed to open %s", path), err)
	}
	defer func() { _ = f.Close() }()

	m, err := metainfo.ParseReader(f)
	if err != nil {
		return model.WrapCLIError(model.ExitTorrentError,
			fmt.Sprintf("%s is not a valid torrent file", path), err)
	}

	hash, err := m.InfoHash()
	if err != nil {
		return model.WrapCLIError(model.ExitTorrentError, "failed to compute info-hash", err)
	}

	printTorrentSummary(m, hash, "")
	return nil
}

// torrentJSON is the JSON output structure shared by create and inspect.
type torrentJSON struct {
	Name        string   `json:"name"`
	InfoHash    string   `json:"infoHash"`
	PieceLength int64    `json:"pieceLength"`
	Pieces      int      `json:"pieces"`
	TotalLength int64    `json:"totalLength"`
	Files       int      `json:"files"`
	Trackers    []string `json:"trackers"`
	Private     bool     `json:"private"`
	Output      string   `json:"output,omitempty"`
}

// printTorrentSummary outputs the document's key fields in text or JSON
// format. output names the file just written; empty for inspect.
func printTorrentSummary(m *metainfo.MetaInfo, hash [metainfo.HashSize]byte, output string) {
	trackers := []string{m.Announce}
	for _, tier := range m.AnnounceList {
		for _, url := range tier {
			if url != m.Announce {
				trackers = append(trackers, url)
			}
		}
	}

	fileCount := 1
	if m.Info.IsMultiFile() {
		fileCount = len(m.Info.Files)
	}

	if IsJSONOutput() {
		data, _ := json.MarshalIndent(torrentJSON{
			Name:        m.Info.Name,
			InfoHash:    hex.EncodeToString(hash[:]),
			PieceLength: m.Info.PieceLength,
			Pieces:      m.Info.PieceCount(),
			TotalLength: m.Info.TotalLength(),
			Files:       fileCount,
			Trackers:    trackers,
			Private:     m.Info.Private,
			Output:      output,
		}, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Name:         %s\n", m.Info.Name)
	fmt.Printf("Info hash:    %s\n", hex.EncodeToString(hash[:]))
	fmt.Printf("Piece length: %d\n", m.Info.PieceLength)
	fmt.Printf("Pieces:       %d\n", m.Info.PieceCount())
	fmt.Printf("Total size:   %d bytes\n", m.Info.TotalLength())
	fmt.Printf("Files:        %d\n", fileCount)
	for _, t := range trackers {
		fmt.Printf("Tracker:      %s\n", t)
	}
	if m.Info.Private {
		fmt.Println("Private:      yes")
	}
	if output != "" {
		fmt.Printf("Wrote:        %s\n", output)
	}
}
