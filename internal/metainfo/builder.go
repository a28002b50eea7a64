package metainfo

import (
	"crypto/sha1"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// BuildOptions configures torrent creation.
type BuildOptions struct {
	// PieceLength is the piece size in bytes. Must be a power of two.
	PieceLength int64

	// Trackers lists announce URLs. The first becomes Announce; when
	// more than one is given, each also becomes its own announce-list
	// tier in order.
	Trackers []string

	// Comment is stored verbatim in the document.
	Comment string

	// CreatedBy names the creating program. Defaults to "spate".
	CreatedBy string

	// Private marks the torrent as tracker-only (BEP-27).
	Private bool
}

// Build creates a MetaInfo document for the file or directory at path.
//
// A regular file produces a single-file torrent; a directory produces a
// multi-file torrent whose entries are every regular file under it,
// sorted by relative path so the piece stream (and therefore the
// info-hash) is deterministic. Symlinks are skipped.
func Build(path string, opts BuildOptions) (*MetaInfo, error) {
	if opts.PieceLength <= 0 {
		return nil, fmt.Errorf("metainfo: piece length must be positive, got %d", opts.PieceLength)
	}
	if opts.PieceLength&(opts.PieceLength-1) != 0 {
		return nil, fmt.Errorf("metainfo: piece length must be a power of two, got %d", opts.PieceLength)
	}
	if len(opts.Trackers) == 0 {
		return nil, fmt.Errorf("metainfo: at least one tracker URL is required")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("metainfo: resolving %s: %w", path, err)
	}
	stat, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("metainfo: stat %s: %w", abs, err)
	}

	createdBy := opts.CreatedBy
	if createdBy == "" {
		createdBy = "spate"
	}

	m := &MetaInfo{
		Announce:     opts.Trackers[0],
		CreationDate: time.Now().UTC().Truncate(time.Second),
		Comment:      opts.Comment,
		CreatedBy:    createdBy,
		Info: Info{
			Name:        filepath.Base(abs),
			PieceLength: opts.PieceLength,
			Private:     opts.Private,
		},
	}
	if len(opts.Trackers) > 1 {
		for _, url := range opts.Trackers {
			m.AnnounceList = append(m.AnnounceList, []string{url})
		}
	}

	if stat.IsDir() {
		err = buildMultiFile(&m.Info, abs)
	} else {
		err = buildSingleFile(&m.Info, abs, stat.Size())
	}
	if err != nil {
		return nil, err
	}

	return m, nil
}

// buildSingleFile hashes one file into pieces.
func buildSingleFile(info *Info, path string, size int64) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("metainfo: open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	info.Length = size

	pieces, err := hashPieces([]io.Reader{f}, info.PieceLength)
	if err != nil {
		return fmt.Errorf("metainfo: hashing %s: %w", path, err)
	}
	info.Pieces = pieces
	return nil
}

// buildMultiFile collects every regular file under root and hashes the
// concatenated payload. Pieces span file boundaries, as the format
// requires: the payload is the concatenation of all files in order.
func buildMultiFile(info *Info, root string) error {
	var paths []string
	err := filepath.Walk(root, func(path string, fi os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return fmt.Errorf("metainfo: walking %s: %w", path, walkErr)
		}
		// Symlinks are skipped to keep the payload self-contained.
		if fi.Mode()&os.ModeSymlink != 0 {
			return nil
		}
		if fi.Mode().IsRegular() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("metainfo: directory %s contains no regular files", root)
	}

	// Sorting by relative path makes the piece stream deterministic
	// regardless of filesystem iteration order.
	sort.Strings(paths)

	var readers []io.Reader
	var openFiles []*os.File
	defer func() {
		for _, f := range openFiles {
			_ = f.Close()
		}
	}()

	for _, path := range paths {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("metainfo: relative path for %s: %w", path, err)
		}
		fi, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("metainfo: stat %s: %w", path, err)
		}

		info.Files = append(info.Files, FileEntry{
			Length: fi.Size(),
			// filepath.ToSlash normalizes separators; path segments in
			// metainfo are always forward-slash oriented.
			Path: strings.Split(filepath.ToSlash(rel), "/"),
		})

		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("metainfo: open %s: %w", path, err)
		}
		openFiles = append(openFiles, f)
		readers = append(readers, f)
	}

	pieces, err := hashPieces(readers, info.PieceLength)
	if err != nil {
		return fmt.Errorf("metainfo: hashing %s: %w", root, err)
	}
	info.Pieces = pieces
	return nil
}

// hashPieces reads the concatenation of all readers and returns one
// SHA-1 per pieceLength-sized chunk. The final piece may be shorter.
func hashPieces(readers []io.Reader, pieceLength int64) ([][HashSize]byte, error) {
	var pieces [][HashSize]byte

	src := io.MultiReader(readers...)
	buf := make([]byte, pieceLength)

	for {
		n, err := io.ReadFull(src, buf)
		if n > 0 {
			pieces = append(pieces, sha1.Sum(buf[:n]))
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return pieces, nil
		}
		if err != nil {
			return nil, err
		}
	}
}
