package metainfo

import (
	"crypto/sha1"
	"fmt"
	"io"
	"time"

	"github.com/mmr-tortoise/spate/internal/bencode"
)

// Top-level metainfo dictionary keys.
const (
	keyAnnounce     = "announce"
	keyAnnounceList = "announce-list"
	keyCreationDate = "creation date"
	keyComment      = "comment"
	keyCreatedBy    = "created by"
	keyEncoding     = "encoding"
	keyInfo         = "info"
)

// Info dictionary keys.
const (
	keyPieceLength = "piece length"
	keyPieces      = "pieces"
	keyPrivate     = "private"
	keyName        = "name"
	keyLength      = "length"
	keyMD5Sum      = "md5sum"
	keyFiles       = "files"
	keyPath        = "path"
)

// HashSize is the size of a SHA-1 piece hash in bytes.
const HashSize = sha1.Size

// MetaInfo is a parsed .torrent document.
type MetaInfo struct {
	// Announce is the primary tracker URL.
	Announce string

	// AnnounceList is the BEP-12 tracker tier list. Each inner slice is
	// a tier of equivalent trackers. Optional; when present, clients
	// prefer it over Announce.
	AnnounceList [][]string

	// CreationDate is when the torrent was created. Zero when absent.
	CreationDate time.Time

	// Comment is free-form text from the author.
	Comment string

	// CreatedBy names the program that created the torrent.
	CreatedBy string

	// Encoding is the string encoding used for the pieces field.
	Encoding string

	// Info describes the payload files.
	Info Info
}

// Info is the metainfo "info" dictionary. Its bencoded form determines
// the torrent's info-hash, so every field round-trips exactly.
type Info struct {
	// Name is the file name (single-file mode) or the root directory
	// name (multi-file mode).
	Name string

	// PieceLength is the number of bytes per piece.
	PieceLength int64

	// Pieces holds one SHA-1 hash per piece, in payload order.
	Pieces [][HashSize]byte

	// Private marks the torrent as private (BEP-27): peers may only be
	// obtained from the tracker, never via DHT or PEX.
	Private bool

	// Length is the payload size in bytes. Single-file mode only.
	Length int64

	// MD5Sum is an optional hex digest of the file. Single-file mode only.
	MD5Sum string

	// Files lists the payload files. Multi-file mode only; empty in
	// single-file mode.
	Files []FileEntry
}

// FileEntry describes one file in a multi-file torrent.
type FileEntry struct {
	// Length is the file size in bytes.
	Length int64

	// MD5Sum is an optional hex digest of the file.
	MD5Sum string

	// Path holds the file's path segments relative to the root Name
	// directory, e.g. ["src", "main.rs"].
	Path []string
}

// IsMultiFile reports whether the info dictionary is in multi-file mode.
func (i *Info) IsMultiFile() bool {
	return len(i.Files) > 0
}

// TotalLength returns the total payload size across all files.
func (i *Info) TotalLength() int64 {
	if !i.IsMultiFile() {
		return i.Length
	}
	var total int64
	for _, f := range i.Files {
		total += f.Length
	}
	return total
}

// PieceCount returns the number of pieces.
func (i *Info) PieceCount() int {
	return len(i.Pieces)
}

// Parse builds a MetaInfo from a decoded bencode value. The value must
// be a dictionary with at least "announce" and a well-formed "info"
// dictionary; all other fields are optional.
func Parse(v bencode.Value) (*MetaInfo, error) {
	dict, ok := v.(bencode.Dict)
	if !ok {
		return nil, fmt.Errorf("metainfo: expected top-level dictionary, got %T", v)
	}

	m := &MetaInfo{}

	announce, ok := dict.GetString(keyAnnounce)
	if !ok {
		return nil, fmt.Errorf("metainfo: missing %q key", keyAnnounce)
	}
	m.Announce = announce

	if tiers, ok := dict.GetList(keyAnnounceList); ok {
		for _, tier := range tiers {
			tierList, ok := tier.(bencode.List)
			if !ok {
				return nil, fmt.Errorf("metainfo: %q entries must be lists", keyAnnounceList)
			}
			urls, ok := tierList.StringSlice()
			if !ok {
				return nil, fmt.Errorf("metainfo: %q tier entries must be strings", keyAnnounceList)
			}
			m.AnnounceList = append(m.AnnounceList, urls)
		}
	}

	if ts, ok := dict.GetInt(keyCreationDate); ok {
		m.CreationDate = time.Unix(ts, 0).UTC()
	}
	m.Comment, _ = dict.GetString(keyComment)
	m.CreatedBy, _ = dict.GetString(keyCreatedBy)
	m.Encoding, _ = dict.GetString(keyEncoding)

	infoDict, ok := dict.GetDict(keyInfo)
	if !ok {
		return nil, fmt.Errorf("metainfo: missing %q dictionary", keyInfo)
	}
	info, err := parseInfo(infoDict)
	if err != nil {
		return nil, err
	}
	m.Info = *info

	return m, nil
}

// ParseReader decodes bencode from r and parses the result.
// This is the common entry point for reading .torrent files.
func ParseReader(r io.Reader) (*MetaInfo, error) {
	v, err := bencode.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("metainfo: decode failed: %w", err)
	}
	return Parse(v)
}

// parseInfo extracts the info dictionary fields, including the
// single-file vs multi-file distinction.
func parseInfo(dict bencode.Dict) (*Info, error) {
	info := &Info{}

	name, ok := dict.GetString(keyName)
	if !ok {
		return nil, fmt.Errorf("metainfo: info missing %q key", keyName)
	}
	info.Name = name

	pieceLength, ok := dict.GetInt(keyPieceLength)
	if !ok || pieceLength <= 0 {
		return nil, fmt.Errorf("metainfo: info has missing or invalid %q", keyPieceLength)
	}
	info.PieceLength = pieceLength

	piecesRaw, ok := dict.GetString(keyPieces)
	if !ok {
		return nil, fmt.Errorf("metainfo: info missing %q key", keyPieces)
	}
	if len(piecesRaw)%HashSize != 0 {
		return nil, fmt.Errorf("metainfo: pieces length %d is not a multiple of %d", len(piecesRaw), HashSize)
	}
	for off := 0; off < len(piecesRaw); off += HashSize {
		var h [HashSize]byte
		copy(h[:], piecesRaw[off:off+HashSize])
		info.Pieces = append(info.Pieces, h)
	}

	if private, ok := dict.GetInt(keyPrivate); ok {
		info.Private = private == 1
	}

	// The "length" and "files" keys are mutually exclusive: the former
	// marks single-file mode, the latter multi-file mode.
	_, hasLength := dict.GetInt(keyLength)
	_, hasFiles := dict.GetList(keyFiles)
	if hasLength && hasFiles {
		return nil, fmt.Errorf("metainfo: info has both %q and %q", keyLength, keyFiles)
	}

	switch {
	case hasLength:
		info.Length, _ = dict.GetInt(keyLength)
		if info.Length < 0 {
			return nil, fmt.Errorf("metainfo: negative file length %d", info.Length)
		}
		info.MD5Sum, _ = dict.GetString(keyMD5Sum)

	case hasFiles:
		files, _ := dict.GetList(keyFiles)
		for idx, f := range files {
			fileDict, ok := f.(bencode.Dict)
			if !ok {
				return nil, fmt.Errorf("metainfo: files[%d] must be a dictionary", idx)
			}
			entry, err := parseFileEntry(fileDict)
			if err != nil {
				return nil, fmt.Errorf("metainfo: files[%d]: %w", idx, err)
			}
			info.Files = append(info.Files, *entry)
		}
		if len(info.Files) == 0 {
			return nil, fmt.Errorf("metainfo: %q list is empty", keyFiles)
		}

	default:
		return nil, fmt.Errorf("metainfo: info has neither %q nor %q", keyLength, keyFiles)
	}

	return info, nil
}

func parseFileEntry(dict bencode.Dict) (*FileEntry, error) {
	entry := &FileEntry{}

	length, ok := dict.GetInt(keyLength)
	if !ok || length < 0 {
		return nil, fmt.Errorf("missing or invalid %q", keyLength)
	}
	entry.Length = length
	entry.MD5Sum, _ = dict.GetString(keyMD5Sum)

	pathList, ok := dict.GetList(keyPath)
	if !ok {
		return nil, fmt.Errorf("missing %q key", keyPath)
	}
	path, ok := pathList.StringSlice()
	if !ok || len(path) == 0 {
		return nil, fmt.Errorf("invalid %q list", keyPath)
	}
	entry.Path = path

	return entry, nil
}

// Encode converts the MetaInfo back into a bencode dictionary. Optional
// fields are omitted when zero so round trips do not invent keys.
func (m *MetaInfo) Encode() bencode.Dict {
	dict := bencode.Dict{
		keyAnnounce: bencode.String(m.Announce),
		keyInfo:     m.Info.encode(),
	}

	if len(m.AnnounceList) > 0 {
		tiers := bencode.List{}
		for _, tier := range m.AnnounceList {
			tierList := bencode.List{}
			for _, url := range tier {
				tierList = append(tierList, bencode.String(url))
			}
			tiers = append(tiers, tierList)
		}
		dict[keyAnnounceList] = tiers
	}
	if !m.CreationDate.IsZero() {
		dict[keyCreationDate] = bencode.Integer(m.CreationDate.Unix())
	}
	if m.Comment != "" {
		dict[keyComment] = bencode.String(m.Comment)
	}
	if m.CreatedBy != "" {
		dict[keyCreatedBy] = bencode.String(m.CreatedBy)
	}
	if m.Encoding != "" {
		dict[keyEncoding] = bencode.String(m.Encoding)
	}

	return dict
}

// encode converts the info dictionary back to bencode form.
func (i *Info) encode() bencode.Dict {
	pieces := make([]byte, 0, len(i.Pieces)*HashSize)
	for _, h := range i.Pieces {
		pieces = append(pieces, h[:]...)
	}

	dict := bencode.Dict{
		keyName:        bencode.String(i.Name),
		keyPieceLength: bencode.Integer(i.PieceLength),
		keyPieces:      bencode.String(pieces),
	}
	if i.Private {
		dict[keyPrivate] = bencode.Integer(1)
	}

	if i.IsMultiFile() {
		files := bencode.List{}
		for _, f := range i.Files {
			fileDict := bencode.Dict{keyLength: bencode.Integer(f.Length)}
			if f.MD5Sum != "" {
				fileDict[keyMD5Sum] = bencode.String(f.MD5Sum)
			}
			path := bencode.List{}
			for _, seg := range f.Path {
				path = append(path, bencode.String(seg))
			}
			fileDict[keyPath] = path
			files = append(files, fileDict)
		}
		dict[keyFiles] = files
	} else {
		dict[keyLength] = bencode.Integer(i.Length)
		if i.MD5Sum != "" {
			dict[keyMD5Sum] = bencode.String(i.MD5Sum)
		}
	}

	return dict
}

// InfoHash computes the SHA-1 of the canonically bencoded info dictionary.
// This is the torrent's identity on the wire.
//
// The hash is computed over the canonical re-encoding, so it matches the
// source file's hash only if that file used canonical (sorted-key)
// encoding, which every compliant torrent creator produces.
func (m *MetaInfo) InfoHash() ([HashSize]byte, error) {
	var hash [HashSize]byte
	encoded, err := bencode.Marshal(m.Info.encode())
	if err != nil {
		return hash, fmt.Errorf("metainfo: encoding info dict failed: %w", err)
	}
	return sha1.Sum(encoded), nil
}

// WriteTo encodes the full metainfo document to w in bencode form.
func (m *MetaInfo) WriteTo(w io.Writer) error {
	return bencode.Encode(w, m.Encode())
}
