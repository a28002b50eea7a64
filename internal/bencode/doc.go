// Package bencode implements the bencode serialization format used by
// BitTorrent metainfo files.
//
// The format has four kinds of values:
//
//   - byte strings:  "4:spam"
//   - integers:      "i42e"
//   - lists:         "l4:spami42ee"
//   - dictionaries:  "d3:bar4:spam3:fooi42ee" (byte-string keys)
//
// Decode reads a single value from a stream; Encode writes the canonical
// form, with dictionary keys emitted in sorted byte order regardless of
// the order they were inserted. Canonical encoding matters because the
// torrent info-hash is the SHA-1 of the bencoded info dictionary.
package bencode
