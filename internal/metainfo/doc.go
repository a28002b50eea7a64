// Package metainfo models BitTorrent metainfo (.torrent) documents.
//
// A metainfo document is a bencode dictionary with tracker information
// and an "info" dictionary describing the payload: piece size, SHA-1
// piece hashes, and either a single file or a directory of files.
//
// spate uses metainfo to distribute large workspace assets (base image
// tarballs, dataset archives) over BitTorrent instead of a central
// registry. Parse reads an existing document, Build creates one from a
// local file or directory, and InfoHash computes the torrent identity.
package metainfo
