package metainfo

import (
	"bytes"
	"crypto/sha1"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/spate/internal/bencode"
)

// singleFileDict constructs the bencode form of a minimal single-file
// torrent with two pieces for use across parse tests.
func singleFileDict() bencode.Dict {
	pieces := make([]byte, 2*HashSize)
	for i := range pieces {
		pieces[i] = byte(i)
	}
	return bencode.Dict{
		"announce":      bencode.String("http://tracker.example.com/announce"),
		"creation date": bencode.Integer(1700000000),
		"comment":       bencode.String("workspace base image"),
		"created by":    bencode.String("spate"),
		"info": bencode.Dict{
			"name":         bencode.String("base.tar"),
			"piece length": bencode.Integer(262144),
			"pieces":       bencode.String(pieces),
			"length":       bencode.Integer(300000),
		},
	}
}

func TestParse_SingleFile(t *testing.T) {
	m, err := Parse(singleFileDict())
	require.NoError(t, err)

	assert.Equal(t, "http://tracker.example.com/announce", m.Announce)
	assert.Equal(t, "workspace base image", m.Comment)
	assert.Equal(t, "spate", m.CreatedBy)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), m.CreationDate)

	assert.Equal(t, "base.tar", m.Info.Name)
	assert.Equal(t, int64(262144), m.Info.PieceLength)
	assert.Equal(t, 2, m.Info.PieceCount())
	assert.False(t, m.Info.IsMultiFile())
	assert.Equal(t, int64(300000), m.Info.TotalLength())
}

func TestParse_MultiFile(t *testing.T) {
	dict := singleFileDict()
	info := dict["info"].(bencode.Dict)
	delete(info, "length")
	info["files"] = bencode.List{
		bencode.Dict{
			"length": bencode.Integer(100),
			"path":   bencode.List{bencode.String("src"), bencode.String("main.rs")},
		},
		bencode.Dict{
			"length": bencode.Integer(200),
			"path":   bencode.List{bencode.String("Cargo.toml")},
		},
	}

	m, err := Parse(dict)
	require.NoError(t, err)

	require.True(t, m.Info.IsMultiFile())
	require.Len(t, m.Info.Files, 2)
	assert.Equal(t, []string{"src", "main.rs"}, m.Info.Files[0].Path)
	assert.Equal(t, int64(300), m.Info.TotalLength())
}

func TestParse_AnnounceList(t *testing.T) {
	dict := singleFileDict()
	dict["announce-list"] = bencode.List{
		bencode.List{bencode.String("http://a.example/ann")},
		bencode.List{bencode.String("http://b.example/ann"), bencode.String("http://c.example/ann")},
	}

	m, err := Parse(dict)
	require.NoError(t, err)

	require.Len(t, m.AnnounceList, 2)
	assert.Equal(t, []string{"http://a.example/ann"}, m.AnnounceList[0])
	assert.Equal(t, []string{"http://b.example/ann", "http://c.example/ann"}, m.AnnounceList[1])
}

func TestParse_Errors(t *testing.T) {
	t.Run("not a dict", func(t *testing.T) {
		_, err := Parse(bencode.Integer(1))
		require.Error(t, err)
	})

	t.Run("missing announce", func(t *testing.T) {
		dict := singleFileDict()
		delete(dict, "announce")
		_, err := Parse(dict)
		require.Error(t, err)
	})

	t.Run("missing info", func(t *testing.T) {
		dict := singleFileDict()
		delete(dict, "info")
		_, err := Parse(dict)
		require.Error(t, err)
	})

	t.Run("pieces not multiple of hash size", func(t *testing.T) {
		dict := singleFileDict()
		dict["info"].(bencode.Dict)["pieces"] = bencode.String("short")
		_, err := Parse(dict)
		require.Error(t, err)
	})

	t.Run("both length and files", func(t *testing.T) {
		dict := singleFileDict()
		info := dict["info"].(bencode.Dict)
		info["files"] = bencode.List{bencode.Dict{
			"length": bencode.Integer(1),
			"path":   bencode.List{bencode.String("f")},
		}}
		_, err := Parse(dict)
		require.Error(t, err)
	})

	t.Run("neither length nor files", func(t *testing.T) {
		dict := singleFileDict()
		delete(dict["info"].(bencode.Dict), "length")
		_, err := Parse(dict)
		require.Error(t, err)
	})
}

func TestEncode_RoundTrip(t *testing.T) {
	original, err := Parse(singleFileDict())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, original.WriteTo(&buf))

	reparsed, err := ParseReader(&buf)
	require.NoError(t, err)

	assert.Equal(t, original, reparsed)
}

func TestInfoHash_Stable(t *testing.T) {
	m, err := Parse(singleFileDict())
	require.NoError(t, err)

	h1, err := m.InfoHash()
	require.NoError(t, err)
	h2, err := m.InfoHash()
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	// The hash must match a manual SHA-1 over the canonical encoding
	// of the info dictionary.
	encoded, err := bencode.Marshal(m.Info.encode())
	require.NoError(t, err)
	assert.Equal(t, sha1.Sum(encoded), h1)

	// Changing the payload changes the identity.
	m.Info.Length++
	h3, err := m.InfoHash()
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}

func TestInfoHash_IgnoresTrackerFields(t *testing.T) {
	m, err := Parse(singleFileDict())
	require.NoError(t, err)
	h1, err := m.InfoHash()
	require.NoError(t, err)

	// Tracker metadata lives outside the info dictionary and must not
	// affect the torrent identity.
	m.Announce = "http://other.example/announce"
	m.Comment = "different comment"
	h2, err := m.InfoHash()
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}
