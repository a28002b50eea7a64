package devcontainer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/jsonc"
)

// TestNormalize_RoundTrip verifies the core normalization guarantee: the
// output parses to exactly the same document as the input, with JSONC
// comments removed and formatting canonicalized.
func TestNormalize_RoundTrip(t *testing.T) {
	path := filepath.Join(testdataPath(t, "rust-workspace"), ".devcontainer", "devcontainer.json")
	original, err := os.ReadFile(path)
	require.NoError(t, err)

	normalized, err := Normalize(original)
	require.NoError(t, err)

	// The normalized output must be plain JSON: parseable by encoding/json
	// without any JSONC preprocessing.
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(normalized, &got))

	// Parse the original through the JSONC path for comparison.
	want, err := parseGeneric(t, original)
	require.NoError(t, err)

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("normalized document differs from original (-want +got):\n%s", diff)
	}
}

// parseGeneric parses raw devcontainer.json bytes into a generic map by
// stripping JSONC directly, independent of the Normalize serialization path.
func parseGeneric(t *testing.T, raw []byte) (map[string]interface{}, error) {
	t.Helper()
	var m map[string]interface{}
	err := json.Unmarshal(jsonc.ToJSON(raw), &m)
	return m, err
}

// TestNormalize_PreservesUnknownFields verifies that fields outside the
// typed RawDevContainer model survive normalization.
func TestNormalize_PreservesUnknownFields(t *testing.T) {
	input := []byte(`{
		// a comment to strip
		"name": "test",
		"image": "node:20",
		"postCreateCommand": "npm install",
		"hostRequirements": {"cpus": 4},
	}`)

	normalized, err := Normalize(input)
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(normalized, &m))

	assert.Equal(t, "npm install", m["postCreateCommand"])
	assert.Equal(t, map[string]interface{}{"cpus": float64(4)}, m["hostRequirements"])
	assert.NotContains(t, string(normalized), "comment to strip")
}

// TestNormalize_Deterministic verifies that normalizing the same input
// twice yields byte-identical output, and that object keys come out sorted.
func TestNormalize_Deterministic(t *testing.T) {
	input := []byte(`{"zeta": 1, "alpha": 2, "mu": 3}`)

	first, err := Normalize(input)
	require.NoError(t, err)
	second, err := Normalize(input)
	require.NoError(t, err)

	assert.Equal(t, first, second)

	// Key order in the output is alphabetical.
	alphaIdx := strings.Index(string(first), "alpha")
	muIdx := strings.Index(string(first), "mu")
	zetaIdx := strings.Index(string(first), "zeta")
	assert.Less(t, alphaIdx, muIdx)
	assert.Less(t, muIdx, zetaIdx)
}

// TestNormalize_TrailingNewline verifies POSIX text file convention.
func TestNormalize_TrailingNewline(t *testing.T) {
	normalized, err := Normalize([]byte(`{"name": "test"}`))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(normalized), "}\n"))
}

// TestNormalize_InvalidJSON verifies the error path for unparseable input.
func TestNormalize_InvalidJSON(t *testing.T) {
	_, err := Normalize([]byte(`{"name": `))
	assert.Error(t, err)
}

// TestNormalizeFile verifies the file-reading wrapper, including the
// missing-file error path.
func TestNormalizeFile(t *testing.T) {
	path := filepath.Join(testdataPath(t, "rust-workspace"), ".devcontainer", "devcontainer.json")

	normalized, err := NormalizeFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(normalized), "mcr.microsoft.com/devcontainers/rust:1-1-bullseye")

	_, err = NormalizeFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

// TestWriteNormalized verifies that parent directories are created and the
// file round-trips.
func TestWriteNormalized(t *testing.T) {
	tmpDir := t.TempDir()
	outPath := filepath.Join(tmpDir, "nested", "dir", "devcontainer.json")

	data := []byte("{\n  \"name\": \"test\"\n}\n")
	require.NoError(t, WriteNormalized(outPath, data))

	written, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, data, written)
}
