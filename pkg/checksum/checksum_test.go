package checksum

import (
	"crypto/sha256"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, content, 0644))
	return path
}

func TestFileDigest(t *testing.T) {
	dir := t.TempDir()
	content := []byte("hello mirrord\n")
	path := writeFile(t, dir, "a.txt", content)

	digest, err := FileDigest(path)
	require.NoError(t, err)
	assert.Equal(t, [sha256.Size]byte(sha256.Sum256(content)), digest)
}

func TestFileDigestLargerThanBlock(t *testing.T) {
	dir := t.TempDir()

	// Spans multiple read blocks to exercise the streaming path.
	content := make([]byte, BlockSize*2+17)
	for i := range content {
		content[i] = byte(i % 251)
	}
	path := writeFile(t, dir, "big.bin", content)

	digest, err := FileDigest(path)
	require.NoError(t, err)
	assert.Equal(t, [sha256.Size]byte(sha256.Sum256(content)), digest)
}

func TestFileDigestMissing(t *testing.T) {
	_, err := FileDigest(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestContentEqual(t *testing.T) {
	dir := t.TempDir()

	same1 := writeFile(t, dir, "same1", []byte("identical bytes"))
	same2 := writeFile(t, dir, "same2", []byte("identical bytes"))
	other := writeFile(t, dir, "other", []byte("different bytes"))

	subdir := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(subdir, 0755))

	tests := []struct {
		name  string
		pathA string
		pathB string
		want  bool
	}{
		{"identical content", same1, same2, true},
		{"same file", same1, same1, true},
		{"different content", same1, other, false},
		{"missing left", filepath.Join(dir, "missing"), same1, false},
		{"missing right", same1, filepath.Join(dir, "missing"), false},
		{"directory is not a file", subdir, same1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ContentEqual(tt.pathA, tt.pathB))
		})
	}
}

// A file rewritten with the same bytes must still compare equal even though
// its modification time changed: equality is content-only.
func TestContentEqualIgnoresMtime(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a", []byte("payload"))
	b := writeFile(t, dir, "b", []byte("payload"))

	require.NoError(t, os.WriteFile(b, []byte("payload"), 0644))

	assert.True(t, ContentEqual(a, b))
}
