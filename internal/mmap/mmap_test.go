package mmap_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/olescan/olescan/internal/mmap"
	"github.com/stretchr/testify/require"
)

func TestOpenAndClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data")
	content := []byte("sector minus one holds the header")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	m, err := mmap.Open(path)
	require.NoError(t, err)

	require.Equal(t, int64(len(content)), m.Size)
	require.Equal(t, content, m.Data)

	require.NoError(t, m.Close())
	require.Nil(t, m.Data)
	require.NoError(t, m.Close()) // closing twice is fine
}

func TestOpenEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := mmap.Open(path)
	require.Error(t, err)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := mmap.Open(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}
