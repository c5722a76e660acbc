package restyutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFilesystemOutput(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dumps")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stale.http"), []byte("old"), 0o600))

	out, err := NewFilesystemOutput(dir)
	require.NoError(t, err)
	out.Write("7", "---- REQUEST ----")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	contents, err := os.ReadFile(out.Path("7"))
	require.NoError(t, err)
	require.Equal(t, "---- REQUEST ----", string(contents))
}
