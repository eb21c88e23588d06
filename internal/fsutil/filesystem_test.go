package fsutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryFileSystem(t *testing.T) {
	m := NewMemoryFileSystem()
	m.WriteFile("config/./radar.json", []byte(`{"capacity":5}`))

	info, err := m.Stat("config/radar.json")
	require.NoError(t, err)
	assert.Equal(t, "radar.json", info.Name())
	assert.Equal(t, int64(14), info.Size())

	data, err := m.ReadFile("config/radar.json")
	require.NoError(t, err)
	data[0] = 'X'
	again, _ := m.ReadFile("config/radar.json")
	assert.Equal(t, byte('{'), again[0], "callers get a copy")

	_, err = m.Stat("missing.json")
	assert.ErrorIs(t, err, fs.ErrNotExist)
	_, err = m.ReadFile("missing.json")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestOSFileSystem(t *testing.T) {
	path := filepath.Join(t.TempDir(), "radar.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	var fsys FileSystem = OSFileSystem{}
	info, err := fsys.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(2), info.Size())
	data, err := fsys.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}
