package safepath

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/marmos91/lodestone/internal/errors"
)

func TestJoin_ResolvesInsideRoot(t *testing.T) {
	root := t.TempDir()

	resolved, err := Join(root, "a/b/c")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "a", "b", "c"), resolved)
}

func TestJoin_EmptyPathResolvesToRoot(t *testing.T) {
	root := t.TempDir()

	resolved, err := Join(root, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean(root), resolved)
}

func TestJoin_RejectsParentEscape(t *testing.T) {
	root := t.TempDir()

	_, err := Join(root, "../../etc/passwd")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeMalformedPath, apperrors.CodeOf(err))
}

func TestJoin_RejectsBackslashEscape(t *testing.T) {
	root := t.TempDir()

	_, err := Join(root, `..\..\secret`)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeMalformedPath, apperrors.CodeOf(err))
}

func TestJoin_RejectsAbsolutePath(t *testing.T) {
	root := t.TempDir()

	_, err := Join(root, "/etc/passwd")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeMalformedPath, apperrors.CodeOf(err))
}

func TestJoin_RejectsNulByte(t *testing.T) {
	root := t.TempDir()

	_, err := Join(root, "file\x00.txt")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeMalformedPath, apperrors.CodeOf(err))
}

func TestJoin_AllowsDotSegmentsThatStayInside(t *testing.T) {
	root := t.TempDir()

	resolved, err := Join(root, "a/../b/./c")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "b", "c"), resolved)
}

func TestJoin_DoesNotRequireExistence(t *testing.T) {
	root := t.TempDir()

	resolved, err := Join(root, "not/yet/created.txt")
	require.NoError(t, err)

	_, statErr := os.Stat(resolved)
	assert.True(t, os.IsNotExist(statErr))
}

func TestIsProtected(t *testing.T) {
	protected := []string{
		"server.jar",
		"plugin.lua",
		"start.sh",
		"setup.exe",
		"run.bat",
		"run.cmd",
		"install.msi",
		".lodestone_config",
		"crash.out",
		"autorun.inf",
		"Makefile", // no extension
		"world",    // no extension
	}
	for _, name := range protected {
		assert.True(t, IsProtected(name), "expected %q to be protected", name)
	}

	writable := []string{
		"server.properties",
		"config.yml",
		"notes.txt",
		"banned-players.json",
		"logs/latest.log",
	}
	for _, name := range writable {
		assert.False(t, IsProtected(name), "expected %q to be writable", name)
	}
}

func TestListDir(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "world", "region"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "world", "level.dat"), []byte("data"), 0o644))

	entries, err := ListDir(root, filepath.Join(root, "world"))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, Entry{Name: "level.dat", Path: "world/level.dat", Kind: EntryFile}, entries[0])
	assert.Equal(t, Entry{Name: "region", Path: "world/region", Kind: EntryDirectory}, entries[1])
}

func TestListDir_MissingDirectory(t *testing.T) {
	root := t.TempDir()

	_, err := ListDir(root, filepath.Join(root, "absent"))
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeIOFailure, apperrors.CodeOf(err))
}

func TestRelative(t *testing.T) {
	root := t.TempDir()

	assert.Equal(t, "a/b", Relative(root, filepath.Join(root, "a", "b")))
	assert.Equal(t, ".", Relative(root, root))
}
