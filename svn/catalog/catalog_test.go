package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadKnownFilesMissingIsNotError(t *testing.T) {
	c := New()
	err := c.LoadKnownFiles(filepath.Join(t.TempDir(), "known_files"))
	require.NoError(t, err)
	assert.Empty(t, c.KnownFiles)
}

func TestLoadKnownFilesParsesLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "known_files")
	md5a := "0123456789abcdef0123456789abcdef"
	require.Len(t, md5a, 32)
	content := md5a + "\ttrunk/a.txt\n" + md5a + "\ttrunk/sub/b.txt\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	c := New()
	require.NoError(t, c.LoadKnownFiles(path))
	assert.Equal(t, md5a, c.KnownFiles["trunk/a.txt"])
	assert.Equal(t, md5a, c.KnownFiles["trunk/sub/b.txt"])
}

func TestLoadKnownFilesRejectsMalformedMD5Length(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "known_files")
	require.NoError(t, os.WriteFile(path, []byte("short\tfile.txt\n"), 0644))

	c := New()
	err := c.LoadKnownFiles(path)
	assert.Error(t, err)
}

func TestLoadKnownFilesRejectsEmptyPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "known_files")
	md5 := "0123456789abcdef0123456789abcdef"
	require.NoError(t, os.WriteFile(path, []byte(md5+"\t\n"), 0644))

	c := New()
	err := c.LoadKnownFiles(path)
	assert.Error(t, err)
}

func TestScanLocalFindsFilesDirsAndSymlinks(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("hi"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "b.txt"), []byte("yo"), 0644))
	require.NoError(t, os.Symlink("b.txt", filepath.Join(root, "sub", "lnk")))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".svnup"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".svnup", "known_files"), nil, 0644))

	c := New()
	err := c.ScanLocal(root, func(rel string, isDir bool) bool {
		return rel == ".svnup"
	})
	require.NoError(t, err)

	assert.Contains(t, c.LocalFiles, "a.txt")
	assert.Contains(t, c.LocalFiles, "sub/b.txt")
	assert.Contains(t, c.LocalFiles, "sub/lnk", "symlinks are treated as files, not followed")
	assert.Contains(t, c.LocalDirectories, "sub")
	assert.NotContains(t, c.LocalFiles, ".svnup/known_files", "skipped subtree must not be scanned")
}

func TestMarkDirectoryKnownRemovesFromLocalDirectories(t *testing.T) {
	c := New()
	c.LocalDirectories["trunk/sub"] = struct{}{}
	c.MarkDirectoryKnown("trunk/sub")
	assert.NotContains(t, c.LocalDirectories, "trunk/sub")
}

func TestSortedDirectoriesDeepestFirst(t *testing.T) {
	c := New()
	c.LocalDirectories["a"] = struct{}{}
	c.LocalDirectories["a/b"] = struct{}{}
	c.LocalDirectories["a/b/c"] = struct{}{}

	got := c.SortedDirectoriesDeepestFirst()
	assert.Equal(t, []string{"a/b/c", "a/b", "a"}, got)
}
