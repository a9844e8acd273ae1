// Package catalog implements spec §4.4: three path-ordered maps loaded at
// startup - known_files (the previous revision's manifest), local_files and
// local_directories (a filesystem scan of the checkout) - and the pruning
// pass that walks what's left in them once persistence is done.
//
// A Go map gives the same O(1) lookup the reference client's red-black
// trees do; in-order traversal (needed for the reverse-sorted directory
// removal in §4.8) is obtained by sorting the key slice once, rather than
// maintaining a second tree structure.
package catalog

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Catalog holds the three maps. Paths are always server-relative (no
// leading path_target/path_work prefix) except where noted.
type Catalog struct {
	KnownFiles       map[string]string // path -> md5
	LocalFiles       map[string]struct{}
	LocalDirectories map[string]struct{}
}

// New returns an empty Catalog.
func New() *Catalog {
	return &Catalog{
		KnownFiles:       make(map[string]string),
		LocalFiles:       make(map[string]struct{}),
		LocalDirectories: make(map[string]struct{}),
	}
}

// LoadKnownFiles parses "<32-hex-md5>\t<path>\n" lines from path. A missing
// file means a first-time checkout and is not an error; any other shape on
// a line that does exist is fatal, per spec §4.4.
func (c *Catalog) LoadKnownFiles(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "open known_files")
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" {
			continue
		}
		tab := strings.IndexByte(line, '\t')
		if tab != 32 {
			return errors.Errorf("known_files:%d: malformed line %q", lineNo, line)
		}
		md5 := line[:tab]
		for _, ch := range md5 {
			if !(ch >= '0' && ch <= '9' || ch >= 'a' && ch <= 'f' || ch >= 'A' && ch <= 'F') {
				return errors.Errorf("known_files:%d: non-hex MD5 %q", lineNo, md5)
			}
		}
		p := line[tab+1:]
		if p == "" {
			return errors.Errorf("known_files:%d: empty path", lineNo)
		}
		c.KnownFiles[p] = md5
	}
	return errors.Wrap(scanner.Err(), "read known_files")
}

// ScanLocal walks root and records every regular file, symlink (treated as
// a file, "does-not-follow" per spec) and directory under it into
// LocalFiles/LocalDirectories, keyed by path relative to root. skip is
// called with the relative path of every entry and may return true to
// prune a subtree (used to keep path_work and .git out of the scan).
func (c *Catalog) ScanLocal(root string, skip func(relPath string, isDir bool) bool) error {
	return filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		rel, rerr := filepath.Rel(root, p)
		if rerr != nil {
			return rerr
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if skip(rel, info.IsDir()) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		lst, lerr := os.Lstat(p)
		if lerr != nil {
			return lerr
		}
		if lst.IsDir() {
			c.LocalDirectories[rel] = struct{}{}
			return nil
		}
		c.LocalFiles[rel] = struct{}{}
		return nil
	})
}

// MarkDirectoryKnown removes path from LocalDirectories, meaning a
// directory the server reported already exists locally and should not
// later be treated as stale.
func (c *Catalog) MarkDirectoryKnown(path string) {
	delete(c.LocalDirectories, path)
}

// SortedDirectoriesDeepestFirst returns LocalDirectories' keys sorted so
// that deeper paths (leaves) come first, matching the reverse-sorted
// removal order §4.8 requires so rmdir never hits a non-empty parent
// before its children are gone.
func (c *Catalog) SortedDirectoriesDeepestFirst() []string {
	dirs := make([]string, 0, len(c.LocalDirectories))
	for d := range c.LocalDirectories {
		dirs = append(dirs, d)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dirs)))
	return dirs
}

// SortedKnownFiles returns KnownFiles' keys in sorted order, for
// deterministic pruning and manifest output.
func (c *Catalog) SortedKnownFiles() []string {
	paths := make([]string, 0, len(c.KnownFiles))
	for p := range c.KnownFiles {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// SortedLocalFiles returns LocalFiles' keys in sorted order.
func (c *Catalog) SortedLocalFiles() []string {
	paths := make([]string, 0, len(c.LocalFiles))
	for p := range c.LocalFiles {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
