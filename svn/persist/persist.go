// Package persist implements spec §4.8: writing the new known_files
// manifest and revision-info file, and pruning whatever the catalog says no
// longer belongs.
package persist

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/svnup/svnup/internal/svnerr"
	"github.com/svnup/svnup/svn"
	"github.com/svnup/svnup/svn/catalog"
)

// RevisionRecord is what ReadRevisionFile parses back out of a
// "<path_work>/revision" file: the same fields WriteRevisionFile writes.
type RevisionRecord struct {
	Revision int64
	URL      string
	Commit   svn.CommitInfo
}

// ReadRevisionFile parses a revision file written by WriteRevisionFile. It
// is used by `svn info`/`svn log` when TARGET names a local working copy
// rather than a server URL (spec §6: "for the latter, <target>/.svnup/
// revision is read"). log= is last and may itself contain embedded "key="
// lines, so once it opens every remaining line (including blank ones)
// belongs to it.
//
// wantRev, when nonzero, is the revision the user pinned with -r; the file
// only records the one revision that was checked out, so a disagreement is
// a usage error (read_revision_file's errx in the reference client), not
// something to silently paper over with the wrong metadata.
func ReadRevisionFile(path string, wantRev int64) (*RevisionRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "open revision file")
	}
	rec := &RevisionRecord{}
	lines := strings.Split(string(data), "\n")
	var logLines []string
	inLog := false
	for _, line := range lines {
		if inLog {
			logLines = append(logLines, line)
			continue
		}
		switch {
		case strings.HasPrefix(line, "rev="):
			n, perr := strconv.ParseInt(strings.TrimPrefix(line, "rev="), 10, 64)
			if perr != nil {
				return nil, errors.Wrapf(perr, "revision file: malformed rev line %q", line)
			}
			rec.Revision = n
		case strings.HasPrefix(line, "url="):
			rec.URL = strings.TrimPrefix(line, "url=")
		case strings.HasPrefix(line, "date="):
			rec.Commit.Date = strings.TrimPrefix(line, "date=")
		case strings.HasPrefix(line, "author="):
			rec.Commit.Author = strings.TrimPrefix(line, "author=")
		case strings.HasPrefix(line, "log="):
			inLog = true
			logLines = append(logLines, strings.TrimPrefix(line, "log="))
		}
	}
	rec.Commit.Log = strings.TrimRight(strings.Join(logLines, "\n"), "\n")
	if wantRev != 0 && rec.Revision != wantRev {
		return nil, svnerr.Fatal(svnerr.KindUsage,
			errors.Errorf("no local data for revision %d available, got r%d", wantRev, rec.Revision),
			"read revision file")
	}
	return rec, nil
}

// WriteManifest writes "<path_work>/known_files.new" with one
// "<md5>\t<path>\n" line per successfully handled entry, removing each
// written path from cat.KnownFiles and cat.LocalFiles as it's written
// (save_known_file_list's "remove from catalog as written" semantics), then
// renames it atomically over the old known_files.
func WriteManifest(cfg *svn.Config, cat *catalog.Catalog, entries []*svn.FileEntry) error {
	newPath := cfg.WorkPath("known_files.new")
	f, err := os.Create(newPath)
	if err != nil {
		return errors.Wrap(err, "create known_files.new")
	}
	w := bufio.NewWriter(f)
	for _, e := range entries {
		if e.MD5 == "" {
			continue
		}
		if _, err := w.WriteString(e.MD5 + "\t" + e.Path + "\n"); err != nil {
			_ = f.Close()
			return errors.Wrap(err, "write known_files.new")
		}
		delete(cat.KnownFiles, e.Path)
		delete(cat.LocalFiles, e.Path)
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return errors.Wrap(err, "flush known_files.new")
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "close known_files.new")
	}
	return errors.Wrap(os.Rename(newPath, cfg.WorkPath("known_files")), "rename known_files.new")
}

// WriteRevisionFile writes "<path_work>/revision" with rev=/url=/date=/
// author=/log= lines, log last since it may span multiple lines
// (save_revision_file in the reference client).
func WriteRevisionFile(cfg *svn.Config) error {
	f, err := os.Create(cfg.WorkPath("revision"))
	if err != nil {
		return errors.Wrap(err, "create revision file")
	}
	defer f.Close()

	url := cfg.Protocol.String() + "://" + cfg.Address + "/" + cfg.Branch
	w := bufio.NewWriter(f)
	fields := []string{
		"rev=" + itoa(cfg.Revision),
		"url=" + url,
		"date=" + cfg.Commit.Date,
		"author=" + cfg.Commit.Author,
		"log=" + cfg.Commit.Log,
	}
	for _, line := range fields {
		if _, err := w.WriteString(line + "\n"); err != nil {
			return errors.Wrap(err, "write revision file")
		}
	}
	return errors.Wrap(w.Flush(), "flush revision file")
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Prune removes anything left over once persistence is done: entries still
// in known_files existed last revision but not this one; if trim_tree is
// set, anything left in local_files that isn't under path_work or .git is
// also removed; finally empty directories are rmdir'd leaf-first.
func Prune(cfg *svn.Config, cat *catalog.Catalog) error {
	for _, path := range cat.SortedKnownFiles() {
		full := filepath.Join(cfg.PathTarget, filepath.FromSlash(path))
		if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "prune stale file %s", path)
		}
		_ = os.Remove(filepath.Dir(full)) // ignore failure: only empty dirs go
	}

	if cfg.TrimTree {
		for _, path := range cat.SortedLocalFiles() {
			if isProtectedPath(path) {
				continue
			}
			full := filepath.Join(cfg.PathTarget, filepath.FromSlash(path))
			if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
				return errors.Wrapf(err, "trim extraneous file %s", path)
			}
		}
	}

	for _, path := range cat.SortedDirectoriesDeepestFirst() {
		if isProtectedPath(path) {
			continue
		}
		full := filepath.Join(cfg.PathTarget, filepath.FromSlash(path))
		_ = os.Remove(full) // ignore failure: non-empty directories stay
	}
	return nil
}

func isProtectedPath(path string) bool {
	return path == ".svnup" || strings.HasPrefix(path, ".svnup/") ||
		path == ".git" || strings.HasPrefix(path, ".git/")
}
