// Package reconcile implements spec §4.6: the pure decision of whether a
// discovered FileEntry needs downloading, grounded on check_md5 in the
// reference client (look the path up in known_files, compare MD5). The
// path is used as the walker stored it; the HTTP walker has already
// stripped the rev-root-stub/branch prefix, so no stripping happens here.
package reconcile

import (
	"github.com/svnup/svnup/svn"
	"github.com/svnup/svnup/svn/catalog"
)

// Run decides Download for every entry whose MD5 is already known and not
// yet checked. Entries with an empty MD5 are left alone; they're revisited
// after the attributes pass fills one in.
func Run(entries []*svn.FileEntry, cat *catalog.Catalog) {
	for _, e := range entries {
		if e.MD5Checked || e.MD5 == "" {
			continue
		}
		reconcileOne(e, cat)
	}
}

func reconcileOne(e *svn.FileEntry, cat *catalog.Catalog) {
	known, ok := cat.KnownFiles[e.Path]
	e.Download = !ok || known != e.MD5
	e.MD5Checked = true
}
