// Package walker implements spec §4.5's report walkers: the SVN recursive
// get-dir crawl and the HTTP single update-report fetch. Both populate a
// flat []*svn.FileEntry and mark directories the server already knows
// about as "seen" in the catalog so the pruning pass doesn't delete them.
package walker

import (
	"github.com/svnup/svnup/svn"
	"github.com/svnup/svnup/svn/catalog"
)

// Walker discovers the full tree at cfg.Revision under cfg.Branch.
type Walker interface {
	Walk(cfg *svn.Config, cat *catalog.Catalog) ([]*svn.FileEntry, error)
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}
