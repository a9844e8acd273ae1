package walker

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/svnup/svnup/svn"
	"github.com/svnup/svnup/svn/catalog"
	"github.com/svnup/svnup/svn/svnproto"
	"github.com/svnup/svnup/svn/wire"
)

// maxBatchBytes is COMMAND_BUFFER from the reference client: the most a
// single send of concatenated get-dir commands may total.
const maxBatchBytes = 32 * 1024

// SVNWalker crawls a repository tree over the native protocol, starting
// from the branch root and recursing into every reported subdirectory.
// Directory requests are batched so their concatenated size never exceeds
// maxBatchBytes; each get-dir command yields two response groups (a
// success acknowledgement, then the listing itself).
type SVNWalker struct {
	Assembler *wire.SVNAssembler
}

// NewSVNWalker builds a walker over an already-authenticated assembler.
func NewSVNWalker(asm *wire.SVNAssembler) *SVNWalker {
	return &SVNWalker{Assembler: asm}
}

// Walk implements Walker.
func (w *SVNWalker) Walk(cfg *svn.Config, cat *catalog.Catalog) ([]*svn.FileEntry, error) {
	var entries []*svn.FileEntry
	queue := []string{cfg.Branch}

	for len(queue) > 0 {
		batch, rest := takeBatch(queue, cfg.Revision)
		queue = rest

		var combined []byte
		for _, dir := range batch {
			combined = append(combined, svnproto.GetDir(dir, cfg.Revision)...)
		}
		if err := w.Assembler.Send(combined); err != nil {
			return nil, errors.Wrap(err, "send get-dir batch")
		}
		raw, err := w.Assembler.ReadGroups(2*len(batch), 0)
		if err != nil {
			return nil, errors.Wrap(err, "read get-dir batch")
		}
		parser := svnproto.NewParser(raw)
		for _, dir := range batch {
			if _, err := parser.Next(); err != nil {
				return nil, errors.Wrap(err, "get-dir acknowledgement")
			}
			listing, err := parser.Next()
			if err != nil {
				return nil, errors.Wrap(err, "get-dir listing")
			}
			children, err := svnproto.DecodeDirEntries(listing)
			if err != nil {
				return nil, err
			}
			for _, child := range children {
				path := joinPath(dir, child.Name)
				switch child.Kind {
				case "file":
					entries = append(entries, &svn.FileEntry{Path: path, Size: child.Size})
				case "dir":
					if err := os.MkdirAll(filepath.Join(cfg.PathTarget, filepath.FromSlash(path)), 0755); err != nil {
						return nil, errors.Wrapf(err, "mkdir %s", path)
					}
					cat.MarkDirectoryKnown(path)
					queue = append(queue, path)
				}
			}
		}
	}
	return entries, nil
}

// takeBatch pops directories off the front of queue, accumulating their
// serialized get-dir command sizes until adding one more would exceed
// maxBatchBytes. At least one directory is always taken even if it alone
// exceeds the cap.
func takeBatch(queue []string, rev int64) (batch []string, rest []string) {
	size := 0
	i := 0
	for i < len(queue) {
		cmd := svnproto.GetDir(queue[i], rev)
		if i > 0 && size+len(cmd) > maxBatchBytes {
			break
		}
		size += len(cmd)
		i++
	}
	return queue[:i], queue[i:]
}
