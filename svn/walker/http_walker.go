package walker

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/svnup/svnup/svn"
	"github.com/svnup/svnup/svn/catalog"
	"github.com/svnup/svnup/svn/davproto"
	"github.com/svnup/svnup/svn/wire"
)

// HTTPWalker discovers the full tree with one update-report REPORT. When
// the OPTIONS probe advertised inline-props, executable/special/size ride
// along in the report body and no PROPFIND pass is needed later.
type HTTPWalker struct {
	Assembler *wire.HTTPAssembler
	Host      string
}

// NewHTTPWalker builds a walker over an already-connected assembler.
func NewHTTPWalker(asm *wire.HTTPAssembler, host string) *HTTPWalker {
	return &HTTPWalker{Assembler: asm, Host: host}
}

// Walk implements Walker.
func (w *HTTPWalker) Walk(cfg *svn.Config, cat *catalog.Catalog) ([]*svn.FileEntry, error) {
	req := davproto.UpdateReportRequest(w.Host, cfg.Layout.Root, cfg.Branch, cfg.Revision, cfg.InlineProps)
	if err := w.Assembler.Send(req); err != nil {
		return nil, errors.Wrap(err, "send update-report")
	}
	resps, err := w.Assembler.ReadResponses(1)
	if err != nil {
		return nil, errors.Wrap(err, "read update-report")
	}
	resp := resps[0]
	if serr := resp.StatusErr("update-report"); serr != nil {
		return nil, serr
	}

	doc, err := davproto.DecodeUpdateReport(resp.Body)
	if err != nil {
		return nil, err
	}

	for _, d := range doc.Directories {
		path := strings.TrimSuffix(stripTrunkPrefix(davproto.DecodePercent(d.Href), cfg.Branch), "/")
		if path == "" {
			continue
		}
		if err := os.MkdirAll(filepath.Join(cfg.PathTarget, filepath.FromSlash(path)), 0755); err != nil {
			return nil, errors.Wrapf(err, "mkdir %s", path)
		}
		cat.MarkDirectoryKnown(path)
	}

	entries := make([]*svn.FileEntry, 0, len(doc.Files))
	for _, f := range doc.Files {
		href := davproto.DecodePercent(f.Href)
		path := stripTrunkPrefix(href, cfg.Branch)
		entry := &svn.FileEntry{
			Path: path,
			Href: f.Href,
			MD5:  f.MD5,
			Size: -1,
		}
		if cfg.InlineProps {
			entry.Executable = f.Executable()
			entry.Special = f.Special()
			if f.Size != nil {
				entry.Size = *f.Size
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// stripTrunkPrefix removes the branch's server-relative prefix from an
// href so FileEntry.Path matches what the SVN-mode walker produces.
func stripTrunkPrefix(href, branch string) string {
	idx := strings.Index(href, branch)
	if idx < 0 {
		return strings.TrimPrefix(href, "/")
	}
	return strings.TrimPrefix(href[idx+len(branch):], "/")
}
