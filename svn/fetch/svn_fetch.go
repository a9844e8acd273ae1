package fetch

import (
	"github.com/pkg/errors"

	"github.com/svnup/svnup/svn"
	"github.com/svnup/svnup/svn/catalog"
	"github.com/svnup/svnup/svn/reconcile"
	"github.com/svnup/svnup/svn/svnproto"
	"github.com/svnup/svnup/svn/wire"
)

// maxBatchBytes matches the walker's COMMAND_BUFFER cap - both batching
// passes share the same concatenate-until-full packer (spec §4.7).
const maxBatchBytes = 32 * 1024

// SVNFetcher runs the attributes and body passes over the native protocol.
type SVNFetcher struct {
	Assembler *wire.SVNAssembler
}

// NewSVNFetcher builds a fetcher over an already-authenticated assembler.
func NewSVNFetcher(asm *wire.SVNAssembler) *SVNFetcher {
	return &SVNFetcher{Assembler: asm}
}

// AttributesPass fetches MD5 and executable/special properties for every
// entry that doesn't have one yet (the native get-dir listing carries size
// but not MD5), then re-runs the reconciler now that MD5 is known.
func (f *SVNFetcher) AttributesPass(cfg *svn.Config, cat *catalog.Catalog, entries []*svn.FileEntry) error {
	pending := make([]*svn.FileEntry, 0, len(entries))
	for _, e := range entries {
		if e.MD5 == "" {
			pending = append(pending, e)
		}
	}
	for start := 0; start < len(pending); {
		end := f.batchEnd(pending, start, cfg.Revision)
		batch := pending[start:end]
		start = end

		var combined []byte
		for _, e := range batch {
			combined = append(combined, svnproto.GetFileMeta(e.Path, cfg.Revision)...)
		}
		if err := f.Assembler.Send(combined); err != nil {
			return errors.Wrap(err, "send get-file metadata batch")
		}
		raw, err := f.Assembler.ReadGroups(2*len(batch), 0)
		if err != nil {
			return errors.Wrap(err, "read get-file metadata batch")
		}
		parser := svnproto.NewParser(raw)
		for _, e := range batch {
			if _, err := parser.Next(); err != nil {
				return errors.Wrap(err, "get-file metadata acknowledgement")
			}
			payload, err := parser.Next()
			if err != nil {
				return errors.Wrap(err, "get-file metadata payload")
			}
			meta, err := svnproto.DecodeFileMeta(payload)
			if err != nil {
				return errors.Wrapf(err, "decode metadata for %s", e.Path)
			}
			e.MD5 = meta.MD5
			e.Executable = meta.Executable
			e.Special = meta.Special
			e.MD5Checked = false
		}
	}
	reconcile.Run(entries, cat)
	return nil
}

func (f *SVNFetcher) batchEnd(entries []*svn.FileEntry, start int, rev int64) int {
	size := 0
	i := start
	for i < len(entries) {
		cmd := svnproto.GetFileMeta(entries[i].Path, rev)
		if i > start && size+len(cmd) > maxBatchBytes {
			break
		}
		size += len(cmd)
		i++
	}
	return i
}

// BodyPass fetches file contents for every entry marked Download, verifies
// MD5 and writes it to disk. progress, if non-nil, is called with the
// number of body bytes written after each file is saved (terminal
// rendering is the CLI's job - spec §1 treats it as an external
// collaborator - this package only reports counts).
func (f *SVNFetcher) BodyPass(cfg *svn.Config, entries []*svn.FileEntry, progress func(int64)) error {
	pending := make([]*svn.FileEntry, 0, len(entries))
	for _, e := range entries {
		if e.Download {
			pending = append(pending, e)
		}
	}
	for start := 0; start < len(pending); {
		end := f.batchEndBody(pending, start, cfg.Revision)
		batch := pending[start:end]
		start = end

		var combined []byte
		for _, e := range batch {
			combined = append(combined, svnproto.GetFileBody(e.Path, cfg.Revision)...)
		}
		if err := f.Assembler.Send(combined); err != nil {
			return errors.Wrap(err, "send get-file body batch")
		}
		raw, err := f.Assembler.ReadGroups(2*len(batch), 0)
		if err != nil {
			return errors.Wrap(err, "read get-file body batch")
		}
		parser := svnproto.NewParser(raw)
		for _, e := range batch {
			if _, err := parser.Next(); err != nil {
				return errors.Wrap(err, "get-file body acknowledgement")
			}
			payload, err := parser.Next()
			if err != nil {
				return errors.Wrap(err, "get-file body payload")
			}
			items, err := svnproto.Unwrap(payload)
			if err != nil {
				return errors.Wrapf(err, "unwrap body for %s", e.Path)
			}
			body := svnproto.DecodeFileBody(items)
			e.RawSize = RawSizeSVN(cfg.Revision, int64(len(body)))
			if err := VerifyAndSave(cfg, e, body); err != nil {
				return err
			}
			if progress != nil {
				progress(int64(len(body)))
			}
		}
	}
	return nil
}

func (f *SVNFetcher) batchEndBody(entries []*svn.FileEntry, start int, rev int64) int {
	size := 0
	i := start
	for i < len(entries) {
		cmd := svnproto.GetFileBody(entries[i].Path, rev)
		if i > start && size+len(cmd) > maxBatchBytes {
			break
		}
		size += len(cmd)
		i++
	}
	return i
}
