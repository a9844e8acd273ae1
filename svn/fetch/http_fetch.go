package fetch

import (
	"encoding/xml"
	"strconv"

	"github.com/pkg/errors"

	"github.com/svnup/svnup/svn"
	"github.com/svnup/svnup/svn/catalog"
	"github.com/svnup/svnup/svn/davproto"
	"github.com/svnup/svnup/svn/reconcile"
	"github.com/svnup/svnup/svn/wire"
)

// maxHTTPBatch matches MAX_HTTP_REQUESTS_PER_PACKET in the reference
// client: the pipeline depth most WebDAV servers tolerate.
const maxHTTPBatch = 95

// HTTPFetcher runs the attributes (PROPFIND) and body (GET) passes over
// WebDAV.
type HTTPFetcher struct {
	Assembler *wire.HTTPAssembler
	Host      string
}

// NewHTTPFetcher builds a fetcher over an already-connected assembler.
func NewHTTPFetcher(asm *wire.HTTPAssembler, host string) *HTTPFetcher {
	return &HTTPFetcher{Assembler: asm, Host: host}
}

// AttributesPass issues one PROPFIND per entry still marked for download
// (inline_props=false means the update-report never supplied size or mode
// bits), then re-reconciles. Entries the first reconciliation already
// proved up to date are skipped: an incremental run over an unchanged
// tree sends no PROPFINDs at all.
func (f *HTTPFetcher) AttributesPass(cfg *svn.Config, cat *catalog.Catalog, entries []*svn.FileEntry) error {
	if cfg.InlineProps {
		return nil
	}
	pending := make([]*svn.FileEntry, 0, len(entries))
	for _, e := range entries {
		if e.Download {
			pending = append(pending, e)
		}
	}
	for start := 0; start < len(pending); start += maxHTTPBatch {
		end := start + maxHTTPBatch
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		var combined []byte
		for _, e := range batch {
			combined = append(combined, davproto.Propfind(f.Host, e.Href)...)
		}
		if err := f.Assembler.Send(combined); err != nil {
			return errors.Wrap(err, "send PROPFIND batch")
		}
		resps, err := f.Assembler.ReadResponses(len(batch))
		if err != nil {
			return errors.Wrap(err, "read PROPFIND batch")
		}
		for i, e := range batch {
			resp := resps[i]
			if serr := resp.StatusErr("PROPFIND " + e.Path); serr != nil {
				return serr
			}
			doc, perr := decodePropfind(resp.Body)
			if perr != nil {
				return errors.Wrapf(perr, "decode PROPFIND for %s", e.Path)
			}
			e.Size = doc.Prop.ContentLength
			e.Executable = doc.Prop.IsExecutable()
			e.Special = doc.Prop.IsSpecial()
		}
	}
	reconcile.Run(entries, cat)
	return nil
}

// BodyPass issues one GET per entry marked Download, verifies MD5 and
// writes it to disk. progress, if non-nil, is called with the number of
// body bytes written after each file is saved.
func (f *HTTPFetcher) BodyPass(cfg *svn.Config, entries []*svn.FileEntry, progress func(int64)) error {
	pending := make([]*svn.FileEntry, 0, len(entries))
	for _, e := range entries {
		if e.Download {
			pending = append(pending, e)
		}
	}
	for start := 0; start < len(pending); start += maxHTTPBatch {
		end := start + maxHTTPBatch
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		var combined []byte
		for _, e := range batch {
			combined = append(combined, davproto.Get(f.Host, e.Href)...)
		}
		if err := f.Assembler.Send(combined); err != nil {
			return errors.Wrap(err, "send GET batch")
		}
		resps, err := f.Assembler.ReadResponses(len(batch))
		if err != nil {
			return errors.Wrap(err, "read GET batch")
		}
		for i, e := range batch {
			resp := resps[i]
			if serr := resp.StatusErr("GET " + e.Path); serr != nil {
				return serr
			}
			if e.Size < 0 {
				if cl, ok := resp.Headers["Content-Length"]; ok {
					if n, err := strconv.ParseInt(cl, 10, 64); err == nil {
						e.Size = n
					}
				}
			}
			e.RawSize = RawSizeHTTP(int64(len(resp.Body)), headerOverhead(resp))
			if err := VerifyAndSave(cfg, e, resp.Body); err != nil {
				return err
			}
			if progress != nil {
				progress(int64(len(resp.Body)))
			}
		}
	}
	return nil
}

func decodePropfind(body []byte) (davproto.PropfindResponse, error) {
	var doc struct {
		Responses []davproto.PropfindResponse `xml:"response"`
	}
	if err := xml.Unmarshal(body, &doc); err != nil {
		return davproto.PropfindResponse{}, err
	}
	if len(doc.Responses) == 0 {
		return davproto.PropfindResponse{}, errors.New("empty PROPFIND multistatus")
	}
	return doc.Responses[0], nil
}

func headerOverhead(resp wire.HTTPResponse) int {
	total := 0
	for k, v := range resp.Headers {
		total += len(k) + len(v) + 4
	}
	return total
}
