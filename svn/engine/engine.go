// Package engine ties every other svn/* package together into the control
// flow spec §2 describes: parse args → create target dirs → load prior
// manifest + scan filesystem → open transport → handshake and discover
// latest revision → fetch log metadata → walk the tree → decide downloads
// → fetch attributes → fetch bodies → write manifest/revision file →
// prune. It lives in its own package (rather than svn itself) so the
// leaf packages can import svn.Config/svn.FileEntry without a cycle.
package engine

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/svnup/svnup/internal/progress"
	"github.com/svnup/svnup/internal/svnerr"
	"github.com/svnup/svnup/internal/svnlog"
	"github.com/svnup/svnup/svn"
	"github.com/svnup/svnup/svn/catalog"
	"github.com/svnup/svnup/svn/davproto"
	"github.com/svnup/svnup/svn/fetch"
	"github.com/svnup/svnup/svn/persist"
	"github.com/svnup/svnup/svn/reconcile"
	"github.com/svnup/svnup/svn/render"
	"github.com/svnup/svnup/svn/retry"
	"github.com/svnup/svnup/svn/svnproto"
	"github.com/svnup/svnup/svn/transport"
	"github.com/svnup/svnup/svn/walker"
	"github.com/svnup/svnup/svn/wire"
)

// stream is the connect-then-read/write surface a session drives its
// assemblers over - satisfied by *transport.Transport in production and by
// a fake in tests, so runSVN/runHTTP can be exercised without a real socket.
type stream interface {
	wire.Stream
	Connect() error
}

// session bundles everything built up while servicing one invocation.
type session struct {
	cfg       *svn.Config
	transport stream
	pacer     *retry.Pacer
	cat       *catalog.Catalog
}

func newSession(cfg *svn.Config) *session {
	return &session{
		cfg:       cfg,
		transport: transport.New(cfg),
		pacer:     retry.New(),
		cat:       catalog.New(),
	}
}

func (s *session) connect() error {
	return s.transport.Connect()
}

// prepareWorkingCopy creates path_target/path_work, loads known_files and
// scans the filesystem.
func (s *session) prepareWorkingCopy() error {
	if err := os.MkdirAll(s.cfg.PathTarget, 0755); err != nil {
		return errors.Wrap(err, "create checkout directory")
	}
	if err := os.MkdirAll(s.cfg.PathWork, 0755); err != nil {
		return errors.Wrap(err, "create working directory")
	}
	if err := s.cat.LoadKnownFiles(s.cfg.WorkPath("known_files")); err != nil {
		return err
	}
	return s.cat.ScanLocal(s.cfg.PathTarget, func(rel string, isDir bool) bool {
		return rel == ".svnup" || rel == ".git"
	})
}

// Checkout runs the full `svn checkout|co` pipeline.
func Checkout(cfg *svn.Config) error {
	s := newSession(cfg)
	if err := s.prepareWorkingCopy(); err != nil {
		return err
	}
	if err := s.connect(); err != nil {
		return errors.Wrap(err, "connect")
	}

	var entries []*svn.FileEntry
	var err error
	if cfg.Protocol.IsHTTP() {
		entries, err = s.runHTTP(true)
	} else {
		entries, err = s.runSVN(true)
	}
	if err != nil {
		return err
	}

	reconcile.Run(entries, s.cat)

	bar := downloadBar(cfg, entries)

	if cfg.Protocol.IsHTTP() {
		host := fmt.Sprintf("%s:%d", cfg.Address, cfg.Port)
		if err := fetch.NewHTTPFetcher(wire.NewHTTPAssembler(s.transport, s.pacer), host).AttributesPass(cfg, s.cat, entries); err != nil {
			return err
		}
		if err := fetch.NewHTTPFetcher(wire.NewHTTPAssembler(s.transport, s.pacer), host).BodyPass(cfg, entries, bar.Add); err != nil {
			return err
		}
	} else {
		asm := wire.NewSVNAssembler(s.transport, s.pacer)
		if err := fetch.NewSVNFetcher(asm).AttributesPass(cfg, s.cat, entries); err != nil {
			return err
		}
		if err := fetch.NewSVNFetcher(asm).BodyPass(cfg, entries, bar.Add); err != nil {
			return err
		}
	}
	bar.Finish()

	if err := persist.WriteManifest(cfg, s.cat, entries); err != nil {
		return err
	}
	if err := persist.WriteRevisionFile(cfg); err != nil {
		return err
	}
	return persist.Prune(cfg, s.cat)
}

// downloadBar sizes a progress.Bar to the total bytes the body pass is
// about to fetch, summing only entries with a known size (-1 entries,
// still awaiting an attributes-pass Content-Length/size, are not counted
// and simply push the bar past 100% briefly when their bytes land).
func downloadBar(cfg *svn.Config, entries []*svn.FileEntry) *progress.Bar {
	var total int64
	for _, e := range entries {
		if e.Download && e.Size > 0 {
			total += e.Size
		}
	}
	return progress.New(os.Stderr, fmt.Sprintf("%s@%d", cfg.Branch, cfg.Revision), total)
}

// runSVN performs the handshake and log fetch always, and only walks the
// tree (the expensive part) when walk is true. `svn info`/`svn log` stop
// right after the log fetch, matching the original client's early return
// for SVN_LOG/SVN_INFO jobs (it never issues a single get-dir for those).
func (s *session) runSVN(walk bool) ([]*svn.FileEntry, error) {
	cfg := s.cfg
	asm := wire.NewSVNAssembler(s.transport, s.pacer)

	greetingRaw, err := asm.ReadGroups(1, 0)
	if err != nil {
		return nil, errors.Wrap(err, "read server greeting")
	}
	svnlog.Debugf("svn", "server greeting: %d bytes", len(greetingRaw))

	if err := asm.Send(svnproto.ClientGreeting(cfg.Address, cfg.Branch)); err != nil {
		return nil, err
	}
	if _, err := asm.ReadGroups(1, 0); err != nil {
		return nil, errors.Wrap(err, "read auth-request")
	}

	// The reference client sets connection.response_groups = 2 right before
	// sending ANONYMOUS (svnup.c:2403-2404, "/* Login anonymously. */") and
	// never resets it before get-latest-rev or check-path either - both
	// inherit the same 2-group read. Each of those three replies arrives as
	// the generic ack envelope followed by the real answer; NextMeaningful
	// skips the former.
	if err := asm.Send(svnproto.Anonymous()); err != nil {
		return nil, err
	}
	if _, err := asm.ReadGroups(2, 0); err != nil {
		return nil, errors.Wrap(err, "read auth response")
	}

	if cfg.Revision == 0 {
		if err := asm.Send(svnproto.GetLatestRev()); err != nil {
			return nil, err
		}
		raw, err := asm.ReadGroups(2, 0)
		if err != nil {
			return nil, errors.Wrap(err, "read get-latest-rev")
		}
		item, err := svnproto.NextMeaningful(svnproto.NewParser(raw))
		if err != nil {
			return nil, err
		}
		rev, err := svnproto.DecodeLatestRev(item)
		if err != nil {
			return nil, err
		}
		cfg.Revision = rev
	}

	// Confirm the branch is actually a directory at this revision before
	// walking it (svnup.c:2426-2439, "Check to make sure client-supplied
	// remote path is a directory").
	if err := asm.Send(svnproto.CheckPath(cfg.Branch, cfg.Revision)); err != nil {
		return nil, err
	}
	checkRaw, err := asm.ReadGroups(2, 0)
	if err != nil {
		return nil, errors.Wrap(err, "read check-path")
	}
	kindItem, err := svnproto.NextMeaningful(svnproto.NewParser(checkRaw))
	if err != nil {
		return nil, err
	}
	kind, err := svnproto.DecodeCheckPathKind(kindItem)
	if err != nil {
		return nil, err
	}
	if kind != "dir" {
		return nil, svnerr.Fatal(svnerr.KindProtocol, errors.Errorf("remote path %s is not a repository directory", cfg.Branch), "check-path")
	}

	if err := asm.Send(svnproto.Log(cfg.Branch, cfg.Revision, cfg.Revision)); err != nil {
		return nil, err
	}
	logRaw, err := asm.ReadGroups(2, 0)
	if err != nil {
		return nil, errors.Wrap(err, "read log")
	}
	parser := svnproto.NewParser(logRaw)
	if firstGroups, derr := collectLogGroups(parser); derr == nil {
		if entries, lerr := svnproto.DecodeLogEntries(firstGroups); lerr == nil && len(entries) > 0 {
			cfg.Commit = entries[0].CommitInfo
		}
	}

	if !walk {
		return nil, nil
	}

	w := walker.NewSVNWalker(asm)
	return w.Walk(cfg, s.cat)
}

func collectLogGroups(p *svnproto.Parser) ([]svnproto.Item, error) {
	var groups []svnproto.Item
	for !p.Done() {
		item, err := p.Next()
		if err != nil {
			return groups, err
		}
		groups = append(groups, item)
	}
	return groups, nil
}

// runHTTP is runSVN's HTTP counterpart: OPTIONS + log-report always, the
// update-report tree walk only when walk is true.
func (s *session) runHTTP(walk bool) ([]*svn.FileEntry, error) {
	cfg := s.cfg
	host := fmt.Sprintf("%s:%d", cfg.Address, cfg.Port)
	asm := wire.NewHTTPAssembler(s.transport, s.pacer)

	if err := asm.Send(davproto.Options(host, cfg.Branch)); err != nil {
		return nil, err
	}
	resps, err := asm.ReadResponses(1)
	if err != nil {
		return nil, errors.Wrap(err, "read OPTIONS")
	}
	if serr := resps[0].StatusErr("OPTIONS " + cfg.Branch); serr != nil {
		return nil, svnerr.Fatal(svnerr.KindProtocol, serr, "server rejected request")
	}
	caps, err := davproto.DecodeOptions(resps[0].Headers)
	if err != nil {
		return nil, err
	}
	cfg.Layout.Root = caps.RepositoryRoot
	cfg.Layout.Trunk = trimPrefix(cfg.Branch, caps.RepositoryRoot)
	cfg.Layout.RevRootStub = caps.RevRootStub
	cfg.InlineProps = caps.InlineProps
	if cfg.Revision == 0 {
		cfg.Revision = caps.YoungestRev
	}

	if cfg.Layout.RevRootStub == "" {
		svnlog.Infof("http", "server did not advertise SVN-Rev-Root-Stub; skipping commit log fetch")
	} else {
		if err := asm.Send(davproto.LogReportRequest(host, cfg.Layout.RevRootStub, cfg.Revision)); err != nil {
			return nil, err
		}
		logResps, err := asm.ReadResponses(1)
		if err != nil {
			return nil, errors.Wrap(err, "read log-report")
		}
		if serr := logResps[0].StatusErr("log-report"); serr != nil {
			return nil, svnerr.Fatal(svnerr.KindProtocol, serr, "server rejected request")
		}
		if logDoc, derr := davproto.DecodeLogReport(logResps[0].Body); derr == nil && len(logDoc.Entries) > 0 {
			e := logDoc.Entries[0]
			cfg.Commit = svn.CommitInfo{Author: e.Author, Date: e.Date, Log: e.Comment}
		}
	}

	if !walk {
		return nil, nil
	}

	w := walker.NewHTTPWalker(asm, host)
	return w.Walk(cfg, s.cat)
}

// trimPrefix strips the repository-root prefix off the branch path to
// derive the trunk (GLOSSARY). Config.Branch carries no leading slash while
// SVN-Repository-Root arrives with one, so the prefix is normalized first.
func trimPrefix(path, prefix string) string {
	if len(prefix) > 0 && prefix[0] == '/' {
		prefix = prefix[1:]
	}
	if prefix != "" && len(path) >= len(prefix) && path[:len(prefix)] == prefix {
		rest := path[len(prefix):]
		if len(rest) > 0 && rest[0] == '/' {
			rest = rest[1:]
		}
		return rest
	}
	return path
}

// Info runs `svn info`: connect, discover the revision (or use the one
// asked for), fetch its log entry, and render it.
func Info(cfg *svn.Config, out io.Writer) error {
	s := newSession(cfg)
	if err := s.connect(); err != nil {
		return errors.Wrap(err, "connect")
	}
	if cfg.Protocol.IsHTTP() {
		if _, err := s.runHTTP(false); err != nil {
			return err
		}
	} else {
		if _, err := s.runSVN(false); err != nil {
			return err
		}
	}
	return render.Info(out, cfg.Revision, cfg.Commit)
}

// Log runs `svn log`.
func Log(cfg *svn.Config, out io.Writer) error {
	s := newSession(cfg)
	if err := s.connect(); err != nil {
		return errors.Wrap(err, "connect")
	}
	if cfg.Protocol.IsHTTP() {
		if _, err := s.runHTTP(false); err != nil {
			return err
		}
	} else {
		if _, err := s.runSVN(false); err != nil {
			return err
		}
	}
	return render.Log(out, cfg.Revision, cfg.Commit)
}
