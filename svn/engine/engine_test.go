package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svnup/svnup/internal/svnerr"
	"github.com/svnup/svnup/svn"
	"github.com/svnup/svnup/svn/retry"
)

// fakeStream hands back one fixed response per Recv call, mirroring
// svn/wire's fakeStream but also satisfying the stream interface's Connect
// method so it can stand in for *transport.Transport in a session.
type fakeStream struct {
	responses [][]byte
	idx       int
}

func (f *fakeStream) Connect() error { return nil }

func (f *fakeStream) Send([]byte) error { return nil }

func (f *fakeStream) Recv(into []byte) (int, error) {
	if f.idx >= len(f.responses) {
		return 0, assert.AnError
	}
	n := copy(into, f.responses[f.idx])
	f.idx++
	return n, nil
}

func (f *fakeStream) Reset() error { return nil }

const (
	greetingReply       = "( success ( 2 2 ( ) ( edit-pipeline ) ) )"
	authRequestReply    = "( success ( ( ANONYMOUS ) 5:realm ) )"
	anonymousReply      = "( success ( ( ) 0: ) ) ( success ( ) )"
	latestRevReply      = "( success ( ( ) 0: ) ) ( success ( 42 ) )"
	checkPathDirReply   = "( success ( ( ) 0: ) ) ( success ( dir ) )"
	checkPathFileReply  = "( success ( ( ) 0: ) ) ( success ( file ) )"
	logReply            = "( success ( ( ) 0: ) ) " +
		"( 42 ( ( 10:svn:author 5:alice ) ( 8:svn:date 20:2024-01-01T00:00:00Z ) ( 7:svn:log 5:hello ) ) )"
)

func newTestSession(responses []string) *session {
	raw := make([][]byte, len(responses))
	for i, r := range responses {
		raw[i] = []byte(r)
	}
	return &session{
		cfg: &svn.Config{
			Address: "example.org",
			Branch:  "repo/trunk",
		},
		transport: &fakeStream{responses: raw},
		pacer:     retry.New(),
	}
}

// TestRunSVNHandshakeDiscoversRevisionAndCommit drives the full greeting ->
// ANONYMOUS -> get-latest-rev -> check-path -> log sequence over a fake
// stream and checks that the revision and commit metadata it discovers
// along the way end up on cfg, without ever touching the walker (walk is
// false, matching `svn info`/`svn log`).
func TestRunSVNHandshakeDiscoversRevisionAndCommit(t *testing.T) {
	s := newTestSession([]string{
		greetingReply,
		authRequestReply,
		anonymousReply,
		latestRevReply,
		checkPathDirReply,
		logReply,
	})

	entries, err := s.runSVN(false)
	require.NoError(t, err)
	assert.Nil(t, entries)
	assert.Equal(t, int64(42), s.cfg.Revision)
	assert.Equal(t, "alice", s.cfg.Commit.Author)
	assert.Equal(t, "2024-01-01T00:00:00Z", s.cfg.Commit.Date)
	assert.Equal(t, "hello", s.cfg.Commit.Log)
}

// TestRunSVNRejectsNonDirectoryCheckPath proves that a check-path reply
// reporting anything other than "dir" fails the handshake with a
// svnerr.KindProtocol error instead of silently walking a file or a
// nonexistent path.
func TestRunSVNRejectsNonDirectoryCheckPath(t *testing.T) {
	s := newTestSession([]string{
		greetingReply,
		authRequestReply,
		anonymousReply,
		latestRevReply,
		checkPathFileReply,
	})

	_, err := s.runSVN(false)
	require.Error(t, err)

	var fatal *svnerr.FatalError
	require.ErrorAs(t, err, &fatal)
	assert.Equal(t, svnerr.KindProtocol, fatal.Kind)
}

func httpOK(headers []string, body string) string {
	out := "HTTP/1.1 200 OK\r\n"
	for _, h := range headers {
		out += h + "\r\n"
	}
	return fmt.Sprintf("%sContent-Length: %d\r\n\r\n%s", out, len(body), body)
}

const logReportBody = `<S:log-report xmlns:S="svn:">
  <S:log-item version="42">
    <D:creator-displayname xmlns:D="DAV:">jdoe</D:creator-displayname>
    <S:date>2020-11-10T09:23:51.711212Z</S:date>
    <S:comment>fix bug</S:comment>
  </S:log-item>
</S:log-report>`

// TestRunHTTPDiscoversLayoutAndCommit drives the OPTIONS + log-report
// sequence over a fake stream and checks the advertised layout, youngest
// revision and commit metadata all land on cfg.
func TestRunHTTPDiscoversLayoutAndCommit(t *testing.T) {
	options := httpOK([]string{
		"SVN-Youngest-Rev: 42",
		"SVN-Repository-Root: /repo",
		"SVN-Rev-Root-Stub: /repo/!svn/rvr",
		"DAV: http://subversion.tigris.org/xmlns/dav/svn/inline-props",
	}, "")
	logReport := httpOK(nil, logReportBody)

	s := newTestSession([]string{options, logReport})
	s.cfg.Protocol = svn.ProtocolHTTP
	s.cfg.Port = 80

	entries, err := s.runHTTP(false)
	require.NoError(t, err)
	assert.Nil(t, entries)
	assert.Equal(t, int64(42), s.cfg.Revision)
	assert.Equal(t, "/repo", s.cfg.Layout.Root)
	assert.Equal(t, "trunk", s.cfg.Layout.Trunk)
	assert.Equal(t, "/repo/!svn/rvr", s.cfg.Layout.RevRootStub)
	assert.True(t, s.cfg.InlineProps)
	assert.Equal(t, "jdoe", s.cfg.Commit.Author)
	assert.Equal(t, "2020-11-10T09:23:51.711212Z", s.cfg.Commit.Date)
	assert.Equal(t, "fix bug", s.cfg.Commit.Log)
}

// TestRunHTTPSurfacesOptionsFailure is spec §8 scenario 4: a non-2xx OPTIONS
// reply fails the run with the server's m:human-readable text.
func TestRunHTTPSurfacesOptionsFailure(t *testing.T) {
	errBody := `<D:error xmlns:D="DAV:" xmlns:m="http://apache.org/dav/xmlns">` +
		`<m:human-readable errcode="2">Could not open the requested SVN filesystem</m:human-readable></D:error>`
	resp := fmt.Sprintf("HTTP/1.1 500 Internal Server Error\r\nContent-Length: %d\r\n\r\n%s", len(errBody), errBody)

	s := newTestSession([]string{resp})
	s.cfg.Protocol = svn.ProtocolHTTP

	_, err := s.runHTTP(false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Could not open the requested SVN filesystem")
	assert.True(t, svnerr.IsKind(err, svnerr.KindProtocol))
}

// TestRunHTTPSkipsLogWithoutRevRootStub checks the §9 warning path: no
// SVN-Rev-Root-Stub means no log-report round trip, not a failure.
func TestRunHTTPSkipsLogWithoutRevRootStub(t *testing.T) {
	options := httpOK([]string{
		"SVN-Youngest-Rev: 7",
		"SVN-Repository-Root: /repo",
	}, "")

	s := newTestSession([]string{options})
	s.cfg.Protocol = svn.ProtocolHTTP

	_, err := s.runHTTP(false)
	require.NoError(t, err)
	assert.Equal(t, int64(7), s.cfg.Revision)
	assert.Empty(t, s.cfg.Commit.Author)
}

// TestRunSVNHonorsPinnedRevision confirms the get-latest-rev round trip is
// skipped entirely when the caller already pinned a revision, matching
// runSVN's `if cfg.Revision == 0` guard.
func TestRunSVNHonorsPinnedRevision(t *testing.T) {
	s := newTestSession([]string{
		greetingReply,
		authRequestReply,
		anonymousReply,
		checkPathDirReply,
		logReply,
	})
	s.cfg.Revision = 7

	_, err := s.runSVN(false)
	require.NoError(t, err)
	assert.Equal(t, int64(7), s.cfg.Revision)
}
