package davproto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeOptionsExtractsCapabilities(t *testing.T) {
	headers := map[string]string{
		"SVN-Youngest-Rev":    "99",
		"SVN-Repository-Root": "/svn/repo",
		"SVN-Rev-Root-Stub":   "/svn/repo/!svn/rev",
		"DAV":                 "http://subversion.tigris.org/xmlns/dav/svn/xmlns/dav/svn/inline-props",
	}

	caps, err := DecodeOptions(headers)
	require.NoError(t, err)
	assert.Equal(t, int64(99), caps.YoungestRev)
	assert.Equal(t, "/svn/repo", caps.RepositoryRoot)
	assert.Equal(t, "/svn/repo/!svn/rev", caps.RevRootStub)
	assert.True(t, caps.InlineProps)
}

func TestDecodeOptionsWithoutInlinePropsHeader(t *testing.T) {
	headers := map[string]string{"DAV": "http://subversion.tigris.org/xmlns/dav/svn/"}

	caps, err := DecodeOptions(headers)
	require.NoError(t, err)
	assert.False(t, caps.InlineProps)
}

func TestDecodeUpdateReportParsesFilesAndDirectories(t *testing.T) {
	body := []byte(`<?xml version="1.0"?>
<D:multistatus xmlns:D="DAV:" xmlns:S="svn:" xmlns:V="http://subversion.tigris.org/xmlns/dav/">
  <S:update-report>
    <S:add-directory name="sub">
      <D:href>/svn/repo/!svn/ver/42/trunk/sub</D:href>
    </S:add-directory>
    <S:add-file name="a.txt">
      <D:href>/svn/repo/!svn/ver/42/trunk/a.txt</D:href>
      <V:md5-checksum>aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa</V:md5-checksum>
      <S:set-prop name="executable"></S:set-prop>
    </S:add-file>
  </S:update-report>
</D:multistatus>`)

	doc, err := DecodeUpdateReport(body)
	require.NoError(t, err)
	require.Len(t, doc.Directories, 1)
	require.Len(t, doc.Files, 1)
	assert.Equal(t, "/svn/repo/!svn/ver/42/trunk/sub", doc.Directories[0].Href)
	assert.Equal(t, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", doc.Files[0].MD5)
	assert.True(t, doc.Files[0].Executable())
	assert.False(t, doc.Files[0].Special())
}

func TestDecodeLogReportParsesCommitMetadata(t *testing.T) {
	body := []byte(`<S:log-report xmlns:S="svn:">
  <S:log-item version="42">
    <D:creator-displayname xmlns:D="DAV:">jdoe</D:creator-displayname>
    <S:date>2020-11-10T09:23:51.711212Z</S:date>
    <S:comment>fix bug</S:comment>
  </S:log-item>
</S:log-report>`)

	doc, err := DecodeLogReport(body)
	require.NoError(t, err)
	require.Len(t, doc.Entries, 1)
	assert.Equal(t, int64(42), doc.Entries[0].Revision)
	assert.Equal(t, "jdoe", doc.Entries[0].Author)
	assert.Equal(t, "fix bug", doc.Entries[0].Comment)
}

func TestUpdateReportRequestBody(t *testing.T) {
	req := string(UpdateReportRequest("example.org:80", "/repo", "repo/trunk", 42, false))

	assert.True(t, strings.HasPrefix(req, "REPORT /repo/!svn/me HTTP/1.1\r\n"))
	assert.Contains(t, req,
		`<S:update-report xmlns:S="svn:">`+
			`<S:src-path>/repo/trunk</S:src-path>`+
			`<S:target-revision>42</S:target-revision>`+
			`<S:depth>unknown</S:depth>`+
			`<S:entry rev="42" depth="infinity" start-empty="true"></S:entry>`+
			`</S:update-report>`)
	assert.NotContains(t, req, "include-props")
}

func TestUpdateReportRequestInlinesProps(t *testing.T) {
	req := string(UpdateReportRequest("example.org:80", "/repo", "repo/trunk", 7, true))

	assert.Contains(t, req,
		`<S:update-report xmlns:S="svn:">`+
			`<S:include-props>yes</S:include-props>`+
			`<S:src-path>/repo/trunk</S:src-path>`,
		"include-props leads the body, before src-path")
}

func TestLogReportRequestBody(t *testing.T) {
	req := string(LogReportRequest("example.org:80", "/repo/!svn/rvr", 42))

	assert.True(t, strings.HasPrefix(req, "REPORT /repo/!svn/rvr/42 HTTP/1.1\r\n"))
	assert.Contains(t, req,
		`<S:log-report xmlns:S="svn:">`+
			`<S:start-revision>42</S:start-revision>`+
			`<S:end-revision>42</S:end-revision>`+
			`<S:revprop>svn:author</S:revprop>`+
			`<S:revprop>svn:date</S:revprop>`+
			`<S:revprop>svn:log</S:revprop>`+
			`<S:path></S:path>`+
			`<S:encode-binary-props></S:encode-binary-props>`+
			`</S:log-report>`)
}

func TestDecodePercentRestrictedToHexEscapes(t *testing.T) {
	assert.Equal(t, "a b", DecodePercent("a%20b"))
	assert.Equal(t, "100%done", DecodePercent("100%done"), "a non-hex '%' is left untouched")
}
