package davproto

import (
	"fmt"
	"strings"
)

// ClientVersion is embedded in the User-Agent header of every request.
const ClientVersion = "1.0"

// baseHeaders is the fixed header set every request carries, per spec §4.3:
// Host, User-Agent, Content-Type, Connection, three DAV advertisement
// headers and Transfer-Encoding: chunked.
func baseHeaders(host string) []string {
	return []string{
		"Host: " + host,
		"User-Agent: svnup-" + ClientVersion,
		"Content-Type: text/xml",
		"Connection: Keep-Alive",
		"DAV: http://subversion.tigris.org/xmlns/dav/svn/",
		"DAV: http://subversion.tigris.org/xmlns/dav/svn/depth",
		"DAV: http://subversion.tigris.org/xmlns/dav/svn/mergeinfo",
		"Transfer-Encoding: chunked",
	}
}

// chunkBody wraps body as the single HTTP chunk the rest of the request
// carries; the reference client never splits its own request bodies into
// multiple chunks, only server responses arrive chunked.
func chunkBody(body string) string {
	if body == "" {
		return "0\r\n\r\n"
	}
	return fmt.Sprintf("%x\r\n%s\r\n0\r\n\r\n", len(body), body)
}

func buildRequest(method, path, host string, extraHeaders []string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s HTTP/1.1\r\n", method, path)
	for _, h := range baseHeaders(host) {
		b.WriteString(h)
		b.WriteString("\r\n")
	}
	for _, h := range extraHeaders {
		b.WriteString(h)
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")
	b.WriteString(chunkBody(""))
	return []byte(b.String())
}

func buildRequestWithBody(method, path, host string, extraHeaders []string, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s HTTP/1.1\r\n", method, path)
	for _, h := range baseHeaders(host) {
		b.WriteString(h)
		b.WriteString("\r\n")
	}
	for _, h := range extraHeaders {
		b.WriteString(h)
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")
	b.WriteString(chunkBody(body))
	return []byte(b.String())
}

// Options builds an OPTIONS request against branch, used to discover
// SVN-Youngest-Rev / SVN-Repository-Root / SVN-Rev-Root-Stub.
func Options(host, branch string) []byte {
	return buildRequest("OPTIONS", "/"+strings.TrimPrefix(branch, "/"), host, nil)
}

// LogReportRequest builds a REPORT against revRootStub/rev with a
// log-report body asking for commit metadata of one revision.
func LogReportRequest(host, revRootStub string, rev int64) []byte {
	path := fmt.Sprintf("%s/%d", revRootStub, rev)
	body := fmt.Sprintf(
		`<S:log-report xmlns:S="svn:"><S:start-revision>%d</S:start-revision><S:end-revision>%d</S:end-revision><S:revprop>svn:author</S:revprop><S:revprop>svn:date</S:revprop><S:revprop>svn:log</S:revprop><S:path></S:path><S:encode-binary-props></S:encode-binary-props></S:log-report>`,
		rev, rev)
	return buildRequestWithBody("REPORT", path, host, nil, body)
}

// UpdateReportRequest builds the tree-listing REPORT against root/!svn/me.
// includeProps requests inline executable/special/size so a follow-up
// PROPFIND pass can be skipped. The <S:entry rev start-empty="true">
// directive asks for the whole tree as additions rather than a delta
// against a baseline the client doesn't have.
func UpdateReportRequest(host, root, branch string, rev int64, includeProps bool) []byte {
	path := root + "/!svn/me"
	var inlineProps string
	if includeProps {
		inlineProps = "<S:include-props>yes</S:include-props>"
	}
	body := fmt.Sprintf(
		`<S:update-report xmlns:S="svn:">%s<S:src-path>/%s</S:src-path><S:target-revision>%d</S:target-revision><S:depth>unknown</S:depth><S:entry rev="%d" depth="infinity" start-empty="true"></S:entry></S:update-report>`,
		inlineProps, strings.TrimPrefix(branch, "/"), rev, rev)
	return buildRequestWithBody("REPORT", path, host, nil, body)
}

// Propfind builds a depth-1 PROPFIND against href, used only when
// inline_props is false.
func Propfind(host, href string) []byte {
	body := `<D:propfind xmlns:D="DAV:" xmlns:S="http://subversion.tigris.org/xmlns/dav/"><D:prop><lp1:getcontentlength xmlns:lp1="DAV:"/><S:executable/><S:special/></D:prop></D:propfind>`
	return buildRequestWithBody("PROPFIND", href, host, []string{"Depth: 1"}, body)
}

// Get builds a plain file-body fetch.
func Get(host, href string) []byte {
	return buildRequest("GET", href, host, nil)
}
