package wire

import (
	"encoding/xml"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svnup/svnup/svn/retry"
)

func contentLengthResponse(body string) string {
	return fmt.Sprintf("HTTP/1.1 200 OK\r\nContent-Length: %d\r\n\r\n%s", len(body), body)
}

func chunkedResponse(body string, chunkSize int) string {
	var b strings.Builder
	b.WriteString("HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n")
	for len(body) > 0 {
		n := chunkSize
		if n > len(body) {
			n = len(body)
		}
		fmt.Fprintf(&b, "%x\r\n%s\r\n", n, body[:n])
		body = body[n:]
	}
	b.WriteString("0\r\n\r\n")
	return b.String()
}

// TestHTTPAssemblerDechunkedBodyMatchesContentLength is spec §8's framing
// property: a chunked body, once the markers are excised in place, parses to
// the same document as the identical payload sent with Content-Length.
func TestHTTPAssemblerDechunkedBodyMatchesContentLength(t *testing.T) {
	payload := `<D:multistatus xmlns:D="DAV:"><D:response><D:href>/repo/trunk/a.txt</D:href></D:response></D:multistatus>`

	plain := NewHTTPAssembler(&fakeStream{chunks: chunksOf([]byte(contentLengthResponse(payload)), 7)}, retry.New())
	plainResps, err := plain.ReadResponses(1)
	require.NoError(t, err)

	chunked := NewHTTPAssembler(&fakeStream{chunks: chunksOf([]byte(chunkedResponse(payload, 11)), 7)}, retry.New())
	chunkedResps, err := chunked.ReadResponses(1)
	require.NoError(t, err)

	assert.Equal(t, plainResps[0].Body, chunkedResps[0].Body)

	type doc struct {
		Href string `xml:"response>href"`
	}
	var fromPlain, fromChunked doc
	require.NoError(t, xml.Unmarshal(plainResps[0].Body, &fromPlain))
	require.NoError(t, xml.Unmarshal(chunkedResps[0].Body, &fromChunked))
	assert.Equal(t, fromPlain, fromChunked)
}

// TestHTTPAssemblerParsesPipelinedBatch reads two back-to-back responses the
// way a PROPFIND/GET batch delivers them, the second arriving chunked so the
// in-place compaction has to leave the boundary between them intact.
func TestHTTPAssemblerParsesPipelinedBatch(t *testing.T) {
	first := contentLengthResponse("first body")
	second := chunkedResponse("second body, somewhat longer", 5)
	raw := []byte(first + second)

	asm := NewHTTPAssembler(&fakeStream{chunks: chunksOf(raw, 9)}, retry.New())
	resps, err := asm.ReadResponses(2)
	require.NoError(t, err)
	require.Len(t, resps, 2)
	assert.Equal(t, "first body", string(resps[0].Body))
	assert.Equal(t, "second body, somewhat longer", string(resps[1].Body))
}

func TestHTTPAssemblerDetectsInlineProps(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\n" +
		"DAV: http://subversion.tigris.org/xmlns/dav/svn/inline-props\r\n" +
		"Content-Length: 0\r\n\r\n"
	asm := NewHTTPAssembler(&fakeStream{chunks: chunksOf([]byte(raw), 16)}, retry.New())
	resps, err := asm.ReadResponses(1)
	require.NoError(t, err)
	assert.True(t, resps[0].InlineProps)
}

func TestHTTPAssemblerRejectsMalformedChunkSize(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\nzz\r\nnope\r\n0\r\n\r\n"
	asm := NewHTTPAssembler(&fakeStream{chunks: chunksOf([]byte(raw), 64)}, retry.New())
	_, err := asm.ReadResponses(1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed chunk size")
}

func TestStatusErrQuotesHumanReadable(t *testing.T) {
	body := `<?xml version="1.0"?><D:error xmlns:D="DAV:" xmlns:m="http://apache.org/dav/xmlns">` +
		`<m:human-readable errcode="160013">Could not open the requested SVN filesystem</m:human-readable></D:error>`
	resp := HTTPResponse{Status: 500, Body: []byte(body)}

	err := resp.StatusErr("OPTIONS /repo/trunk")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 500")
	assert.Contains(t, err.Error(), "Could not open the requested SVN filesystem")

	assert.NoError(t, HTTPResponse{Status: 207}.StatusErr("PROPFIND"))
}

func TestStatusErrWithoutErrorBody(t *testing.T) {
	err := HTTPResponse{Status: 404, Body: []byte("not xml at all")}.StatusErr("GET /x")
	require.Error(t, err)
	assert.Equal(t, "GET /x failed: HTTP 404", err.Error())
}
