package wire

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/svnup/svnup/svn/retry"
)

// httpGrowFactor is the HTTP-mode buffer growth factor; WebDAV batches can
// carry large REPORT bodies so growth is gentler than the SVN doubling.
const httpGrowFactor = 1.5

// HTTPResponse is one parsed response out of a (possibly pipelined) batch.
type HTTPResponse struct {
	Status      int
	Headers     map[string]string
	Body        []byte
	InlineProps bool
}

// HTTPAssembler reads a batch of pipelined HTTP/1.1 responses off a Stream,
// locating each response's header block, resolving its body length from
// either Content-Length or chunked transfer-encoding, and dechunking in
// place exactly as process_command_http does in the reference client.
type HTTPAssembler struct {
	stream Stream
	pacer  *retry.Pacer
	buf    *Buffer
}

// NewHTTPAssembler builds an assembler over stream.
func NewHTTPAssembler(stream Stream, pacer *retry.Pacer) *HTTPAssembler {
	return &HTTPAssembler{stream: stream, pacer: pacer, buf: NewBuffer(16384)}
}

// Send transmits a request batch, reconnecting and resending on transient
// failure.
func (a *HTTPAssembler) Send(req []byte) error {
	return a.pacer.Call(func() (bool, error) {
		if err := a.stream.Send(req); err != nil {
			if rerr := a.stream.Reset(); rerr != nil {
				return true, errors.Wrap(rerr, "reconnect after send failure")
			}
			return true, errors.Wrap(err, "send")
		}
		return false, nil
	})
}

// ReadResponses reads until expectedGroups whole HTTP responses have been
// parsed out of the stream.
func (a *HTTPAssembler) ReadResponses(expectedGroups int) ([]HTTPResponse, error) {
	a.buf.Reset()
	readBuf := make([]byte, 32*1024)

	var responses []HTTPResponse
	pos := 0
	for len(responses) < expectedGroups {
		resp, next, ok, err := parseOneResponse(a.buf, pos)
		if err != nil {
			return nil, err
		}
		if ok {
			responses = append(responses, resp)
			pos = next
			continue
		}
		n, err := a.readSome(readBuf)
		if err != nil {
			return nil, err
		}
		a.buf.Append(readBuf[:n], httpGrowFactor)
	}
	return responses, nil
}

func (a *HTTPAssembler) readSome(into []byte) (int, error) {
	var n int
	err := a.pacer.Call(func() (bool, error) {
		var rerr error
		n, rerr = a.stream.Recv(into)
		if rerr != nil {
			if resetErr := a.stream.Reset(); resetErr != nil {
				return true, errors.Wrap(resetErr, "reconnect after recv failure")
			}
			return true, errors.Wrap(rerr, "recv")
		}
		if n == 0 {
			return true, errors.New("connection closed")
		}
		return false, nil
	})
	return n, err
}

// StatusErr returns nil for a 2xx response. For anything else it builds the
// command-failure error spec §4.2 describes, quoting the server's
// m:human-readable element when the error body carries one (the same
// courtesy extraction parse_xml_value feeds in the reference client).
func (r HTTPResponse) StatusErr(what string) error {
	if r.Status >= 200 && r.Status < 300 {
		return nil
	}
	if msg, ok := ExtractTagValue(r.Body, "m:human-readable"); ok {
		return errors.Errorf("%s failed: HTTP %d: %s", what, r.Status, strings.TrimSpace(msg))
	}
	return errors.Errorf("%s failed: HTTP %d", what, r.Status)
}

// parseOneResponse attempts to parse exactly one HTTP response starting at
// pos in buf. ok is false when more data is needed (buf is left untouched,
// so the caller can read more and retry from the same pos).
func parseOneResponse(buf *Buffer, pos int) (resp HTTPResponse, next int, ok bool, err error) {
	data := buf.Bytes()
	if pos > len(data) {
		return HTTPResponse{}, pos, false, nil
	}
	rel := data[pos:]

	statusIdx := strings.Index(string(rel), "HTTP/1.1 ")
	if statusIdx < 0 {
		return HTTPResponse{}, pos, false, nil
	}
	headerStart := pos + statusIdx
	headerEndRel := strings.Index(string(data[headerStart:]), "\r\n\r\n")
	if headerEndRel < 0 {
		return HTTPResponse{}, pos, false, nil
	}
	headerBlock := string(data[headerStart : headerStart+headerEndRel])
	bodyStart := headerStart + headerEndRel + 4

	lines := strings.Split(headerBlock, "\r\n")
	if len(lines) == 0 {
		return HTTPResponse{}, pos, false, errors.New("malformed HTTP status line")
	}
	status, err := parseStatusLine(lines[0])
	if err != nil {
		return HTTPResponse{}, pos, false, err
	}

	headers := make(map[string]string, len(lines)-1)
	inlineProps := false
	for _, line := range lines[1:] {
		k, v, ok := splitHeader(line)
		if !ok {
			continue
		}
		headers[k] = v
		if strings.EqualFold(k, "DAV") && strings.Contains(v, "inline-props") {
			inlineProps = true
		}
	}

	contentLengthIdx := indexOfHeaderMarker(headerBlock, "Content-Length:")
	chunkedIdx := indexOfHeaderMarker(headerBlock, "Transfer-Encoding: chunked")

	var (
		body     []byte
		bodyEnd  int
		needMore bool
	)
	switch {
	case chunkedIdx >= 0 && (contentLengthIdx < 0 || chunkedIdx < contentLengthIdx):
		// Scan read-only first: compactChunked mutates the buffer, and if it
		// stopped partway through because a later chunk hadn't fully arrived
		// yet, the earlier chunks it already compacted would be scanned
		// again (and corrupted) on the next call. Only commit the mutation
		// once the whole chunked sequence is confirmed present.
		scanEnd, sok, serr := scanChunked(data, bodyStart, len(data))
		if serr != nil {
			return HTTPResponse{}, pos, false, serr
		}
		if !sok {
			return HTTPResponse{}, pos, false, nil
		}
		newTotal, bEnd := compactChunked(buf, bodyStart, scanEnd)
		body = append([]byte(nil), buf.Slice(bodyStart, bEnd)...)
		buf.Truncate(newTotal)
		resp = HTTPResponse{Status: status, Headers: headers, Body: body, InlineProps: inlineProps}
		return resp, bEnd, true, nil
	case contentLengthIdx >= 0:
		cl, cerr := strconv.Atoi(strings.TrimSpace(headers["Content-Length"]))
		if cerr != nil {
			return HTTPResponse{}, pos, false, errors.Wrap(cerr, "parse Content-Length")
		}
		bodyEnd = bodyStart + cl
		if bodyEnd > len(data) {
			needMore = true
		}
	default:
		bodyEnd = bodyStart
	}

	if needMore {
		return HTTPResponse{}, pos, false, nil
	}
	body = append([]byte(nil), data[bodyStart:bodyEnd]...)
	resp = HTTPResponse{Status: status, Headers: headers, Body: body, InlineProps: inlineProps}
	return resp, bodyEnd, true, nil
}

func parseStatusLine(line string) (int, error) {
	fields := strings.SplitN(line, " ", 3)
	if len(fields) < 2 {
		return 0, errors.Errorf("malformed status line %q", line)
	}
	return strconv.Atoi(fields[1])
}

func splitHeader(line string) (key, value string, ok bool) {
	i := strings.Index(line, ":")
	if i < 0 {
		return "", "", false
	}
	return strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+1:]), true
}

// indexOfHeaderMarker reports the byte offset of marker within block, or -1.
// The caller compares these offsets directly to decide which framing mode
// wins when a (malformed) response carries both headers, mirroring the
// "whichever marker occurs first" tie-break in the reference client.
func indexOfHeaderMarker(block, marker string) int {
	return strings.Index(block, marker)
}

// scanChunked is a read-only pass that walks the chunk-size lines from
// start without mutating data, returning the offset one past the
// terminating zero-size chunk's trailing CRLF once the whole sequence has
// arrived. ok is false when more data is needed.
func scanChunked(data []byte, start, total int) (end int, ok bool, err error) {
	read := start
	for {
		crlf := strings.Index(string(data[read:total]), "\r\n")
		if crlf < 0 {
			return 0, false, nil
		}
		sizeLine := strings.TrimSpace(string(data[read : read+crlf]))
		if semi := strings.IndexByte(sizeLine, ';'); semi >= 0 {
			sizeLine = sizeLine[:semi]
		}
		chunkSize, perr := strconv.ParseInt(sizeLine, 16, 64)
		if perr != nil {
			return 0, false, errors.Wrapf(perr, "malformed chunk size %q", sizeLine)
		}
		chunkDataStart := read + crlf + 2
		chunkDataEnd := chunkDataStart + int(chunkSize)
		if chunkDataEnd+2 > total {
			return 0, false, nil
		}
		if chunkSize == 0 {
			return chunkDataEnd + 2, true, nil
		}
		read = chunkDataEnd + 2
	}
}

// compactChunked removes the "<hexsize>\r\n...\r\n" markers from
// buf[bodyStart:scanEnd], shifting the decoded payload down in place
// exactly as process_command_http's memmove loop does, so the body ends up
// contiguous and whatever follows it (the next pipelined response, if any)
// directly abuts it. Only called once scanChunked has confirmed the whole
// sequence is present. Returns the buffer's new total length and the
// offset one past the now-contiguous body.
func compactChunked(buf *Buffer, bodyStart, scanEnd int) (newTotalLen int, bodyEnd int) {
	data := buf.Bytes()
	total := len(data)

	read := bodyStart
	write := bodyStart
	for {
		crlf := strings.Index(string(data[read:scanEnd]), "\r\n")
		sizeLine := strings.TrimSpace(string(data[read : read+crlf]))
		if semi := strings.IndexByte(sizeLine, ';'); semi >= 0 {
			sizeLine = sizeLine[:semi]
		}
		chunkSize, _ := strconv.ParseInt(sizeLine, 16, 64)
		chunkDataStart := read + crlf + 2
		chunkDataEnd := chunkDataStart + int(chunkSize)
		if chunkSize == 0 {
			tailStart := chunkDataEnd + 2
			copy(data[write:], data[tailStart:total])
			return write + (total - tailStart), write
		}
		copy(data[write:], data[chunkDataStart:chunkDataEnd])
		write += int(chunkSize)
		read = chunkDataEnd + 2
	}
}
