package wire

import (
	"strconv"

	"github.com/pkg/errors"

	"github.com/svnup/svnup/svn/retry"
)

// svnGrowFactor is the SVN-mode buffer growth factor (power-of-two doubling),
// as opposed to the x1.5 HTTP mode uses - svnproto batches are bounded by
// COMMAND_BUFFER (32KiB) so doubling converges in a couple of grows.
const svnGrowFactor = 2.0

// SVNAssembler reads whole response groups off a Stream, honoring the
// native protocol's paren-balanced framing: "(" opens a group, ")" closes
// it, and an opaque literal written as "<space><digits>:<payload>" must be
// skipped as a single unit immediately after the "(" that introduces it, so
// that any "(" or ")" bytes inside file contents never perturb the depth
// count (find_response_end / process_command_svn in the reference client).
type SVNAssembler struct {
	stream Stream
	pacer  *retry.Pacer
	buf    *Buffer

	pos          int // scan cursor, rebased whenever buf is compacted
	depth        int
	groupsClosed int
}

// NewSVNAssembler builds an assembler over stream, retrying sends/reads
// through pacer (capped at retry.MaxRetries, per spec §7).
func NewSVNAssembler(stream Stream, pacer *retry.Pacer) *SVNAssembler {
	return &SVNAssembler{
		stream: stream,
		pacer:  pacer,
		buf:    NewBuffer(8192),
	}
}

// Send transmits a command, reconnecting and resending on transient
// failure.
func (a *SVNAssembler) Send(cmd []byte) error {
	return a.pacer.Call(func() (bool, error) {
		if err := a.stream.Send(cmd); err != nil {
			if rerr := a.stream.Reset(); rerr != nil {
				return true, errors.Wrap(rerr, "reconnect after send failure")
			}
			return true, errors.Wrap(err, "send")
		}
		return false, nil
	})
}

// ReadGroups reads until expectedGroups top-level "(...)" groups have
// closed, or (when expectedBytes > 0) until that many bytes have arrived -
// a precomputed-size path for callers that know the exact response size;
// the batched file fetches pass 0 and rely on group counting. It returns the accumulated bytes and resets the assembler for the next call.
func (a *SVNAssembler) ReadGroups(expectedGroups int, expectedBytes int) ([]byte, error) {
	a.buf.Reset()
	a.pos, a.depth, a.groupsClosed = 0, 0, 0

	readBuf := make([]byte, 32*1024)
	for {
		if expectedBytes > 0 {
			if a.buf.Len() >= expectedBytes {
				break
			}
		} else {
			a.scan()
			if a.groupsClosed >= expectedGroups {
				break
			}
		}
		n, err := a.readSome(readBuf)
		if err != nil {
			return nil, err
		}
		a.buf.Append(readBuf[:n], svnGrowFactor)
	}

	out := make([]byte, a.buf.Len())
	copy(out, a.buf.Bytes())
	return out, nil
}

func (a *SVNAssembler) readSome(into []byte) (int, error) {
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

// scan advances the depth/groupsClosed state as far as the currently
// buffered data allows, leaving a.pos at the last position it could safely
// interpret (it never consumes a "(" whose opaque-literal tail hasn't fully
// arrived yet).
func (a *SVNAssembler) scan() {
	data := a.buf.Bytes()
	for a.pos < len(data) {
		c := data[a.pos]
		switch c {
		case '(':
			end, ok, needMore := tryParseOpaqueLiteral(data, a.pos+1)
			if needMore {
				return
			}
			a.depth++
			a.pos++
			if ok {
				a.pos = end
			}
		case ')':
			a.depth--
			a.pos++
			if a.depth == 0 {
				a.groupsClosed++
				for a.pos < len(data) && isSVNSpace(data[a.pos]) {
					a.pos++
				}
			}
		default:
			a.pos++
		}
	}
}

func isSVNSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}

// tryParseOpaqueLiteral looks for "<space><digits>:" starting at i (the
// byte right after an already-consumed "(") and, if found, returns the
// index one past the literal's payload. needMore is set when the buffered
// data isn't long enough yet to tell either way.
func tryParseOpaqueLiteral(data []byte, i int) (end int, ok bool, needMore bool) {
	if i >= len(data) {
		return 0, false, true
	}
	if data[i] != ' ' {
		return 0, false, false
	}
	j := i + 1
	if j >= len(data) {
		return 0, false, true
	}
	digitsStart := j
	for j < len(data) && data[j] >= '0' && data[j] <= '9' {
		j++
	}
	if j == digitsStart {
		return 0, false, false
	}
	if j >= len(data) {
		return 0, false, true
	}
	if data[j] != ':' {
		return 0, false, false
	}
	n, err := strconv.Atoi(string(data[digitsStart:j]))
	if err != nil {
		return 0, false, false
	}
	payloadStart := j + 1
	payloadEnd := payloadStart + n
	if payloadEnd > len(data) {
		return 0, false, true
	}
	return payloadEnd, true, false
}
