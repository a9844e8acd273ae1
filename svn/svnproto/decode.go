package svnproto

import (
	"github.com/pkg/errors"

	"github.com/svnup/svnup/svn"
)

// continuationLiteralSize is the literal size the reference client treats
// as "more bytes follow" when streaming a get-file body (get_files in the
// original source peels consecutive full-sized literals).
const continuationLiteralSize = 4096

// DecodeLatestRev extracts the revision number from a get-latest-rev reply.
func DecodeLatestRev(resp Item) (int64, error) {
	payload, err := Unwrap(resp)
	if err != nil {
		return 0, err
	}
	if len(payload) != 1 || payload[0].Kind != KindNumber {
		return 0, errors.New("svnproto: malformed get-latest-rev reply")
	}
	return payload[0].Number, nil
}

// DecodeCheckPathKind extracts the path kind word ("dir", "file" or "none")
// from a check-path reply.
func DecodeCheckPathKind(resp Item) (string, error) {
	payload, err := Unwrap(resp)
	if err != nil {
		return "", err
	}
	if len(payload) != 1 || payload[0].Kind != KindWord {
		return "", errors.New("svnproto: malformed check-path reply")
	}
	return payload[0].Word, nil
}

// isAckEnvelope reports whether item is the generic empty envelope
// "( success ( ( ) 0: ) )" - an empty property list followed by a 0-byte
// literal - that some native-protocol replies send ahead of their real
// payload. check_command_success in the reference client strips this exact
// shape by literal prefix match before examining what follows it.
func isAckEnvelope(item Item) bool {
	if item.Kind != KindList || len(item.List) != 2 {
		return false
	}
	if item.List[0].Kind != KindWord || item.List[0].Word != "success" {
		return false
	}
	payload := item.List[1]
	if payload.Kind != KindList || len(payload.List) != 2 {
		return false
	}
	return payload.List[0].Kind == KindList && len(payload.List[0].List) == 0 &&
		payload.List[1].Kind == KindBytes && len(payload.List[1].Bytes) == 0
}

// NextMeaningful reads items off p, skipping any leading isAckEnvelope
// matches, and returns the first one that isn't. ANONYMOUS, get-latest-rev
// and check-path replies all arrive as that ack followed by the real
// answer (the reference client leaves response_groups at 2, set just
// before ANONYMOUS, through all three calls); NextMeaningful tolerates a
// server that skips the ack and sends the real answer directly too.
func NextMeaningful(p *Parser) (Item, error) {
	for {
		item, err := p.Next()
		if err != nil {
			return Item{}, err
		}
		if isAckEnvelope(item) {
			continue
		}
		return item, nil
	}
}

// DirEntry is one child listed by a get-dir reply.
type DirEntry struct {
	Name string
	Kind string // "file" or "dir"
	Size int64
}

// DecodeDirEntries extracts the child list from a get-dir reply. The reply
// shape is "( success ( ( ( name kind size ... ) ... ) ... ) )"; kind may be
// a word or a string literal. Children with fewer than three fields or the
// wrong field types are skipped.
func DecodeDirEntries(resp Item) ([]DirEntry, error) {
	payload, err := Unwrap(resp)
	if err != nil {
		return nil, err
	}
	if len(payload) < 1 || payload[0].Kind != KindList {
		return nil, errors.New("svnproto: malformed get-dir reply")
	}
	entries := payload[0].List
	out := make([]DirEntry, 0, len(entries))
	for _, e := range entries {
		if e.Kind != KindList || len(e.List) < 3 {
			continue
		}
		name := e.List[0]
		kind := e.List[1]
		size := e.List[2]
		if name.Kind != KindBytes || (kind.Kind != KindWord && kind.Kind != KindBytes) || size.Kind != KindNumber {
			continue
		}
		kindName := kind.Word
		if kind.Kind == KindBytes {
			kindName = string(kind.Bytes)
		}
		out = append(out, DirEntry{Name: string(name.Bytes), Kind: kindName, Size: size.Number})
	}
	return out, nil
}

// FileMeta is the MD5 and mode bits returned by a get-file metadata call.
type FileMeta struct {
	MD5        string
	Executable bool
	Special    bool
}

// DecodeFileMeta extracts MD5 and svn:executable / svn:special properties
// from a get-file (props-only) reply: "( success ( rev md5 ( props ) ) )".
func DecodeFileMeta(resp Item) (FileMeta, error) {
	payload, err := Unwrap(resp)
	if err != nil {
		return FileMeta{}, err
	}
	if len(payload) < 3 || payload[1].Kind != KindBytes || payload[2].Kind != KindList {
		return FileMeta{}, errors.New("svnproto: malformed get-file reply")
	}
	meta := FileMeta{MD5: string(payload[1].Bytes)}
	for _, prop := range payload[2].List {
		if prop.Kind != KindList || len(prop.List) != 2 || prop.List[0].Kind != KindBytes {
			continue
		}
		switch string(prop.List[0].Bytes) {
		case "svn:executable":
			meta.Executable = true
		case "svn:special":
			meta.Special = true
		}
	}
	return meta, nil
}

// DecodeFileBody concatenates the 4096-byte continuation literals of a
// get-file body reply into a single contiguous payload. The success
// envelope around a body reply carries its payload as a bare sequence of
// KindBytes items rather than a nested list, mirroring get_files' handling
// of consecutive full-size literals as "more follows".
func DecodeFileBody(items []Item) []byte {
	var out []byte
	for _, it := range items {
		if it.Kind != KindBytes {
			continue
		}
		out = append(out, it.Bytes...)
	}
	return out
}

// LogEntry is one commit record from a log reply.
type LogEntry struct {
	Revision int64
	svn.CommitInfo
}

// DecodeLogEntries extracts commit metadata from the sequence of
// "( <rev> ( ( svn:author a:) (svn:date d:) (svn:log l:) ) )"-shaped change
// records a log reply streams before its final "( success ( ) )".
func DecodeLogEntries(groups []Item) ([]LogEntry, error) {
	var out []LogEntry
	for _, g := range groups {
		if g.Kind != KindList || len(g.List) < 2 {
			continue
		}
		revItem := g.List[0]
		propsItem := g.List[1]
		if revItem.Kind != KindNumber || propsItem.Kind != KindList {
			continue
		}
		entry := LogEntry{Revision: revItem.Number}
		for _, prop := range propsItem.List {
			if prop.Kind != KindList || len(prop.List) != 2 || prop.List[0].Kind != KindBytes || prop.List[1].Kind != KindBytes {
				continue
			}
			switch string(prop.List[0].Bytes) {
			case "svn:author":
				entry.Author = string(prop.List[1].Bytes)
			case "svn:date":
				entry.Date = string(prop.List[1].Bytes)
			case "svn:log":
				entry.Log = string(prop.List[1].Bytes)
			}
		}
		out = append(out, entry)
	}
	if len(out) == 0 {
		return nil, errors.New("svnproto: empty log reply")
	}
	return out, nil
}
