// Package svnproto implements spec §4.3's SVN encoder/decoder: the textual
// S-expression command set the native protocol speaks, and a tokenizer that
// turns a response buffer back into a tree of words, numbers and opaque
// byte literals.
package svnproto

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Capabilities is the fixed feature list advertised in the client greeting.
const Capabilities = "edit-pipeline svndiff1 absent-entries commit-revprops depth log-revprops atomic-revprops partial-replay"

// ClientGreeting replies to the server's opening line with the capability
// set and the session's canonical svn:// identifier.
func ClientGreeting(address, branch string) []byte {
	url := fmt.Sprintf("svn://%s/%s", address, branch)
	return []byte(fmt.Sprintf("( 2 ( %s ) %d:%s ( ) )\n", Capabilities, len(url), url))
}

// Anonymous requests anonymous auth.
func Anonymous() []byte {
	return []byte("( ANONYMOUS ( 0: ) )\n")
}

// GetLatestRev asks for the repository's youngest revision.
func GetLatestRev() []byte {
	return []byte("( get-latest-rev ( ) )\n")
}

// CheckPath asks whether path exists (and what kind) at rev.
func CheckPath(path string, rev int64) []byte {
	return []byte(fmt.Sprintf("( check-path ( %d:%s ( %d ) ) )\n", len(path), path, rev))
}

// GetDir requests a recursive-free directory listing of path at rev,
// including kind and size for each child.
func GetDir(path string, rev int64) []byte {
	return []byte(fmt.Sprintf("( get-dir ( %d:%s ( %d ) false true ( kind size ) false ) )\n", len(path), path, rev))
}

// GetFileMeta requests a file's MD5 and properties without its contents.
func GetFileMeta(path string, rev int64) []byte {
	return []byte(fmt.Sprintf("( get-file ( %d:%s ( %d ) true false false ) )\n", len(path), path, rev))
}

// GetFileBody requests a file's contents without re-fetching properties.
func GetFileBody(path string, rev int64) []byte {
	return []byte(fmt.Sprintf("( get-file ( %d:%s ( %d ) false true false ) )\n", len(path), path, rev))
}

// Log requests commit metadata for path between startRev and endRev,
// restricted to the three revprops the renderer needs.
func Log(path string, startRev, endRev int64) []byte {
	return []byte(fmt.Sprintf(
		"( log ( ( %d:%s ) ( %d ) ( %d ) false false 0 false revprops ( 10:svn:author 8:svn:date 7:svn:log ) ) )\n",
		len(path), path, startRev, endRev))
}

// Kind tags a decoded Item.
type Kind int

const (
	// KindList is a parenthesized sequence of Items.
	KindList Kind = iota
	// KindWord is a bare identifier (ANONYMOUS, success, dir, false...).
	KindWord
	// KindNumber is a bare digit sequence not followed by ':'.
	KindNumber
	// KindBytes is an N:<N bytes> opaque literal.
	KindBytes
)

// Item is one decoded S-expression node.
type Item struct {
	Kind   Kind
	Word   string
	Number int64
	Bytes  []byte
	List   []Item
}

// String renders word items for error messages; other kinds render their
// Go representation.
func (it Item) String() string {
	switch it.Kind {
	case KindWord:
		return it.Word
	case KindNumber:
		return strconv.FormatInt(it.Number, 10)
	case KindBytes:
		return string(it.Bytes)
	default:
		return "(list)"
	}
}

// Parser tokenizes a complete response buffer into a sequence of top-level
// Items (a single Recv may deliver several back-to-back groups).
type Parser struct {
	data []byte
	pos  int
}

// NewParser wraps data for parsing.
func NewParser(data []byte) *Parser {
	return &Parser{data: data}
}

// Done reports whether the parser has consumed the whole buffer (ignoring
// trailing whitespace).
func (p *Parser) Done() bool {
	p.skipSpace()
	return p.pos >= len(p.data)
}

// Next parses and returns the next top-level Item.
func (p *Parser) Next() (Item, error) {
	p.skipSpace()
	return p.parseItem()
}

func (p *Parser) skipSpace() {
	for p.pos < len(p.data) && isSpace(p.data[p.pos]) {
		p.pos++
	}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func (p *Parser) parseItem() (Item, error) {
	if p.pos >= len(p.data) {
		return Item{}, errors.New("svnproto: unexpected end of response")
	}
	c := p.data[p.pos]
	switch {
	case c == '(':
		return p.parseList()
	case isDigit(c):
		return p.parseDigitLeading()
	default:
		return p.parseWord()
	}
}

func (p *Parser) parseList() (Item, error) {
	p.pos++ // consume '('
	var items []Item
	for {
		p.skipSpace()
		if p.pos >= len(p.data) {
			return Item{}, errors.New("svnproto: unterminated list")
		}
		if p.data[p.pos] == ')' {
			p.pos++
			return Item{Kind: KindList, List: items}, nil
		}
		item, err := p.parseItem()
		if err != nil {
			return Item{}, err
		}
		items = append(items, item)
	}
}

func (p *Parser) parseDigitLeading() (Item, error) {
	start := p.pos
	for p.pos < len(p.data) && isDigit(p.data[p.pos]) {
		p.pos++
	}
	digits := string(p.data[start:p.pos])
	if p.pos < len(p.data) && p.data[p.pos] == ':' {
		n, err := strconv.Atoi(digits)
		if err != nil {
			return Item{}, errors.Wrap(err, "svnproto: malformed literal length")
		}
		p.pos++ // consume ':'
		if p.pos+n > len(p.data) {
			return Item{}, errors.New("svnproto: literal runs past end of buffer")
		}
		b := p.data[p.pos : p.pos+n]
		p.pos += n
		return Item{Kind: KindBytes, Bytes: b}, nil
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return Item{}, errors.Wrap(err, "svnproto: malformed number")
	}
	return Item{Kind: KindNumber, Number: n}, nil
}

func (p *Parser) parseWord() (Item, error) {
	start := p.pos
	for p.pos < len(p.data) && !isSpace(p.data[p.pos]) && p.data[p.pos] != '(' && p.data[p.pos] != ')' {
		p.pos++
	}
	if p.pos == start {
		return Item{}, errors.Errorf("svnproto: unexpected byte %q", p.data[p.pos])
	}
	return Item{Kind: KindWord, Word: string(p.data[start:p.pos])}, nil
}

// Unwrap checks a top-level "( success ( ...payload... ) )" or
// "( failure ( ( ... <message> ) ) )" response and returns the payload
// list, or an error built from the failure text.
func Unwrap(item Item) ([]Item, error) {
	if item.Kind != KindList || len(item.List) < 2 {
		return nil, errors.New("svnproto: malformed response envelope")
	}
	status := item.List[0]
	payload := item.List[1]
	if status.Kind != KindWord {
		return nil, errors.New("svnproto: malformed response status")
	}
	if status.Word == "success" {
		if payload.Kind != KindList {
			return nil, errors.New("svnproto: malformed success payload")
		}
		return payload.List, nil
	}
	return nil, errors.Errorf("svnproto: server reported failure: %s", describeFailure(payload))
}

func describeFailure(payload Item) string {
	var parts []string
	collectWords(payload, &parts)
	return strings.Join(parts, "; ")
}

func collectWords(item Item, out *[]string) {
	switch item.Kind {
	case KindBytes:
		if len(item.Bytes) > 0 {
			*out = append(*out, string(item.Bytes))
		}
	case KindList:
		for _, child := range item.List {
			collectWords(child, out)
		}
	}
}
