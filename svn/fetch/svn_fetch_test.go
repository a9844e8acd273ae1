package fetch

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svnup/svnup/svn"
	"github.com/svnup/svnup/svn/catalog"
	"github.com/svnup/svnup/svn/retry"
	"github.com/svnup/svnup/svn/wire"
)

// fakeStream hands back one fixed response per Recv call, the same shape
// svn/wire's and svn/walker's test fakes use.
type fakeStream struct {
	responses [][]byte
	idx       int
}

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

const ack = "( success ( ( ) 0: ) ) "

func bodyReply(body string) string {
	return fmt.Sprintf("%s( success ( %d:%s ) ) ", ack, len(body), body)
}

func metaReply(md5, props string) string {
	return fmt.Sprintf("%s( success ( 42 32:%s ( %s ) ) ) ", ack, md5, props)
}

// TestSVNFetcherBodyPassWritesVerifiedFiles drives a two-file body batch:
// both bodies arrive in one Recv, get MD5-verified and land on disk, and the
// progress callback sees every payload byte.
func TestSVNFetcherBodyPassWritesVerifiedFiles(t *testing.T) {
	first := "hello world!"
	second := "#!/bin/sh\n"
	raw := bodyReply(first) + bodyReply(second)

	stream := &fakeStream{responses: [][]byte{[]byte(raw)}}
	f := NewSVNFetcher(wire.NewSVNAssembler(stream, retry.New()))

	cfg := &svn.Config{Revision: 42, PathTarget: t.TempDir()}
	entries := []*svn.FileEntry{
		{Path: "a.txt", MD5: md5Hex([]byte(first)), Download: true},
		{Path: "bin/run.sh", MD5: md5Hex([]byte(second)), Download: true, Executable: true},
		{Path: "skip.txt", MD5: "dddddddddddddddddddddddddddddddd", Download: false},
	}

	var got int64
	require.NoError(t, f.BodyPass(cfg, entries, func(n int64) { got += n }))

	data, err := os.ReadFile(filepath.Join(cfg.PathTarget, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, first, string(data))
	assert.FileExists(t, filepath.Join(cfg.PathTarget, "bin", "run.sh"))
	assert.NoFileExists(t, filepath.Join(cfg.PathTarget, "skip.txt"))
	assert.Equal(t, int64(len(first)+len(second)), got)
}

// TestSVNFetcherBodyPassConcatenatesContinuationLiterals feeds a body split
// into a full 4096-byte literal plus a remainder, the way servers stream
// files larger than one block.
func TestSVNFetcherBodyPassConcatenatesContinuationLiterals(t *testing.T) {
	block := make([]byte, 4096)
	for i := range block {
		block[i] = byte('a' + i%26)
	}
	tail := "the end"
	full := append(append([]byte(nil), block...), tail...)

	raw := fmt.Sprintf("%s( success ( 4096:%s %d:%s ) ) ", ack, block, len(tail), tail)
	stream := &fakeStream{responses: [][]byte{[]byte(raw)}}
	f := NewSVNFetcher(wire.NewSVNAssembler(stream, retry.New()))

	cfg := &svn.Config{Revision: 42, PathTarget: t.TempDir()}
	e := &svn.FileEntry{Path: "big.txt", MD5: md5Hex(full), Download: true}

	require.NoError(t, f.BodyPass(cfg, []*svn.FileEntry{e}, nil))
	data, err := os.ReadFile(filepath.Join(cfg.PathTarget, "big.txt"))
	require.NoError(t, err)
	assert.Equal(t, full, data)
}

// TestSVNFetcherAttributesPassFillsMD5AndReconciles checks the metadata
// batch fills MD5/mode bits and that the follow-up reconciliation downgrades
// a manifest match to Download=false while keeping a changed file download.
func TestSVNFetcherAttributesPassFillsMD5AndReconciles(t *testing.T) {
	knownMD5 := "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	newMD5 := "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	raw := metaReply(knownMD5, "( 14:svn:executable 1:* )") + metaReply(newMD5, "")

	stream := &fakeStream{responses: [][]byte{[]byte(raw)}}
	f := NewSVNFetcher(wire.NewSVNAssembler(stream, retry.New()))

	cat := catalog.New()
	cat.KnownFiles["same.sh"] = knownMD5
	cat.KnownFiles["changed.txt"] = "cccccccccccccccccccccccccccccccc"

	entries := []*svn.FileEntry{
		{Path: "same.sh"},
		{Path: "changed.txt"},
	}
	cfg := &svn.Config{Revision: 42}
	require.NoError(t, f.AttributesPass(cfg, cat, entries))

	assert.Equal(t, knownMD5, entries[0].MD5)
	assert.True(t, entries[0].Executable)
	assert.False(t, entries[0].Download, "manifest MD5 matches, nothing to fetch")

	assert.Equal(t, newMD5, entries[1].MD5)
	assert.True(t, entries[1].Download, "manifest MD5 differs, refetch")
}
