package render

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svnup/svnup/svn"
)

func TestSanitizeDate(t *testing.T) {
	got := SanitizeDate("2020-11-10T09:23:51.711212Z")
	assert.Equal(t, "2020-11-10 09:23:51", got)
}

func TestInfoWithCommit(t *testing.T) {
	var buf bytes.Buffer
	commit := svn.CommitInfo{Author: "jdoe", Date: "2020-11-10T09:23:51.711212Z", Log: "fix bug"}

	require.NoError(t, Info(&buf, 42, commit))

	out := buf.String()
	assert.Contains(t, out, "Revision: 42\n")
	assert.Contains(t, out, "Last Changed Author: jdoe\n")
	assert.Contains(t, out, "Last Changed Rev: 42\n")
	assert.Contains(t, out, "Last Changed Date: 2020-11-10 09:23:51 +0000\n")
}

func TestInfoEmptyRevisionOmitsLastChangedFields(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, Info(&buf, 7, svn.CommitInfo{}))

	out := buf.String()
	assert.Equal(t, "Revision: 7\n", out)
}

func TestLogWithCommit(t *testing.T) {
	var buf bytes.Buffer
	commit := svn.CommitInfo{Author: "jdoe", Date: "2020-11-10T09:23:51.711212Z", Log: "fix bug"}

	require.NoError(t, Log(&buf, 42, commit))

	out := buf.String()
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte(separator)), "separator always comes first")
	assert.Contains(t, out, "r42 | jdoe | 2020-11-10 09:23:51 |")
	assert.Contains(t, out, "fix bug")
}

func TestLogEmptyRevisionOnlyPrintsSeparator(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, Log(&buf, 7, svn.CommitInfo{}))

	assert.Equal(t, separator+"\n", buf.String())
}
