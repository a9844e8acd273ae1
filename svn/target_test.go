package svn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTargetSVN(t *testing.T) {
	cfg, err := ParseTarget("svn://example.org/repo/trunk")
	require.NoError(t, err)
	assert.Equal(t, ProtocolSVN, cfg.Protocol)
	assert.Equal(t, "example.org", cfg.Address)
	assert.Equal(t, 3690, cfg.Port)
	assert.Equal(t, "repo/trunk", cfg.Branch)
}

func TestParseTargetHTTPSWithExplicitPort(t *testing.T) {
	cfg, err := ParseTarget("https://example.org:8443/repo/trunk")
	require.NoError(t, err)
	assert.Equal(t, ProtocolHTTPS, cfg.Protocol)
	assert.Equal(t, 8443, cfg.Port)
}

func TestParseTargetRejectsUnknownScheme(t *testing.T) {
	_, err := ParseTarget("ftp://example.org/repo")
	assert.Error(t, err)
}

func TestParseTargetRejectsMissingHost(t *testing.T) {
	_, err := ParseTarget("svn:///repo")
	assert.Error(t, err)
}

func TestDefaultPathTarget(t *testing.T) {
	assert.Equal(t, "trunk", DefaultPathTarget("repo/trunk"))
	assert.Equal(t, "trunk", DefaultPathTarget("repo/trunk/"))
	assert.Equal(t, "checkout", DefaultPathTarget(""))
}

func TestProtocolDefaultPortAndIsHTTP(t *testing.T) {
	assert.False(t, ProtocolSVN.IsHTTP())
	assert.True(t, ProtocolHTTP.IsHTTP())
	assert.True(t, ProtocolHTTPS.IsHTTP())
	assert.Equal(t, 80, ProtocolHTTP.DefaultPort())
}
