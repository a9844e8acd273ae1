package svn

import (
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// ParseTarget turns a svn://, http:// or https:// URL into a Config with
// Protocol, Address, Port and Branch filled in (everything else is the
// caller's to set: Job, Revision, PathTarget/PathWork, Verbosity...).
func ParseTarget(raw string) (*Config, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "parse target %q", raw)
	}

	var proto Protocol
	switch strings.ToLower(u.Scheme) {
	case "svn":
		proto = ProtocolSVN
	case "http":
		proto = ProtocolHTTP
	case "https":
		proto = ProtocolHTTPS
	default:
		return nil, errors.Errorf("unsupported scheme %q", u.Scheme)
	}

	cfg := &Config{
		Protocol: proto,
		Address:  u.Hostname(),
		Branch:   strings.TrimPrefix(u.Path, "/"),
	}
	if cfg.Address == "" {
		return nil, errors.Errorf("target %q has no host", raw)
	}
	if p := u.Port(); p != "" {
		n := 0
		for _, c := range p {
			if c < '0' || c > '9' {
				return nil, errors.Errorf("invalid port %q", p)
			}
			n = n*10 + int(c-'0')
		}
		cfg.Port = n
	} else {
		cfg.Port = proto.DefaultPort()
	}
	return cfg, nil
}

// DefaultPathTarget derives the local checkout directory from the branch,
// matching basename(branch) in the reference client.
func DefaultPathTarget(branch string) string {
	trimmed := strings.TrimRight(branch, "/")
	if i := strings.LastIndexByte(trimmed, '/'); i >= 0 {
		trimmed = trimmed[i+1:]
	}
	if trimmed == "" {
		trimmed = "checkout"
	}
	return trimmed
}
