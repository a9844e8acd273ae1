package davproto

import (
	"encoding/xml"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// DecodeOptions extracts the repository facts an OPTIONS response carries
// in its headers, and whether it advertised inline-props.
func DecodeOptions(headers map[string]string) (OptionsCapabilities, error) {
	var caps OptionsCapabilities
	if v, ok := lookupHeader(headers, "SVN-Youngest-Rev"); ok {
		rev, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return caps, errors.Wrap(err, "parse SVN-Youngest-Rev")
		}
		caps.YoungestRev = rev
	}
	caps.RepositoryRoot, _ = lookupHeader(headers, "SVN-Repository-Root")
	caps.RevRootStub, _ = lookupHeader(headers, "SVN-Rev-Root-Stub")
	if v, ok := lookupHeader(headers, "DAV"); ok {
		caps.InlineProps = strings.Contains(v, "inline-props")
	}
	return caps, nil
}

func lookupHeader(headers map[string]string, name string) (string, bool) {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

// DecodeUpdateReport parses an update-report multistatus body.
func DecodeUpdateReport(body []byte) (*UpdateReportMultistatus, error) {
	var doc UpdateReportMultistatus
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, errors.Wrap(err, "decode update-report")
	}
	return &doc, nil
}

// DecodeLogReport parses a log-report body into commit entries.
func DecodeLogReport(body []byte) (*LogReport, error) {
	var doc LogReport
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, errors.Wrap(err, "decode log-report")
	}
	return &doc, nil
}

// DecodePercent restrictively percent-decodes an href: a '%' is only
// treated as an escape when followed by exactly two hex digits; any other
// '%' is left in the output untouched rather than rejected, matching the
// lenient treatment servers expect clients to apply to already-escaped
// paths that may contain a literal '%'.
func DecodePercent(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			b.WriteByte(hexByte(s[i+1], s[i+2]))
			i += 2
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isHex(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func hexVal(b byte) byte {
	switch {
	case b >= '0' && b <= '9':
		return b - '0'
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10
	default:
		return b - 'A' + 10
	}
}

func hexByte(hi, lo byte) byte {
	return hexVal(hi)<<4 | hexVal(lo)
}
