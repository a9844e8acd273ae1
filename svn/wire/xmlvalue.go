package wire

import "strings"

// ExtractTagValue implements the "minimally scoped XML value extractor"
// Design Note: return the text between the first occurrence of <tag...>
// and the next </tag>. This is sufficient for the well-formed responses SVN
// servers emit and is used for the assembler's courtesy error extraction
// (m:human-readable); svn/davproto decodes its documents with encoding/xml
// instead. Mirrors parse_xml_value in the original source.
func ExtractTagValue(data []byte, tag string) (string, bool) {
	s := string(data)
	open := "<" + tag
	i := strings.Index(s, open)
	if i < 0 {
		return "", false
	}
	gt := strings.IndexByte(s[i:], '>')
	if gt < 0 {
		return "", false
	}
	contentStart := i + gt + 1
	close := "</" + tag + ">"
	j := strings.Index(s[contentStart:], close)
	if j < 0 {
		return "", false
	}
	return s[contentStart : contentStart+j], true
}
