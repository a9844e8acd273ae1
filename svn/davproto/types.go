// Package davproto implements spec §4.3's WebDAV encoder/decoder: request
// frames for OPTIONS/REPORT/PROPFIND/GET and the XML shapes those verbs
// come back as, modeled on backend/webdav/api/types.go's lazy propstat
// decoding.
package davproto

import "encoding/xml"

// UpdateReportMultistatus is the "D:multistatus" document an
// "!svn/me" update-report returns: one add-directory/add-file entry per
// tree node, in server-chosen order.
type UpdateReportMultistatus struct {
	XMLName     xml.Name   `xml:"multistatus"`
	Directories []AddEntry `xml:"update-report>add-directory"`
	Files       []AddEntry `xml:"update-report>add-file"`
	OpenDirs    []AddEntry `xml:"update-report>open-directory"`
}

// AddEntry is one add-directory/add-file element. Name is an attribute;
// Href and MD5 (md5-checksum) are child elements, as are SetProp/Size, which
// some servers inline when inline-props is advertised.
type AddEntry struct {
	Name    string    `xml:"name,attr"`
	Href    string    `xml:"href"`
	MD5     string    `xml:"md5-checksum"`
	SetProp []SetProp `xml:"set-prop"`
	Size    *int64    `xml:"size"`
}

// SetProp is an inlined property the server chose to include in the report
// body instead of requiring a follow-up PROPFIND.
type SetProp struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

// Executable reports whether this entry carries an inlined svn:executable
// property.
func (e AddEntry) Executable() bool {
	return e.hasProp("executable")
}

// Special reports whether this entry carries an inlined svn:special
// property.
func (e AddEntry) Special() bool {
	return e.hasProp("special")
}

func (e AddEntry) hasProp(name string) bool {
	for _, p := range e.SetProp {
		if p.Name == name {
			return true
		}
	}
	return false
}

// PropfindResponse is the lazy propstat decoding PROPFIND with Depth: 1
// returns for one href, grounded on backend/webdav/api.Prop.
type PropfindResponse struct {
	Href string          `xml:"href"`
	Prop PropfindPropSet `xml:"propstat>prop"`
}

// PropfindPropSet is the subset of DAV properties the reconciler needs when
// inline_props is false.
type PropfindPropSet struct {
	ContentLength int64     `xml:"getcontentlength"`
	Executable    *xml.Name `xml:"executable"`
	Special       *string   `xml:"special"`
}

// IsExecutable reports whether the PROPFIND response carried svn:executable.
func (p PropfindPropSet) IsExecutable() bool { return p.Executable != nil }

// IsSpecial reports whether the PROPFIND response carried svn:special.
func (p PropfindPropSet) IsSpecial() bool { return p.Special != nil }

// LogReportEntry is one "S:log-item" from a log-report response.
type LogReportEntry struct {
	Revision int64  `xml:"version,attr"`
	Author   string `xml:"creator-displayname"`
	Date     string `xml:"date"`
	Comment  string `xml:"comment"`
}

// LogReport is the top-level document a log-report REPORT returns.
type LogReport struct {
	XMLName xml.Name         `xml:"log-report"`
	Entries []LogReportEntry `xml:"log-item"`
}

// OptionsCapabilities is the set of repository facts extracted from an
// OPTIONS response's headers (not its body - kept here so callers have one
// place documenting the shape).
type OptionsCapabilities struct {
	YoungestRev    int64
	RepositoryRoot string
	RevRootStub    string
	InlineProps    bool
}
