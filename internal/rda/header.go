// Package rda reads the textual metadata Siemens spectroscopy exports
// carry: the key/value header block of .rda files and the series encoded
// in TWIX .dat filenames. The binary payload is never interpreted.
package rda

import (
	"bytes"
	"regexp"
	"strings"
)

const (
	headerBegin = ">>> Begin of header <<<"
	headerEnd   = ">>> End of header <<<"
)

// Header keys used for XNAT identity derivation.
const (
	KeyStudyDescription  = "StudyDescription"
	KeyPatientName       = "PatientName"
	KeyPatientID         = "PatientID"
	KeySeriesNumber      = "SeriesNumber"
	KeySeriesDescription = "SeriesDescription"
	KeyStudyDate         = "StudyDate"
)

// A Header is the parsed key/value block of an RDA file.
type Header map[string]string

// ParseHeader extracts the header block of an RDA file.
// It returns an empty Header when the markers are missing.
func ParseHeader(raw []byte) Header {
	hdr := Header{}

	s := bytes.Index(raw, []byte(headerBegin))
	e := bytes.Index(raw, []byte(headerEnd))
	if s == -1 || e == -1 || e < s {
		return hdr
	}

	// Siemens headers are latin-1 encoded.
	txt := decodeLatin1(raw[s+len(headerBegin) : e])

	for _, line := range strings.Split(txt, "\n") {
		k, v, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		hdr[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return hdr
}

var nonword = regexp.MustCompile(`\W+`)

// Sanitize turns a header value into an XNAT-safe identifier.
func Sanitize(s string) string {
	return strings.Trim(nonword.ReplaceAllString(strings.TrimSpace(s), "_"), "_")
}

// decodeLatin1 maps each byte to its equal Unicode code point.
func decodeLatin1(raw []byte) string {
	runes := make([]rune, len(raw))
	for i, b := range raw {
		runes[i] = rune(b)
	}
	return string(runes)
}
