// Package clipboard negotiates clipboard formats with viewers and converts
// payloads between the desktop's MIME map and viewer format encodings.
//
// The desktop side holds clipboard content as a MIME type → bytes map
// (text/plain, text/html, image/png). Viewers exchange numbered formats:
// legacy 8-bit text, UTF-16LE text, HTML with a fragment header and PNG.
package clipboard

import (
	"slices"
	"strings"

	"github.com/GriffinCanCode/rdesk/internal/protocol"
)

// Format is a viewer clipboard format id
type Format uint32

const (
	FormatText    Format = 1
	FormatUnicode Format = 13
	FormatHTML    Format = 0xD010
	FormatPNG     Format = 0xD011
)

// MIME types of the desktop clipboard
const (
	MIMEText = "text/plain"
	MIMEHTML = "text/html"
	MIMEPNG  = "image/png"
)

// String returns the registered name of the format
func (f Format) String() string {
	switch f {
	case FormatText:
		return "CF_TEXT"
	case FormatUnicode:
		return "CF_UNICODETEXT"
	case FormatHTML:
		return "HTML Format"
	case FormatPNG:
		return "PNG"
	default:
		return "unknown"
	}
}

// preference orders formats from richest to plainest
var preference = []Format{FormatHTML, FormatUnicode, FormatText, FormatPNG}

// Known reports whether the format can be converted
func Known(f Format) bool {
	return slices.Contains(preference, f)
}

// Best picks the richest convertible format from an offered list
func Best(offered []Format) (Format, bool) {
	for _, f := range preference {
		if slices.Contains(offered, f) {
			return f, true
		}
	}
	return 0, false
}

// Data is the desktop clipboard content keyed by MIME type
type Data map[string][]byte

// Clone returns an independent copy
func (d Data) Clone() Data {
	out := make(Data, len(d))
	for k, v := range d {
		out[k] = slices.Clone(v)
	}
	return out
}

// Formats lists the viewer formats the content can be offered as
func (d Data) Formats() []Format {
	var out []Format
	if _, ok := d[MIMEHTML]; ok {
		out = append(out, FormatHTML)
	}
	if _, ok := d[MIMEText]; ok {
		out = append(out, FormatUnicode, FormatText)
	}
	if _, ok := d[MIMEPNG]; ok {
		out = append(out, FormatPNG)
	}
	return out
}

// Wire converts formats to their protocol form
func Wire(formats []Format) []protocol.ClipboardFormat {
	out := make([]protocol.ClipboardFormat, len(formats))
	for i, f := range formats {
		out[i] = protocol.ClipboardFormat{ID: uint32(f)}
		if f >= 0xC000 {
			out[i].Name = f.String()
		}
	}
	return out
}

// FromWire converts a protocol format list, resolving registered formats by name
func FromWire(formats []protocol.ClipboardFormat) []Format {
	out := make([]Format, 0, len(formats))
	for _, f := range formats {
		switch {
		case strings.EqualFold(f.Name, FormatHTML.String()):
			out = append(out, FormatHTML)
		case strings.EqualFold(f.Name, FormatPNG.String()):
			out = append(out, FormatPNG)
		default:
			out = append(out, Format(f.ID))
		}
	}
	return out
}
