package clipboard

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gabriel-vasile/mimetype"
	"github.com/microcosm-cc/bluemonday"
	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

var (
	// ErrUnsupportedFormat is returned for formats without a conversion
	ErrUnsupportedFormat = errors.New("unsupported clipboard format")
	// ErrNoContent is returned when the clipboard lacks the needed MIME type
	ErrNoContent = errors.New("clipboard has no content for format")
	// ErrBadPayload is returned for payloads that do not match their format
	ErrBadPayload = errors.New("malformed clipboard payload")
)

// MaxPayload bounds a single clipboard payload
const MaxPayload = 16 << 20

// Converter translates between desktop MIME content and viewer formats
type Converter struct {
	sanitizer *bluemonday.Policy
	detector  *chardet.Detector
	utf16     encoding.Encoding
}

// NewConverter creates a converter
func NewConverter() *Converter {
	return &Converter{
		sanitizer: bluemonday.UGCPolicy(),
		detector:  chardet.NewTextDetector(),
		utf16:     unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
	}
}

// ToViewer renders content in a viewer format
func (c *Converter) ToViewer(data Data, f Format) ([]byte, error) {
	switch f {
	case FormatText:
		text, ok := data[MIMEText]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNoContent, f)
		}
		out, err := charmap.Windows1252.NewEncoder().Bytes(text)
		if err != nil {
			// Characters outside the code page: substitute rather than fail.
			out, _ = encoding.ReplaceUnsupported(charmap.Windows1252.NewEncoder()).Bytes(text)
		}
		return append(out, 0), nil

	case FormatUnicode:
		text, ok := data[MIMEText]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNoContent, f)
		}
		out, err := c.utf16.NewEncoder().Bytes(text)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadPayload, err)
		}
		return append(out, 0, 0), nil

	case FormatHTML:
		html, ok := data[MIMEHTML]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNoContent, f)
		}
		return WrapHTML(c.sanitizer.SanitizeBytes(html)), nil

	case FormatPNG:
		img, ok := data[MIMEPNG]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNoContent, f)
		}
		return img, nil

	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedFormat, f)
	}
}

// FromViewer converts a viewer payload to desktop content
func (c *Converter) FromViewer(f Format, payload []byte) (Data, error) {
	if len(payload) > MaxPayload {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit", ErrBadPayload, len(payload))
	}
	switch f {
	case FormatText:
		text, err := c.decodeLegacy(bytes.TrimRight(payload, "\x00"))
		if err != nil {
			return nil, err
		}
		return Data{MIMEText: text}, nil

	case FormatUnicode:
		if len(payload)%2 != 0 {
			return nil, fmt.Errorf("%w: odd UTF-16 length %d", ErrBadPayload, len(payload))
		}
		text, err := c.utf16.NewDecoder().Bytes(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadPayload, err)
		}
		return Data{MIMEText: bytes.TrimRight(text, "\x00")}, nil

	case FormatHTML:
		fragment, err := UnwrapHTML(payload)
		if err != nil {
			return nil, err
		}
		clean := c.sanitizer.SanitizeBytes(fragment)
		data := Data{MIMEHTML: clean}
		if text := htmlText(clean); len(text) > 0 {
			data[MIMEText] = text
		}
		return data, nil

	case FormatPNG:
		if mt := mimetype.Detect(payload); !mt.Is(MIMEPNG) {
			return nil, fmt.Errorf("%w: expected PNG, got %s", ErrBadPayload, mt.String())
		}
		return Data{MIMEPNG: payload}, nil

	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedFormat, f)
	}
}

// htmlText is the visible text of an HTML fragment with whitespace collapsed,
// offered alongside the markup for viewers that only paste text
func htmlText(fragment []byte) []byte {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(fragment))
	if err != nil {
		return nil
	}
	return []byte(strings.Join(strings.Fields(doc.Text()), " "))
}

// decodeLegacy converts 8-bit text of unknown code page to UTF-8
func (c *Converter) decodeLegacy(text []byte) ([]byte, error) {
	name := "windows-1252"
	if res, err := c.detector.DetectBest(text); err == nil && res != nil && res.Confidence >= 50 {
		name = strings.ToLower(res.Charset)
	}
	enc, _ := charset.Lookup(name)
	if enc == nil {
		enc = charmap.Windows1252
	}
	out, err := enc.NewDecoder().Bytes(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadPayload, err)
	}
	return out, nil
}

const (
	startFragment = "<!--StartFragment-->"
	endFragment   = "<!--EndFragment-->"
	htmlHeader    = "Version:0.9\r\nStartHTML:%010d\r\nEndHTML:%010d\r\nStartFragment:%010d\r\nEndFragment:%010d\r\n"
)

// WrapHTML adds the fragment header viewers expect on HTML clipboard data
func WrapHTML(fragment []byte) []byte {
	headerLen := len(fmt.Sprintf(htmlHeader, 0, 0, 0, 0))
	prefix := "<html><body>" + startFragment
	suffix := endFragment + "</body></html>"

	startHTML := headerLen
	startFrag := startHTML + len(prefix)
	endFrag := startFrag + len(fragment)
	endHTML := endFrag + len(suffix)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, htmlHeader, startHTML, endHTML, startFrag, endFrag)
	buf.WriteString(prefix)
	buf.Write(fragment)
	buf.WriteString(suffix)
	return buf.Bytes()
}

var headerField = regexp.MustCompile(`(?m)^(StartFragment|EndFragment):(-?\d+)\r?$`)

// UnwrapHTML extracts the fragment from HTML clipboard data. Payloads
// without a header are returned as is.
func UnwrapHTML(payload []byte) ([]byte, error) {
	payload = bytes.TrimRight(payload, "\x00")
	if !bytes.HasPrefix(payload, []byte("Version:")) {
		return payload, nil
	}

	offsets := map[string]int{}
	for _, m := range headerField.FindAllSubmatch(payload, -1) {
		n, err := strconv.Atoi(string(m[2]))
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrBadPayload, m[0])
		}
		offsets[string(m[1])] = n
	}
	start, okStart := offsets["StartFragment"]
	end, okEnd := offsets["EndFragment"]
	if okStart && okEnd && 0 <= start && start <= end && end <= len(payload) {
		return payload[start:end], nil
	}

	// Fall back to the comment markers.
	i := bytes.Index(payload, []byte(startFragment))
	j := bytes.Index(payload, []byte(endFragment))
	if i < 0 || j < i {
		return nil, fmt.Errorf("%w: no fragment markers", ErrBadPayload)
	}
	return payload[i+len(startFragment) : j], nil
}
