package timeline

import (
	"bytes"
	"unicode"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// SniffFormat inspects the first non-whitespace byte of a QiAnim document.
//
// Returns:
//   - FormatQiAnimJSON for '{' or '['
//   - FormatQiAnimXML for '<'
//   - FormatUnknown otherwise (callers try JSON, then XML)
func SniffFormat(data []byte) Format {
	data = bytes.TrimPrefix(data, utf8BOM)
	data = bytes.TrimLeftFunc(data, unicode.IsSpace)
	if len(data) == 0 {
		return FormatUnknown
	}
	switch data[0] {
	case '{', '[':
		return FormatQiAnimJSON
	case '<':
		return FormatQiAnimXML
	default:
		return FormatUnknown
	}
}
