package timeline

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// xmlNode is a namespace-agnostic element tree. Choregraphe documents nest
// curves at arbitrary depth, so a fixed struct layout does not fit them.
type xmlNode struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []xmlNode  `xml:",any"`
}

func decodeXML(data []byte) (*xmlNode, error) {
	dec := xml.NewDecoder(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	dec.CharsetReader = charsetReader

	var root xmlNode
	if err := dec.Decode(&root); err != nil {
		return nil, err
	}
	return &root, nil
}

// charsetReader accepts the declarations Choregraphe and hand-edited files use.
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(charset) {
	case "utf-8", "utf8", "us-ascii", "ascii":
		return input, nil
	case "iso-8859-1", "latin1", "latin-1":
		raw, err := io.ReadAll(input)
		if err != nil {
			return nil, err
		}
		buf := make([]byte, 0, len(raw)*2)
		for _, b := range raw {
			buf = utf8.AppendRune(buf, rune(b))
		}
		return bytes.NewReader(buf), nil
	default:
		return nil, fmt.Errorf("unsupported charset %q", charset)
	}
}

func (n *xmlNode) name() string {
	return n.XMLName.Local
}

// attr returns the value of the first attribute with the given local name,
// whatever its namespace prefix.
func (n *xmlNode) attr(local string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

// children returns the direct children with the given local name.
func (n *xmlNode) children(local string) []*xmlNode {
	var out []*xmlNode
	for i := range n.Children {
		if n.Children[i].name() == local {
			out = append(out, &n.Children[i])
		}
	}
	return out
}

// find returns every descendant (including n) with the given local name,
// in document order.
func (n *xmlNode) find(local string) []*xmlNode {
	var out []*xmlNode
	n.walk(func(c *xmlNode) {
		if c.name() == local {
			out = append(out, c)
		}
	})
	return out
}

func (n *xmlNode) walk(fn func(*xmlNode)) {
	fn(n)
	for i := range n.Children {
		n.Children[i].walk(fn)
	}
}
