package resolver

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pepperlife/animcore/internal/timeline"
)

// Descriptor is what the resolver reads from a .pml package descriptor.
type Descriptor struct {
	// BehaviorPath is the referenced behavior graph, relative to the descriptor.
	BehaviorPath string

	// AudioPath is the first declared resource with an audio extension.
	AudioPath string
}

// ParseDescriptor reads a package descriptor.
//
// The behavior reference is the first "xar" attribute found (on the root or
// on any element such as BehaviorDescription). Audio comes from the first
// element whose "src" attribute names an audio file.
//
// Returns:
//   - Descriptor: Paths exactly as written in the document
//   - error: Wrapped timeline.ErrParse when the XML is malformed
func ParseDescriptor(r io.Reader) (Descriptor, error) {
	var d Descriptor
	dec := xml.NewDecoder(r)
	sawRoot := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Descriptor{}, fmt.Errorf("%w: descriptor: %v", timeline.ErrParse, err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		sawRoot = true
		for _, a := range start.Attr {
			v := strings.TrimSpace(a.Value)
			switch a.Name.Local {
			case "xar":
				if d.BehaviorPath == "" {
					d.BehaviorPath = v
				}
			case "src":
				if d.AudioPath == "" && isAudioName(v) {
					d.AudioPath = v
				}
			}
		}
	}
	if !sawRoot {
		return Descriptor{}, fmt.Errorf("%w: descriptor has no root element", timeline.ErrParse)
	}
	return d, nil
}

func descriptorSource(pml string) (Source, error) {
	f, err := os.Open(pml) //nolint:gosec // caller-supplied descriptor path
	if err != nil {
		return Source{}, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	defer f.Close()

	d, err := ParseDescriptor(f)
	if err != nil {
		return Source{}, fmt.Errorf("%s: %w", pml, err)
	}

	dir := filepath.Dir(pml)
	src := Source{Format: timeline.FormatXAR, DescriptorPath: pml}

	if d.BehaviorPath != "" {
		src.PrimaryPath = relativeTo(dir, d.BehaviorPath)
		if !isFile(src.PrimaryPath) {
			return Source{}, fmt.Errorf("%w: %s references missing %s", ErrNotFound, pml, d.BehaviorPath)
		}
	} else {
		src.PrimaryPath = firstWithExt(dir, ExtXAR)
		if src.PrimaryPath == "" {
			return Source{}, fmt.Errorf("%w: %s references no behavior and no %s is present", ErrNotFound, pml, ExtXAR)
		}
	}

	if d.AudioPath != "" {
		if a := relativeTo(dir, d.AudioPath); isFile(a) {
			src.AudioPath = a
		}
	}
	return src, nil
}

// relativeTo resolves a descriptor path; descriptors always use forward slashes.
func relativeTo(dir, p string) string {
	p = filepath.FromSlash(p)
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(dir, p)
}
