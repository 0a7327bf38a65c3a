package resolver

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pepperlife/animcore/internal/timeline"
)

// File extensions understood by the resolver.
const (
	ExtQiAnim     = ".qianim"
	ExtXAR        = ".xar"
	ExtDescriptor = ".pml"
)

// AudioExtensions are tried in this order when several share a base name.
var AudioExtensions = []string{".wav", ".mp3", ".ogg"}

// audioSubdirs are searched after the animation's own directory.
var audioSubdirs = []string{"audio", "sounds"}

// sniffBytes is how much of a QiAnim file is read to decide JSON vs XML.
const sniffBytes = 512

// Source is a resolved animation: which parser to use, on which file, and
// which audio file (if any) accompanies it. It is immutable once built.
type Source struct {
	Format      timeline.Format
	PrimaryPath string

	// AudioPath is empty when the animation plays without sound.
	AudioPath string

	// DescriptorPath is set when the animation was found through a .pml.
	DescriptorPath string
}

// HasAudio reports whether an audio file accompanies the animation.
func (s Source) HasAudio() bool {
	return s.AudioPath != ""
}

// Resolve locates the animation designated by path.
//
// Parameters:
//   - path: File or directory
//   - audioOverride: Explicit audio file or directory, or ""
//
// Returns:
//   - Source: Resolved animation with absolute paths
//   - error: ErrNotFound, ErrUnsupported, or timeline.ErrParse for a
//     malformed descriptor (all wrapped)
func Resolve(path, audioOverride string) (Source, error) {
	if path == "" {
		return Source{}, fmt.Errorf("%w: empty path", ErrNotFound)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return Source{}, fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	var src Source
	info, statErr := os.Stat(abs)
	switch {
	case statErr == nil && info.IsDir():
		src, err = resolveDir(abs)
	case statErr == nil:
		src, err = resolveFile(abs)
	case errors.Is(statErr, fs.ErrNotExist):
		src, err = resolveBare(abs)
	default:
		err = fmt.Errorf("%w: %v", ErrNotFound, statErr)
	}
	if err != nil {
		return Source{}, err
	}

	if a := overrideAudio(audioOverride, src.PrimaryPath); a != "" {
		src.AudioPath = a
	} else if src.AudioPath == "" {
		src.AudioPath = discoverAudio(src.PrimaryPath)
	}
	return src, nil
}

func resolveDir(dir string) (Source, error) {
	if q := firstWithExt(dir, ExtQiAnim); q != "" {
		return qiAnimSource(q)
	}
	if pml := firstWithExt(dir, ExtDescriptor); pml != "" {
		return descriptorSource(pml)
	}
	if x := firstWithExt(dir, ExtXAR); x != "" {
		return Source{Format: timeline.FormatXAR, PrimaryPath: x}, nil
	}
	return Source{}, fmt.Errorf("%w: no %s, %s or %s in %s", ErrNotFound, ExtQiAnim, ExtDescriptor, ExtXAR, dir)
}

func resolveFile(path string) (Source, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ExtQiAnim:
		return qiAnimSource(path)
	case ExtXAR:
		return Source{Format: timeline.FormatXAR, PrimaryPath: path}, nil
	case ExtDescriptor:
		return descriptorSource(path)
	}
	// An existing extension-less file may still have animation siblings.
	if src, err := resolveBare(path); err == nil {
		return src, nil
	}
	return Source{}, fmt.Errorf("%w: %s", ErrUnsupported, path)
}

// resolveBare tries path.qianim, then path.xar.
func resolveBare(path string) (Source, error) {
	if isFile(path + ExtQiAnim) {
		return qiAnimSource(path + ExtQiAnim)
	}
	if isFile(path + ExtXAR) {
		return Source{Format: timeline.FormatXAR, PrimaryPath: path + ExtXAR}, nil
	}
	return Source{}, fmt.Errorf("%w: %s", ErrNotFound, path)
}

func qiAnimSource(path string) (Source, error) {
	f, err := os.Open(path) //nolint:gosec // caller-supplied animation path
	if err != nil {
		return Source{}, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	defer f.Close()

	head := make([]byte, sniffBytes)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return Source{}, fmt.Errorf("reading %s: %w", path, err)
	}

	return Source{Format: timeline.SniffFormat(head[:n]), PrimaryPath: path}, nil
}

// firstWithExt returns the first regular file in dir, in sorted order,
// whose extension matches ext case-insensitively.
func firstWithExt(dir, ext string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ext) {
			return filepath.Join(dir, e.Name())
		}
	}
	return ""
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
