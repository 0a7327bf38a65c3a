package resolver

import (
	"os"
	"path/filepath"
	"strings"
)

func isAudioName(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, a := range AudioExtensions {
		if ext == a {
			return true
		}
	}
	return false
}

// overrideAudio returns the explicit audio file, or the file in the override
// directory sharing the animation's base name. It returns "" when the
// override is empty or designates nothing playable.
func overrideAudio(override, animation string) string {
	if override == "" {
		return ""
	}
	abs, err := filepath.Abs(override)
	if err != nil {
		return ""
	}
	info, err := os.Stat(abs)
	if err != nil {
		return ""
	}
	if !info.IsDir() {
		return abs
	}
	return sameBaseAudio(abs, baseName(animation))
}

// discoverAudio searches the animation's directory, then audio/ and sounds/,
// for a same-named audio file. Failing that it returns the single audio file
// present across those directories, or "" if there are none or several.
func discoverAudio(animation string) string {
	dir := filepath.Dir(animation)
	base := baseName(animation)

	dirs := []string{dir}
	for _, sub := range audioSubdirs {
		dirs = append(dirs, filepath.Join(dir, sub))
	}

	for _, d := range dirs {
		if a := sameBaseAudio(d, base); a != "" {
			return a
		}
	}

	var all []string
	for _, d := range dirs {
		all = append(all, audioFiles(d)...)
	}
	if len(all) == 1 {
		return all[0]
	}
	return ""
}

// sameBaseAudio returns the audio file in dir whose base name equals base,
// ignoring case, preferring extensions in AudioExtensions order.
func sameBaseAudio(dir, base string) string {
	byExt := make(map[string]string)
	for _, f := range audioFiles(dir) {
		if strings.EqualFold(baseName(f), base) {
			ext := strings.ToLower(filepath.Ext(f))
			if _, seen := byExt[ext]; !seen {
				byExt[ext] = f
			}
		}
	}
	for _, ext := range AudioExtensions {
		if f, ok := byExt[ext]; ok {
			return f
		}
	}
	return ""
}

func audioFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.Type().IsRegular() && isAudioName(e.Name()) {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out
}

func baseName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}
