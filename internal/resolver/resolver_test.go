package resolver

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pepperlife/animcore/internal/timeline"
)

const (
	qianimJSON = `{"actuators":[{"name":"HeadYaw","keys":[[0.5,0.1]]}]}`
	qianimXML  = `<Animation><ActuatorCurve actuator="HeadYaw"><Key time="1" angle="0"/></ActuatorCurve></Animation>`
	behavior   = `<ChoregrapheProject/>`
)

// tree creates files under a fresh temp dir and returns its path.
func tree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func TestResolve_DirectoryPrefersQiAnim(t *testing.T) {
	dir := tree(t, map[string]string{
		"anim.qianim":  qianimJSON,
		"behavior.pml": `<Package><BehaviorDescriptions><BehaviorDescription xar="behavior.xar"/></BehaviorDescriptions></Package>`,
		"behavior.xar": behavior,
	})

	src, err := Resolve(dir, "")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if src.Format != timeline.FormatQiAnimJSON {
		t.Errorf("Format = %v, want qianim-json", src.Format)
	}
	if filepath.Base(src.PrimaryPath) != "anim.qianim" {
		t.Errorf("PrimaryPath = %s, want anim.qianim", src.PrimaryPath)
	}
}

func TestResolve_DirectoryQiAnimSortedAndSniffed(t *testing.T) {
	dir := tree(t, map[string]string{
		"b.qianim": qianimJSON,
		"a.qianim": "\n  " + qianimXML,
	})
	src, err := Resolve(dir, "")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if filepath.Base(src.PrimaryPath) != "a.qianim" || src.Format != timeline.FormatQiAnimXML {
		t.Errorf("got %s (%v), want a.qianim as XML", src.PrimaryPath, src.Format)
	}
}

func TestResolve_Descriptor(t *testing.T) {
	dir := tree(t, map[string]string{
		"dance.pml": `<?xml version="1.0" encoding="UTF-8"?>
<Package name="dance" format_version="4">
  <BehaviorDescriptions>
    <BehaviorDescription name="behavior" src="behavior_1" xar="behavior_1/behavior.xar"/>
  </BehaviorDescriptions>
  <Resources>
    <File name="icon" src="icon.png"/>
    <File name="song" src="media/song.ogg"/>
  </Resources>
</Package>`,
		"behavior_1/behavior.xar": behavior,
		"media/song.ogg":          "ogg",
		"other.xar":               behavior,
	})

	src, err := Resolve(dir, "")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if src.Format != timeline.FormatXAR {
		t.Errorf("Format = %v, want xar", src.Format)
	}
	if want := filepath.Join(dir, "behavior_1", "behavior.xar"); src.PrimaryPath != want {
		t.Errorf("PrimaryPath = %s, want %s", src.PrimaryPath, want)
	}
	if want := filepath.Join(dir, "media", "song.ogg"); src.AudioPath != want {
		t.Errorf("AudioPath = %s, want %s", src.AudioPath, want)
	}
	if filepath.Base(src.DescriptorPath) != "dance.pml" {
		t.Errorf("DescriptorPath = %s", src.DescriptorPath)
	}
}

func TestResolve_DescriptorRootAttribute(t *testing.T) {
	dir := tree(t, map[string]string{
		"pkg.pml":  `<Package xar="main.xar"/>`,
		"main.xar": behavior,
		"a.xar":    behavior,
	})
	src, err := Resolve(filepath.Join(dir, "pkg.pml"), "")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if filepath.Base(src.PrimaryPath) != "main.xar" {
		t.Errorf("PrimaryPath = %s, want main.xar", src.PrimaryPath)
	}
}

func TestResolve_DescriptorWithoutReferenceFallsBack(t *testing.T) {
	dir := tree(t, map[string]string{
		"pkg.pml":   `<Package><Resources/></Package>`,
		"zeta.xar":  behavior,
		"alpha.xar": behavior,
	})
	src, err := Resolve(dir, "")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if filepath.Base(src.PrimaryPath) != "alpha.xar" {
		t.Errorf("PrimaryPath = %s, want alpha.xar", src.PrimaryPath)
	}
}

func TestResolve_DescriptorErrors(t *testing.T) {
	tests := []struct {
		name    string
		files   map[string]string
		wantErr error
	}{
		{"malformed", map[string]string{"pkg.pml": `<Package><Behavior xar="a.xar">`}, timeline.ErrParse},
		{"empty", map[string]string{"pkg.pml": ``}, timeline.ErrParse},
		{"missing reference target", map[string]string{"pkg.pml": `<Package xar="gone.xar"/>`}, ErrNotFound},
		{"no reference and no xar", map[string]string{"pkg.pml": `<Package/>`}, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tree(t, tt.files), "")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Resolve() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestResolve_BareBehaviorDirectory(t *testing.T) {
	dir := tree(t, map[string]string{"only.xar": behavior, "notes.txt": "x"})
	src, err := Resolve(dir, "")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if src.Format != timeline.FormatXAR || filepath.Base(src.PrimaryPath) != "only.xar" {
		t.Errorf("got %+v", src)
	}
}

func TestResolve_NotFound(t *testing.T) {
	tests := []struct {
		name string
		path func(dir string) string
	}{
		{"empty directory", func(dir string) string { return dir }},
		{"missing file", func(dir string) string { return filepath.Join(dir, "nope.qianim") }},
		{"missing bare name", func(dir string) string { return filepath.Join(dir, "nope") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.path(t.TempDir()), "")
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("Resolve() error = %v, want ErrNotFound", err)
			}
		})
	}

	if _, err := Resolve("", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("Resolve(\"\") error = %v, want ErrNotFound", err)
	}
}

func TestResolve_FileDispatch(t *testing.T) {
	dir := tree(t, map[string]string{
		"wave.QIANIM":  qianimJSON,
		"bow.xar":      behavior,
		"readme.txt":   "hi",
		"greet.qianim": qianimXML,
	})

	tests := []struct {
		path string
		want timeline.Format
	}{
		{"wave.QIANIM", timeline.FormatQiAnimJSON},
		{"bow.xar", timeline.FormatXAR},
		{"greet", timeline.FormatQiAnimXML},
		{"bow", timeline.FormatXAR},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			src, err := Resolve(filepath.Join(dir, tt.path), "")
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if src.Format != tt.want {
				t.Errorf("Format = %v, want %v", src.Format, tt.want)
			}
		})
	}

	if _, err := Resolve(filepath.Join(dir, "readme.txt"), ""); !errors.Is(err, ErrUnsupported) {
		t.Errorf("readme.txt error = %v, want ErrUnsupported", err)
	}
}

func TestResolve_AudioDiscovery(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		want  string
	}{
		{"same name same dir", map[string]string{"wave.qianim": qianimJSON, "wave.mp3": "a"}, "wave.mp3"},
		{"case-insensitive", map[string]string{"wave.qianim": qianimJSON, "WAVE.OGG": "a"}, "WAVE.OGG"},
		{"extension preference", map[string]string{"wave.qianim": qianimJSON, "wave.ogg": "a", "wave.wav": "b"}, "wave.wav"},
		{"audio subdir", map[string]string{"wave.qianim": qianimJSON, "audio/wave.wav": "a"}, "audio/wave.wav"},
		{"sounds subdir", map[string]string{"wave.qianim": qianimJSON, "sounds/wave.ogg": "a"}, "sounds/wave.ogg"},
		{"same dir beats subdir", map[string]string{"wave.qianim": qianimJSON, "wave.ogg": "a", "audio/wave.wav": "b"}, "wave.ogg"},
		{"single unrelated file", map[string]string{"wave.qianim": qianimJSON, "sounds/music.mp3": "a"}, "sounds/music.mp3"},
		{"ambiguous unrelated files", map[string]string{"wave.qianim": qianimJSON, "a.mp3": "a", "audio/b.wav": "b"}, ""},
		{"no audio", map[string]string{"wave.qianim": qianimJSON, "wave.txt": "a"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := tree(t, tt.files)
			src, err := Resolve(filepath.Join(dir, "wave.qianim"), "")
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			want := ""
			if tt.want != "" {
				want = filepath.Join(dir, filepath.FromSlash(tt.want))
			}
			if src.AudioPath != want {
				t.Errorf("AudioPath = %q, want %q", src.AudioPath, want)
			}
			if src.HasAudio() != (want != "") {
				t.Errorf("HasAudio() = %v", src.HasAudio())
			}
		})
	}
}

func TestResolve_AudioOverride(t *testing.T) {
	dir := tree(t, map[string]string{
		"wave.qianim":        qianimJSON,
		"wave.mp3":           "discovered",
		"custom/track.wav":   "explicit",
		"library/WAVE.ogg":   "by name",
		"library/other.wav":  "other",
		"emptylib/other.wav": "other",
	})
	anim := filepath.Join(dir, "wave.qianim")

	tests := []struct {
		name     string
		override string
		want     string
	}{
		{"explicit file", filepath.Join(dir, "custom", "track.wav"), filepath.Join(dir, "custom", "track.wav")},
		{"directory with same name", filepath.Join(dir, "library"), filepath.Join(dir, "library", "WAVE.ogg")},
		{"directory without match falls back", filepath.Join(dir, "emptylib"), filepath.Join(dir, "wave.mp3")},
		{"missing override falls back", filepath.Join(dir, "missing.wav"), filepath.Join(dir, "wave.mp3")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := Resolve(anim, tt.override)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if src.AudioPath != tt.want {
				t.Errorf("AudioPath = %q, want %q", src.AudioPath, tt.want)
			}
		})
	}
}

func TestParseDescriptor(t *testing.T) {
	d, err := ParseDescriptor(strings.NewReader(`<Package>
	  <Resources><File src="img/a.png"/><File src=" track.MP3 "/></Resources>
	  <BehaviorDescriptions><BehaviorDescription xar="b.xar"/></BehaviorDescriptions>
	</Package>`))
	if err != nil {
		t.Fatalf("ParseDescriptor() error = %v", err)
	}
	if d.BehaviorPath != "b.xar" || d.AudioPath != "track.MP3" {
		t.Errorf("Descriptor = %+v", d)
	}
}
