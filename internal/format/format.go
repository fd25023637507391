// Package format implements the format registry: the catalog of known file
// formats, lookup by name/extension/content-sniff, and the child-format
// viewer/editor inheritance rule.
package format

import (
	"runtime"
	"sort"
	"strings"
	"unicode"
)

// Flag is a bit in a Format's flag set.
type Flag int

const (
	// FlagDocument marks the format as the host's native document format.
	FlagDocument Flag = 1 << iota
	// FlagVector marks vector graphics formats.
	FlagVector
	// FlagInExportMenu marks formats that should be offered in an export menu.
	FlagInExportMenu
	// FlagZippedNative marks formats whose native encoding is itself a zip container.
	FlagZippedNative
)

// AutoOpen is the sentinel command string meaning "let the OS file
// association open this", mirroring the original implementation's "auto".
const AutoOpen = "auto"

// Format is a named class of files: one or more extensions, a pretty name,
// and optional viewer/editor commands.
type Format struct {
	Name       string
	Extensions []string
	Pretty     string
	Shortcut   string
	Viewer     string
	Editor     string
	MIME       string
	Flags      Flag
}

// PrimaryExtension returns extensions[0], or "" if the format has none.
func (f Format) PrimaryExtension() string {
	if len(f.Extensions) == 0 {
		return ""
	}
	return f.Extensions[0]
}

// HasFlag reports whether f carries the given flag.
func (f Format) HasFlag(flag Flag) bool { return f.Flags&flag != 0 }

// IsChild reports whether name ends in an ASCII digit, e.g. "pdf6" is a
// child of "pdf". Child formats inherit their parent's viewer/editor
// whenever their own are unset.
func IsChild(name string) bool {
	if name == "" {
		return false
	}
	last := rune(name[len(name)-1])
	return last >= '0' && last <= '9'
}

// ParentName strips the trailing ASCII digit, returning "" if name is not a
// child format.
func ParentName(name string) string {
	if !IsChild(name) {
		return ""
	}
	return name[:len(name)-1]
}

// Registry is the format catalog. The zero value is not usable; use New.
type Registry struct {
	byName map[string]*Format
	order  []string // insertion order, for stable iteration before Sorted()
}

// New returns an empty format registry.
func New() *Registry {
	return &Registry{byName: make(map[string]*Format)}
}

// Add inserts or overwrites a format of the given name.
func (r *Registry) Add(f Format) {
	if _, exists := r.byName[f.Name]; !exists {
		r.order = append(r.order, f.Name)
	}
	stored := f
	r.byName[f.Name] = &stored
}

// Erase removes a format by name. It is a no-op if the format is unknown.
func (r *Registry) Erase(name string) {
	if _, ok := r.byName[name]; !ok {
		return
	}
	delete(r.byName, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Get looks up a format by exact name.
func (r *Registry) Get(name string) (Format, bool) {
	f, ok := r.byName[name]
	if !ok {
		return Format{}, false
	}
	return *f, true
}

// Len returns the number of registered formats.
func (r *Registry) Len() int { return len(r.order) }

// Names returns format names in registration order; vertex indices in the
// converter graph correspond to positions in this slice at build time.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// extMatch compares extensions using the filesystem's case sensitivity:
// case-sensitive everywhere except Windows/macOS default filesystems.
func extMatch(a, b string) bool {
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		return strings.EqualFold(a, b)
	}
	return a == b
}

// GetFromExtension returns the first-registered format whose extension list
// contains ext (extension comparison honors filesystem case sensitivity).
func (r *Registry) GetFromExtension(ext string) (Format, bool) {
	for _, name := range r.order {
		f := r.byName[name]
		for _, e := range f.Extensions {
			if extMatch(e, ext) {
				return *f, true
			}
		}
	}
	return Format{}, false
}

// GetFromFile guesses the format of a file: content-sniff first, extension
// lookup as fallback. It returns the format name, or "" if nothing matched.
func (r *Registry) GetFromFile(path string, sniff func(path string) string) string {
	if sniff != nil {
		if name := sniff(path); name != "" {
			if _, ok := r.byName[name]; ok {
				return name
			}
		}
	}
	ext := strings.TrimPrefix(extOf(path), ".")
	if f, ok := r.GetFromExtension(ext); ok {
		return f.Name
	}
	return ""
}

func extOf(path string) string {
	i := strings.LastIndexByte(path, '.')
	slash := strings.LastIndexAny(path, `/\`)
	if i <= slash {
		return ""
	}
	return path[i:]
}

// SetAutoOpen sets Viewer/Editor to the AutoOpen sentinel for every format
// the host reports the OS can auto-open, and clears any stale sentinel for
// formats the OS no longer auto-opens. canAutoOpen is supplied by the host;
// it is a collaborator because "can the OS open this extension" is platform
// policy, not something this registry can determine on its own.
func (r *Registry) SetAutoOpen(canAutoOpen func(ext string) bool) {
	for _, name := range r.order {
		f := r.byName[name]
		ext := f.PrimaryExtension()
		if canAutoOpen(ext) {
			f.Viewer = AutoOpen
			f.Editor = AutoOpen
			continue
		}
		if f.Viewer == AutoOpen {
			f.Viewer = ""
		}
		if f.Editor == AutoOpen {
			f.Editor = ""
		}
	}
}

// ResolveViewer returns f's viewer command, falling back to the parent
// format's viewer when f is a child format with no viewer of its own.
func (r *Registry) ResolveViewer(name string) string {
	f, ok := r.byName[name]
	if !ok {
		return ""
	}
	if f.Viewer != "" || !IsChild(name) {
		return f.Viewer
	}
	if parent, ok := r.byName[ParentName(name)]; ok {
		return parent.Viewer
	}
	return ""
}

// ResolveEditor mirrors ResolveViewer for the editor command.
func (r *Registry) ResolveEditor(name string) string {
	f, ok := r.byName[name]
	if !ok {
		return ""
	}
	if f.Editor != "" || !IsChild(name) {
		return f.Editor
	}
	if parent, ok := r.byName[ParentName(name)]; ok {
		return parent.Editor
	}
	return ""
}

// Sorted returns formats ordered by pretty name, ASCII case-insensitively,
// matching the registry's display order in list/matrix commands.
func (r *Registry) Sorted() []Format {
	out := make([]Format, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, *r.byName[name])
	}
	sort.Slice(out, func(i, j int) bool {
		return lowerASCII(out[i].Pretty) < lowerASCII(out[j].Pretty)
	})
	return out
}

func lowerASCII(s string) string {
	return strings.Map(func(r rune) rune {
		if r <= unicode.MaxASCII {
			return unicode.ToLower(r)
		}
		return r
	}, s)
}

// IsZippedFormat reports whether name is one of the zip-family containers
// the engine's "zipped source" edge case needs to recognize.
func IsZippedFormat(name string) bool {
	switch name {
	case "gzip", "zip", "compress":
		return true
	default:
		return false
	}
}

// IsPostScriptFormat reports whether name is a PostScript-family format.
func IsPostScriptFormat(name string) bool {
	switch name {
	case "ps", "eps":
		return true
	default:
		return false
	}
}
