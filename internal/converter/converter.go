// Package converter holds the Converter record (an edge template between
// two formats) and the Registry that turns the configured converter list
// into a graph.Graph and answers reachability/shortest-path queries over it.
package converter

import (
	"strings"

	"github.com/cburschka/lyx-sub006/internal/format"
	"github.com/cburschka/lyx-sub006/internal/graph"
)

// Derived is parsed from a Converter's raw flag string at registration time.
type Derived struct {
	IsLatex        bool
	LatexFlavor    string
	IsXML          bool
	NeedsAux       bool
	WantsNiceSource bool
	ResultDir      string
	ResultFile     string
	ParselogCmd    string
	NoUnzip        bool
}

// Converter is one edge template: a shell command that transforms files of
// format From into format To.
type Converter struct {
	From    string
	To      string
	Command string
	Flags   string
	Derived Derived
}

// ParseFlags turns the comma-separated flag-word string (bare words or
// key=value pairs) into a Derived struct, following the \converter flag
// vocabulary: latex[=flavor], xml, needaux, nice, resultdir=, resultfile=,
// parselog=, and noUnzip (engine-local, not part of the original grammar,
// but read from the same string for convenience).
func ParseFlags(raw string) Derived {
	var d Derived
	for _, word := range strings.Split(raw, ",") {
		word = strings.TrimSpace(word)
		if word == "" {
			continue
		}
		key, value, hasValue := strings.Cut(word, "=")
		switch key {
		case "latex":
			d.IsLatex = true
			if hasValue {
				d.LatexFlavor = value
			} else {
				d.LatexFlavor = "latex"
			}
		case "xml":
			d.IsXML = true
		case "needaux":
			d.NeedsAux = true
		case "nice":
			d.WantsNiceSource = true
		case "resultdir":
			d.ResultDir = value
		case "resultfile":
			d.ResultFile = value
		case "parselog":
			d.ParselogCmd = value
		case "noUnzip":
			d.NoUnzip = true
		}
	}
	return d
}

// Registry stores the configured converters and the graph built from them.
type Registry struct {
	converters []Converter
	formats    *format.Registry
	g          *graph.Graph
	indexOf    map[string]int // format name -> vertex index, valid after BuildGraph
}

// New returns a Registry whose graph is built over formats.
func New(formats *format.Registry) *Registry {
	return &Registry{formats: formats, g: graph.New()}
}

// Add registers a converter. Converters whose From/To do not resolve in the
// format registry are stored but contribute no graph edge.
func (r *Registry) Add(c Converter) {
	c.Derived = ParseFlags(c.Flags)
	r.converters = append(r.converters, c)
}

// Erase removes every converter matching (from, to).
func (r *Registry) Erase(from, to string) {
	kept := r.converters[:0]
	for _, c := range r.converters {
		if c.From == from && c.To == to {
			continue
		}
		kept = append(kept, c)
	}
	r.converters = kept
}

// All returns every registered converter.
func (r *Registry) All() []Converter {
	return r.converters
}

// Get returns the converter registered for (from, to), if any.
func (r *Registry) Get(from, to string) (Converter, bool) {
	for _, c := range r.converters {
		if c.From == from && c.To == to {
			return c, true
		}
	}
	return Converter{}, false
}

// BuildGraph clears the graph, allocates one vertex per registered format,
// and adds one edge per converter whose endpoints both resolve. Called after
// any change to the format or converter list.
func (r *Registry) BuildGraph() {
	names := r.formats.Names()
	r.indexOf = make(map[string]int, len(names))
	for i, n := range names {
		r.indexOf[n] = i
	}

	r.g.Init(len(names))
	for _, c := range r.converters {
		from, okFrom := r.indexOf[c.From]
		to, okTo := r.indexOf[c.To]
		if okFrom && okTo {
			r.g.AddEdge(from, to)
		}
	}
}

// ShortestPath returns the edge-id path from format "from" to format "to".
// Empty means unreachable, both names resolve but are equal, or either name
// is unknown.
func (r *Registry) ShortestPath(from, to string) graph.EdgePath {
	fromIdx, okFrom := r.indexOf[from]
	toIdx, okTo := r.indexOf[to]
	if !okFrom || !okTo {
		return nil
	}
	return r.g.ShortestPath(fromIdx, toIdx)
}

// IsReachable reports whether "to" can be reached from "from".
func (r *Registry) IsReachable(from, to string) bool {
	fromIdx, okFrom := r.indexOf[from]
	toIdx, okTo := r.indexOf[to]
	if !okFrom || !okTo {
		return false
	}
	return r.g.IsReachable(fromIdx, toIdx)
}

// ConverterForEdge resolves an edge id back to the Converter that produced
// it, by re-matching the (from, to) format pair the edge id's position
// implies. Edge ids are assigned in registration order during BuildGraph,
// one per converter whose endpoints resolved, so this is a direct index.
func (r *Registry) ConverterForEdge(edgeID int) (Converter, bool) {
	i := 0
	for _, c := range r.converters {
		_, okFrom := r.indexOf[c.From]
		_, okTo := r.indexOf[c.To]
		if !okFrom || !okTo {
			continue
		}
		if i == edgeID {
			return c, true
		}
		i++
	}
	return Converter{}, false
}

// Importable returns the formats from which the native document format can
// be produced (i.e., formats reachable-to the document format).
func (r *Registry) Importable(documentFormat string) []string {
	docIdx, ok := r.indexOf[documentFormat]
	if !ok {
		return nil
	}
	isDoc := func(v int) bool { return v == docIdx }
	idxs := r.g.ReachableTo(docIdx, true, isDoc)
	return r.namesFor(idxs)
}

// Exportable returns the formats the native document format can be
// converted into, optionally restricted to formats with a viewer.
func (r *Registry) Exportable(documentFormat string, onlyViewable bool, hasViewer func(string) bool) []string {
	docIdx, ok := r.indexOf[documentFormat]
	if !ok {
		return nil
	}
	var viewerPred func(int) bool
	if onlyViewable && hasViewer != nil {
		names := r.formats.Names()
		viewerPred = func(v int) bool {
			if v < 0 || v >= len(names) {
				return false
			}
			return hasViewer(names[v])
		}
	}
	idxs := r.g.ReachableFrom(docIdx, onlyViewable, true, nil, viewerPred)
	return r.namesFor(idxs)
}

func (r *Registry) namesFor(idxs graph.EdgePath) []string {
	names := r.formats.Names()
	out := make([]string, 0, len(idxs))
	for _, i := range idxs {
		if i >= 0 && i < len(names) {
			out = append(out, names[i])
		}
	}
	return out
}

// FormatInUse reports whether any registered converter references name as
// its From or To endpoint, used to warn before erasing a format that would
// orphan dangling converters.
func (r *Registry) FormatInUse(name string) bool {
	for _, c := range r.converters {
		if c.From == name || c.To == name {
			return true
		}
	}
	return false
}
