package converter

import (
	"reflect"
	"sort"
	"testing"

	"github.com/cburschka/lyx-sub006/internal/format"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		raw  string
		want Derived
	}{
		{"", Derived{}},
		{"latex", Derived{IsLatex: true, LatexFlavor: "latex"}},
		{"latex=xelatex", Derived{IsLatex: true, LatexFlavor: "xelatex"}},
		{"xml,needaux,nice", Derived{IsXML: true, NeedsAux: true, WantsNiceSource: true}},
		{"resultdir=.dir,resultfile=*.html", Derived{ResultDir: ".dir", ResultFile: "*.html"}},
		{"parselog=chktex -q -v0", Derived{ParselogCmd: "chktex -q -v0"}},
		{"noUnzip", Derived{NoUnzip: true}},
	}
	for _, tt := range tests {
		got := ParseFlags(tt.raw)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseFlags(%q) = %+v, want %+v", tt.raw, got, tt.want)
		}
	}
}

func newTestRegistry() (*format.Registry, *Registry) {
	formats := format.New()
	formats.Add(format.Format{Name: "lyx", Extensions: []string{"lyx"}, Flags: format.FlagDocument})
	formats.Add(format.Format{Name: "tex", Extensions: []string{"tex"}})
	formats.Add(format.Format{Name: "pdf", Extensions: []string{"pdf"}, Viewer: "xpdf"})
	formats.Add(format.Format{Name: "dvi", Extensions: []string{"dvi"}})

	convs := New(formats)
	convs.Add(Converter{From: "lyx", To: "tex", Command: "cp $$i $$o"})
	convs.Add(Converter{From: "tex", To: "dvi", Command: "latex $$i"})
	convs.Add(Converter{From: "dvi", To: "pdf", Command: "dvipdf $$i $$o"})
	convs.BuildGraph()
	return formats, convs
}

func TestBuildGraphAndShortestPath(t *testing.T) {
	_, convs := newTestRegistry()

	path := convs.ShortestPath("lyx", "pdf")
	if len(path) != 3 {
		t.Fatalf("ShortestPath(lyx,pdf) = %v, want 3 edges", path)
	}
	if !convs.IsReachable("lyx", "pdf") {
		t.Error("expected lyx reachable to pdf")
	}
	if convs.IsReachable("pdf", "lyx") {
		t.Error("expected pdf not reachable to lyx (edges are directed)")
	}
}

func TestConverterForEdge(t *testing.T) {
	_, convs := newTestRegistry()

	path := convs.ShortestPath("lyx", "dvi")
	if len(path) != 2 {
		t.Fatalf("ShortestPath(lyx,dvi) = %v, want 2 edges", path)
	}

	c0, ok := convs.ConverterForEdge(path[0])
	if !ok || c0.From != "lyx" || c0.To != "tex" {
		t.Errorf("ConverterForEdge(path[0]) = %+v, ok=%v, want lyx->tex", c0, ok)
	}
	c1, ok := convs.ConverterForEdge(path[1])
	if !ok || c1.From != "tex" || c1.To != "dvi" {
		t.Errorf("ConverterForEdge(path[1]) = %+v, ok=%v, want tex->dvi", c1, ok)
	}
}

func TestImportableIncludesDocumentFormatItselfExcluded(t *testing.T) {
	_, convs := newTestRegistry()

	// "pdf" has incoming edges (lyx->tex->dvi->pdf), so it stands in for the
	// document format here: everything upstream of it is importable, but
	// pdf itself is excluded.
	got := convs.Importable("pdf")
	sort.Strings(got)
	want := []string{"dvi", "lyx", "tex"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Importable(pdf) = %v, want %v (pdf itself excluded)", got, want)
	}
}

func TestExportableIncludesSelf(t *testing.T) {
	_, convs := newTestRegistry()

	got := convs.Exportable("lyx", false, nil)
	sort.Strings(got)
	want := []string{"dvi", "lyx", "pdf", "tex"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Exportable(lyx) = %v, want %v (lyx itself included, per getReachable semantics)", got, want)
	}
}

func TestExportableOnlyViewable(t *testing.T) {
	_, convs := newTestRegistry()

	hasViewer := func(name string) bool { return name == "pdf" }
	got := convs.Exportable("lyx", true, hasViewer)
	want := []string{"pdf"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Exportable(lyx, onlyViewable) = %v, want %v", got, want)
	}
}

func TestFormatInUse(t *testing.T) {
	_, convs := newTestRegistry()

	if !convs.FormatInUse("tex") {
		t.Error("expected tex in use (lyx->tex and tex->dvi reference it)")
	}
	if convs.FormatInUse("png") {
		t.Error("expected png not in use")
	}
}

func TestGetAndErase(t *testing.T) {
	_, convs := newTestRegistry()

	if _, ok := convs.Get("lyx", "tex"); !ok {
		t.Error("expected lyx->tex converter registered")
	}
	convs.Erase("lyx", "tex")
	if _, ok := convs.Get("lyx", "tex"); ok {
		t.Error("expected lyx->tex converter erased")
	}
}
