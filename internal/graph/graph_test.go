package graph

import (
	"reflect"
	"testing"
)

func TestShortestPathDirect(t *testing.T) {
	g := New()
	g.Init(2)
	g.AddEdge(0, 1)

	got := g.ShortestPath(0, 1)
	if !reflect.DeepEqual(got, EdgePath{0}) {
		t.Errorf("ShortestPath = %v, want [0]", got)
	}
}

func TestShortestPathTwoHop(t *testing.T) {
	g := New()
	g.Init(3)
	g.AddEdge(0, 1) // id 0
	g.AddEdge(1, 2) // id 1

	got := g.ShortestPath(0, 2)
	if !reflect.DeepEqual(got, EdgePath{0, 1}) {
		t.Errorf("ShortestPath = %v, want [0 1]", got)
	}
}

func TestShortestPathSameVertexIsEmpty(t *testing.T) {
	g := New()
	g.Init(2)
	g.AddEdge(0, 1)

	if got := g.ShortestPath(0, 0); len(got) != 0 {
		t.Errorf("ShortestPath(0,0) = %v, want empty", got)
	}
}

func TestShortestPathUnreachable(t *testing.T) {
	g := New()
	g.Init(2)

	if got := g.ShortestPath(0, 1); len(got) != 0 {
		t.Errorf("ShortestPath = %v, want empty", got)
	}
}

func TestShortestPathPrefersShorterOverLater(t *testing.T) {
	// 0->1->2 (2 hops) vs 0->2 direct (1 hop): direct must win even though
	// it was registered second.
	g := New()
	g.Init(3)
	g.AddEdge(0, 1)
	g.AddEdge(1, 2)
	g.AddEdge(0, 2)

	got := g.ShortestPath(0, 2)
	if len(got) != 1 {
		t.Errorf("ShortestPath = %v, want single-edge path", got)
	}
}

func TestIsReachable(t *testing.T) {
	g := New()
	g.Init(3)
	g.AddEdge(0, 1)

	if !g.IsReachable(0, 1) {
		t.Errorf("IsReachable(0,1) = false, want true")
	}
	if g.IsReachable(0, 2) {
		t.Errorf("IsReachable(0,2) = true, want false")
	}
	if !g.IsReachable(1, 1) {
		t.Errorf("IsReachable(1,1) = false, want true (same vertex)")
	}
}

func TestReachableToExcludesDocumentFormatSelf(t *testing.T) {
	g := New()
	g.Init(2)
	g.AddEdge(1, 0) // 0 is "lyx" (the document format), reachable from 1

	isDoc := func(v int) bool { return v == 0 }

	got := g.ReachableTo(0, true, isDoc)
	if !reflect.DeepEqual(got, EdgePath{1}) {
		t.Errorf("ReachableTo = %v, want [1]", got)
	}
}

func TestReachableToIncludesSelfWhenNotDocumentFormat(t *testing.T) {
	g := New()
	g.Init(2)
	g.AddEdge(1, 0)

	isDoc := func(v int) bool { return v == 1 } // 1 is the document format, not 0

	got := g.ReachableTo(0, true, isDoc)
	want := EdgePath{0, 1}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ReachableTo = %v, want %v (dst itself included)", got, want)
	}
}

func TestReachableFromIncludesSeed(t *testing.T) {
	g := New()
	g.Init(3)
	g.AddEdge(0, 1)

	got := g.ReachableFrom(0, false, true, nil, nil)
	want := EdgePath{0, 1}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ReachableFrom = %v, want %v (src itself included)", got, want)
	}
}

func TestReachableFromOnlyViewable(t *testing.T) {
	g := New()
	g.Init(3)
	g.AddEdge(0, 1)
	g.AddEdge(0, 2)

	hasViewer := func(v int) bool { return v == 1 }

	got := g.ReachableFrom(0, true, true, nil, hasViewer)
	if !reflect.DeepEqual(got, EdgePath{1}) {
		t.Errorf("ReachableFrom(onlyViewable) = %v, want [1]", got)
	}
}

func TestEdgeIdsAreDenseAndStable(t *testing.T) {
	g := New()
	g.Init(4)
	g.AddEdge(0, 1)
	g.AddEdge(1, 2)
	g.AddEdge(2, 3)

	if g.NumEdges() != 3 {
		t.Fatalf("NumEdges = %d, want 3", g.NumEdges())
	}

	path := g.ShortestPath(0, 3)
	want := EdgePath{0, 1, 2}
	if !reflect.DeepEqual(path, want) {
		t.Errorf("ShortestPath = %v, want %v", path, want)
	}
}
