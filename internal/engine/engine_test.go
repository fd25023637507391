package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/cburschka/lyx-sub006/internal/cache"
	"github.com/cburschka/lyx-sub006/internal/converter"
	"github.com/cburschka/lyx-sub006/internal/core"
	"github.com/cburschka/lyx-sub006/internal/format"
	"github.com/cburschka/lyx-sub006/internal/mover"
)

func newTestEngine(t *testing.T) (*Engine, string) {
	t.Helper()
	tempDir := t.TempDir()

	formats := format.New()
	formats.Add(format.Format{Name: "eps", Extensions: []string{"eps"}})
	formats.Add(format.Format{Name: "pdf", Extensions: []string{"pdf"}})
	formats.Add(format.Format{Name: "a", Extensions: []string{"a"}})
	formats.Add(format.Format{Name: "b", Extensions: []string{"b"}})
	formats.Add(format.Format{Name: "c", Extensions: []string{"c"}})

	convs := converter.New(formats)
	convs.Add(converter.Converter{From: "eps", To: "pdf", Command: "cp $$i $$o"})
	convs.Add(converter.Converter{From: "a", To: "b", Command: "cp $$i $$o"})
	convs.Add(converter.Converter{From: "b", To: "c", Command: "cp $$i $$o"})
	convs.BuildGraph()

	fs := afero.NewOsFs()
	movers := mover.New(fs, tempDir)
	c := cache.New(fs, movers, filepath.Join(tempDir, "cache"), time.Hour, true, format.Sniff)
	if err := c.Init(); err != nil {
		t.Fatalf("cache Init: %v", err)
	}

	e := New(formats, convs, movers, c, tempDir, tempDir)
	return e, tempDir
}

func TestConvertDirectPath(t *testing.T) {
	e, dir := newTestEngine(t)

	src := filepath.Join(dir, "a.eps")
	if err := os.WriteFile(src, []byte("eps bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(dir, "a.pdf")

	err := e.Convert(context.Background(), src, dst, src, "eps", "pdf", core.ConversionFlags{})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("ReadFile(dst): %v", err)
	}
	if string(got) != "eps bytes" {
		t.Errorf("content = %q, want %q", got, "eps bytes")
	}
}

func TestConvertTwoHopPath(t *testing.T) {
	e, dir := newTestEngine(t)

	src := filepath.Join(dir, "in.a")
	if err := os.WriteFile(src, []byte("payload"), 0o644); err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(dir, "out.c")

	err := e.Convert(context.Background(), src, dst, src, "a", "c", core.ConversionFlags{})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("ReadFile(dst): %v", err)
	}
	if string(got) != "payload" {
		t.Errorf("content = %q, want %q", got, "payload")
	}
}

func TestConvertUnreachableNoDefault(t *testing.T) {
	e, dir := newTestEngine(t)

	src := filepath.Join(dir, "x.a")
	if err := os.WriteFile(src, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(dir, "x.eps")

	err := e.Convert(context.Background(), src, dst, src, "a", "eps", core.ConversionFlags{})
	if err == nil {
		t.Fatal("expected NoPath error")
	}
	var npErr *core.NoPathError
	if !asNoPathError(err, &npErr) {
		t.Errorf("expected *core.NoPathError, got %v (%T)", err, err)
	}
}

func asNoPathError(err error, target **core.NoPathError) bool {
	npe, ok := err.(*core.NoPathError)
	if ok {
		*target = npe
	}
	return ok
}

func TestConvertMissingSourceReturnsTypedError(t *testing.T) {
	e, dir := newTestEngine(t)

	src := filepath.Join(dir, "does-not-exist.eps")
	dst := filepath.Join(dir, "does-not-exist.pdf")

	err := e.Convert(context.Background(), src, dst, src, "eps", "pdf", core.ConversionFlags{})
	if err == nil {
		t.Fatal("expected error for missing source")
	}
	if !errors.Is(err, core.ErrSourceMissing) {
		t.Errorf("expected errors.Is(err, core.ErrSourceMissing), got %v", err)
	}
}

func TestConvertUsesGenericDefaultScriptWhenNoPathAndNoNativeFallback(t *testing.T) {
	e, dir := newTestEngine(t)
	e.DefaultCommand = "cp $$i $$o"

	src := filepath.Join(dir, "x.a")
	if err := os.WriteFile(src, []byte("via-default-script"), 0o644); err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(dir, "x.eps")

	flags := core.ConversionFlags{TryDefault: true}
	if err := e.Convert(context.Background(), src, dst, src, "a", "eps", flags); err != nil {
		t.Fatalf("Convert: %v", err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("ReadFile(dst): %v", err)
	}
	if string(got) != "via-default-script" {
		t.Errorf("content = %q, want %q", got, "via-default-script")
	}
}

func TestConvertNoPathWhenDefaultScriptUnconfigured(t *testing.T) {
	e, dir := newTestEngine(t)

	src := filepath.Join(dir, "y.a")
	if err := os.WriteFile(src, []byte("y"), 0o644); err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(dir, "y.eps")

	flags := core.ConversionFlags{TryDefault: true}
	err := e.Convert(context.Background(), src, dst, src, "a", "eps", flags)
	if err == nil {
		t.Fatal("expected NoPath error when DefaultCommand is unset")
	}
	var npErr *core.NoPathError
	if !asNoPathError(err, &npErr) {
		t.Errorf("expected *core.NoPathError, got %v (%T)", err, err)
	}
}

func TestConvertSameFormatIsNoopWhenPathsEqual(t *testing.T) {
	e, dir := newTestEngine(t)

	src := filepath.Join(dir, "same.eps")
	if err := os.WriteFile(src, []byte("z"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := e.Convert(context.Background(), src, src, src, "eps", "eps", core.ConversionFlags{})
	if err != nil {
		t.Fatalf("Convert same->same: %v", err)
	}
}

func TestConvertCacheHitSkipsReconversion(t *testing.T) {
	e, dir := newTestEngine(t)

	src := filepath.Join(dir, "cached.eps")
	if err := os.WriteFile(src, []byte("cacheme"), 0o644); err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(dir, "cached.pdf")

	flags := core.ConversionFlags{TryCache: true}
	if err := e.Convert(context.Background(), src, dst, src, "eps", "pdf", flags); err != nil {
		t.Fatalf("first Convert: %v", err)
	}

	// Remove the destination; a cache hit on the second call should
	// recreate it without re-running the (now-impossible) converter.
	os.Remove(dst)
	e.Converters.Erase("eps", "pdf")
	e.Converters.BuildGraph()

	if err := e.Convert(context.Background(), src, dst, src, "eps", "pdf", flags); err != nil {
		t.Fatalf("second Convert (cache hit): %v", err)
	}
	if _, err := os.Stat(dst); err != nil {
		t.Errorf("expected dst recreated from cache: %v", err)
	}
}
