package mover

import (
	"context"
	"os"
	"testing"

	"github.com/spf13/afero"
)

func TestDefaultMoverCopy(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/src/a.txt", []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := New(fs, "/support")
	m := r.Get("txt")

	if err := m.Copy(context.Background(), "/src/a.txt", "/dst/a.txt", ""); err != nil {
		t.Fatalf("Copy: %v", err)
	}

	got, err := afero.ReadFile(fs, "/dst/a.txt")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "hello" {
		t.Errorf("content = %q, want %q", got, "hello")
	}

	if _, err := fs.Stat("/src/a.txt"); err != nil {
		t.Errorf("source should still exist after Copy: %v", err)
	}
}

func TestDefaultMoverRenameDeletesSource(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/src/a.txt", []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := New(fs, "/support")
	m := r.Get("txt")

	if err := m.Rename(context.Background(), "/src/a.txt", "/dst/a.txt", ""); err != nil {
		t.Fatalf("Rename: %v", err)
	}

	if _, err := fs.Stat("/src/a.txt"); !os.IsNotExist(err) {
		t.Errorf("source should be gone after Rename, stat err = %v", err)
	}
	if _, err := fs.Stat("/dst/a.txt"); err != nil {
		t.Errorf("destination should exist after Rename: %v", err)
	}
}

func TestRegistryGetDefaultWhenNoSpecial(t *testing.T) {
	r := New(afero.NewMemMapFs(), "/support")
	if cmd := r.Command("fig"); cmd != "" {
		t.Errorf("Command(fig) = %q, want empty before Set", cmd)
	}
}

func TestSubstituteTokens(t *testing.T) {
	got := substituteTokens("cp $$i $$o # for $$l via $$s", "/a", "/b", "fig1", "/usr/share")
	want := "cp /a /b # for fig1 via /usr/share"
	if got != want {
		t.Errorf("substituteTokens = %q, want %q", got, want)
	}
}

func TestRegistrySetAndGetSpecial(t *testing.T) {
	r := New(afero.NewMemMapFs(), "/support")
	r.Set("fig", "python $$s/scripts/fig_copy.py $$i $$o $$l")

	if cmd := r.Command("fig"); cmd == "" {
		t.Fatalf("Command(fig) empty after Set")
	}

	m := r.Get("fig")
	if _, ok := m.(specialisedMover); !ok {
		t.Errorf("Get(fig) should return a specialisedMover")
	}
}
