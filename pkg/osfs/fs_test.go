package osfs

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"emperror.dev/errors"
)

func TestFullPathStaysInside(t *testing.T) {
	dir := t.TempDir()
	fsys, err := NewFS(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	for name, want := range map[string]string{
		"":                 dir,
		"a/b.txt":          filepath.Join(dir, "a", "b.txt"),
		"../../etc/passwd": filepath.Join(dir, "etc", "passwd"),
		"/x/../y":          filepath.Join(dir, "y"),
	} {
		if got := fsys.FullPath(name); got != want {
			t.Errorf("FullPath(%q) -> %s != %s", name, got, want)
		}
	}
}

func TestCreateExclusive(t *testing.T) {
	fsys, err := NewFS(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	fp, err := fsys.CreateExclusive("x.txt")
	if err != nil {
		t.Fatalf("cannot create x.txt: %v", err)
	}
	fp.Close()
	if _, err := fsys.CreateExclusive("x.txt"); !errors.Is(err, fs.ErrExist) {
		t.Fatalf("second create of x.txt should fail with ErrExist, got %v", err)
	}
}

func TestReadDirSkipsNothingButPseudoDirs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a", ".hidden", "c"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(name), 0644); err != nil {
			t.Fatal(err)
		}
	}
	fsys, err := NewFS(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	entries, err := fsys.ReadDir(".")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Errorf("expected 3 entries, got %d", len(entries))
	}
	if _, err := fsys.ReadDir("missing"); !fsys.IsNotExist(err) {
		t.Errorf("ReadDir(missing) should be not-exist, got %v", err)
	}
}

func TestRename(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "staged")
	if err := os.WriteFile(src, []byte("content"), 0644); err != nil {
		t.Fatal(err)
	}
	fsys, err := NewFS(filepath.Join(dir, "ns"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := fsys.MkdirAll("."); err != nil {
		t.Fatal(err)
	}
	if err := fsys.Rename(src, "final.txt"); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "ns", "final.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "content" {
		t.Errorf("unexpected content %q", data)
	}
}
