package listing

import (
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"emperror.dev/errors"
	"github.com/go-test/deep"
	"github.com/ocfl-archive/filedrop/data/filedropdata"
	"github.com/ocfl-archive/filedrop/pkg/osfs"
)

func mkEntry(t *testing.T, dir, name string, isDir bool, mtime int64, size int) {
	t.Helper()
	p := filepath.Join(dir, name)
	if isDir {
		if err := os.Mkdir(p, 0755); err != nil {
			t.Fatal(err)
		}
	} else {
		if err := os.WriteFile(p, make([]byte, size), 0644); err != nil {
			t.Fatal(err)
		}
	}
	ts := time.Unix(mtime, 0)
	if err := os.Chtimes(p, ts, ts); err != nil {
		t.Fatal(err)
	}
}

func names(items []Item) []string {
	result := []string{}
	for _, item := range items {
		result = append(result, item.Entry.Name())
	}
	return result
}

func TestListOrder(t *testing.T) {
	dir := t.TempDir()
	mkEntry(t, dir, "dirA", true, 10, 0)
	mkEntry(t, dir, "fileB", false, 30, 1)
	mkEntry(t, dir, "dirC", true, 20, 0)
	mkEntry(t, dir, "fileD", false, 5, 1)
	mkEntry(t, dir, ".hidden", false, 40, 1)

	fsys, err := osfs.NewFS(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	items, err := NewLister(nil, nil).List(fsys, ".")
	if err != nil {
		t.Fatal(err)
	}
	if diff := deep.Equal(names(items), []string{"dirC", "dirA", "fileB", "fileD"}); diff != nil {
		t.Error(diff)
	}
}

func TestListMissingDirectory(t *testing.T) {
	fsys, err := osfs.NewFS(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewLister(nil, nil).List(fsys, "missing"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

type brokenEntry struct{ name string }

func (b brokenEntry) Name() string               { return b.name }
func (b brokenEntry) IsDir() bool                { return false }
func (b brokenEntry) Type() fs.FileMode          { return 0 }
func (b brokenEntry) Info() (fs.FileInfo, error) { return nil, fs.ErrPermission }

type staticDir struct {
	entries []fs.DirEntry
}

func (s staticDir) ReadDir(string) ([]fs.DirEntry, error) { return s.entries, nil }

func TestListUnreadableMetadata(t *testing.T) {
	dir := t.TempDir()
	mkEntry(t, dir, "old", false, 1, 1)
	mkEntry(t, dir, "sub", true, 2, 0)
	dentries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	entries := append([]fs.DirEntry{brokenEntry{name: "broken"}}, dentries...)

	l := NewLister(nil, nil)
	items, err := l.List(staticDir{entries: entries}, ".")
	if err != nil {
		t.Fatal(err)
	}
	// broken counts as a file modified at the epoch
	if diff := deep.Equal(names(items), []string{"sub", "old", "broken"}); diff != nil {
		t.Error(diff)
	}
	rendered := l.Materialize(items, "/ns/")
	if len(rendered) != 2 {
		t.Fatalf("entries without metadata must be skipped, got %d entries", len(rendered))
	}
}

func TestMaterialize(t *testing.T) {
	dir := t.TempDir()
	mkEntry(t, dir, "a b.png", false, 86400, 2048)
	mkEntry(t, dir, "sub", true, 3600, 0)
	fsys, err := osfs.NewFS(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	l := NewLister(nil, nil)
	view, err := l.View(fsys, ".", "/pics/")
	if err != nil {
		t.Fatal(err)
	}
	expected := &View{
		CurrentDirectory: "/pics/",
		TotalItems:       "2",
		ParentHref:       "",
		Entries: []*Entry{
			{Emoji: DefaultDirectoryEmoji, Timestamp: "1970-01-01 01:00", Href: "/pics/sub/", Name: "sub", IsDir: true},
			{Emoji: "🖼️", Timestamp: "1970-01-02 00:00", Href: "/pics/a%20b.png", Name: "a b.png", Size: "2.0 KiB"},
		},
	}
	if diff := deep.Equal(view, expected); diff != nil {
		t.Error(diff)
	}
}

func TestMaterializeEscapesRequestPath(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "a#b?c"), 0755); err != nil {
		t.Fatal(err)
	}
	mkEntry(t, dir, "a#b?c/f.txt", false, 60, 1)
	fsys, err := osfs.NewFS(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	view, err := NewLister(nil, nil).View(fsys, "a#b?c", "/ns/a#b?c/")
	if err != nil {
		t.Fatal(err)
	}
	if len(view.Entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(view.Entries))
	}
	if got := view.Entries[0].Href; got != "/ns/a%23b%3Fc/f.txt" {
		t.Errorf("unexpected href %s", got)
	}
	if view.CurrentDirectory != "/ns/a#b?c/" {
		t.Errorf("current directory must stay readable, got %s", view.CurrentDirectory)
	}

	tpl, err := template.New("plain.gohtml").Funcs(FuncMap()).ParseFS(filedropdata.TemplateRoot, "templates/plain.gohtml")
	if err != nil {
		t.Fatal(err)
	}
	data, err := Render(tpl, view)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `href="/ns/a%23b%3Fc/f.txt"`) {
		t.Errorf("unescaped href in output\n%s", data)
	}
}

func TestParentHref(t *testing.T) {
	for reqPath, want := range map[string]string{
		"/":             "",
		"/pics/":        "",
		"/pics":         "",
		"/pics/a/":      "/pics/",
		"/pics/a/b":     "/pics/a/",
		"//pics//a//":   "/pics/",
		"/pics/a#b?c/d": "/pics/a%23b%3Fc/",
		"/pics/a b/c/":  "/pics/a%20b/",
	} {
		if got := ParentHref(reqPath); got != want {
			t.Errorf("ParentHref(%q) -> %q != %q", reqPath, got, want)
		}
	}
}

func TestEmojiResolve(t *testing.T) {
	table := NewDefaultEmojiTable()
	for name, want := range map[string]string{
		"x.PNG":   "🖼️",
		"x.tar":   "📦",
		"x.weird": DefaultUnknownEmoji,
		"noext":   DefaultUnknownEmoji,
	} {
		if got := table.Resolve(name, false); got != want {
			t.Errorf("Resolve(%q) -> %s != %s", name, got, want)
		}
	}
	if got := table.Resolve("x.png", true); got != DefaultDirectoryEmoji {
		t.Errorf("directories must use the directory emoji, got %s", got)
	}
}

func TestRenderTemplates(t *testing.T) {
	view := &View{
		CurrentDirectory: "/pics/sub/",
		TotalItems:       "1,234",
		ParentHref:       "/pics/",
		Entries: []*Entry{
			{Emoji: "📄", Timestamp: "2024-01-02 03:04", Href: "/pics/sub/%3Cb%3E.txt", Name: "<b>.txt", Size: "1 B"},
		},
	}
	for _, name := range []string{"listing.gohtml", "plain.gohtml"} {
		tpl, err := template.New(name).Funcs(FuncMap()).ParseFS(filedropdata.TemplateRoot, "templates/"+name)
		if err != nil {
			t.Fatalf("cannot parse %s: %v", name, err)
		}
		data, err := Render(tpl, view)
		if err != nil {
			t.Fatalf("cannot render %s: %v", name, err)
		}
		html := string(data)
		if strings.Contains(html, "<b>.txt") {
			t.Errorf("%s: file name is not escaped", name)
		}
		if !strings.Contains(html, "&lt;b&gt;.txt") || !strings.Contains(html, `href="/pics/"`) {
			t.Errorf("%s: unexpected output\n%s", name, html)
		}
	}
}

func TestRenderError(t *testing.T) {
	tpl := template.Must(template.New("broken").Parse(`{{ .Missing.Field }}`))
	data, err := Render(tpl, &View{})
	if !errors.Is(err, ErrRender) {
		t.Fatalf("expected ErrRender, got %v", err)
	}
	if data != nil {
		t.Errorf("no partial output expected, got %q", data)
	}
}
