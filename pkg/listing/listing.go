package listing

import (
	"bytes"
	"html/template"
	"io/fs"
	"net/url"
	"slices"
	"strings"
	"time"

	"emperror.dev/errors"
	"github.com/Masterminds/sprig/v3"
	"github.com/dustin/go-humanize"
	"github.com/je4/utils/v2/pkg/zLogger"
	"github.com/rs/zerolog"
)

const TimestampFormat = "2006-01-02 15:04"

var ErrRender = errors.New("cannot render directory listing")

type DirReader interface {
	ReadDir(name string) ([]fs.DirEntry, error)
}

// Item is a directory entry together with its metadata. Info is nil if the
// metadata could not be read.
type Item struct {
	Entry fs.DirEntry
	Info  fs.FileInfo
}

func (i Item) isFile() bool {
	return i.Info == nil || !i.Info.IsDir()
}

func (i Item) modTime() time.Time {
	if i.Info == nil {
		return time.Unix(0, 0)
	}
	return i.Info.ModTime()
}

// Entry is one rendered line of a listing.
type Entry struct {
	Emoji     string
	Timestamp string
	Href      string
	Name      string
	Size      string
	IsDir     bool
}

type View struct {
	CurrentDirectory string
	TotalItems       string
	ParentHref       string
	Entries          []*Entry
}

type Lister struct {
	emoji  *EmojiTable
	logger zLogger.ZLogger
}

func NewLister(emoji *EmojiTable, logger zLogger.ZLogger) *Lister {
	if emoji == nil {
		emoji = NewDefaultEmojiTable()
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Lister{emoji: emoji, logger: logger}
}

// List reads dir and returns its visible entries, directories first, each
// group ordered by modification time descending. Ties keep the enumeration
// order of the filesystem.
func (l *Lister) List(fsys DirReader, dir string) ([]Item, error) {
	dentries, err := fsys.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot list '%s'", dir)
	}
	items := make([]Item, 0, len(dentries))
	for _, dentry := range dentries {
		if !Visible(dentry.Name()) {
			continue
		}
		info, err := dentry.Info()
		if err != nil {
			l.logger.Debug().Err(err).Msgf("cannot stat %s", dentry.Name())
			info = nil
		}
		items = append(items, Item{Entry: dentry, Info: info})
	}
	SortItems(items)
	return items, nil
}

func SortItems(items []Item) {
	slices.SortStableFunc(items, func(a, b Item) int {
		if af, bf := a.isFile(), b.isFile(); af != bf {
			if af {
				return 1
			}
			return -1
		}
		return b.modTime().Compare(a.modTime())
	})
}

// Materialize turns sorted items into view entries below requestPath.
// Items without metadata are skipped.
func (l *Lister) Materialize(items []Item, requestPath string) []*Entry {
	base := escapePath(requestPath)
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	entries := make([]*Entry, 0, len(items))
	for _, item := range items {
		if item.Info == nil {
			continue
		}
		name := item.Entry.Name()
		isDir := item.Info.IsDir()
		entry := &Entry{
			Emoji:     l.emoji.Resolve(name, isDir),
			Timestamp: item.Info.ModTime().UTC().Format(TimestampFormat),
			Href:      base + url.PathEscape(name),
			Name:      name,
			IsDir:     isDir,
		}
		if isDir {
			entry.Href += "/"
		} else {
			entry.Size = humanize.IBytes(uint64(item.Info.Size()))
		}
		entries = append(entries, entry)
	}
	return entries
}

// View lists dir and builds everything a template needs.
func (l *Lister) View(fsys DirReader, dir, requestPath string) (*View, error) {
	items, err := l.List(fsys, dir)
	if err != nil {
		return nil, err
	}
	return &View{
		CurrentDirectory: requestPath,
		TotalItems:       humanize.Comma(int64(len(items))),
		ParentHref:       ParentHref(requestPath),
		Entries:          l.Materialize(items, requestPath),
	}, nil
}

// Visible reports whether an entry may be listed or served.
func Visible(name string) bool {
	return name != "" && !strings.HasPrefix(name, ".")
}

// escapePath percent-encodes every segment of a decoded request path.
func escapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

// ParentHref strips the last non-empty segment of the decoded requestPath
// and returns it percent-encoded. It is empty at the top level.
func ParentHref(requestPath string) string {
	var segments []string
	for _, s := range strings.Split(requestPath, "/") {
		if s != "" {
			segments = append(segments, url.PathEscape(s))
		}
	}
	if len(segments) <= 1 {
		return ""
	}
	return "/" + strings.Join(segments[:len(segments)-1], "/") + "/"
}

func FuncMap() template.FuncMap {
	funcMap := sprig.FuncMap()
	funcMap["PathEscape"] = func(str string) string {
		return url.PathEscape(str)
	}
	funcMap["humanizeBytes"] = func(size uint64) string {
		return humanize.IBytes(size)
	}
	return funcMap
}

// Render executes tpl into a buffer, so that a failing template never
// produces partial output.
func Render(tpl *template.Template, view *View) ([]byte, error) {
	if tpl == nil {
		return nil, errors.Wrap(ErrRender, "no template")
	}
	buf := &bytes.Buffer{}
	if err := tpl.Execute(buf, view); err != nil {
		return nil, errors.Wrapf(ErrRender, "template %s: %v", tpl.Name(), err)
	}
	return buf.Bytes(), nil
}
