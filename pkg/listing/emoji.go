package listing

import (
	"maps"
	"path"
	"strings"
)

const (
	DefaultDirectoryEmoji = "📂"
	DefaultUnknownEmoji   = "❓"
)

// DefaultFileExtensions maps lower case extensions to their icon.
var DefaultFileExtensions = map[string]string{
	"png":    "🖼️",
	"jpg":    "🖼️",
	"jpeg":   "🖼️",
	"webp":   "🖼️",
	"gif":    "🖼️",
	"avif":   "🖼️",
	"ciff":   "🖼️",
	"mp4":    "📺",
	"zip":    "📦",
	"tar":    "📦",
	"rar":    "📦",
	"7z":     "📦",
	"gz":     "📦",
	"mp3":    "🎵",
	"wav":    "🎵",
	"ogg":    "🎵",
	"mrpack": "🕹️",
	"md":     "📄",
	"txt":    "📄",
	"pdf":    "📄",
	"docx":   "📄",
	"log":    "📄",
	"json":   "📄",
	"jsonc":  "📄",
	"jar":    "🍵",
	"js":     "🧩",
	"rs":     "🧩",
	"go":     "🧩",
	"css":    "👕",
	"exe":    "💾",
}

type EmojiTable struct {
	Directory      string
	Unknown        string
	FileExtensions map[string]string
}

func NewDefaultEmojiTable() *EmojiTable {
	return &EmojiTable{
		Directory:      DefaultDirectoryEmoji,
		Unknown:        DefaultUnknownEmoji,
		FileExtensions: maps.Clone(DefaultFileExtensions),
	}
}

// Resolve returns the icon of an entry. Extensions are matched exactly
// first, then lower cased.
func (t *EmojiTable) Resolve(name string, isDir bool) string {
	if isDir {
		return t.Directory
	}
	ext := strings.TrimPrefix(path.Ext(name), ".")
	if ext == "" {
		return t.Unknown
	}
	if emoji, ok := t.FileExtensions[ext]; ok {
		return emoji
	}
	if emoji, ok := t.FileExtensions[strings.ToLower(ext)]; ok {
		return emoji
	}
	return t.Unknown
}
