package config

import (
	"net/url"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"emperror.dev/errors"
	"github.com/BurntSushi/toml"
	configutil "github.com/je4/utils/v2/pkg/config"
	"github.com/je4/utils/v2/pkg/stashconfig"
	"github.com/je4/utils/v2/pkg/zLogger"
	"github.com/ocfl-archive/filedrop/pkg/listing"
	"github.com/ocfl-archive/filedrop/pkg/namegen"
	"github.com/ocfl-archive/filedrop/pkg/namespace"
	"github.com/ocfl-archive/filedrop/pkg/osfs"
)

const (
	DefaultKeyLength = 128
	TempDirName      = ".temp"
)

type WebServerConfig struct {
	Host            string   `toml:"host"`
	Port            int      `toml:"port"`
	ListenURL       string   `toml:"listenurl"`
	RedirectIndexTo string   `toml:"redirectindexto"`
	CertFile        string   `toml:"certfile"`
	KeyFile         string   `toml:"keyfile"`
	Compression     bool     `toml:"compression"`
	CORSOrigins     []string `toml:"corsorigins"`
	AccessLog       string   `toml:"accesslog"`
}

func (w *WebServerConfig) Addr() string {
	return w.Host + ":" + strconv.Itoa(w.Port)
}

type StorageConfig struct {
	UploadsDirectory       string `toml:"uploadsdirectory"`
	MaxFileSizeBytes       int64  `toml:"maxfilesizebytes"`
	DefaultNamespaceFSPath string `toml:"defaultnamespacefspath"`
}

func (s *StorageConfig) TempPath() string {
	return filepath.Join(s.UploadsDirectory, TempDirName)
}

func (s *StorageConfig) DefaultNamespacePath() string {
	return filepath.Join(s.UploadsDirectory, s.DefaultNamespaceFSPath)
}

type EmojiConfig struct {
	Directory      string            `toml:"directory"`
	Unknown        string            `toml:"unknown"`
	FileExtensions map[string]string `toml:"FileExtensions"`
}

type ListingConfig struct {
	Emoji *EmojiConfig `toml:"Emoji"`
}

type FileListingConfig struct {
	Show             bool `toml:"show"`
	UseFancyRenderer bool `toml:"usefancyrenderer"`
}

type GeneratorConfig struct {
	Type                  string `toml:"type"`
	Length                uint   `toml:"length"`
	MaxAttemptsBeforeGrow uint   `toml:"maxattemptsbeforegrow"`
}

func (g *GeneratorConfig) Generator() (namegen.Generator, error) {
	kind, err := namegen.ParseKind(g.Type)
	if err != nil {
		return namegen.Generator{}, err
	}
	switch kind {
	case namegen.KindUUID:
		return namegen.UUID(), nil
	default:
		if g.Length < 1 {
			return namegen.Generator{}, errors.New("random file names need a length of at least 1")
		}
		return namegen.Random(g.Length, g.MaxAttemptsBeforeGrow), nil
	}
}

type NamespaceConfig struct {
	FileSystemPath    string               `toml:"filesystempath"`
	Key               configutil.EnvString `toml:"key"`
	FileListing       *FileListingConfig   `toml:"FileListing"`
	FileNameGenerator *GeneratorConfig     `toml:"FileNameGenerator"`

	// KeyGenerated is set if the key was empty and replaced by a random one.
	KeyGenerated bool `toml:"-"`
}

type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type FileDropConfig struct {
	WebServer  *WebServerConfig            `toml:"WebServer"`
	Storage    *StorageConfig              `toml:"Storage"`
	Listing    *ListingConfig              `toml:"Listing"`
	Namespaces map[string]*NamespaceConfig `toml:"Namespaces"`
	Log        stashconfig.Config          `toml:"Log"`
	Metrics    *MetricsConfig              `toml:"Metrics"`
}

func defaultConfig() *FileDropConfig {
	return &FileDropConfig{
		WebServer: &WebServerConfig{
			Host:            "127.0.0.1",
			Port:            3000,
			ListenURL:       "http://localhost:3000/",
			RedirectIndexTo: "https://github.com/ocfl-archive/filedrop",
			Compression:     true,
			CORSOrigins:     []string{},
		},
		Storage: &StorageConfig{
			UploadsDirectory:       "uploads",
			MaxFileSizeBytes:       100 * 1024 * 1024,
			DefaultNamespaceFSPath: "ferris",
		},
		Listing: &ListingConfig{
			Emoji: &EmojiConfig{
				Directory:      listing.DefaultDirectoryEmoji,
				Unknown:        listing.DefaultUnknownEmoji,
				FileExtensions: map[string]string{},
			},
		},
		Namespaces: map[string]*NamespaceConfig{},
		Log: stashconfig.Config{
			Level: "INFO",
		},
		Metrics: &MetricsConfig{
			Path: "/metrics",
		},
	}
}

func LoadFileDropConfig(data string) (*FileDropConfig, error) {
	var conf = defaultConfig()
	md, err := toml.Decode(data, conf)
	if err != nil {
		return nil, errors.Wrap(err, "Error on loading config")
	}
	for name, ns := range conf.Namespaces {
		if ns == nil {
			ns = &NamespaceConfig{}
			conf.Namespaces[name] = ns
		}
		if ns.FileSystemPath == "" {
			ns.FileSystemPath = name
		}
		if ns.FileListing == nil {
			ns.FileListing = &FileListingConfig{}
		}
		if !md.IsDefined("Namespaces", name, "FileListing", "usefancyrenderer") {
			ns.FileListing.UseFancyRenderer = true
		}
		if ns.FileNameGenerator == nil {
			ns.FileNameGenerator = &GeneratorConfig{}
		}
		gen := ns.FileNameGenerator
		if gen.Type == "" {
			gen.Type = namegen.KindString[namegen.KindRandom]
		}
		gen.Type = strings.ToLower(gen.Type)
		if !md.IsDefined("Namespaces", name, "FileNameGenerator", "length") {
			gen.Length = 12
		}
		if !md.IsDefined("Namespaces", name, "FileNameGenerator", "maxattemptsbeforegrow") {
			gen.MaxAttemptsBeforeGrow = namegen.DefaultMaxAttemptsBeforeGrow
		}
		if ns.Key == "" {
			key, err := namegen.RandomString(DefaultKeyLength, namegen.Alphanumeric)
			if err != nil {
				return nil, errors.Wrapf(err, "cannot generate key for namespace '%s'", name)
			}
			ns.Key = configutil.EnvString(key)
			ns.KeyGenerated = true
		}
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// ReservedNames returns the first path segments which cannot be used as
// namespace names.
func (c *FileDropConfig) ReservedNames() []string {
	reserved := []string{"upload", "ping"}
	if c.Metrics != nil && c.Metrics.Enabled {
		if first := firstSegment(c.Metrics.Path); first != "" {
			reserved = append(reserved, first)
		}
	}
	return reserved
}

func firstSegment(p string) string {
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			return s
		}
	}
	return ""
}

func (c *FileDropConfig) Validate() error {
	if c.WebServer.Port <= 0 || c.WebServer.Port > 65535 {
		return errors.Errorf("invalid port %d", c.WebServer.Port)
	}
	u, err := url.Parse(c.WebServer.ListenURL)
	if err != nil {
		return errors.Wrapf(err, "invalid listen url '%s'", c.WebServer.ListenURL)
	}
	if u.Scheme == "" || u.Host == "" {
		return errors.Errorf("listen url '%s' must be absolute", c.WebServer.ListenURL)
	}
	if (c.WebServer.CertFile == "") != (c.WebServer.KeyFile == "") {
		return errors.New("certfile and keyfile must be set together")
	}
	for _, origin := range c.WebServer.CORSOrigins {
		if origin != "*" && !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return errors.Errorf("invalid cors origin '%s'", origin)
		}
	}
	if c.WebServer.RedirectIndexTo != "" {
		if _, err := url.Parse(c.WebServer.RedirectIndexTo); err != nil {
			return errors.Wrapf(err, "invalid index redirect '%s'", c.WebServer.RedirectIndexTo)
		}
	}
	if c.Storage.UploadsDirectory == "" {
		return errors.New("no uploads directory")
	}
	if c.Storage.MaxFileSizeBytes <= 0 {
		return errors.Errorf("invalid max file size %d", c.Storage.MaxFileSizeBytes)
	}
	if !storagePath(c.Storage.DefaultNamespaceFSPath) {
		return errors.Errorf("default namespace path '%s' must be relative to the uploads directory and outside of %s", c.Storage.DefaultNamespaceFSPath, TempDirName)
	}
	if c.Log.Stash.TLS != nil {
		return errors.New("tls for logstash is not supported")
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return errors.Errorf("metrics path '%s' must start with /", c.Metrics.Path)
	}
	reserved := c.ReservedNames()
	for name, ns := range c.Namespaces {
		if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
			return errors.Errorf("invalid namespace name '%s'", name)
		}
		if slices.Contains(reserved, name) {
			return errors.Errorf("namespace name '%s' is reserved", name)
		}
		if !storagePath(ns.FileSystemPath) {
			return errors.Errorf("namespace '%s': filesystem path '%s' must be relative to the uploads directory and outside of %s", name, ns.FileSystemPath, TempDirName)
		}
		if _, err := ns.FileNameGenerator.Generator(); err != nil {
			return errors.Wrapf(err, "namespace '%s'", name)
		}
	}
	return nil
}

// storagePath reports whether p is a folder below the uploads directory
// which is not the staging folder.
func storagePath(p string) bool {
	if filepath.IsAbs(p) || !filepath.IsLocal(p) {
		return false
	}
	first, _, _ := strings.Cut(filepath.ToSlash(filepath.Clean(p)), "/")
	return first != TempDirName
}

// EmojiTable merges the configured icons into the default table.
func (c *FileDropConfig) EmojiTable() *listing.EmojiTable {
	table := listing.NewDefaultEmojiTable()
	if c.Listing == nil || c.Listing.Emoji == nil {
		return table
	}
	if c.Listing.Emoji.Directory != "" {
		table.Directory = c.Listing.Emoji.Directory
	}
	if c.Listing.Emoji.Unknown != "" {
		table.Unknown = c.Listing.Emoji.Unknown
	}
	for ext, emoji := range c.Listing.Emoji.FileExtensions {
		table.FileExtensions[strings.ToLower(strings.TrimPrefix(ext, "."))] = emoji
	}
	return table
}

// Registry builds the namespaces below the uploads directory.
func (c *FileDropConfig) Registry(logger zLogger.ZLogger) (*namespace.Registry, error) {
	var nss []*namespace.Namespace
	for name, nsConf := range c.Namespaces {
		fsys, err := osfs.NewFS(filepath.Join(c.Storage.UploadsDirectory, nsConf.FileSystemPath), logger)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot create filesystem of namespace '%s'", name)
		}
		gen, err := nsConf.FileNameGenerator.Generator()
		if err != nil {
			return nil, errors.Wrapf(err, "namespace '%s'", name)
		}
		ns, err := namespace.New(name, nsConf.Key.String(), fsys, namespace.ListingPolicy{
			Show:             nsConf.FileListing.Show,
			UseFancyRenderer: nsConf.FileListing.UseFancyRenderer,
		}, gen)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot create namespace '%s'", name)
		}
		nss = append(nss, ns)
	}
	return namespace.NewRegistry(nss...)
}
