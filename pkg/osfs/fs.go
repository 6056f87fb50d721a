package osfs

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"syscall"

	"emperror.dev/errors"
	"github.com/je4/utils/v2/pkg/zLogger"
	"github.com/rs/zerolog"
)

// FS is a folder on the local filesystem. All names are slash separated and
// relative to the folder; they cannot escape it.
type FS struct {
	folder string
	logger zLogger.ZLogger
}

func NewFS(folder string, logger zLogger.ZLogger) (*FS, error) {
	if folder == "" {
		return nil, errors.New("empty folder")
	}
	abs, err := filepath.Abs(folder)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot get absolute path of '%s'", folder)
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	logger.Debug().Msgf("instantiating FS %s", abs)
	return &FS{
		folder: abs,
		logger: logger,
	}, nil
}

func (osFS *FS) String() string {
	return fmt.Sprintf("file://%s", filepath.ToSlash(osFS.folder))
}

func (osFS *FS) Folder() string {
	return osFS.folder
}

func (osFS *FS) IsNotExist(err error) bool {
	err = errors.Cause(err)
	return errors.Is(err, fs.ErrNotExist) || err == syscall.ENOENT
}

// FullPath maps a slash separated name to a path below the folder.
func (osFS *FS) FullPath(name string) string {
	name = strings.TrimPrefix(path.Clean("/"+filepath.ToSlash(name)), "/")
	if name == "" {
		return osFS.folder
	}
	return filepath.Join(osFS.folder, filepath.FromSlash(name))
}

func (osFS *FS) MkdirAll(name string) error {
	fullpath := osFS.FullPath(name)
	if err := os.MkdirAll(fullpath, 0755); err != nil {
		return errors.Wrapf(err, "cannot create folder '%s'", fullpath)
	}
	return nil
}

// CreateExclusive creates name and fails with fs.ErrExist if it is already
// there. The check and the creation are one atomic filesystem operation.
func (osFS *FS) CreateExclusive(name string) (*os.File, error) {
	fullpath := osFS.FullPath(name)
	osFS.logger.Debug().Msgf("creating %s exclusively", fullpath)
	fp, err := os.OpenFile(fullpath, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot create %s", fullpath)
	}
	return fp, nil
}

func (osFS *FS) Open(name string) (*os.File, error) {
	fullpath := osFS.FullPath(name)
	osFS.logger.Debug().Msgf("opening %s", fullpath)
	fp, err := os.Open(fullpath)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open %s", fullpath)
	}
	return fp, nil
}

// ReadDir returns the entries of name in the order the filesystem enumerates
// them. No sorting is applied.
func (osFS *FS) ReadDir(name string) ([]fs.DirEntry, error) {
	fullpath := osFS.FullPath(name)
	osFS.logger.Debug().Msgf("reading entries of %s", fullpath)
	fp, err := os.Open(fullpath)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open folder %s", fullpath)
	}
	defer fp.Close()
	dentries, err := fp.ReadDir(-1)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read folder %s", fullpath)
	}
	result := make([]fs.DirEntry, 0, len(dentries))
	// get rid of pseudo dirs
	for _, dentry := range dentries {
		if dentry.Name() == "." || dentry.Name() == ".." {
			continue
		}
		result = append(result, dentry)
	}
	return result, nil
}

func (osFS *FS) Stat(name string) (fs.FileInfo, error) {
	fullpath := osFS.FullPath(name)
	fi, err := os.Stat(fullpath)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot stat %s", fullpath)
	}
	return fi, nil
}

// Rename moves the local file src onto name, replacing whatever is there.
func (osFS *FS) Rename(src, name string) error {
	fullpath := osFS.FullPath(name)
	osFS.logger.Debug().Msgf("moving %s to %s", src, fullpath)
	if err := os.Rename(src, fullpath); err != nil {
		return errors.Wrapf(err, "cannot move %s to %s", src, fullpath)
	}
	return nil
}

func (osFS *FS) Remove(name string) error {
	fullpath := osFS.FullPath(name)
	if err := os.Remove(fullpath); err != nil {
		return errors.Wrapf(err, "cannot remove %s", fullpath)
	}
	return nil
}

func (osFS *FS) SubFS(name string) (*FS, error) {
	if name == "" || name == "." || name == "./" {
		return osFS, nil
	}
	return NewFS(osFS.FullPath(name), osFS.logger)
}
