package server

import (
	"os"
	"path/filepath"

	"emperror.dev/errors"
	"github.com/je4/utils/v2/pkg/zLogger"
	"github.com/ocfl-archive/filedrop/config"
	"github.com/ocfl-archive/filedrop/pkg/namespace"
	"github.com/rs/zerolog"
)

// PrepareStorage creates the uploads root with its temp folder, the default
// namespace folder and the folders of all namespaces. Staged files left over
// from an earlier run are removed.
func PrepareStorage(conf *config.FileDropConfig, registry *namespace.Registry, logger zLogger.ZLogger) error {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	tempPath := conf.Storage.TempPath()
	for _, dir := range []string{conf.Storage.UploadsDirectory, tempPath, conf.Storage.DefaultNamespacePath()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrapf(err, "cannot create folder %s", dir)
		}
	}
	for _, name := range registry.Names() {
		ns, _ := registry.Lookup(name)
		if err := ns.FS().MkdirAll("."); err != nil {
			return errors.Wrapf(err, "cannot create folder of namespace %s", name)
		}
	}

	entries, err := os.ReadDir(tempPath)
	if err != nil {
		return errors.Wrapf(err, "cannot read %s", tempPath)
	}
	for _, entry := range entries {
		stale := filepath.Join(tempPath, entry.Name())
		if err := os.RemoveAll(stale); err != nil {
			return errors.Wrapf(err, "cannot remove stale upload %s", stale)
		}
		logger.Debug().Msgf("removed stale upload %s", stale)
	}
	return nil
}
