package allocator

import (
	"fmt"
	"io/fs"
	"os"

	"emperror.dev/errors"
	"github.com/je4/utils/v2/pkg/zLogger"
	"github.com/ocfl-archive/filedrop/pkg/namegen"
	"github.com/ocfl-archive/filedrop/pkg/namespace"
	"github.com/rs/zerolog"
)

// ErrExhausted is returned when a total attempt limit was configured and
// every candidate collided.
var ErrExhausted = errors.New("no free file name found")

// IOError is a filesystem failure that is not a name collision. It aborts
// the allocation.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// FS is the part of the namespace storage the allocator needs.
type FS interface {
	MkdirAll(name string) error
	CreateExclusive(name string) (*os.File, error)
	FullPath(name string) string
}

// Observer is notified after every allocation.
type Observer interface {
	RecordAllocation(namespace string, attempts int, length uint, err error)
}

// Reservation is a claimed path inside a namespace folder.
type Reservation struct {
	Path     string
	Name     string
	Attempts int
	Length   uint
}

type Allocator struct {
	maxTotalAttempts int
	observer         Observer
	logger           zLogger.ZLogger
}

type Option func(*Allocator)

// WithMaxTotalAttempts limits the number of collisions per allocation. Zero
// keeps the loop unbounded.
func WithMaxTotalAttempts(n int) Option {
	return func(a *Allocator) { a.maxTotalAttempts = n }
}

func WithObserver(o Observer) Option {
	return func(a *Allocator) { a.observer = o }
}

func New(logger zLogger.ZLogger, opts ...Option) *Allocator {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	a := &Allocator{logger: logger}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Allocate reserves a new unique file name with the given extension in the
// folder of ns.
func (a *Allocator) Allocate(ns *namespace.Namespace, ext string) (*Reservation, error) {
	res, err := a.AllocateFS(ns.FS(), ns.Generator(), ext)
	if a.observer != nil {
		var attempts int
		var length uint
		if res != nil {
			attempts, length = res.Attempts, res.Length
		}
		a.observer.RecordAllocation(ns.Name(), attempts, length, err)
	}
	if err != nil {
		return nil, err
	}
	a.logger.Debug().Str("namespace", ns.Name()).Int("attempts", res.Attempts).Msgf("reserved %s", res.Path)
	return res, nil
}

// AllocateFS is Allocate on a bare filesystem and generator.
func (a *Allocator) AllocateFS(fsys FS, gen namegen.Generator, ext string) (*Reservation, error) {
	if err := fsys.MkdirAll("."); err != nil {
		return nil, &IOError{Op: "mkdir", Path: fsys.FullPath("."), Err: err}
	}

	switch gen.Kind() {
	case namegen.KindUUID:
		// collisions of random uuids are not checked
		name, err := gen.Generate()
		if err != nil {
			return nil, errors.Wrap(err, "cannot generate name")
		}
		fname := fileName(name, ext)
		return &Reservation{
			Path:     fsys.FullPath(fname),
			Name:     fname,
			Attempts: 1,
		}, nil
	case namegen.KindRandom:
		return a.reserveRandom(fsys, gen, ext)
	default:
		return nil, errors.Errorf("unsupported generator %s", gen)
	}
}

func (a *Allocator) reserveRandom(fsys FS, gen namegen.Generator, ext string) (*Reservation, error) {
	length := gen.Length()
	maxBeforeGrow := gen.MaxAttemptsBeforeGrow()
	var attempts uint
	var total int
	for {
		name, err := gen.GenerateN(length)
		if err != nil {
			return nil, errors.Wrap(err, "cannot generate name")
		}
		fname := fileName(name, ext)
		total++
		fp, err := fsys.CreateExclusive(fname)
		if err == nil {
			if err := fp.Close(); err != nil {
				return nil, &IOError{Op: "close", Path: fp.Name(), Err: err}
			}
			return &Reservation{
				Path:     fsys.FullPath(fname),
				Name:     fname,
				Attempts: total,
				Length:   length,
			}, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, &IOError{Op: "create", Path: fsys.FullPath(fname), Err: err}
		}
		if a.maxTotalAttempts > 0 && total >= a.maxTotalAttempts {
			return nil, errors.Wrapf(ErrExhausted, "%d candidates in %s", total, fsys.FullPath("."))
		}
		attempts++
		if attempts > maxBeforeGrow {
			length++
			attempts = 0
			a.logger.Debug().Msgf("growing file name length to %d in %s", length, fsys.FullPath("."))
		}
	}
}

func fileName(name, ext string) string {
	if ext == "" {
		return name
	}
	return name + "." + ext
}
