package namespace

import (
	"crypto/subtle"
	"maps"
	"slices"

	"emperror.dev/errors"
	"github.com/ocfl-archive/filedrop/pkg/namegen"
	"github.com/ocfl-archive/filedrop/pkg/osfs"
)

// ErrAuthFailure is the common cause of every failed authentication. Callers
// outside this package must not distinguish between its variants.
var ErrAuthFailure = errors.New("authentication failed")

var (
	ErrNotFound     = errors.WrapIf(ErrAuthFailure, "namespace not found")
	ErrUnauthorized = errors.WrapIf(ErrAuthFailure, "key mismatch")
)

type ListingPolicy struct {
	Show             bool
	UseFancyRenderer bool
}

// Namespace is an isolated storage area with its own key, folder and naming
// policy. It is read only after creation.
type Namespace struct {
	name      string
	key       string
	fsys      *osfs.FS
	listing   ListingPolicy
	generator namegen.Generator
}

func New(name, key string, fsys *osfs.FS, listing ListingPolicy, generator namegen.Generator) (*Namespace, error) {
	if name == "" {
		return nil, errors.New("empty namespace name")
	}
	if fsys == nil {
		return nil, errors.Errorf("no filesystem for namespace '%s'", name)
	}
	return &Namespace{
		name:      name,
		key:       key,
		fsys:      fsys,
		listing:   listing,
		generator: generator,
	}, nil
}

func (ns *Namespace) Name() string                 { return ns.name }
func (ns *Namespace) FS() *osfs.FS                 { return ns.fsys }
func (ns *Namespace) Path() string                 { return ns.fsys.Folder() }
func (ns *Namespace) Listing() ListingPolicy       { return ns.listing }
func (ns *Namespace) Generator() namegen.Generator { return ns.generator }

func (ns *Namespace) String() string {
	return ns.name + " (" + ns.fsys.String() + ")"
}

func (ns *Namespace) keyMatches(key string) bool {
	return subtle.ConstantTimeCompare([]byte(ns.key), []byte(key)) == 1
}

// Registry holds all namespaces of the process. It is built once at startup
// and shared read only between requests.
type Registry struct {
	namespaces map[string]*Namespace
}

func NewRegistry(namespaces ...*Namespace) (*Registry, error) {
	r := &Registry{namespaces: make(map[string]*Namespace, len(namespaces))}
	for _, ns := range namespaces {
		if ns == nil {
			continue
		}
		if _, ok := r.namespaces[ns.name]; ok {
			return nil, errors.Errorf("duplicate namespace '%s'", ns.name)
		}
		r.namespaces[ns.name] = ns
	}
	return r, nil
}

// Authenticate returns the namespace name if key is its secret key.
func (r *Registry) Authenticate(name, key string) (*Namespace, error) {
	ns, ok := r.namespaces[name]
	if !ok {
		return nil, errors.WithStack(ErrNotFound)
	}
	if !ns.keyMatches(key) {
		return nil, errors.WithStack(ErrUnauthorized)
	}
	return ns, nil
}

func (r *Registry) Lookup(name string) (*Namespace, bool) {
	ns, ok := r.namespaces[name]
	return ns, ok
}

// Names returns all namespace names in sorted order.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.namespaces))
}

func (r *Registry) Len() int {
	return len(r.namespaces)
}
