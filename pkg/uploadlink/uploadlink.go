package uploadlink

import (
	"net/url"
	"path/filepath"

	"emperror.dev/errors"
)

var ErrURLJoin = errors.New("cannot build public link")

// Build resolves "<namespace>/<file name>" against base, the public URL of
// the server. Only the last element of allocatedPath is used.
func Build(base *url.URL, namespace, allocatedPath string) (*url.URL, error) {
	if base == nil {
		return nil, errors.Wrap(ErrURLJoin, "no base url")
	}
	if namespace == "" {
		return nil, errors.Wrap(ErrURLJoin, "empty namespace")
	}
	fileName := filepath.Base(allocatedPath)
	if fileName == "." || fileName == string(filepath.Separator) {
		return nil, errors.Wrapf(ErrURLJoin, "no file name in '%s'", allocatedPath)
	}
	nsRef, err := url.Parse("./" + url.PathEscape(namespace) + "/")
	if err != nil {
		return nil, errors.Wrapf(ErrURLJoin, "namespace '%s': %v", namespace, err)
	}
	fileRef, err := url.Parse("./" + url.PathEscape(fileName))
	if err != nil {
		return nil, errors.Wrapf(ErrURLJoin, "file '%s': %v", fileName, err)
	}
	return base.ResolveReference(nsRef).ResolveReference(fileRef), nil
}

// BuildString is Build with a textual base url.
func BuildString(base, namespace, allocatedPath string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", errors.Wrapf(ErrURLJoin, "base '%s': %v", base, err)
	}
	link, err := Build(u, namespace, allocatedPath)
	if err != nil {
		return "", err
	}
	return link.String(), nil
}
