package checksum

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"hash"
	"maps"
	"slices"

	"emperror.dev/errors"
)

type DigestAlgorithm string

const (
	DigestMD5    DigestAlgorithm = "md5"
	DigestSHA1   DigestAlgorithm = "sha1"
	DigestSHA256 DigestAlgorithm = "sha256"
	DigestSHA512 DigestAlgorithm = "sha512"
)

var hashFunc = map[DigestAlgorithm]func() hash.Hash{
	DigestMD5:    md5.New,
	DigestSHA1:   sha1.New,
	DigestSHA256: sha256.New,
	DigestSHA512: sha512.New,
}

var DigestsNames = slices.Sorted(maps.Keys(hashFunc))

func HashExists(csType DigestAlgorithm) bool {
	_, ok := hashFunc[csType]
	return ok
}

func GetHash(csType DigestAlgorithm) (hash.Hash, error) {
	f, ok := hashFunc[csType]
	if !ok {
		return nil, errors.Errorf("unknown checksum %s", csType)
	}
	return f(), nil
}

// ParseDigests converts names into algorithms and rejects unknown ones.
func ParseDigests(names []string) ([]DigestAlgorithm, error) {
	result := make([]DigestAlgorithm, 0, len(names))
	for _, name := range names {
		alg := DigestAlgorithm(name)
		if !HashExists(alg) {
			return nil, errors.Errorf("unknown checksum %s", name)
		}
		if !slices.Contains(result, alg) {
			result = append(result, alg)
		}
	}
	return result, nil
}
