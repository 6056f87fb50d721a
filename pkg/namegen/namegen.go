package namegen

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"emperror.dev/errors"
	"github.com/google/uuid"
)

type Kind uint8

const (
	KindRandom Kind = iota
	KindUUID
)

var KindString = map[Kind]string{
	KindRandom: "random",
	KindUUID:   "uuid",
}

func (k Kind) String() string {
	if str, ok := KindString[k]; ok {
		return str
	}
	return fmt.Sprintf("unknown(%d)", uint8(k))
}

func ParseKind(str string) (Kind, error) {
	str = strings.ToLower(strings.TrimSpace(str))
	for k, s := range KindString {
		if s == str {
			return k, nil
		}
	}
	return 0, errors.Errorf("unknown file name generator type '%s'", str)
}

const Alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

const DefaultMaxAttemptsBeforeGrow = 32

// Generator produces base names for newly stored files.
// It is a closed union of the random and the uuid strategy and carries no
// mutable state; the zero value is not usable.
type Generator struct {
	kind                  Kind
	length                uint
	maxAttemptsBeforeGrow uint
	alphabet              string
}

type Option func(*Generator)

// WithAlphabet replaces the alphanumeric alphabet of a random generator.
func WithAlphabet(alphabet string) Option {
	return func(g *Generator) {
		if alphabet != "" {
			g.alphabet = alphabet
		}
	}
}

func Random(length, maxAttemptsBeforeGrow uint, opts ...Option) Generator {
	g := Generator{
		kind:                  KindRandom,
		length:                length,
		maxAttemptsBeforeGrow: maxAttemptsBeforeGrow,
		alphabet:              Alphanumeric,
	}
	for _, opt := range opts {
		opt(&g)
	}
	return g
}

func UUID() Generator {
	return Generator{kind: KindUUID}
}

func (g Generator) Kind() Kind { return g.kind }

// Length is the configured start length. Always 0 for uuid.
func (g Generator) Length() uint { return g.length }

// MaxAttemptsBeforeGrow is the number of tolerated collisions before the
// working length grows. Always 0 for uuid.
func (g Generator) MaxAttemptsBeforeGrow() uint { return g.maxAttemptsBeforeGrow }

func (g Generator) String() string {
	switch g.kind {
	case KindRandom:
		return fmt.Sprintf("random(length=%d, maxAttemptsBeforeGrow=%d)", g.length, g.maxAttemptsBeforeGrow)
	default:
		return g.kind.String()
	}
}

// Generate returns a new name with the configured length.
func (g Generator) Generate() (string, error) {
	return g.GenerateN(g.length)
}

// GenerateN returns a new name of length n. The length is ignored for uuid.
func (g Generator) GenerateN(n uint) (string, error) {
	switch g.kind {
	case KindRandom:
		return RandomString(n, g.alphabet)
	case KindUUID:
		id, err := uuid.NewRandom()
		if err != nil {
			return "", errors.Wrap(err, "cannot create uuid")
		}
		return id.String(), nil
	default:
		return "", errors.Errorf("unknown generator kind %s", g.kind)
	}
}

// RandomString draws n characters uniformly from alphabet using crypto/rand.
func RandomString(n uint, alphabet string) (string, error) {
	if alphabet == "" {
		return "", errors.New("empty alphabet")
	}
	size := big.NewInt(int64(len(alphabet)))
	var sb strings.Builder
	sb.Grow(int(n))
	for i := uint(0); i < n; i++ {
		idx, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", errors.Wrap(err, "cannot read random data")
		}
		sb.WriteByte(alphabet[idx.Int64()])
	}
	return sb.String(), nil
}
