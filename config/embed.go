package config

import (
	_ "embed"
	"strings"
)

//go:embed filedrop.toml
var DefaultConfig string

// DefaultConfigWithKey returns the default configuration with key as the
// secret of the default namespace.
func DefaultConfigWithKey(key string) string {
	return strings.Replace(DefaultConfig, `key = ""`, `key = "`+key+`"`, 1)
}
