package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Looks up configuration values by key.
type Source interface {
	Lookup(key string) (string, bool)
}

// Adapts a plain function to a [Source].
type SourceFunc func(key string) (string, bool)

func (f SourceFunc) Lookup(key string) (string, bool) {
	return f(key)
}

// Returns a [Source] backed by the process environment.
func Env() Source {
	return SourceFunc(os.LookupEnv)
}

// Returns a [Source] backed by a fixed map. The map is copied.
func Map(values map[string]string) Source {
	m := make(map[string]string, len(values))
	for k, v := range values {
		m[k] = v
	}
	return SourceFunc(func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	})
}

// Reads a dotenv file into a [Source].
//
// A missing file yields an empty source, so that a checkout without a .env
// file behaves like one with an empty file. Any other read or parse error is
// returned.
func Dotenv(path string) (Source, error) {
	if path == "" {
		return Map(nil), nil
	}
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Map(nil), nil
		}
		return nil, invalid("env-file", err)
	}
	return Map(values), nil
}

// Returns a [Source] that consults each source in order and returns the
// first non-empty value found.
func Layered(sources ...Source) Source {
	return SourceFunc(func(key string) (string, bool) {
		for _, s := range sources {
			if s == nil {
				continue
			}
			if v, ok := s.Lookup(key); ok && v != "" {
				return v, true
			}
		}
		return "", false
	})
}

// Returns the first non-empty value among keys.
//
// Empty values are treated as unset: an exported but empty ACCESS_KEY is as
// unusable as a missing one.
func first(src Source, keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := src.Lookup(k); ok && v != "" {
			return v, true
		}
	}
	return "", false
}
