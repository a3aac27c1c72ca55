package config

import (
	"os"

	apperrors "github.com/kbukum/storefront/errors"
)

// Source provides values for configuration keys.
type Source interface {
	Lookup(key string) (string, bool)
}

// EnvironSource reads the inherited process environment.
type EnvironSource struct{}

// Lookup reports the environment value for key; an empty value counts as set.
func (EnvironSource) Lookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

// MapSource serves values from a fixed map.
type MapSource map[string]string

// Lookup reports the map value for key.
func (m MapSource) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// ResolveOption configures Resolve.
type ResolveOption func(*resolveOptions)

type resolveOptions struct {
	primary     Source
	fileSystem  FileSystem
	envFile     string
	serviceName string
}

// WithEnvFile sets an explicit fallback env file path instead of searching for one.
func WithEnvFile(path string) ResolveOption {
	return func(o *resolveOptions) { o.envFile = path }
}

// WithServiceName sets the service name used when searching for the fallback env file.
func WithServiceName(name string) ResolveOption {
	return func(o *resolveOptions) { o.serviceName = name }
}

// WithFileSystem sets a custom filesystem for locating and reading the fallback env file.
func WithFileSystem(fs FileSystem) ResolveOption {
	return func(o *resolveOptions) { o.fileSystem = fs }
}

// WithEnviron replaces the process environment as the primary source.
func WithEnviron(src Source) ResolveOption {
	return func(o *resolveOptions) { o.primary = src }
}

// Resolve produces a Resolved holding every key in keys, or fails.
//
// The primary source is read first. If any key is still unset the fallback
// env file is loaded; failing to find or read it is fatal even if it would
// not have supplied the missing keys. Fallback values only fill keys the
// primary source left unset. Any key still unset afterwards is reported in
// a MISSING_REQUIRED_KEYS error naming every such key.
func Resolve(keys Keys, opts ...ResolveOption) (*Resolved, error) {
	o := &resolveOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.primary == nil {
		o.primary = EnvironSource{}
	}
	if o.fileSystem == nil {
		o.fileSystem = &RealFileSystem{}
	}

	values := make(map[Key]string, len(keys))
	fill(values, keys, o.primary)
	if len(missingKeys(values, keys)) == 0 {
		return newResolved(keys, values), nil
	}

	path := o.envFile
	if path == "" {
		path = (&Locator{FileSystem: o.fileSystem}).FindEnvFile(o.serviceName)
	}
	if path == "" {
		return nil, apperrors.ConfigSourceUnavailable("", os.ErrNotExist)
	}
	fileValues, err := o.fileSystem.ReadEnv(path)
	if err != nil {
		return nil, apperrors.ConfigSourceUnavailable(path, err)
	}
	fill(values, keys, MapSource(fileValues))

	if missing := missingKeys(values, keys); len(missing) > 0 {
		return nil, apperrors.MissingRequiredKeys(missing.Strings())
	}
	return newResolved(keys, values), nil
}

// fill copies values for keys not yet present in values.
func fill(values map[Key]string, keys Keys, src Source) {
	for _, k := range keys {
		if _, ok := values[k]; ok {
			continue
		}
		if v, ok := src.Lookup(string(k)); ok {
			values[k] = v
		}
	}
}

func missingKeys(values map[Key]string, keys Keys) Keys {
	var missing Keys
	for _, k := range keys {
		if _, ok := values[k]; !ok {
			missing = append(missing, k)
		}
	}
	return missing
}
