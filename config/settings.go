package config

import (
	"fmt"

	"github.com/spf13/viper"

	apperrors "github.com/kbukum/storefront/errors"
	"github.com/kbukum/storefront/validation"
)

// Settings is implemented by any struct embedding ServiceConfig.
type Settings interface {
	GetServiceConfig() *ServiceConfig
	ApplyDefaults()
	Validate() error
}

// SettingsOption is a functional option for LoadSettings.
type SettingsOption func(*settingsOptions)

type settingsOptions struct {
	fileSystem FileSystem
	configFile string
}

// WithConfigFile sets an explicit settings file path. Unlike a searched
// path, an explicit one must exist.
func WithConfigFile(path string) SettingsOption {
	return func(o *settingsOptions) { o.configFile = path }
}

// WithSettingsFileSystem sets the filesystem used to search for config.yml.
func WithSettingsFileSystem(fs FileSystem) SettingsOption {
	return func(o *settingsOptions) { o.fileSystem = fs }
}

// LoadSettings fills out from the service's config.yml, then applies
// defaults and validates the result.
//
// The file is optional: when none is found out keeps its zero values plus
// defaults. Settings are read from YAML only; required keys never come
// from here.
func LoadSettings(serviceName string, out Settings, opts ...SettingsOption) error {
	o := &settingsOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.fileSystem == nil {
		o.fileSystem = &RealFileSystem{}
	}

	path := o.configFile
	if path != "" && !o.fileSystem.Exists(path) {
		return apperrors.InvalidSettings(fmt.Sprintf("settings file %s does not exist", path), nil).
			WithDetail("path", path)
	}
	if path == "" {
		path = (&Locator{FileSystem: o.fileSystem}).FindConfigFile(serviceName)
	}

	if path != "" {
		v := viper.New()
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return apperrors.InvalidSettings(fmt.Sprintf("failed to read settings file %s", path), err).
				WithDetail("path", path)
		}
		if err := v.Unmarshal(out); err != nil {
			return apperrors.InvalidSettings(fmt.Sprintf("failed to decode settings for service %s", serviceName), err).
				WithDetail("path", path)
		}
	}

	base := out.GetServiceConfig()
	if base.Name == "" {
		base.Name = serviceName
	}
	out.ApplyDefaults()

	if err := validation.Struct(out); err != nil {
		return invalid("settings failed validation", err)
	}
	if err := out.Validate(); err != nil {
		return invalid(err.Error(), err)
	}
	return nil
}

func invalid(reason string, err error) error {
	e := apperrors.InvalidSettings(reason, err)
	if fields := validation.Fields(err); fields != nil {
		e = e.WithDetail("fields", fields)
	}
	return e
}
