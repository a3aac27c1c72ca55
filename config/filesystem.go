package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultEnvFile is the fallback file name looked up when the environment is incomplete.
const DefaultEnvFile = ".env"

// FileSystem interface for file operations (useful for testing).
type FileSystem interface {
	Exists(path string) bool
	ReadEnv(path string) (map[string]string, error)
	Getwd() (string, error)
}

// RealFileSystem implements FileSystem using actual file operations.
type RealFileSystem struct{}

func (rfs *RealFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ReadEnv parses a key=value file without touching the process environment.
func (rfs *RealFileSystem) ReadEnv(path string) (map[string]string, error) {
	return godotenv.Read(path)
}

func (rfs *RealFileSystem) Getwd() (string, error) {
	return os.Getwd()
}

// Locator finds the fallback env file and the settings file for a service.
type Locator struct {
	FileSystem FileSystem
}

// envSearchDepth bounds the fallback search to ./.env, ../.env and ../../.env.
const envSearchDepth = 3

// FindEnvFile returns the first fallback env file found, or "" if none exists.
// It looks in ./cmd/<service>/ first, then in the working directory, its
// parent and its grandparent.
func (l *Locator) FindEnvFile(serviceName string) string {
	if serviceName != "" {
		for _, candidate := range []string{
			fmt.Sprintf("./cmd/%s/%s", serviceName, DefaultEnvFile),
			fmt.Sprintf("./cmd/%s/%s", shortName(serviceName), DefaultEnvFile),
		} {
			if l.FileSystem.Exists(candidate) {
				return candidate
			}
		}
	}

	wd, err := l.FileSystem.Getwd()
	if err != nil {
		if l.FileSystem.Exists(DefaultEnvFile) {
			return DefaultEnvFile
		}
		return ""
	}
	dir := wd
	for i := 0; i < envSearchDepth; i++ {
		candidate := filepath.Join(dir, DefaultEnvFile)
		if l.FileSystem.Exists(candidate) {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// FindConfigFile searches for config.yml in standard locations.
func (l *Locator) FindConfigFile(serviceName string) string {
	short := shortName(serviceName)
	searchPaths := []string{
		fmt.Sprintf("./cmd/%s/config.yml", serviceName),
		fmt.Sprintf("./cmd/%s/config.yml", short),
		fmt.Sprintf("../cmd/%s/config.yml", serviceName),
		fmt.Sprintf("../../cmd/%s/config.yml", serviceName),
		"./config/config.yml",
		"./config.yml",
	}
	for _, path := range searchPaths {
		if l.FileSystem.Exists(path) {
			return path
		}
	}
	return ""
}

// shortName strips a "-service" style prefix: "storefront-catalog" -> "catalog".
func shortName(serviceName string) string {
	if idx := strings.LastIndex(serviceName, "-"); idx != -1 {
		return serviceName[idx+1:]
	}
	return serviceName
}
