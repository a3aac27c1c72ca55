// Package crashhook installs crash diagnostics for a service process.
//
// Install routes the runtime's fatal-error output (unrecovered panics,
// concurrent map writes, out-of-memory) to a crash file in addition to
// stderr. Guard, deferred at the top of a goroutine, turns a panic into a
// readable report before letting it crash the process as usual.
package crashhook

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/kbukum/storefront/util"
)

// Config controls crash diagnostics.
type Config struct {
	// Path is the crash file. Defaults to <tmp>/storefront-<service>-crash.log.
	Path string `yaml:"path" mapstructure:"path"`
	// Required makes an installation failure abort startup.
	Required bool `yaml:"required" mapstructure:"required"`
}

// ApplyDefaults fills Path from the service name.
func (c *Config) ApplyDefaults(service string) {
	c.Path = util.Coalesce(c.Path, filepath.Join(os.TempDir(), fmt.Sprintf("storefront-%s-crash.log", service)))
}

// Hook owns the crash file while installed.
type Hook struct {
	service string
	path    string
	out     io.Writer

	mu   sync.Mutex
	file *os.File
}

// New creates a hook writing reports for service. Nothing is installed
// until Install.
func New(service string, cfg Config) *Hook {
	cfg.ApplyDefaults(service)
	return &Hook{service: service, path: cfg.Path, out: os.Stderr}
}

// Path returns the crash file path.
func (h *Hook) Path() string { return h.path }

// Install opens the crash file and points the runtime's crash output at it.
func (h *Hook) Install() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.file != nil {
		return nil
	}

	f, err := os.OpenFile(h.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open crash file: %w", err)
	}
	if err := debug.SetCrashOutput(f, debug.CrashOptions{}); err != nil {
		_ = f.Close()
		return fmt.Errorf("set crash output: %w", err)
	}
	h.file = f
	return nil
}

// Uninstall restores the default crash output and closes the file.
func (h *Hook) Uninstall() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.file == nil {
		return nil
	}
	if err := debug.SetCrashOutput(nil, debug.CrashOptions{}); err != nil {
		return fmt.Errorf("reset crash output: %w", err)
	}
	err := h.file.Close()
	h.file = nil
	return err
}

// Installed reports whether the hook is active.
func (h *Hook) Installed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.file != nil
}

// Guard reports a panic in the calling goroutine and re-panics. Use it as
// the first deferred call of a goroutine:
//
//	go func() {
//	    defer hook.Guard("kafka-consumer")
//	    ...
//	}()
func (h *Hook) Guard(loop string) {
	r := recover()
	if r == nil {
		return
	}
	h.Report(loop, r, debug.Stack())
	panic(r)
}

// Report writes a panic report to stderr and, when installed, the crash file.
func (h *Hook) Report(loop string, value interface{}, stack []byte) {
	header := color.New(color.FgRed, color.Bold)
	label := color.New(color.FgYellow)

	h.mu.Lock()
	defer h.mu.Unlock()

	writers := []io.Writer{h.out}
	if h.file != nil {
		writers = append(writers, h.file)
	}
	for _, w := range writers {
		header.Fprintf(w, "\nThe %s service panicked\n", h.service)
		label.Fprint(w, "  loop:  ")
		fmt.Fprintln(w, loop)
		label.Fprint(w, "  value: ")
		fmt.Fprintln(w, value)
		label.Fprint(w, "  time:  ")
		fmt.Fprintln(w, time.Now().UTC().Format(time.RFC3339))
		fmt.Fprintf(w, "\n%s\n", stack)
	}
}
