package crashhook

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/kbukum/storefront/component"
	apperrors "github.com/kbukum/storefront/errors"
	"github.com/kbukum/storefront/logger"
)

func init() {
	color.NoColor = true
}

func TestConfigApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults("catalog")
	if filepath.Base(cfg.Path) != "storefront-catalog-crash.log" {
		t.Errorf("Path = %q", cfg.Path)
	}
	cfg = Config{Path: "/var/log/x.log"}
	cfg.ApplyDefaults("catalog")
	if cfg.Path != "/var/log/x.log" {
		t.Errorf("explicit Path overwritten: %q", cfg.Path)
	}
}

func TestInstallAndUninstall(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crash.log")
	hook := New("auth", Config{Path: path})

	if err := hook.Install(); err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	defer hook.Uninstall()
	if !hook.Installed() {
		t.Error("Installed() = false after Install")
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("crash file not created: %v", err)
	}
	if err := hook.Install(); err != nil {
		t.Errorf("second Install() = %v, want nil", err)
	}
	if err := hook.Uninstall(); err != nil {
		t.Fatalf("Uninstall() error = %v", err)
	}
	if hook.Installed() {
		t.Error("Installed() = true after Uninstall")
	}
}

func TestGuardReportsAndRepanics(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crash.log")
	hook := New("catalog", Config{Path: path})
	var stderr bytes.Buffer
	hook.out = &stderr
	if err := hook.Install(); err != nil {
		t.Fatal(err)
	}
	defer hook.Uninstall()

	recovered := func() (r interface{}) {
		defer func() { r = recover() }()
		defer hook.Guard("http-server")
		panic("boom")
	}()
	if recovered != "boom" {
		t.Fatalf("Guard should re-panic with the original value, got %v", recovered)
	}

	for _, want := range []string{"The catalog service panicked", "loop:  http-server", "value: boom"} {
		if !strings.Contains(stderr.String(), want) {
			t.Errorf("stderr report missing %q:\n%s", want, stderr.String())
		}
	}
	if err := hook.Uninstall(); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "value: boom") {
		t.Errorf("crash file missing report:\n%s", data)
	}
}

func TestGuardWithoutPanic(t *testing.T) {
	hook := New("auth", Config{Path: filepath.Join(t.TempDir(), "crash.log")})
	var stderr bytes.Buffer
	hook.out = &stderr
	func() {
		defer hook.Guard("noop")
	}()
	if stderr.Len() != 0 {
		t.Errorf("unexpected report: %s", stderr.String())
	}
}

func TestComponentOptional(t *testing.T) {
	bad := New("auth", Config{Path: filepath.Join(t.TempDir(), "missing", "dir", "crash.log")})

	comp := NewComponent(bad, false, logger.Nop())
	if !comp.Optional() {
		t.Error("component should be optional when not required")
	}
	if !component.IsOptional(comp) {
		t.Error("IsOptional() = false")
	}
	err := comp.Start(context.Background())
	if !apperrors.IsCode(err, apperrors.ErrCodeCrashHookFailed) {
		t.Fatalf("expected CRASH_HOOK_FAILED, got %v", err)
	}
	if h := comp.Health(context.Background()); h.Status != component.StatusDegraded {
		t.Errorf("Health() = %s, want degraded", h.Status)
	}

	required := NewComponent(bad, true, logger.Nop())
	if required.Optional() {
		t.Error("component should not be optional when required")
	}
}

func TestComponentLifecycle(t *testing.T) {
	hook := New("auth", Config{Path: filepath.Join(t.TempDir(), "crash.log")})
	comp := NewComponent(hook, false, logger.Nop())
	if err := comp.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if h := comp.Health(context.Background()); h.Status != component.StatusHealthy {
		t.Errorf("Health() = %s, want healthy", h.Status)
	}
	if err := comp.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}
