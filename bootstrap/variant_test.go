package bootstrap

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/kbukum/storefront/config"
	apperrors "github.com/kbukum/storefront/errors"
	"github.com/kbukum/storefront/logger"
)

func TestVariantKeys(t *testing.T) {
	tests := []struct {
		variant Variant
		want    []string
	}{
		{Auth(), []string{"AUTH_SERVER", "AUTH_DATABASE_URL"}},
		{Catalog(), []string{"CATALOG_SERVER", "CATALOG_DATABASE_URL", "KAFKA_GROUP_ID", "KAFKA_BROKER"}},
	}
	for _, tc := range tests {
		if got := tc.variant.Keys().Strings(); fmt.Sprint(got) != fmt.Sprint(tc.want) {
			t.Errorf("%s keys = %v, want %v", tc.variant.Name, got, tc.want)
		}
	}
}

func TestVariantValidate(t *testing.T) {
	migrations := fstest.MapFS{"1_init.up.sql": {Data: []byte("SELECT 1")}}

	tests := []struct {
		name    string
		variant Variant
		wantErr bool
	}{
		{"auth", Auth(), false},
		{"catalog", Catalog(), false},
		{"missing name", Variant{ServerKey: "X_SERVER"}, true},
		{"missing server key", Variant{Name: "x"}, true},
		{"datastore without key", Variant{Name: "x", ServerKey: "X_SERVER", Capabilities: Datastore, Migrations: migrations}, true},
		{"datastore without migrations", Variant{Name: "x", ServerKey: "X_SERVER", DatabaseKey: "X_DB", Capabilities: Datastore}, true},
		{"broker without keys", Variant{Name: "x", ServerKey: "X_SERVER", Capabilities: Broker}, true},
		{"consume without broker", Variant{Name: "x", ServerKey: "X_SERVER", Capabilities: ConsumeMessages}, true},
		{"server only", Variant{Name: "x", ServerKey: "X_SERVER"}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.variant.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestCapabilityString(t *testing.T) {
	tests := []struct {
		c    Capability
		want string
	}{
		{0, "none"},
		{Datastore, "datastore"},
		{Datastore | Broker | ConsumeMessages, "datastore+broker+consume"},
	}
	for _, tc := range tests {
		if got := tc.c.String(); got != tc.want {
			t.Errorf("%d.String() = %q, want %q", tc.c, got, tc.want)
		}
	}
	if !Catalog().Capabilities.Has(Broker | ConsumeMessages) {
		t.Error("catalog should consume messages")
	}
	if Auth().Capabilities.Has(Broker) {
		t.Error("auth should not use the broker")
	}
}

func TestStateString(t *testing.T) {
	if Serving.String() != "serving" || Failed.String() != "failed" || State(99).String() != "unknown" {
		t.Errorf("unexpected names: %s %s %s", Serving, Failed, State(99))
	}
}

func TestStateOnlyMovesForward(t *testing.T) {
	app := &App{Logger: logger.Nop(), state: Configured, history: []State{Unconfigured, Configured}}

	if !app.advance(Migrated) {
		t.Fatal("advance(Migrated) = false")
	}
	if app.advance(DatastoreConnected) {
		t.Error("moved backwards to datastore-connected")
	}
	reason := errors.New("bind: address in use")
	app.fail(reason)
	app.fail(errors.New("second reason"))
	if app.advance(Serving) {
		t.Error("left the failed state")
	}
	if app.State() != Failed || app.Err() != reason {
		t.Errorf("State=%s Err=%v", app.State(), app.Err())
	}
	want := []State{Unconfigured, Configured, Migrated, Failed}
	if fmt.Sprint(app.History()) != fmt.Sprint(want) {
		t.Errorf("history = %v, want %v", app.History(), want)
	}
}

func TestSettingsDefaults(t *testing.T) {
	s := Settings{ServiceConfig: config.ServiceConfig{Name: "catalog"}}
	s.ApplyDefaults()
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if s.ShutdownTimeout != "15s" || s.shutdownTimeout().Seconds() != 15 {
		t.Errorf("ShutdownTimeout = %q", s.ShutdownTimeout)
	}
	if s.Kafka.Topic != "example" || s.Database.MaxOpenConns != 25 || s.Server.ReadTimeout != 15 {
		t.Errorf("section defaults not applied: %+v", s)
	}
	if filepath.Base(s.Crash.Path) != "storefront-catalog-crash.log" {
		t.Errorf("Crash.Path = %q", s.Crash.Path)
	}
}

func TestLoadSettingsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	yml := `
environment: production
version: 1.4.0
shutdown_timeout: 30s
logging:
  level: warn
  format: json
database:
  max_open_conns: 50
  max_idle_conns: 10
server:
  read_timeout: 5
kafka:
  start_offset: last
crash:
  required: true
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}

	var s Settings
	if err := config.LoadSettings("catalog", &s, config.WithConfigFile(path)); err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	if s.Name != "catalog" || s.Environment != "production" || s.Version != "1.4.0" {
		t.Errorf("service section = %+v", s.ServiceConfig)
	}
	if s.Database.MaxOpenConns != 50 || s.Server.ReadTimeout != 5 || s.Kafka.StartOffset != "last" {
		t.Errorf("sections not decoded: db=%d server=%d kafka=%q", s.Database.MaxOpenConns, s.Server.ReadTimeout, s.Kafka.StartOffset)
	}
	if !s.Crash.Required || s.shutdownTimeout().Seconds() != 30 {
		t.Errorf("crash=%+v shutdown=%q", s.Crash, s.ShutdownTimeout)
	}
}

func TestLoadSettingsRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte("kafka:\n  start_offset: middle\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	var s Settings
	err := config.LoadSettings("catalog", &s, config.WithConfigFile(path))
	if !apperrors.IsCode(err, apperrors.ErrCodeInvalidSettings) {
		t.Fatalf("expected INVALID_SETTINGS, got %v", err)
	}
}
