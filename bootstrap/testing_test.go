package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fatih/color"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/stub"
	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/embedded"
	"go.opentelemetry.io/otel/trace/noop"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/kbukum/storefront/config"
	"github.com/kbukum/storefront/crashhook"
	"github.com/kbukum/storefront/kafka/consumer"
	"github.com/kbukum/storefront/logger"
)

func init() {
	color.NoColor = true
}

// fakeConn answers the topic metadata check.
type fakeConn struct {
	partitions []kafkago.Partition
	err        error
}

func (f *fakeConn) ReadPartitions(topics ...string) ([]kafkago.Partition, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.partitions, nil
}

func (f *fakeConn) Close() error { return nil }

// fakeReader serves queued messages and errors, then blocks until the
// context ends.
type fakeReader struct {
	mu       sync.Mutex
	messages []kafkago.Message
	errs     []error
	closed   bool
}

func (f *fakeReader) ReadMessage(ctx context.Context) (kafkago.Message, error) {
	f.mu.Lock()
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		f.mu.Unlock()
		return kafkago.Message{}, err
	}
	if len(f.messages) > 0 {
		msg := f.messages[0]
		f.messages = f.messages[1:]
		f.mu.Unlock()
		return msg, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return kafkago.Message{}, ctx.Err()
}

func (f *fakeReader) Stats() kafkago.ReaderStats { return kafkago.ReaderStats{Topic: "example"} }

func (f *fakeReader) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeReader) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// recordingTracer records span names and hands out no-op spans.
type recordingTracer struct {
	embedded.Tracer
	mu    sync.Mutex
	names []string
}

func (r *recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	r.mu.Lock()
	r.names = append(r.names, name)
	r.mu.Unlock()
	return noop.NewTracerProvider().Tracer("test").Start(ctx, name, opts...)
}

func (r *recordingTracer) spans() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// harness wires fakes for every external collaborator.
type harness struct {
	t         *testing.T
	mock      sqlmock.Sqlmock
	dialector func(string) gorm.Dialector
	migrator  *stub.Stub
	migrated  bool
	dialErr   error
	conn      *fakeConn
	reader    *fakeReader
	crashPath string
	tracer    *recordingTracer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock error: %s", err)
	}
	t.Cleanup(func() { conn.Close() })

	drv, err := stub.WithInstance(nil, &stub.Config{})
	if err != nil {
		t.Fatal(err)
	}

	h := &harness{
		t:         t,
		mock:      mock,
		migrator:  drv.(*stub.Stub),
		conn:      &fakeConn{partitions: []kafkago.Partition{{Topic: "example", ID: 0}}},
		reader:    &fakeReader{},
		crashPath: filepath.Join(t.TempDir(), "crash.log"),
		tracer:    &recordingTracer{},
	}
	h.dialector = func(string) gorm.Dialector { return postgres.New(postgres.Config{Conn: conn}) }
	return h
}

func (h *harness) options(extra ...Option) []Option {
	opts := []Option{
		WithLogger(logger.Nop()),
		WithSummaryWriter(io.Discard),
		WithTracer(h.tracer),
		WithGracefulTimeout(5 * time.Second),
		WithDialector(h.dialector),
		WithMigrationDriver(func(*sql.DB) (database.Driver, error) {
			h.migrated = true
			return h.migrator, nil
		}),
		WithKafkaDialer(func(_ context.Context, _ string) (consumer.Conn, error) {
			if h.dialErr != nil {
				return nil, h.dialErr
			}
			return h.conn, nil
		}),
		WithKafkaReader(func(kafkago.ReaderConfig) consumer.MessageReader { return h.reader }),
	}
	return append(opts, extra...)
}

func (h *harness) settings() *Settings {
	return &Settings{Crash: crashhook.Config{Path: h.crashPath}}
}

func resolve(t *testing.T, v Variant, values map[string]string) *config.Resolved {
	t.Helper()
	r, err := config.Resolve(v.Keys(), config.WithEnviron(config.MapSource(values)))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	return r
}

func authValues(addr string) map[string]string {
	return map[string]string{
		string(AuthServerKey):   addr,
		string(AuthDatabaseKey): "postgres://auth@localhost/auth",
	}
}

func catalogValues(addr string) map[string]string {
	return map[string]string{
		string(CatalogServerKey):   addr,
		string(CatalogDatabaseKey): "postgres://catalog@localhost/catalog",
		string(KafkaGroupKey):      "catalog",
		string(KafkaBrokerKey):     "broker-a:9092, broker-b:9092",
	}
}

// freeAddr returns a loopback address nobody is listening on.
func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := l.Addr().String()
	l.Close()
	return addr
}

func waitForState(t *testing.T, app *App, want State) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if s := app.State(); s == want {
			return
		} else if s == Failed {
			t.Fatalf("app failed while waiting for %s: %v", want, app.Err())
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for state %s, at %s", want, app.State())
}

// runAsync starts app.Run and returns a channel carrying its result.
func runAsync(ctx context.Context, app *App) <-chan error {
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()
	return done
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return")
		return errors.New("unreachable")
	}
}
