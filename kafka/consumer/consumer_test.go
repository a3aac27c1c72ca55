package consumer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/storefront/component"
	apperrors "github.com/kbukum/storefront/errors"
	"github.com/kbukum/storefront/kafka"
	"github.com/kbukum/storefront/logger"
)

type fakeConn struct {
	partitions []kafkago.Partition
	err        error
	closed     bool
}

func (f *fakeConn) ReadPartitions(topics ...string) ([]kafkago.Partition, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.partitions, nil
}

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

// fakeReader serves queued messages, then blocks until the context ends or
// the reader is closed.
type fakeReader struct {
	mu       sync.Mutex
	messages []kafkago.Message
	errs     []error
	closed   bool
	done     chan struct{}
}

func (f *fakeReader) doneCh() chan struct{} {
	if f.done == nil {
		f.done = make(chan struct{})
	}
	return f.done
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
	done := f.doneCh()
	f.mu.Unlock()
	select {
	case <-ctx.Done():
		return kafkago.Message{}, ctx.Err()
	case <-done:
		return kafkago.Message{}, io.EOF
	}
}

func (f *fakeReader) Stats() kafkago.ReaderStats {
	return kafkago.ReaderStats{Topic: "example", Messages: 2, Lag: 7}
}

func (f *fakeReader) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		close(f.doneCh())
	}
	f.closed = true
	return nil
}

func testConfig() kafka.Config {
	return kafka.Config{
		Brokers: []string{"broker-a:9092", "broker-b:9092"},
		GroupID: "catalog",
	}
}

func newTestConsumer(t *testing.T, cfg kafka.Config, conn *fakeConn, reader *fakeReader) (*Consumer, *kafkago.ReaderConfig) {
	t.Helper()
	c, err := NewConsumer(cfg, logger.Nop())
	if err != nil {
		t.Fatalf("NewConsumer() error = %v", err)
	}
	var captured kafkago.ReaderConfig
	c.WithDialFunc(func(_ context.Context, _ string) (Conn, error) { return conn, nil }).
		WithReaderFunc(func(rc kafkago.ReaderConfig) MessageReader {
			captured = rc
			return reader
		})
	return c, &captured
}

func TestConsumerStartSubscribes(t *testing.T) {
	conn := &fakeConn{partitions: []kafkago.Partition{{Topic: "example", ID: 0}, {Topic: "example", ID: 1}}}
	c, rc := newTestConsumer(t, testConfig(), conn, &fakeReader{})

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !conn.closed {
		t.Error("metadata connection should be closed after Start")
	}
	if rc.Topic != "example" || rc.GroupID != "catalog" {
		t.Errorf("reader config topic=%q group=%q", rc.Topic, rc.GroupID)
	}
	if rc.SessionTimeout != 6*time.Second {
		t.Errorf("SessionTimeout = %v, want 6s", rc.SessionTimeout)
	}
	if len(rc.Brokers) != 2 {
		t.Errorf("Brokers = %v", rc.Brokers)
	}
	if h := c.Health(context.Background()); h.Status != component.StatusHealthy {
		t.Errorf("Health() = %s, want healthy", h.Status)
	}
	if d := c.Describe(); d.Details != "topic=example group=catalog partitions=2" {
		t.Errorf("Describe() = %q", d.Details)
	}
}

func TestConsumerDescribeMasksSASLUser(t *testing.T) {
	cfg := testConfig()
	cfg.EnableSASL = true
	cfg.SASLMechanism = "PLAIN"
	cfg.Username = "catalog-svc"
	cfg.Password = "s3cret"
	c, _ := newTestConsumer(t, cfg, &fakeConn{}, &fakeReader{})

	want := "topic=example group=catalog partitions=0 sasl=PLAIN:ca***"
	if d := c.Describe(); d.Details != want {
		t.Errorf("Describe() = %q, want %q", d.Details, want)
	}
}

func TestConsumerStartTriesEachBroker(t *testing.T) {
	conn := &fakeConn{partitions: []kafkago.Partition{{Topic: "example"}}}
	c, _ := newTestConsumer(t, testConfig(), conn, &fakeReader{})
	var dialed []string
	c.WithDialFunc(func(_ context.Context, addr string) (Conn, error) {
		dialed = append(dialed, addr)
		if addr == "broker-a:9092" {
			return nil, errors.New("connection refused")
		}
		return conn, nil
	})

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if len(dialed) != 2 {
		t.Errorf("dialed = %v, want both brokers", dialed)
	}
}

func TestConsumerStartBrokerUnavailable(t *testing.T) {
	// Reserve a port and release it so nothing is listening there.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	cfg := testConfig()
	cfg.Brokers = []string{addr}
	cfg.DialTimeout = "1s"
	c, err := NewConsumer(cfg, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}

	err = c.Start(context.Background())
	if !apperrors.IsCode(err, apperrors.ErrCodeBrokerUnavailable) {
		t.Fatalf("expected BROKER_UNAVAILABLE, got %v", err)
	}
	if h := c.Health(context.Background()); h.Status != component.StatusUnhealthy {
		t.Errorf("Health() = %s, want unhealthy", h.Status)
	}
}

func TestConsumerStartNoBrokers(t *testing.T) {
	cfg := testConfig()
	cfg.Brokers = nil
	c, _ := newTestConsumer(t, cfg, &fakeConn{}, &fakeReader{})
	if err := c.Start(context.Background()); !apperrors.IsCode(err, apperrors.ErrCodeBrokerUnavailable) {
		t.Fatalf("expected BROKER_UNAVAILABLE, got %v", err)
	}
}

func TestConsumerStartSubscriptionFailed(t *testing.T) {
	tests := []struct {
		name  string
		conn  *fakeConn
		group string
	}{
		{"metadata error", &fakeConn{err: errors.New("unknown topic or partition")}, "catalog"},
		{"no partitions", &fakeConn{}, "catalog"},
		{"empty group", &fakeConn{partitions: []kafkago.Partition{{Topic: "example"}}}, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.GroupID = tc.group
			c, _ := newTestConsumer(t, cfg, tc.conn, &fakeReader{})
			err := c.Start(context.Background())
			if !apperrors.IsCode(err, apperrors.ErrCodeSubscriptionFailed) {
				t.Fatalf("expected SUBSCRIPTION_FAILED, got %v", err)
			}
		})
	}
}

func TestConsumerRunDrainsUntilCanceled(t *testing.T) {
	reader := &fakeReader{
		messages: []kafkago.Message{
			{Topic: "example", Offset: 1, Value: []byte("one")},
			{Topic: "example", Offset: 2, Value: []byte("two")},
		},
		errs: []error{fmt.Errorf("fetch: %w", kafkago.RequestTimedOut)},
	}
	conn := &fakeConn{partitions: []kafkago.Partition{{Topic: "example"}}}
	c, _ := newTestConsumer(t, testConfig(), conn, reader)

	var mu sync.Mutex
	var got []string
	done := make(chan struct{})
	c.WithHandler(func(_ context.Context, msg kafkago.Message) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, string(msg.Value))
		if len(got) == 2 {
			close(done)
		}
		return nil
	})

	if err := c.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(ctx) }()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for messages")
	}
	cancel()

	if err := <-errCh; err != nil {
		t.Errorf("Run() after cancel = %v, want nil", err)
	}
	if got[0] != "one" || got[1] != "two" {
		t.Errorf("messages = %v, want in offset order", got)
	}

	if err := c.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !reader.closed {
		t.Error("Stop() should close the reader")
	}
}

func TestConsumerRunNonRetryableError(t *testing.T) {
	reader := &fakeReader{errs: []error{kafkago.TopicAuthorizationFailed}}
	conn := &fakeConn{partitions: []kafkago.Partition{{Topic: "example"}}}
	c, _ := newTestConsumer(t, testConfig(), conn, reader)
	if err := c.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	err := c.Run(context.Background())
	if !apperrors.IsCode(err, apperrors.ErrCodeServeFailed) {
		t.Fatalf("expected SERVE_FAILED, got %v", err)
	}
}

func TestConsumerRunBeforeStart(t *testing.T) {
	c, _ := newTestConsumer(t, testConfig(), &fakeConn{}, &fakeReader{})
	if err := c.Run(context.Background()); !apperrors.IsCode(err, apperrors.ErrCodeServeFailed) {
		t.Fatalf("expected SERVE_FAILED, got %v", err)
	}
}

func TestConsumerStopBeforeStart(t *testing.T) {
	c, _ := newTestConsumer(t, testConfig(), &fakeConn{}, &fakeReader{})
	if err := c.Stop(context.Background()); err != nil {
		t.Errorf("Stop() before Start = %v, want nil", err)
	}
}

func TestConsumerHealthReportsReaderStats(t *testing.T) {
	conn := &fakeConn{partitions: []kafkago.Partition{{Topic: "example"}}}
	c, _ := newTestConsumer(t, testConfig(), conn, &fakeReader{})
	if err := c.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	h := c.Health(context.Background())
	if h.Status != component.StatusHealthy || h.Message != "lag=7 messages=2 errors=0 rebalances=0" {
		t.Errorf("Health() = %s (%q)", h.Status, h.Message)
	}

	c.failures.Store(2)
	h = c.Health(context.Background())
	if h.Status != component.StatusDegraded || !strings.HasPrefix(h.Message, "2 consecutive read failures, lag=7") {
		t.Errorf("Health() = %s (%q), want degraded with stats", h.Status, h.Message)
	}
}

func TestConsumerRunAfterStop(t *testing.T) {
	conn := &fakeConn{partitions: []kafkago.Partition{{Topic: "example"}}}
	c, _ := newTestConsumer(t, testConfig(), conn, &fakeReader{})
	if err := c.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := c.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := c.Run(context.Background()); err != nil {
		t.Errorf("Run() after Stop = %v, want nil", err)
	}
}

func TestConsumerStopEndsRun(t *testing.T) {
	conn := &fakeConn{partitions: []kafkago.Partition{{Topic: "example"}}}
	reader := &fakeReader{}
	c, _ := newTestConsumer(t, testConfig(), conn, reader)
	if err := c.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(context.Background()) }()
	// Give Run time to block in ReadMessage.
	time.Sleep(20 * time.Millisecond)
	if err := c.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Run() after Stop = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
}

func TestNewConsumerInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.SessionTimeout = "soon"
	if _, err := NewConsumer(cfg, logger.Nop()); err == nil {
		t.Fatal("expected error for invalid config")
	}
}
