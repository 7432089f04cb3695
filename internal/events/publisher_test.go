package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"etlinspector/internal/config"
	"etlinspector/internal/infrastructure"
	"etlinspector/pkg/contracts/domain"
	contracts "etlinspector/pkg/contracts/events"
)

type fakeConn struct {
	msgs      []*nats.Msg
	err       error
	connected bool
	closed    bool
}

func (f *fakeConn) PublishMsg(m *nats.Msg) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, m)
	return nil
}
func (f *fakeConn) FlushTimeout(time.Duration) error { return nil }
func (f *fakeConn) IsConnected() bool                { return f.connected }
func (f *fakeConn) Close()                           { f.closed = true }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestNATSPublisher_Publish(t *testing.T) {
	fc := &fakeConn{connected: true}
	p := newNATSPublisher(fc, "etl.report.completed", quietLogger())

	ctx := infrastructure.WithTraceID(context.Background(), "trace-1")
	report := domain.Report{ID: "r-1", Source: "a.csv", Fingerprint: "fp", Issues: make([]domain.Issue, 2)}
	require.NoError(t, p.PublishReportCompleted(ctx, report))

	require.Len(t, fc.msgs, 1)
	msg := fc.msgs[0]
	assert.Equal(t, "etl.report.completed", msg.Subject)
	assert.Equal(t, "r-1", msg.Header.Get(nats.MsgIdHdr))
	assert.Equal(t, "trace-1", msg.Header.Get("Trace-Id"))

	var ev contracts.ReportCompleted
	require.NoError(t, json.Unmarshal(msg.Data, &ev))
	assert.Equal(t, "r-1", ev.ReportID)
	assert.Equal(t, 2, ev.IssueCount)
	assert.Equal(t, domain.PriorityLow, ev.Priority)

	assert.NoError(t, p.Ping(context.Background()))
	p.Close()
	assert.True(t, fc.closed)
}

func TestNATSPublisher_Errors(t *testing.T) {
	fc := &fakeConn{err: errors.New("boom")}
	p := newNATSPublisher(fc, "s", quietLogger())
	assert.ErrorContains(t, p.PublishReportCompleted(context.Background(), domain.Report{ID: "x"}), "boom")
	assert.ErrorIs(t, p.Ping(context.Background()), nats.ErrConnectionClosed)
}

func TestNew_DisabledIsNoop(t *testing.T) {
	p, err := New(config.EventsConfig{}, nil)
	require.NoError(t, err)
	assert.IsType(t, Noop{}, p)
	assert.NoError(t, p.PublishReportCompleted(context.Background(), domain.Report{}))
}

func TestConnect_LiveServer(t *testing.T) {
	url := os.Getenv("ETL_TEST_NATS_URL")
	if url == "" {
		url = nats.DefaultURL
	}
	cfg := config.EventsConfig{NATSURL: url, Subject: "etl.test." + time.Now().Format("150405.000000"), ConnectTimeout: time.Second}

	p, err := Connect(cfg, quietLogger())
	if err != nil {
		t.Skipf("nats unavailable: %v", err)
	}
	defer p.Close()

	sub, err := nats.Connect(url)
	require.NoError(t, err)
	defer sub.Close()
	received, err := sub.SubscribeSync(cfg.Subject)
	require.NoError(t, err)
	require.NoError(t, sub.Flush())

	require.NoError(t, p.PublishReportCompleted(context.Background(), domain.Report{ID: "live"}))
	msg, err := received.NextMsg(2 * time.Second)
	require.NoError(t, err)
	assert.Contains(t, string(msg.Data), `"report_id":"live"`)
}
