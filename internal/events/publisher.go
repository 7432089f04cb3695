// Package events announces finished reports on NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"etlinspector/internal/config"
	"etlinspector/internal/infrastructure"
	"etlinspector/pkg/contracts/domain"
	contracts "etlinspector/pkg/contracts/events"
)

// Publisher announces completed reports.
type Publisher interface {
	PublishReportCompleted(ctx context.Context, report domain.Report) error
	Ping(ctx context.Context) error
	Close()
}

// conn is the part of *nats.Conn the publisher uses.
type conn interface {
	PublishMsg(msg *nats.Msg) error
	FlushTimeout(timeout time.Duration) error
	IsConnected() bool
	Close()
}

// NATSPublisher publishes JSON events on a NATS subject.
type NATSPublisher struct {
	conn    conn
	subject string
	logger  *slog.Logger
}

// Connect dials the configured NATS server. Reconnects are retried in the
// background so a restarting broker does not fail publishes permanently.
func Connect(cfg config.EventsConfig, logger *slog.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "events"))

	nc, err := nats.Connect(cfg.NATSURL,
		nats.Name(config.AppName),
		nats.Timeout(cfg.ConnectTimeout),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("Disconnected from NATS", slog.String("error", err.Error()))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("Reconnected to NATS", slog.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats at %s: %w", cfg.NATSURL, err)
	}

	logger.Info("Connected to NATS", slog.String("url", cfg.NATSURL), slog.String("subject", cfg.Subject))
	return newNATSPublisher(nc, cfg.Subject, logger), nil
}

func newNATSPublisher(c conn, subject string, logger *slog.Logger) *NATSPublisher {
	return &NATSPublisher{conn: c, subject: subject, logger: logger}
}

// PublishReportCompleted sends a ReportCompleted event. The report ID is
// used as the message ID so JetStream consumers can deduplicate.
func (p *NATSPublisher) PublishReportCompleted(ctx context.Context, report domain.Report) error {
	data, err := json.Marshal(contracts.NewReportCompleted(report))
	if err != nil {
		return fmt.Errorf("encode report event: %w", err)
	}

	msg := nats.NewMsg(p.subject)
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, report.ID)
	if traceID := infrastructure.GetTraceID(ctx); traceID != "" {
		msg.Header.Set("Trace-Id", traceID)
	}

	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w", p.subject, err)
	}
	p.logger.DebugContext(ctx, "Published report event",
		slog.String("subject", p.subject),
		slog.String("report_id", report.ID))
	return nil
}

// Ping flushes the connection, which round-trips to the server.
func (p *NATSPublisher) Ping(ctx context.Context) error {
	if !p.conn.IsConnected() {
		return nats.ErrConnectionClosed
	}
	timeout := 2 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	return p.conn.FlushTimeout(timeout)
}

// Close drops the connection.
func (p *NATSPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
		p.logger.Info("Disconnected from NATS")
	}
}

// Noop discards events. It stands in when NATS is not configured.
type Noop struct{}

func (Noop) PublishReportCompleted(context.Context, domain.Report) error { return nil }
func (Noop) Ping(context.Context) error                                  { return nil }
func (Noop) Close()                                                      {}

// New connects when a NATS URL is configured, else returns Noop.
func New(cfg config.EventsConfig, logger *slog.Logger) (Publisher, error) {
	if !cfg.Enabled() {
		return Noop{}, nil
	}
	return Connect(cfg, logger)
}
