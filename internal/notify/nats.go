package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/seanbarr1988/spunkybot/internal/domain"
)

// NATS publishes every notice as JSON on <subject>.<type>.
type NATS struct {
	conn    *nats.Conn
	subject string
}

// ConnectNATS dials the server at url. The connection reconnects forever.
func ConnectNATS(url, subject string, logger *slog.Logger) (*NATS, error) {
	conn, err := nats.Connect(url,
		nats.Name("spunkybot"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "err", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}
	return &NATS{conn: conn, subject: subject}, nil
}

func (n *NATS) Notify(_ context.Context, notice domain.Notice) error {
	data, err := json.Marshal(notice)
	if err != nil {
		return fmt.Errorf("encoding notice: %w", err)
	}
	if err := n.conn.Publish(n.subject+"."+notice.Type, data); err != nil {
		return fmt.Errorf("publishing %s: %w", notice.Type, err)
	}
	return nil
}

// Close flushes pending messages and closes the connection.
func (n *NATS) Close() error {
	return n.conn.Drain()
}
