// Package eventbus fans simulation events out to NATS for external
// consumers (replays, score keepers, archival). The bus is optional; a nil
// Publisher is safe to use and publishes nothing.
package eventbus

import (
	"encoding/json"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/invisible-tech/warsim/internal/types"
)

// Publisher publishes events to a NATS subject.
type Publisher struct {
	nc      *nats.Conn
	subject string
	log     *logrus.Logger
}

// Connect dials NATS at url. An empty url returns (nil, nil), which
// disables fan-out.
func Connect(url, subject string, log *logrus.Logger) (*Publisher, error) {
	if url == "" {
		return nil, nil
	}
	nc, err := nats.Connect(url, nats.Name("warsim"))
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{"url": url, "subject": subject}).Info("Event bus connected")
	return &Publisher{nc: nc, subject: subject, log: log}, nil
}

// Publish sends the event as JSON. Publish failures are logged and
// swallowed; the bus is best-effort and never blocks the simulation.
func (p *Publisher) Publish(ev types.Event) {
	if p == nil || p.nc == nil {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := p.nc.Publish(p.subject, data); err != nil {
		p.log.WithError(err).Debug("Failed to publish event")
	}
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	if p == nil || p.nc == nil {
		return
	}
	_ = p.nc.Drain()
}
