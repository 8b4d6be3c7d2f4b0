// Package nats implements a Provider that queues composed messages on a
// JetStream subject for an out-of-process mail worker.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/shineum/mailform/internal/email"
)

const (
	DefaultURL     = nats.DefaultURL
	DefaultStream  = "EMAILS"
	DefaultSubject = "EMAILS.send"
)

// Config holds connection and stream settings.
type Config struct {
	URL     string
	Stream  string
	Subject string
}

// Publisher is the subset of nats.JetStreamContext used by Provider.
type Publisher interface {
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// Provider publishes each message as JSON. The Message-ID doubles as the
// JetStream dedup ID so a retried submit is not queued twice.
type Provider struct {
	conn    *nats.Conn
	js      Publisher
	subject string
}

// New connects to NATS and makes sure the stream exists.
func New(cfg Config) (*Provider, error) {
	cfg = withDefaults(cfg)

	nc, err := nats.Connect(cfg.URL, nats.Name("mailform"))
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("creating JetStream context: %w", err)
	}

	if _, err := js.StreamInfo(cfg.Stream); err != nil {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:     cfg.Stream,
			Subjects: []string{cfg.Stream + ".*"},
		})
		if err != nil {
			slog.Warn("could not create stream", "stream", cfg.Stream, "error", err)
		}
	}

	return &Provider{conn: nc, js: js, subject: cfg.Subject}, nil
}

// NewWithPublisher creates a Provider around an existing publisher.
func NewWithPublisher(js Publisher, subject string) *Provider {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Provider{js: js, subject: subject}
}

// Send queues msg and waits for the stream's ack or for ctx to end.
func (p *Provider) Send(ctx context.Context, msg *email.Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}

	opts := []nats.PubOpt{nats.Context(ctx)}
	if msg.MessageID != "" {
		opts = append(opts, nats.MsgId(msg.MessageID))
	}

	ack, err := p.js.Publish(p.subject, data, opts...)
	if err != nil {
		return fmt.Errorf("publishing to %s: %w", p.subject, err)
	}

	slog.Debug("message queued",
		"subject", p.subject,
		"stream", ack.Stream,
		"sequence", ack.Sequence,
		"duplicate", ack.Duplicate,
	)
	return nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "nats"
}

// Close drains the connection when the provider owns one.
func (p *Provider) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}

func withDefaults(cfg Config) Config {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Stream == "" {
		cfg.Stream = DefaultStream
	}
	if cfg.Subject == "" {
		cfg.Subject = cfg.Stream + ".send"
	}
	return cfg
}
