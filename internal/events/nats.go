package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATSSink publishes events to a JetStream stream and waits for the ack, so
// an event reported as published is persisted.
type NATSSink struct {
	conn *nats.Conn
	js   jetstream.JetStream
}

// NewNATSSink connects to url and ensures stream exists, capturing every
// auction.events subject.
func NewNATSSink(ctx context.Context, url, stream string) (*NATSSink, error) {
	conn, err := nats.Connect(url, nats.Name("auction-engine"))
	if err != nil {
		return nil, fmt.Errorf("events.NewNATSSink: connect: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("events.NewNATSSink: jetstream: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        stream,
		Description: "Committed auction events",
		Subjects:    []string{"auction.events.>"},
		Storage:     jetstream.FileStorage,
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      7 * 24 * time.Hour,
		Duplicates:  2 * time.Minute,
		Replicas:    1,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("events.NewNATSSink: stream %s: %w", stream, err)
	}

	return &NATSSink{conn: conn, js: js}, nil
}

// Name implements Sink.
func (s *NATSSink) Name() string { return "nats" }

// Publish implements Sink. The event id doubles as the JetStream message id
// so redelivered publishes are deduplicated by the server.
func (s *NATSSink) Publish(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := s.js.Publish(ctx, Subject(e), data, jetstream.WithMsgID(e.ID.String())); err != nil {
		return fmt.Errorf("jetstream publish %s: %w", Subject(e), err)
	}
	return nil
}

// Close drains the connection.
func (s *NATSSink) Close() error {
	return s.conn.Drain()
}
