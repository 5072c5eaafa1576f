// Package eventbus connects the watermill router to NATS.
package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmnats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	nc "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/nats-io/nkeys"
)

// EventBus is the publisher/subscriber pair every module router is built on.
type EventBus interface {
	message.Publisher
	message.Subscriber
}

// Config describes the NATS connection.
type Config struct {
	URL        string
	NKeySeed   string
	QueueGroup string
	// Streams are provisioned on JetStream at startup so published events are
	// retained for replay. Empty disables provisioning.
	Streams []StreamSpec
}

// StreamSpec names a JetStream stream and the subjects it captures.
type StreamSpec struct {
	Name     string
	Subjects []string
	MaxAge   time.Duration
}

// NATSBus is an EventBus backed by core NATS subjects.
type NATSBus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	conn       *nc.Conn
	js         jetstream.JetStream
	logger     *slog.Logger

	mu      sync.Mutex
	streams map[string]bool
}

var _ EventBus = (*NATSBus)(nil)

// NewNATS dials NATS, builds the watermill publisher and subscriber and
// provisions the configured streams.
func NewNATS(ctx context.Context, cfg Config, logger *slog.Logger) (*NATSBus, error) {
	opts := []nc.Option{nc.RetryOnFailedConnect(true), nc.Name("shinobi-ranked")}
	if cfg.NKeySeed != "" {
		opt, err := nkeyOption(cfg.NKeySeed)
		if err != nil {
			return nil, err
		}
		opts = append(opts, opt)
	}

	conn, err := nc.Connect(cfg.URL, opts...)
	if err != nil {
		logger.Error("Failed to connect to NATS", slog.Any("error", err))
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize JetStream: %w", err)
	}

	wmLogger := watermill.NewSlogLogger(logger)
	marshaler := &wmnats.NATSMarshaler{}

	publisher, err := wmnats.NewPublisher(wmnats.PublisherConfig{
		URL:         cfg.URL,
		Marshaler:   marshaler,
		NatsOptions: opts,
		JetStream:   wmnats.JetStreamConfig{Disabled: true},
	}, wmLogger)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create watermill publisher: %w", err)
	}

	subscriber, err := wmnats.NewSubscriber(wmnats.SubscriberConfig{
		URL:              cfg.URL,
		QueueGroupPrefix: cfg.QueueGroup,
		SubscribersCount: 1,
		Unmarshaler:      marshaler,
		NatsOptions:      opts,
		JetStream:        wmnats.JetStreamConfig{Disabled: true},
	}, wmLogger)
	if err != nil {
		_ = publisher.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to create watermill subscriber: %w", err)
	}

	bus := &NATSBus{
		publisher:  publisher,
		subscriber: subscriber,
		conn:       conn,
		js:         js,
		logger:     logger,
		streams:    make(map[string]bool),
	}

	for _, spec := range cfg.Streams {
		if err := bus.EnsureStream(ctx, spec); err != nil {
			_ = bus.Close()
			return nil, err
		}
	}

	return bus, nil
}

func nkeyOption(seed string) (nc.Option, error) {
	kp, err := nkeys.FromSeed([]byte(seed))
	if err != nil {
		return nil, fmt.Errorf("invalid nkey seed: %w", err)
	}
	pub, err := kp.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("derive nkey public key: %w", err)
	}
	return nc.Nkey(pub, kp.Sign), nil
}

// Publish sends messages on topic.
func (b *NATSBus) Publish(topic string, messages ...*message.Message) error {
	for _, msg := range messages {
		if msg.UUID == "" {
			msg.UUID = watermill.NewUUID()
		}
	}
	return b.publisher.Publish(topic, messages...)
}

// Subscribe returns the message channel for topic.
func (b *NATSBus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.subscriber.Subscribe(ctx, topic)
}

// Conn exposes the raw connection for request-reply clients.
func (b *NATSBus) Conn() *nc.Conn { return b.conn }

// EnsureStream creates the stream or adds missing subjects to it.
func (b *NATSBus) EnsureStream(ctx context.Context, spec StreamSpec) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.streams[spec.Name] {
		return nil
	}

	stream, err := b.js.Stream(ctx, spec.Name)
	switch {
	case errors.Is(err, jetstream.ErrStreamNotFound):
		if _, err := b.js.CreateStream(ctx, jetstream.StreamConfig{
			Name:     spec.Name,
			Subjects: spec.Subjects,
			MaxAge:   spec.MaxAge,
		}); err != nil {
			return fmt.Errorf("failed to create stream %s: %w", spec.Name, err)
		}
		b.logger.InfoContext(ctx, "Stream created", "stream_name", spec.Name)
	case err != nil:
		return fmt.Errorf("failed to look up stream %s: %w", spec.Name, err)
	default:
		info, err := stream.Info(ctx)
		if err != nil {
			return fmt.Errorf("failed to get stream info: %w", err)
		}
		missing := missingSubjects(info.Config.Subjects, spec.Subjects)
		if len(missing) > 0 {
			info.Config.Subjects = append(info.Config.Subjects, missing...)
			if _, err := b.js.UpdateStream(ctx, info.Config); err != nil {
				return fmt.Errorf("failed to update stream %s: %w", spec.Name, err)
			}
			b.logger.InfoContext(ctx, "Stream updated with new subjects", "stream_name", spec.Name, "subjects", missing)
		}
	}

	b.streams[spec.Name] = true
	return nil
}

func missingSubjects(have, want []string) []string {
	seen := make(map[string]bool, len(have))
	for _, s := range have {
		seen[s] = true
	}
	var out []string
	for _, s := range want {
		if !seen[s] {
			out = append(out, s)
			seen[s] = true
		}
	}
	return out
}

// Close releases the watermill components and the connection.
func (b *NATSBus) Close() error {
	var errs []error
	if b.publisher != nil {
		if err := b.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close publisher: %w", err))
		}
	}
	if b.subscriber != nil {
		if err := b.subscriber.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close subscriber: %w", err))
		}
	}
	if b.conn != nil {
		b.conn.Close()
	}
	return errors.Join(errs...)
}

// NewInMemory returns a process local bus for tests and single binary runs.
func NewInMemory(logger *slog.Logger) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 64,
	}, watermill.NewSlogLogger(logger))
}
