// CityOfRecipes - Recipe Sharing and Contest Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cityofrecipes

package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/cityofrecipes/internal/config"
	"github.com/tomtom215/cityofrecipes/internal/logging"
	"github.com/tomtom215/cityofrecipes/internal/metrics"
)

// Transport names accepted in events.transport.
const (
	TransportMemory = "memory"
	TransportNATS   = "nats"
)

const correlationIDMetadata = "correlation_id"

// ErrBusClosed is returned by Publish and Subscribe after Close.
var ErrBusClosed = errors.New("event bus is closed")

// Bus publishes JSON-encoded domain events and hands out subscriptions.
type Bus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	shared     bool // publisher and subscriber are the same GoChannel
	prefix     string
	embedded   *EmbeddedServer
	logger     watermill.LoggerAdapter

	mu     sync.RWMutex
	closed bool
}

// NewBus builds the transport selected by cfg. With the nats transport and
// EmbeddedServer set, an in-process nats-server is started first and the bus
// connects to it.
func NewBus(cfg *config.EventsConfig) (*Bus, error) {
	logger := watermill.NewSlogLogger(logging.NewSlogLogger())

	switch strings.ToLower(cfg.Transport) {
	case "", TransportMemory:
		return NewMemoryBus(cfg.TopicPrefix, logger), nil
	case TransportNATS:
		return newNATSBus(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown event transport %q", cfg.Transport)
	}
}

// NewMemoryBus returns a bus backed by a Watermill GoChannel.
func NewMemoryBus(prefix string, logger watermill.LoggerAdapter) *Bus {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	pubSub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 256,
	}, logger)

	return &Bus{
		publisher:  pubSub,
		subscriber: pubSub,
		shared:     true,
		prefix:     prefix,
		logger:     logger,
	}
}

func newNATSBus(cfg *config.EventsConfig, logger watermill.LoggerAdapter) (*Bus, error) {
	url := cfg.NATSURL

	var embedded *EmbeddedServer
	if cfg.EmbeddedServer {
		srv, err := NewEmbeddedServer(ServerConfig{Port: cfg.ServerPort, StoreDir: cfg.StoreDir})
		if err != nil {
			return nil, err
		}
		embedded = srv
		url = srv.ClientURL()
	}

	natsOpts := []natsgo.Option{
		natsgo.Name("cityofrecipes"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream:   wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		shutdownEmbedded(embedded)
		return nil, fmt.Errorf("create NATS publisher: %w", err)
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              url,
		SubscribersCount: 1,
		AckWaitTimeout:   30 * time.Second,
		CloseTimeout:     10 * time.Second,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream:        wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		_ = pub.Close()
		shutdownEmbedded(embedded)
		return nil, fmt.Errorf("create NATS subscriber: %w", err)
	}

	return &Bus{
		publisher:  pub,
		subscriber: sub,
		prefix:     cfg.TopicPrefix,
		embedded:   embedded,
		logger:     logger,
	}, nil
}

func shutdownEmbedded(s *EmbeddedServer) {
	if s == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.Shutdown(ctx)
}

// Topic returns the transport-level name of topic.
func (b *Bus) Topic(topic string) string {
	if b.prefix == "" {
		return topic
	}
	return b.prefix + "." + topic
}

// Publish encodes payload as JSON and publishes it on topic. The correlation
// id from ctx travels in the message metadata.
func (b *Bus) Publish(ctx context.Context, topic string, payload any) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", topic, err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		msg.Metadata.Set(correlationIDMetadata, id)
	}

	err = b.publisher.Publish(b.Topic(topic), msg)
	metrics.RecordEventPublish(topic, err)
	if err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Subscribe returns the message channel for topic. The channel closes when
// ctx is canceled or the bus is closed. Receivers must Ack every message.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, ErrBusClosed
	}
	return b.subscriber.Subscribe(ctx, b.Topic(topic))
}

// Close shuts down the transport and, if present, the embedded server.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	var errs []error
	if err := b.publisher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close publisher: %w", err))
	}
	if !b.shared {
		if err := b.subscriber.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close subscriber: %w", err))
		}
	}
	shutdownEmbedded(b.embedded)
	return errors.Join(errs...)
}
