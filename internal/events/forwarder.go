// CityOfRecipes - Recipe Sharing and Contest Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cityofrecipes

package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tomtom215/cityofrecipes/internal/logging"
	"github.com/tomtom215/cityofrecipes/internal/websocket"
)

// Broadcaster receives encoded event payloads. *websocket.Hub implements it.
type Broadcaster interface {
	BroadcastRaw(messageType string, payload []byte)
}

var topicMessageTypes = map[string]string{
	TopicContestEnrolled: websocket.MessageTypeContestEnrolled,
	TopicRatingSubmitted: websocket.MessageTypeRatingSubmitted,
	TopicContestClosed:   websocket.MessageTypeContestClosed,
}

// Forwarder relays every domain event to websocket clients.
type Forwarder struct {
	bus    *Bus
	out    Broadcaster
	logger zerolog.Logger
}

// NewForwarder creates a Forwarder from bus to out.
func NewForwarder(bus *Bus, out Broadcaster) *Forwarder {
	return &Forwarder{
		bus:    bus,
		out:    out,
		logger: logging.WithComponent("event-forwarder"),
	}
}

// Serve subscribes to all topics and forwards messages until ctx is
// canceled. It satisfies suture.Service.
func (f *Forwarder) Serve(ctx context.Context) error {
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for _, topic := range Topics() {
		ch, err := f.bus.Subscribe(subCtx, topic)
		if err != nil {
			cancel()
			wg.Wait()
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}

		msgType := topicMessageTypes[topic]
		wg.Add(1)
		go func() {
			defer wg.Done()
			for msg := range ch {
				f.out.BroadcastRaw(msgType, msg.Payload)
				msg.Ack()
			}
		}()
	}

	f.logger.Info().Int("topics", len(topicMessageTypes)).Msg("event forwarder started")
	<-ctx.Done()
	cancel()
	wg.Wait()
	f.logger.Info().Msg("event forwarder stopped")
	return ctx.Err()
}

// String names the service in supervisor logs.
func (f *Forwarder) String() string {
	return "event-forwarder"
}
