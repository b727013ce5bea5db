package subscriber

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// Announcer delivers a server-originated message to every connected client.
type Announcer interface {
	Announce(ctx context.Context, from, text string) int
}

type Subscriber struct {
	logger    *slog.Logger
	client    *redis.Client
	topic     string
	announcer Announcer
	defaultID string
}

func NewSubscriber(logger *slog.Logger, client *redis.Client, topic string, announcer Announcer, defaultID string) *Subscriber {
	return &Subscriber{
		logger:    logger,
		client:    client,
		topic:     topic,
		announcer: announcer,
		defaultID: defaultID,
	}
}

func (s *Subscriber) Start(ctx context.Context) error {
	s.logger.Info("Redis subscriber is running", "topic", s.topic)
	pubsub := s.client.Subscribe(ctx, s.topic)
	defer func() {
		if err := pubsub.Close(); err != nil {
			s.logger.Warn("failed to close pubsub", "error", err)
		}
	}()

	msgCh := pubsub.Channel()

	for {
		select {
		case msg, ok := <-msgCh:
			if !ok {
				s.logger.Warn("pubsub channel closed by Redis")
				return nil
			}
			if err := s.handleMessage(ctx, msg.Payload); err != nil {
				s.logger.Error("error handling message", "error", err)
			}
		case <-ctx.Done():
			s.logger.Info("shutting down Redis subscriber")
			return nil
		}
	}
}

func (s *Subscriber) handleMessage(ctx context.Context, payload string) error {
	var announcement Announcement
	if err := json.Unmarshal([]byte(payload), &announcement); err != nil {
		return fmt.Errorf("unmarshalling announcement: %w", err)
	}
	if err := announcement.Validate(); err != nil {
		return err
	}
	if announcement.ID == "" {
		announcement.ID = s.defaultID
	}

	n := s.announcer.Announce(ctx, announcement.ID, announcement.Text)
	s.logger.Debug("announcement delivered", "from", announcement.ID, "recipients", n)
	return nil
}
