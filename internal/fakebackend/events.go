package fakebackend

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/platform/logger"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	ListingCreatedSubject = "listing.created"
	ListingDeletedSubject = "listing.deleted"
	UserRegisteredSubject = "user.registered"
)

// EventPublisher announces state changes of the backend.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, data any) error
	Close()
}

type ListingDeletedEvent struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
}

type UserRegisteredEvent struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Pseudo string `json:"pseudo"`
}

type NATSPublisher struct {
	nc     *nats.Conn
	logger *logger.Logger
}

func NewNATSPublisher(url string, log *logger.Logger) (*NATSPublisher, error) {
	log = log.Named("NATSPublisher")
	opts := []nats.Option{
		nats.Timeout(5 * time.Second),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			log.Error("NATS error", zap.String("subject", subject), zap.Error(err))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Info("NATS connection closed")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("NATS disconnected", zap.Error(err))
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	log.Info("Successfully connected to NATS", zap.String("url", nc.ConnectedUrl()))
	return &NATSPublisher{nc: nc, logger: log}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		p.logger.Error("Failed to marshal event", zap.String("subject", subject), zap.Error(err))
		return fmt.Errorf("failed to marshal %s event: %w", subject, err)
	}
	if err := p.nc.Publish(subject, payload); err != nil {
		p.logger.Error("Failed to publish event", zap.String("subject", subject), zap.Error(err))
		return fmt.Errorf("failed to publish %s event: %w", subject, err)
	}
	p.logger.Debug("Event published", zap.String("subject", subject))
	return nil
}

func (p *NATSPublisher) Close() {
	if p.nc != nil {
		_ = p.nc.Drain()
	}
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, any) error { return nil }

func (nopPublisher) Close() {}
