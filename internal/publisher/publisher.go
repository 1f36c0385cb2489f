package publisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/pointsbridge/ww-adapter/internal/metrics"
	"github.com/pointsbridge/ww-adapter/internal/ww"
	"github.com/pointsbridge/ww-adapter/pkg/logger"
)

const (
	subjectSummaryUpdated = "evt.points.summary_updated.v1.WW"
	subjectStateChanged   = "evt.account.state_changed.v1.WW"
)

// jetStream is the subset of nats.JetStreamContext the publisher uses.
// Narrowed for testability.
type jetStream interface {
	PublishMsg(msg *nats.Msg, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// Envelope wraps event payloads with routing metadata.
type Envelope struct {
	ID            uuid.UUID       `json:"id"`
	CorrelationID uuid.UUID       `json:"correlation_id"`
	Account       string          `json:"account"`
	Topic         string          `json:"topic"`
	EventType     string          `json:"event_type"`
	Version       string          `json:"version"`
	Timestamp     time.Time       `json:"timestamp"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

// Publisher wraps a NATS connection and provides helpers for publishing
// account events.
type Publisher struct {
	nc      *nats.Conn
	js      jetStream
	service string
}

// New creates a new Publisher with JetStream enabled.
func New(nc *nats.Conn, service string) (*Publisher, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, err
	}
	return &Publisher{
		nc:      nc,
		js:      js,
		service: service,
	}, nil
}

// PublishSummaryUpdated emits the latest points snapshot for an account.
func (p *Publisher) PublishSummaryUpdated(ctx context.Context, account string, snap *ww.PointsSnapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return p.publishEnvelope(subjectSummaryUpdated, &Envelope{
		ID:            uuid.New(),
		CorrelationID: uuid.New(),
		Account:       account,
		Topic:         subjectSummaryUpdated,
		EventType:     "points.summary_updated",
		Version:       "1.0.0",
		Timestamp:     time.Now().UTC(),
		Payload:       payload,
	})
}

// PublishStateChanged emits an account state transition (ok, reauth_required,
// unavailable) for downstream alerting.
func (p *Publisher) PublishStateChanged(ctx context.Context, account string, state string) error {
	payload, err := json.Marshal(map[string]string{"state": state})
	if err != nil {
		return err
	}
	return p.publishEnvelope(subjectStateChanged, &Envelope{
		ID:            uuid.New(),
		CorrelationID: uuid.New(),
		Account:       account,
		Topic:         subjectStateChanged,
		EventType:     "account.state_changed",
		Version:       "1.0.0",
		Timestamp:     time.Now().UTC(),
		Payload:       payload,
	})
}

// publishEnvelope serializes and publishes an event envelope to NATS.
func (p *Publisher) publishEnvelope(subject string, env *Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		logger.S().Errorw("publisher.marshal_failed",
			"subject", subject,
			"event_type", env.EventType,
			"error", err,
		)
		return err
	}

	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			"event_type":     []string{env.EventType},
			"correlation_id": []string{env.CorrelationID.String()},
			"service":        []string{p.service},
			"content_type":   []string{"application/json"},
		},
	}

	if _, err := p.js.PublishMsg(msg); err != nil {
		logger.S().Errorw("publisher.publish_failed",
			"subject", subject,
			"event_type", env.EventType,
			"account", env.Account,
			"error", err,
		)
		metrics.IncNATSPublishError(subject)
		return err
	}

	logger.S().Debugw("publisher.publish_success",
		"subject", subject,
		"event_type", env.EventType,
		"account", env.Account,
	)
	return nil
}

// Close closes the underlying NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil && p.nc.IsConnected() {
		p.nc.Close()
	}
}
