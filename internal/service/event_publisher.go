package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-evaluator/internal/dto"
	"github.com/noah-isme/gema-evaluator/internal/middleware"
)

// EventPublisher announces finished evaluations to other services.
type EventPublisher interface {
	PublishEvaluation(ctx context.Context, event dto.EvaluationCompletedEvent) error
}

// MsgPublisher is the part of *nats.Conn used for publishing.
type MsgPublisher interface {
	PublishMsg(m *nats.Msg) error
}

type natsEventPublisher struct {
	conn    MsgPublisher
	subject string
	logger  zerolog.Logger
}

// NewNATSEventPublisher publishes evaluation events on subject. A nil conn or
// empty subject yields a publisher that drops events.
func NewNATSEventPublisher(conn MsgPublisher, subject string, logger zerolog.Logger) EventPublisher {
	if conn == nil || subject == "" {
		return NopEventPublisher{}
	}
	return &natsEventPublisher{
		conn:    conn,
		subject: subject,
		logger:  logger.With().Str("component", "event_publisher").Logger(),
	}
}

func (p *natsEventPublisher) PublishEvaluation(ctx context.Context, event dto.EvaluationCompletedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode evaluation event: %w", err)
	}

	msg := nats.NewMsg(p.subject)
	msg.Data = payload
	if id := middleware.CorrelationIDFromContext(ctx); id != "" {
		msg.Header.Set(middleware.CorrelationHeader, id)
	}

	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish evaluation event: %w", err)
	}

	p.logger.Debug().Str("evaluation_id", event.ID).Str("subject", p.subject).Msg("evaluation event published")
	return nil
}

// NopEventPublisher discards events.
type NopEventPublisher struct{}

func (NopEventPublisher) PublishEvaluation(context.Context, dto.EvaluationCompletedEvent) error {
	return nil
}
