package responder

import (
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/mini-maxit/harness/internal/logger"
	"github.com/mini-maxit/harness/internal/rabbitmq/channel"
	"github.com/mini-maxit/harness/pkg/constants"
	"github.com/mini-maxit/harness/pkg/messages"
	"github.com/mini-maxit/harness/pkg/result"
)

// Responder publishes score reports for consumers outside the harness.
type Responder interface {
	PublishScoreReport(report result.ScoreReport) error
	Close() error
}

type responder struct {
	logger    *zap.SugaredLogger
	channel   channel.Channel
	queueName string
	closeFn   func() error
}

func NewResponder(ch channel.Channel, queueName string) Responder {
	return &responder{
		logger:    logger.NewNamedLogger("responder"),
		channel:   ch,
		queueName: queueName,
		closeFn:   ch.Close,
	}
}

// Dial connects to the broker and declares the report queue.
func Dial(url, queueName string) (Responder, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	amqpCh := channel.NewAmqpChannel(ch)
	if _, err := amqpCh.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", queueName, err)
	}

	return &responder{
		logger:    logger.NewNamedLogger("responder"),
		channel:   amqpCh,
		queueName: queueName,
		closeFn: func() error {
			_ = amqpCh.Close()
			return conn.Close()
		},
	}, nil
}

func (r *responder) PublishScoreReport(report result.ScoreReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return err
	}

	queueMessage := messages.ResponseQueueMessage{
		Type:      constants.QueueMessageTypeScoreReport,
		MessageID: report.RunID + "-" + report.Set,
		Ok:        report.Failures == 0,
		Payload:   payload,
	}

	body, err := json.Marshal(queueMessage)
	if err != nil {
		return err
	}

	r.logger.Infof("Publishing %s score report to queue %s [RunID: %s]", report.Set, r.queueName, report.RunID)
	return r.channel.Publish("", r.queueName, false, false, amqp.Publishing{
		ContentType:   constants.RabbitMQContentType,
		CorrelationId: report.RunID,
		DeliveryMode:  amqp.Persistent,
		Body:          body,
	})
}

func (r *responder) Close() error {
	if r.closeFn == nil {
		return nil
	}
	return r.closeFn()
}

type noopResponder struct{}

// NewNoopResponder is used when no broker is configured.
func NewNoopResponder() Responder { return noopResponder{} }

func (noopResponder) PublishScoreReport(result.ScoreReport) error { return nil }

func (noopResponder) Close() error { return nil }
