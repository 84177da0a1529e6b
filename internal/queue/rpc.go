package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/identity-platform/internal/apperr"
)

// Requester is the request/response side of the message collaborator:
// the caller blocks on a correlated Response with a ttl, and an
// expired ttl surfaces as apperr.ErrRequestTimeout.
type Requester interface {
	Request(ctx context.Context, queueName string, data interface{}, ttl time.Duration) (*Response, error)
}

// AMQPRequester implements Requester over RabbitMQ using an exclusive
// auto-deleted reply queue and a uuid correlation id per call.
type AMQPRequester struct {
	url string
}

// NewAMQPRequester builds a requester for the given broker URL.
func NewAMQPRequester(url string) *AMQPRequester {
	return &AMQPRequester{url: url}
}

// Request publishes a ttl-bounded request to queueName and waits for
// the correlated reply. Replies with a mismatched correlation id are
// discarded. When the ttl (or the caller's context) expires first,
// the call fails with apperr.ErrRequestTimeout.
func (r *AMQPRequester) Request(ctx context.Context, queueName string, data interface{}, ttl time.Duration) (*Response, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	msg := Message{From: ServiceName, To: queueName, Data: payload, TTL: ttl.Milliseconds()}
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}

	conn, err := amqp.Dial(r.url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("queue declare: %w", err)
	}

	// Exclusive server-named queue for this call's reply.
	replyQ, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return nil, fmt.Errorf("reply queue declare: %w", err)
	}
	deliveries, err := ch.Consume(replyQ.Name, "", true, true, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("reply consume: %w", err)
	}

	corrID := uuid.NewString()
	pub := amqp.Publishing{
		ContentType:   "application/json",
		CorrelationId: corrID,
		ReplyTo:       replyQ.Name,
		Timestamp:     time.Now().UTC(),
		Body:          body,
	}
	if ttl > 0 {
		pub.Expiration = fmt.Sprintf("%d", ttl.Milliseconds())
	}
	if err := ch.PublishWithContext(ctx, "", queueName, false, false, pub); err != nil {
		return nil, fmt.Errorf("publish: %w", err)
	}

	timeout := ttl
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case d, ok := <-deliveries:
			if !ok {
				return nil, fmt.Errorf("%w: reply channel closed", apperr.ErrInternal)
			}
			if d.CorrelationId != corrID {
				continue
			}
			var resp Response
			if err := json.Unmarshal(d.Body, &resp); err != nil {
				return nil, fmt.Errorf("unmarshal response: %w", err)
			}
			return &resp, nil
		case <-timer.C:
			return nil, fmt.Errorf("%w: no response from %s within %s", apperr.ErrRequestTimeout, queueName, timeout)
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", apperr.ErrRequestTimeout, ctx.Err())
		}
	}
}
