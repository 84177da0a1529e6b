package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// SeedFunc runs one seeding migration task.
type SeedFunc func(ctx context.Context, task string) error

// StartSeedConsumer connects to RabbitMQ, declares the identity.seed
// queue (durable), and consumes seed commands. On success the message
// is acknowledged; on any error it is rejected without requeue, so
// failed deliveries are not retried here; dead-lettering or manual
// replay is an external concern. The function runs a reconnect loop
// with backoff and keeps the service operating through broker
// restarts.
func StartSeedConsumer(url string, seed SeedFunc, log *logrus.Logger) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.WithError(err).WithField("backoff", backoff).
				Warn("seed-consumer: failed to dial broker; retrying")
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeSeedLoop(conn, seed, log); err != nil {
			log.WithError(err).Warn("seed-consumer: consume loop ended; reconnecting")
			time.Sleep(2 * time.Second)
		}
		_ = conn.Close()
	}
}

func consumeSeedLoop(conn *amqp.Connection, seed SeedFunc, log *logrus.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		log.WithError(err).Warn("seed-consumer: set QoS failed")
	}

	if _, err := ch.QueueDeclare(SeedQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(SeedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := handleSeedMessage(d.Body, seed); err != nil {
			log.WithError(err).Warn("seed-consumer: handle message failed")
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func handleSeedMessage(body []byte, seed SeedFunc) error {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("unmarshal envelope: %w", err)
	}
	var cmd SeedCommand
	if err := json.Unmarshal(msg.Data, &cmd); err != nil {
		return fmt.Errorf("unmarshal command: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return seed(ctx, cmd.Task)
}
