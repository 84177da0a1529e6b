package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Publisher is the fire-and-forget side of the message collaborator.
// Implementations never panic; errors are logged and returned so the
// caller can choose to ignore them without interrupting the main
// request flow.
type Publisher interface {
	Publish(ctx context.Context, queueName string, data interface{}) error
}

// AMQPPublisher publishes persistent messages to durable queues on a
// RabbitMQ broker. Connections are opened per publish, which keeps
// the type free of shared mutable state at the cost of a dial per
// event; event volume here is a handful per request at most.
type AMQPPublisher struct {
	url string
	log *logrus.Logger
}

// NewAMQPPublisher builds a publisher for the given broker URL.
func NewAMQPPublisher(url string, log *logrus.Logger) *AMQPPublisher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &AMQPPublisher{url: url, log: log}
}

// Publish wraps data in a Message envelope addressed to queueName and
// delivers it. The queue is declared durable (idempotent) and the
// delivery marked persistent so messages survive broker restarts.
func (p *AMQPPublisher) Publish(ctx context.Context, queueName string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		p.log.WithError(err).Error("rabbitmq: marshal event failed")
		return err
	}
	msg := Message{From: ServiceName, To: queueName, Data: payload}
	body, err := json.Marshal(msg)
	if err != nil {
		p.log.WithError(err).Error("rabbitmq: marshal envelope failed")
		return err
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.log.WithError(err).Error("rabbitmq: dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.WithError(err).Error("rabbitmq: channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // autoDelete
		false,     // exclusive
		false,     // noWait
		nil,       // args
	); err != nil {
		p.log.WithError(err).Error("rabbitmq: queue declare failed")
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx,
		"",        // default exchange
		queueName, // routing key = queue name
		false,     // mandatory
		false,     // immediate
		pub,
	); err != nil {
		p.log.WithError(err).WithField("queue", queueName).Error("rabbitmq: publish failed")
		return err
	}
	return nil
}
