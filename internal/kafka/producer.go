package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"techstore/internal/logger"
	"techstore/internal/models"
)

// Producer streams order and pre-order lifecycle events. Events are
// informational fan-out; the database remains the source of truth and every
// publish failure is survivable.
type Producer struct {
	orderWriter    *kafka.Writer
	preOrderWriter *kafka.Writer
	log            *logger.Logger
}

func NewProducer(brokers []string, orderTopic, preOrderTopic string, log *logger.Logger) *Producer {
	return &Producer{
		orderWriter: kafka.NewWriter(kafka.WriterConfig{
			Brokers: brokers,
			Topic:   orderTopic,
		}),
		preOrderWriter: kafka.NewWriter(kafka.WriterConfig{
			Brokers: brokers,
			Topic:   preOrderTopic,
		}),
		log: log,
	}
}

type envelope struct {
	Event     string      `json:"event"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

func (p *Producer) publish(writer *kafka.Writer, event, key string, payload interface{}) error {
	msgBytes, err := json.Marshal(envelope{
		Event:     event,
		Timestamp: time.Now(),
		Payload:   payload,
	})
	if err != nil {
		return err
	}

	if p.log != nil {
		p.log.LogKafka("PUBLISH", writer.Topic, event+" "+key)
	}
	return writer.WriteMessages(context.Background(),
		kafka.Message{
			Key:   []byte(key),
			Value: msgBytes,
		},
	)
}

// PublishOrderCreated streams the order creation event.
func (p *Producer) PublishOrderCreated(order models.Order) error {
	return p.publish(p.orderWriter, "order_created", fmt.Sprint(order.ID), order)
}

// PublishOrderCancelled streams the order cancellation event.
func (p *Producer) PublishOrderCancelled(order models.Order) error {
	return p.publish(p.orderWriter, "order_cancelled", fmt.Sprint(order.ID), order)
}

// PublishPreOrderEvent streams a pre-order lifecycle event under the given
// event name.
func (p *Producer) PublishPreOrderEvent(event string, preOrder models.PreOrder) error {
	return p.publish(p.preOrderWriter, event, fmt.Sprint(preOrder.ID), preOrder)
}

// Close flushes and shuts down both writers.
func (p *Producer) Close() error {
	if err := p.orderWriter.Close(); err != nil {
		return err
	}
	return p.preOrderWriter.Close()
}
