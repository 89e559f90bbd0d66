// Package streaming wraps confluent-kafka-go into the thin
// consume-transform-produce primitives all four cmd/* binaries share:
// JSON codec, partition-key-by-pair produce, consumer-group configuration,
// and the historical/live offset-reset switch from spec.md §5.
package streaming

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"go.uber.org/zap"
)

// Producer publishes JSON-encoded records to a single output topic, keyed
// by the caller-supplied partition key (always `pair` per spec.md §6).
type Producer struct {
	kp     *kafka.Producer
	topic  string
	logger *zap.Logger
}

// NewProducer dials the broker and starts the delivery-report drain.
func NewProducer(brokerAddress, topic string, logger *zap.Logger) (*Producer, error) {
	kp, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": brokerAddress,
		"acks":              "all",
	})
	if err != nil {
		return nil, fmt.Errorf("creating kafka producer: %w", err)
	}

	p := &Producer{kp: kp, topic: topic, logger: logger}
	go p.drainEvents()
	return p, nil
}

func (p *Producer) drainEvents() {
	for e := range p.kp.Events() {
		switch ev := e.(type) {
		case *kafka.Message:
			if ev.TopicPartition.Error != nil {
				p.logger.Error("kafka delivery failed",
					zap.Error(ev.TopicPartition.Error),
					zap.String("topic", p.topic),
				)
			}
		case kafka.Error:
			p.logger.Error("kafka producer error", zap.Error(ev))
		}
	}
}

// Produce JSON-encodes v and publishes it to the producer's topic, keyed
// by key (the trading pair). Produce is asynchronous: it returns as soon as
// the message is in the client's local queue, or with an error if it
// cannot be queued, and does not wait for the broker's acknowledgement.
// Delivery of queued messages is awaited only by Flush at shutdown.
func (p *Producer) Produce(key string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding message for topic %s: %w", p.topic, err)
	}
	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &p.topic, Partition: kafka.PartitionAny},
		Key:            []byte(key),
		Value:          payload,
	}
	if err := p.kp.Produce(msg, nil); err != nil {
		return fmt.Errorf("queuing message for topic %s: %w", p.topic, err)
	}
	return nil
}

// Flush blocks until all queued produces are acknowledged or the timeout
// elapses, returning the number of messages still outstanding.
func (p *Producer) Flush(timeout time.Duration) int {
	return p.kp.Flush(int(timeout.Milliseconds()))
}

// Close flushes and releases the underlying client.
func (p *Producer) Close() {
	p.kp.Flush(5000)
	p.kp.Close()
}
