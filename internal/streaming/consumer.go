package streaming

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"go.uber.org/zap"
)

// Consumer reads JSON-encoded records from one input topic under a
// consumer group, with the historical/live offset-reset switch spec.md §5
// requires.
type Consumer struct {
	kc     *kafka.Consumer
	topic  string
	logger *zap.Logger
}

// NewConsumer subscribes to topic under group. historical=true starts
// from the earliest offset (backfill/replay-recovery mode); historical=false
// starts from the latest (live mode).
func NewConsumer(brokerAddress, topic, group string, historical bool, logger *zap.Logger) (*Consumer, error) {
	offsetReset := "latest"
	if historical {
		offsetReset = "earliest"
	}
	kc, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":  brokerAddress,
		"group.id":           group,
		"auto.offset.reset":  offsetReset,
		"enable.auto.commit": false,
	})
	if err != nil {
		return nil, fmt.Errorf("creating kafka consumer: %w", err)
	}
	if err := kc.SubscribeTopics([]string{topic}, nil); err != nil {
		return nil, fmt.Errorf("subscribing to topic %s: %w", topic, err)
	}
	return &Consumer{kc: kc, topic: topic, logger: logger}, nil
}

// Record is one decoded Kafka message, retaining the raw key (the pair)
// and the topic-partition needed to commit.
type Record struct {
	Key   string
	Value []byte
	tp    kafka.TopicPartition
}

// Poll blocks (respecting ctx) for the next message on the topic. It
// returns (nil, ctx.Err()) on cancellation, and retries transient
// read timeouts rather than surfacing them as errors, matching the
// "data-plane failures never stall the stream" invariant (spec.md §7).
func (c *Consumer) Poll(ctx context.Context) (*Record, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		msg, err := c.kc.ReadMessage(500 * time.Millisecond)
		if err != nil {
			if kerr, ok := err.(kafka.Error); ok && kerr.IsTimeout() {
				continue
			}
			c.logger.Warn("kafka read error, retrying", zap.Error(err), zap.String("topic", c.topic))
			continue
		}
		return &Record{Key: string(msg.Key), Value: msg.Value, tp: msg.TopicPartition}, nil
	}
}

// Decode unmarshals the record's value into v.
func (r *Record) Decode(v any) error {
	return json.Unmarshal(r.Value, v)
}

// CommitRecord commits the offset for a processed record. The driver loops
// call it once Producer.Produce has queued the record's output; the commit
// does not wait for that output to be flushed or acknowledged by the broker.
func (c *Consumer) CommitRecord(r *Record) error {
	_, err := c.kc.CommitOffsets([]kafka.TopicPartition{r.tp})
	return err
}

// Close stops consumption and releases the underlying client.
func (c *Consumer) Close() error {
	return c.kc.Close()
}
