package kafka

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/lk2023060901/arise/pkg/config"
	"github.com/segmentio/kafka-go"
)

// Message 待发送消息
type Message struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// messageWriter kafka.Writer 的最小接口，测试时替换
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer 单 topic 生产者
type Producer struct {
	writer messageWriter
	topic  string

	produced atomic.Int64
	failed   atomic.Int64
	closed   atomic.Bool
}

// NewProducer 创建生产者，不会立即连接 broker
func NewProducer(cfg *ProducerConfig) (*Producer, error) {
	merged, err := config.MergeConfig(DefaultProducerConfig(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to merge config: %w", err)
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(merged.Brokers...),
		Topic:                  merged.Topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           merged.BatchTimeout,
		MaxAttempts:            merged.MaxAttempts,
		WriteTimeout:           merged.WriteTimeout,
		RequiredAcks:           kafka.RequiredAcks(merged.RequiredAcks),
		AllowAutoTopicCreation: true,
	}
	return newProducerWithWriter(w, merged.Topic), nil
}

func newProducerWithWriter(w messageWriter, topic string) *Producer {
	return &Producer{writer: w, topic: topic}
}

// Topic 目标 topic
func (p *Producer) Topic() string {
	return p.topic
}

// Publish 同步发送，相同 Key 进入同一分区
func (p *Producer) Publish(ctx context.Context, msg *Message) error {
	if p.closed.Load() {
		return ErrProducerClosed
	}

	km := kafka.Message{Key: msg.Key, Value: msg.Value}
	for k, v := range msg.Headers {
		km.Headers = append(km.Headers, kafka.Header{Key: k, Value: []byte(v)})
	}

	if err := p.writer.WriteMessages(ctx, km); err != nil {
		p.failed.Add(1)
		return fmt.Errorf("failed to publish to %s: %w", p.topic, err)
	}
	p.produced.Add(1)
	return nil
}

// Stats 返回成功与失败条数
func (p *Producer) Stats() (produced, failed int64) {
	return p.produced.Load(), p.failed.Load()
}

// Close 关闭生产者，会刷新缓冲区
func (p *Producer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	return p.writer.Close()
}
