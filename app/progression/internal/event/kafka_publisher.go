package event

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/lk2023060901/arise/app/progression/internal/metrics"
	"github.com/lk2023060901/arise/pkg/logger"
	"github.com/lk2023060901/arise/pkg/mq/kafka"
	"github.com/panjf2000/ants/v2"
)

const (
	defaultLanes       = 16
	defaultLaneBuffer  = 256
	defaultPublishWait = 5 * time.Second
	defaultReleaseWait = 10 * time.Second

	headerEventKind   = "event-kind"
	headerEventSchema = "schema"
	eventSchemaV1     = "1"
)

// sender 由 kafka.Producer 实现
type sender interface {
	Publish(ctx context.Context, msg *kafka.Message) error
	Close() error
}

type outbound struct {
	ctx      context.Context
	kind     Kind
	playerID int64
	msg      *kafka.Message
}

// KafkaPublisher 按玩家 ID 分道，每条道由一个常驻协程顺序发送，
// 同一玩家的事件保持提交顺序
type KafkaPublisher struct {
	producer sender
	pool     *ants.Pool
	lanes    []chan *outbound
	logger   logger.Logger
	metrics  *metrics.ProgressionMetrics
	timeout  time.Duration

	mu     sync.RWMutex
	closed bool
}

// NewKafkaPublisher lanes 为 0 时使用默认值
func NewKafkaPublisher(producer sender, lanes int, l logger.Logger, m *metrics.ProgressionMetrics) (*KafkaPublisher, error) {
	if lanes <= 0 {
		lanes = defaultLanes
	}
	log := l.Named("event.kafka")
	pool, err := ants.NewPool(lanes, ants.WithPanicHandler(func(p any) {
		log.Error("event lane panic", "panic", p)
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to create publish pool: %w", err)
	}

	p := &KafkaPublisher{
		producer: producer,
		pool:     pool,
		lanes:    make([]chan *outbound, lanes),
		logger:   log,
		metrics:  m,
		timeout:  defaultPublishWait,
	}
	for i := range p.lanes {
		ch := make(chan *outbound, defaultLaneBuffer)
		p.lanes[i] = ch
		if err := pool.Submit(func() { p.drain(ch) }); err != nil {
			for _, c := range p.lanes[:i+1] {
				close(c)
			}
			pool.Release()
			return nil, fmt.Errorf("failed to start publish lane %d: %w", i, err)
		}
	}
	return p, nil
}

// Publish 放入玩家所在的道，道满或已关闭时丢弃并记录失败
func (p *KafkaPublisher) Publish(ctx context.Context, ev *ProgressionEvent) {
	msg, err := encode(ev)
	if err != nil {
		p.logger.Error("failed to encode event",
			"kind", ev.Kind,
			"player_id", ev.PlayerID,
			"error", err,
		)
		p.record(ev.Kind, false)
		return
	}

	item := &outbound{
		ctx:      context.WithoutCancel(ctx),
		kind:     ev.Kind,
		playerID: ev.PlayerID,
		msg:      msg,
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.dropped(item, "publisher closed")
		return
	}
	select {
	case p.lanes[p.laneOf(ev.PlayerID)] <- item:
	default:
		p.dropped(item, "lane full")
	}
}

// Close 停止接收，等待各道发完再关闭生产者
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	for _, ch := range p.lanes {
		close(ch)
	}
	p.mu.Unlock()

	if err := p.pool.ReleaseTimeout(defaultReleaseWait); err != nil {
		p.logger.Warn("publish pool release timeout", "error", err)
	}
	return p.producer.Close()
}

func (p *KafkaPublisher) laneOf(playerID int64) int {
	return int(uint64(playerID) % uint64(len(p.lanes)))
}

func (p *KafkaPublisher) drain(ch <-chan *outbound) {
	for item := range ch {
		p.send(item)
	}
}

func (p *KafkaPublisher) send(item *outbound) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("event publish panic",
				"kind", item.kind,
				"player_id", item.playerID,
				"panic", r,
			)
			p.record(item.kind, false)
		}
	}()

	ctx, cancel := context.WithTimeout(item.ctx, p.timeout)
	defer cancel()

	if err := p.producer.Publish(ctx, item.msg); err != nil {
		p.logger.Warn("failed to publish event",
			"kind", item.kind,
			"player_id", item.playerID,
			"error", err,
		)
		p.record(item.kind, false)
		return
	}
	p.record(item.kind, true)
}

func (p *KafkaPublisher) dropped(item *outbound, reason string) {
	p.logger.Warn("event dropped",
		"kind", item.kind,
		"player_id", item.playerID,
		"reason", reason,
	)
	p.record(item.kind, false)
}

func (p *KafkaPublisher) record(kind Kind, success bool) {
	if p.metrics != nil {
		p.metrics.RecordEvent(string(kind), success)
	}
}

func encode(ev *ProgressionEvent) (*kafka.Message, error) {
	value, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return &kafka.Message{
		Key:   []byte(strconv.FormatInt(ev.PlayerID, 10)),
		Value: value,
		Headers: map[string]string{
			headerEventKind:   string(ev.Kind),
			headerEventSchema: eventSchemaV1,
		},
	}, nil
}
