package event

import (
	"context"
	"time"
)

// Kind 事件类型
type Kind string

const (
	KindPlayerCreated       Kind = "player_created"
	KindChallengeCompleted  Kind = "challenge_completed"
	KindStageCompleted      Kind = "stage_completed"
	KindDungeonStarted      Kind = "dungeon_started"
	KindDungeonResolved     Kind = "dungeon_resolved"
	KindDungeonAbandoned    Kind = "dungeon_abandoned"
	KindPromotionStarted    Kind = "promotion_started"
	KindSponsorAccepted     Kind = "sponsor_accepted"
	KindSponsorTask         Kind = "sponsor_task_completed"
	KindPurificationStarted Kind = "purification_started"
	KindPurificationPhase   Kind = "purification_phase"
)

// ProgressionEvent 提交成功后对外发布的事件
type ProgressionEvent struct {
	Kind      Kind      `json:"kind"`
	PlayerID  int64     `json:"player_id"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher 事件发布，发布失败不影响已提交的操作
type Publisher interface {
	Publish(ctx context.Context, ev *ProgressionEvent)
	Close() error
}

// NoopPublisher 未配置消息队列时使用
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, *ProgressionEvent) {}

func (NoopPublisher) Close() error { return nil }
