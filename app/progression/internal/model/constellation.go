package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Rarity 稀有度
type Rarity string

const (
	RarityRare      Rarity = "Rare"
	RarityVeryRare  Rarity = "VeryRare"
	RarityLegendary Rarity = "Legendary"
)

// Trigger 赞助触发条件
type Trigger string

const (
	TriggerComebackSpike      Trigger = "comeback_spike"
	TriggerPRStreak           Trigger = "pr_streak"
	TriggerPerfectPromotion   Trigger = "perfect_promotion"
	TriggerSacrificeMade      Trigger = "sacrifice_made"
	TriggerExtremeConsistency Trigger = "extreme_consistency"
)

// AllTriggers 固定顺序
var AllTriggers = []Trigger{
	TriggerComebackSpike,
	TriggerPRStreak,
	TriggerPerfectPromotion,
	TriggerSacrificeMade,
	TriggerExtremeConsistency,
}

// Valid 是否为已知触发条件
func (t Trigger) Valid() bool {
	for _, v := range AllTriggers {
		if v == t {
			return true
		}
	}
	return false
}

// EffectKind 效果种类
type EffectKind string

const (
	EffectStatBoost        EffectKind = "stat_boost"
	EffectXPMultiplier     EffectKind = "xp_multiplier"
	EffectCreditMultiplier EffectKind = "credit_multiplier"
)

// Effect 赞助效果，Attribute 仅 stat_boost 使用
type Effect struct {
	Kind      EffectKind      `json:"kind"`
	Attribute Attribute       `json:"attribute,omitempty"`
	Base      decimal.Decimal `json:"base"`
	Scaling   decimal.Decimal `json:"scaling"`
}

// ValueAt 指定等级下的效果值
func (e Effect) ValueAt(cl int) decimal.Decimal {
	return e.Base.Add(e.Scaling.Mul(decimal.NewFromInt(int64(cl - 1))))
}

// Sponsor 赞助者身份
type Sponsor struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Title            string    `json:"title"`
	Rarity           Rarity    `json:"rarity"`
	PrimaryAttribute Attribute `json:"primary_attribute"`
	Trigger          Trigger   `json:"trigger"`
	Effects          []Effect  `json:"effects"`
}

// AssignmentStatus 赞助状态
type AssignmentStatus string

const (
	AssignmentActive     AssignmentStatus = "active"
	AssignmentSuperseded AssignmentStatus = "superseded"
)

// HistoryKind 赞助历史类型
type HistoryKind string

const (
	HistoryLevelUp HistoryKind = "level_up"
	HistoryTask    HistoryKind = "task"
	HistoryCorrupt HistoryKind = "corrupted"
	HistoryReset   HistoryKind = "reset"
)

// HistoryEntry 赞助历史
type HistoryEntry struct {
	Kind   HistoryKind `json:"kind"`
	At     time.Time   `json:"at"`
	Level  int         `json:"level,omitempty"`
	TaskID string      `json:"task_id,omitempty"`
	Reward int64       `json:"reward,omitempty"`
}

// MaxConstellationLevel 等级上限
const MaxConstellationLevel = 10

// ConstellationAssignment 玩家的赞助关系
// 腐化不是原地修改，而是生成新的 assignment 并把原记录标记为 superseded
type ConstellationAssignment struct {
	ID       string  `json:"id"`
	PlayerID int64   `json:"player_id"`
	Sponsor  Sponsor `json:"sponsor"`
	Trigger  Trigger `json:"trigger"`

	Level      int   `json:"level"`
	Experience int64 `json:"experience"`

	Status          AssignmentStatus `json:"status"`
	Corrupted       bool             `json:"corrupted"`
	CorruptedAt     *time.Time       `json:"corrupted_at,omitempty"`
	CorruptionLevel int              `json:"corruption_level"`
	OriginalID      string           `json:"original_id,omitempty"`

	Effects []Effect       `json:"effects"`
	History []HistoryEntry `json:"history"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasTask 任务是否已完成
func (a *ConstellationAssignment) HasTask(taskID string) bool {
	for _, h := range a.History {
		if h.Kind == HistoryTask && h.TaskID == taskID {
			return true
		}
	}
	return false
}

// Clone 深拷贝
func (a *ConstellationAssignment) Clone() *ConstellationAssignment {
	if a == nil {
		return nil
	}
	out := *a
	out.Sponsor.Effects = append([]Effect(nil), a.Sponsor.Effects...)
	out.Effects = append([]Effect(nil), a.Effects...)
	out.History = append([]HistoryEntry(nil), a.History...)
	out.CorruptedAt = cloneTime(a.CorruptedAt)
	return &out
}
