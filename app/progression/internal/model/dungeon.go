package model

import (
	"time"
)

// Archetype 地下城类型
type Archetype string

const (
	ArchetypeTimeTrial Archetype = "TIME_TRIAL"
	ArchetypeGravity   Archetype = "GRAVITY"
	ArchetypeCursed    Archetype = "CURSED"
	ArchetypeHybrid    Archetype = "HYBRID"
	ArchetypePromotion Archetype = "PROMOTION"
)

// Difficulty 难度档位
type Difficulty string

const (
	DifficultyEasy    Difficulty = "easy"
	DifficultyMedium  Difficulty = "medium"
	DifficultyHard    Difficulty = "hard"
	DifficultyExtreme Difficulty = "extreme"
)

// RunStatus 地下城状态，除 in_progress 外均为终态
type RunStatus string

const (
	RunInProgress RunStatus = "in_progress"
	RunCompleted  RunStatus = "completed"
	RunFailed     RunStatus = "failed"
	RunAbandoned  RunStatus = "abandoned"
)

// Terminal 是否终态
func (s RunStatus) Terminal() bool {
	return s != RunInProgress
}

// Exercise 地下城中的单个动作，未使用的字段为零值
type Exercise struct {
	Discipline  Discipline `json:"discipline"`
	Stage       int        `json:"stage,omitempty"`
	Reps        int        `json:"reps,omitempty"`
	Rounds      int        `json:"rounds,omitempty"`
	Sets        int        `json:"sets,omitempty"`
	RestSeconds int        `json:"rest_seconds,omitempty"`
	Tempo       string     `json:"tempo,omitempty"`
	Constraint  string     `json:"constraint,omitempty"`
	TotalReps   int        `json:"total_reps,omitempty"`
	TimeLimit   int        `json:"time_limit,omitempty"`
	HoldSeconds int        `json:"hold_seconds,omitempty"`
	PerfectForm bool       `json:"perfect_form,omitempty"`
}

// Requirements 通关条件
type Requirements struct {
	MaxFormBreaks        int      `json:"max_form_breaks"`
	MaxTimeSeconds       int      `json:"max_time_seconds,omitempty"`
	TempoTolerance       float64  `json:"tempo_tolerance,omitempty"`
	MaxViolations        int      `json:"max_violations"`
	NoConsumables        bool     `json:"no_consumables,omitempty"`
	NoRestPass           bool     `json:"no_rest_pass,omitempty"`
	CompletionConditions []string `json:"completion_conditions,omitempty"`
}

// Rewards 基础奖励
type Rewards struct {
	XP         int64 `json:"xp"`
	Credits    int64 `json:"credits"`
	StatPoints int   `json:"stat_points,omitempty"`
	RankUp     bool  `json:"rank_up,omitempty"`
}

// Penalties 晋升失败的惩罚
type Penalties struct {
	BecomeFallen         bool    `json:"become_fallen"`
	XPPenalty            float64 `json:"xp_penalty"`
	ConstellationCorrupt bool    `json:"constellation_corrupt"`
}

// Item 掉落物品
type Item struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// Loot 结算所得
type Loot struct {
	XP         int64  `json:"xp"`
	Credits    int64  `json:"credits"`
	StatPoints int    `json:"stat_points"`
	Items      []Item `json:"items"`
}

// AttemptResult 客户端上报的挑战结果
type AttemptResult struct {
	Success              bool `json:"success"`
	FormBreaks           int  `json:"form_breaks" binding:"gte=0"`
	CompletionTime       int  `json:"completion_time" binding:"gte=0"` // 秒
	ConstraintViolations int  `json:"constraint_violations" binding:"gte=0"`
}

// AbandonPenalty 放弃惩罚
type AbandonPenalty struct {
	XPLoss          int64 `json:"xp_loss"`
	CooldownSeconds int   `json:"cooldown_seconds"`
}

// DungeonRun 一次地下城挑战
type DungeonRun struct {
	ID           string       `json:"id"`
	PlayerID     int64        `json:"player_id"`
	Archetype    Archetype    `json:"archetype"`
	Difficulty   Difficulty   `json:"difficulty"`
	Exercises    []Exercise   `json:"exercises"`
	Requirements Requirements `json:"requirements"`
	Rewards      Rewards      `json:"rewards"`
	Penalties    *Penalties   `json:"penalties,omitempty"`

	Status          RunStatus       `json:"status"`
	Result          *AttemptResult  `json:"result,omitempty"`
	Score           *int            `json:"score,omitempty"`
	Loot            Loot            `json:"loot"`
	Abandon         *AbandonPenalty `json:"abandon,omitempty"`
	StartedAt       time.Time       `json:"started_at"`
	ResolvedAt      *time.Time      `json:"resolved_at,omitempty"`
	DurationSeconds int64           `json:"duration_seconds"`
}

// Clone 深拷贝
func (r *DungeonRun) Clone() *DungeonRun {
	if r == nil {
		return nil
	}
	out := *r
	out.Exercises = append([]Exercise(nil), r.Exercises...)
	out.Requirements.CompletionConditions = append([]string(nil), r.Requirements.CompletionConditions...)
	if r.Penalties != nil {
		p := *r.Penalties
		out.Penalties = &p
	}
	if r.Result != nil {
		res := *r.Result
		out.Result = &res
	}
	if r.Score != nil {
		s := *r.Score
		out.Score = &s
	}
	if r.Abandon != nil {
		a := *r.Abandon
		out.Abandon = &a
	}
	out.Loot.Items = append([]Item(nil), r.Loot.Items...)
	out.ResolvedAt = cloneTime(r.ResolvedAt)
	return &out
}

// DungeonStatistics 按类型汇总的地下城统计
type DungeonStatistics struct {
	Total        int                         `json:"total"`
	Completed    int                         `json:"completed"`
	Failed       int                         `json:"failed"`
	Abandoned    int                         `json:"abandoned"`
	AverageScore float64                     `json:"average_score"`
	ByArchetype  map[Archetype]ArchetypeStat `json:"by_archetype"`
}

// ArchetypeStat 单类型统计
type ArchetypeStat struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	BestScore int `json:"best_score"`
}
