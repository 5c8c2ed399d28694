package model

import (
	"sort"
	"time"
)

// BossBonus Boss 关卡奖励记录
type BossBonus struct {
	Stage int       `json:"stage"`
	Bonus int64     `json:"bonus"`
	At    time.Time `json:"at"`
}

// GauntletProgress 单个项目的关卡进度
type GauntletProgress struct {
	PlayerID        int64       `json:"player_id"`
	Discipline      Discipline  `json:"discipline"`
	CurrentStage    int         `json:"current_stage"`
	StagesCompleted []int       `json:"stages_completed"` // 升序，无重复
	TotalXP         int64       `json:"total_xp"`
	BossBonuses     []BossBonus `json:"boss_bonuses"`
}

// NewGauntletProgress 初始关卡为 1
func NewGauntletProgress(playerID int64, d Discipline) *GauntletProgress {
	return &GauntletProgress{
		PlayerID:     playerID,
		Discipline:   d,
		CurrentStage: 1,
	}
}

// IsCompleted 关卡是否已完成
func (g *GauntletProgress) IsCompleted(stage int) bool {
	i := sort.SearchInts(g.StagesCompleted, stage)
	return i < len(g.StagesCompleted) && g.StagesCompleted[i] == stage
}

// MarkCompleted 幂等插入
func (g *GauntletProgress) MarkCompleted(stage int) {
	i := sort.SearchInts(g.StagesCompleted, stage)
	if i < len(g.StagesCompleted) && g.StagesCompleted[i] == stage {
		return
	}
	g.StagesCompleted = append(g.StagesCompleted, 0)
	copy(g.StagesCompleted[i+1:], g.StagesCompleted[i:])
	g.StagesCompleted[i] = stage
}

// Clone 深拷贝
func (g *GauntletProgress) Clone() *GauntletProgress {
	if g == nil {
		return nil
	}
	out := *g
	out.StagesCompleted = append([]int(nil), g.StagesCompleted...)
	out.BossBonuses = append([]BossBonus(nil), g.BossBonuses...)
	return &out
}
