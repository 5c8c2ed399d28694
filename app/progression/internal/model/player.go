package model

import (
	"time"
)

// Statistics 玩家累计统计
type Statistics struct {
	TotalChallenges    int        `json:"total_challenges"`
	DungeonsCompleted  int        `json:"dungeons_completed"`
	DungeonsFailed     int        `json:"dungeons_failed"`
	DungeonsAbandoned  int        `json:"dungeons_abandoned"`
	TotalXPEarned      int64      `json:"total_xp_earned"`
	TotalCreditsEarned int64      `json:"total_credits_earned"`
	CurrentStreak      int        `json:"current_streak"`
	LongestStreak      int        `json:"longest_streak"`
	LastActivityDate   *time.Time `json:"last_activity_date,omitempty"` // UTC 零点
}

// PromotionStatus 晋升资格
type PromotionStatus struct {
	CanAttempt     bool       `json:"can_attempt"`
	NextRank       Rank       `json:"next_rank,omitempty"`
	CertifiedRank  Rank       `json:"certified_rank"`
	FailedAttempts int        `json:"failed_attempts"`
	LastAttemptAt  *time.Time `json:"last_attempt_at,omitempty"`
}

// MilestoneType 里程碑类型
type MilestoneType string

const (
	MilestonePersonalRecord MilestoneType = "personal_record"
	MilestoneFallen         MilestoneType = "fallen"
	MilestonePromotion      MilestoneType = "promotion"
	MilestonePurified       MilestoneType = "purified"
)

// Milestone 里程碑
type Milestone struct {
	Type MilestoneType     `json:"type"`
	At   time.Time         `json:"at"`
	Data map[string]string `json:"data,omitempty"`
}

// PlayerState 单个玩家的完整聚合，加载和保存的最小单位
type PlayerState struct {
	PlayerID int64 `json:"player_id"`
	// Version 乐观锁版本号，每次保存 +1
	Version int64 `json:"version"`

	Character    *Character                       `json:"character"`
	Gauntlets    map[Discipline]*GauntletProgress `json:"gauntlets"`
	Statistics   Statistics                       `json:"statistics"`
	Promotion    PromotionStatus                  `json:"promotion"`
	Milestones   []Milestone                      `json:"milestones"`
	ActiveRun    *DungeonRun                      `json:"active_run,omitempty"`
	Assignments  []*ConstellationAssignment       `json:"assignments"`
	Purification *PurificationProgress            `json:"purification,omitempty"`
}

// NewPlayerState 新玩家：四个项目都从第 1 关开始
func NewPlayerState(playerID int64, now time.Time) *PlayerState {
	s := &PlayerState{
		PlayerID:  playerID,
		Character: NewCharacter(playerID, now),
		Gauntlets: make(map[Discipline]*GauntletProgress, len(AllDisciplines)),
		Promotion: PromotionStatus{CertifiedRank: RankF},
	}
	for _, d := range AllDisciplines {
		s.Gauntlets[d] = NewGauntletProgress(playerID, d)
	}
	return s
}

// Gauntlet 取项目进度，不存在时补建
func (s *PlayerState) Gauntlet(d Discipline) *GauntletProgress {
	g, ok := s.Gauntlets[d]
	if !ok {
		g = NewGauntletProgress(s.PlayerID, d)
		s.Gauntlets[d] = g
	}
	return g
}

// ActiveAssignment 当前生效的赞助，可能已腐化
func (s *PlayerState) ActiveAssignment() *ConstellationAssignment {
	for _, a := range s.Assignments {
		if a.Status == AssignmentActive {
			return a
		}
	}
	return nil
}

// AddMilestone 追加里程碑
func (s *PlayerState) AddMilestone(t MilestoneType, at time.Time, data map[string]string) {
	s.Milestones = append(s.Milestones, Milestone{Type: t, At: at, Data: data})
}

// Clone 深拷贝，业务操作只修改副本
func (s *PlayerState) Clone() *PlayerState {
	if s == nil {
		return nil
	}
	out := *s
	out.Character = s.Character.Clone()
	out.Gauntlets = make(map[Discipline]*GauntletProgress, len(s.Gauntlets))
	for k, v := range s.Gauntlets {
		out.Gauntlets[k] = v.Clone()
	}
	out.Statistics.LastActivityDate = cloneTime(s.Statistics.LastActivityDate)
	out.Promotion.LastAttemptAt = cloneTime(s.Promotion.LastAttemptAt)
	out.Milestones = make([]Milestone, len(s.Milestones))
	for i, m := range s.Milestones {
		out.Milestones[i] = m
		if m.Data != nil {
			out.Milestones[i].Data = make(map[string]string, len(m.Data))
			for k, v := range m.Data {
				out.Milestones[i].Data[k] = v
			}
		}
	}
	out.ActiveRun = s.ActiveRun.Clone()
	out.Assignments = make([]*ConstellationAssignment, len(s.Assignments))
	for i, a := range s.Assignments {
		out.Assignments[i] = a.Clone()
	}
	out.Purification = s.Purification.Clone()
	return &out
}
