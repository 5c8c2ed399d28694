package engine

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/arise/app/progression/internal/model"
	"github.com/shopspring/decimal"
)

const (
	triggerWindow         = 7 * 24 * time.Hour
	comebackMinFailures   = 3
	prStreakMinRecords    = 3
	sacrificeMinCredits   = 1000
	consistencyMinStreak  = 30
	sponsorTaskXPDivisor  = 10
	corruptedSponsorIDTag = "corrupted_"
)

var primaryBoostStep = decimal.RequireFromString("0.5")

// TriggerSatisfied 单个触发条件是否满足
func TriggerSatisfied(t model.Trigger, s *model.PlayerState, now time.Time) bool {
	switch t {
	case model.TriggerComebackSpike:
		st := s.Statistics
		return st.DungeonsFailed >= comebackMinFailures && st.DungeonsCompleted > st.DungeonsFailed
	case model.TriggerPRStreak:
		n := 0
		for _, m := range s.Milestones {
			if m.Type == model.MilestonePersonalRecord && !m.At.After(now) && now.Sub(m.At) <= triggerWindow {
				n++
			}
		}
		return n >= prStreakMinRecords
	case model.TriggerPerfectPromotion:
		p := s.Promotion
		return p.LastAttemptAt != nil && now.Sub(*p.LastAttemptAt) <= triggerWindow && p.FailedAttempts == 0
	case model.TriggerSacrificeMade:
		return s.Statistics.TotalCreditsEarned > sacrificeMinCredits && s.Character.ConsumableCount() == 0
	case model.TriggerExtremeConsistency:
		return s.Statistics.CurrentStreak >= consistencyMinStreak
	}
	return false
}

// DetectTriggers 返回当前满足的全部触发条件
func (r *Rules) DetectTriggers(s *model.PlayerState, now time.Time) []model.Trigger {
	var out []model.Trigger
	for _, t := range model.AllTriggers {
		if TriggerSatisfied(t, s, now) {
			out = append(out, t)
		}
	}
	return out
}

// AvailableSponsors 当前可接受的赞助者
func (r *Rules) AvailableSponsors(s *model.PlayerState, now time.Time) []model.Sponsor {
	var out []model.Sponsor
	for _, t := range r.DetectTriggers(s, now) {
		if sp, ok := r.tables.Sponsor(t); ok {
			out = append(out, sp)
		}
	}
	return out
}

// AcceptSponsor 建立赞助关系，已腐化的旧赞助被替换
func (r *Rules) AcceptSponsor(s *model.PlayerState, trigger model.Trigger, now time.Time) (*model.ConstellationAssignment, error) {
	sp, ok := r.tables.Sponsor(trigger)
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "unknown trigger %q", trigger)
	}
	cur := s.ActiveAssignment()
	if cur != nil && !cur.Corrupted {
		return nil, errors.Wrapf(ErrAlreadyExists, "sponsor %s already active", cur.Sponsor.ID)
	}
	if !TriggerSatisfied(trigger, s, now) {
		return nil, errors.Wrapf(ErrNotEligible, "trigger %s not satisfied", trigger)
	}

	if cur != nil {
		cur.Status = model.AssignmentSuperseded
		cur.UpdatedAt = now
	}

	effects := make([]model.Effect, 0, len(sp.Effects)+1)
	effects = append(effects, model.Effect{
		Kind:      model.EffectStatBoost,
		Attribute: sp.PrimaryAttribute,
		Base:      primaryBoostStep,
		Scaling:   primaryBoostStep,
	})
	effects = append(effects, sp.Effects...)

	a := &model.ConstellationAssignment{
		ID:        r.newID(),
		PlayerID:  s.PlayerID,
		Sponsor:   sp,
		Trigger:   trigger,
		Level:     1,
		Status:    model.AssignmentActive,
		Effects:   effects,
		CreatedAt: now,
		UpdatedAt: now,
	}
	a.Sponsor.Effects = append([]model.Effect(nil), sp.Effects...)

	s.Assignments = append(s.Assignments, a)
	s.Character.ActiveSponsorID = a.ID
	return a, nil
}

// XPForNextLevel 升到下一级所需经验
func XPForNextLevel(cl int) int64 {
	return int64(100) << (cl - 1)
}

// AddSponsorExperience 累加经验并连续升级，超过上限时整体失败
func (r *Rules) AddSponsorExperience(a *model.ConstellationAssignment, amount int64, now time.Time) (int, error) {
	if amount < 0 {
		return 0, errors.AssertionFailedf("negative sponsor experience %d", amount)
	}
	if a.Level < 1 || a.Level > model.MaxConstellationLevel {
		return 0, errors.AssertionFailedf("sponsor %s has invalid level %d", a.ID, a.Level)
	}

	if a.Level == model.MaxConstellationLevel && amount > 0 {
		return 0, errors.Wrapf(ErrMaxReached, "sponsor %s already at level %d", a.ID, a.Level)
	}

	level, exp := a.Level, a.Experience+amount
	var ups []model.HistoryEntry
	for exp >= XPForNextLevel(level) {
		if level >= model.MaxConstellationLevel {
			return 0, errors.Wrapf(ErrMaxReached, "sponsor %s at level %d", a.ID, level)
		}
		exp -= XPForNextLevel(level)
		level++
		ups = append(ups, model.HistoryEntry{Kind: model.HistoryLevelUp, At: now, Level: level})
	}

	a.Level, a.Experience = level, exp
	a.History = append(a.History, ups...)
	a.UpdatedAt = now
	return len(ups), nil
}

// TaskResult 赞助任务结算
type TaskResult struct {
	TaskID       string `json:"task_id"`
	Credits      int64  `json:"credits"`
	XP           int64  `json:"xp"`
	LevelsGained int    `json:"levels_gained"`
	SponsorLevel int    `json:"sponsor_level"`
}

// CompleteSponsorTask 任务奖励积分，并按十分之一折算赞助经验
func (r *Rules) CompleteSponsorTask(c *model.Character, a *model.ConstellationAssignment, taskID string, reward int64, now time.Time) (TaskResult, error) {
	if a.HasTask(taskID) {
		return TaskResult{}, errors.Wrapf(ErrAlreadyExists, "task %s already completed", taskID)
	}
	if reward < 0 {
		return TaskResult{}, errors.AssertionFailedf("negative task reward %d", reward)
	}

	xp := reward / sponsorTaskXPDivisor
	levels, err := r.AddSponsorExperience(a, xp, now)
	if err != nil {
		return TaskResult{}, err
	}
	a.History = append(a.History, model.HistoryEntry{Kind: model.HistoryTask, At: now, TaskID: taskID, Reward: reward})
	c.Credits += reward
	c.UpdatedAt = now

	return TaskResult{
		TaskID:       taskID,
		Credits:      reward,
		XP:           xp,
		LevelsGained: levels,
		SponsorLevel: a.Level,
	}, nil
}

// Corrupt 由原赞助构造腐化后的新赞助，原记录标记为 superseded
func (r *Rules) Corrupt(a *model.ConstellationAssignment, now time.Time) (*model.ConstellationAssignment, error) {
	if a.Corrupted {
		return nil, errors.Wrapf(ErrInvalidState, "sponsor %s already corrupted", a.ID)
	}
	if a.Status != model.AssignmentActive {
		return nil, errors.Wrapf(ErrInvalidState, "sponsor %s is %s", a.ID, a.Status)
	}

	out := a.Clone()
	out.ID = r.newID()
	out.OriginalID = a.ID
	out.Sponsor.ID = corruptedSponsorIDTag + a.Sponsor.ID
	out.Sponsor.Name = "Corrupted " + a.Sponsor.Name
	out.Sponsor.Title = "Corrupted: " + a.Sponsor.Title
	out.Sponsor.Effects = invertEffects(a.Sponsor.Effects)
	out.Effects = invertEffects(a.Effects)
	out.Corrupted = true
	out.CorruptedAt = &now
	out.CorruptionLevel = a.Level
	out.Status = model.AssignmentActive
	out.History = append(out.History, model.HistoryEntry{Kind: model.HistoryCorrupt, At: now, Level: a.Level})
	out.CreatedAt = now
	out.UpdatedAt = now

	a.Status = model.AssignmentSuperseded
	a.UpdatedAt = now
	return out, nil
}

// CorruptActive 腐化玩家当前的赞助，没有可腐化的赞助时返回 nil
func (r *Rules) CorruptActive(s *model.PlayerState, now time.Time) (*model.ConstellationAssignment, error) {
	cur := s.ActiveAssignment()
	if cur == nil || cur.Corrupted {
		return nil, nil
	}
	out, err := r.Corrupt(cur, now)
	if err != nil {
		return nil, err
	}
	s.Assignments = append(s.Assignments, out)
	s.Character.ActiveSponsorID = out.ID
	return out, nil
}

func invertEffects(in []model.Effect) []model.Effect {
	out := make([]model.Effect, len(in))
	for i, e := range in {
		e.Base = e.Base.Abs().Neg()
		e.Scaling = e.Scaling.Abs().Neg()
		out[i] = e
	}
	return out
}
