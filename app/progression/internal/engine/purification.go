package engine

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/arise/app/progression/internal/model"
)

// MinFallenDuration 开始净化前至少堕落的时长
const MinFallenDuration = 30 * 24 * time.Hour

const (
	PerkUnbreakableWill   = "unbreakable_will"
	AchievementRedeemed   = "the_redeemed"
	titleRedeemed         = "The Redeemed"
	titleScarredSage      = "Scarred Sage"
	unbreakableWillName   = "Unbreakable Will"
	unbreakableWillMaxUse = 1
)

// PhaseOutcome 阶段推进结果
type PhaseOutcome struct {
	Phase     int                       `json:"phase"`
	NextPhase int                       `json:"next_phase,omitempty"`
	Finalized bool                      `json:"finalized"`
	Option    *model.PurificationOption `json:"option,omitempty"`
	Rank      model.Rank                `json:"rank,omitempty"`
	Perk      *model.Perk               `json:"perk,omitempty"`
}

// StartPurification 堕落满 30 天后开启净化
func (r *Rules) StartPurification(s *model.PlayerState, now time.Time) error {
	if s.Purification != nil {
		return errors.Wrapf(ErrAlreadyExists, "purification already at phase %d", s.Purification.Phase)
	}
	c := s.Character
	if !c.IsFallen || c.FallenSince == nil {
		return errors.Wrap(ErrNotEligible, "player is not fallen")
	}
	if elapsed := now.Sub(*c.FallenSince); elapsed < MinFallenDuration {
		return errors.Wrapf(ErrNotEligible, "fallen for %s, need %s", elapsed.Truncate(time.Second), MinFallenDuration)
	}

	s.Purification = &model.PurificationProgress{Phase: 1, StartedAt: now}

	// 腐化的赞助从 1 级重新开始
	if a := s.ActiveAssignment(); a != nil && a.Corrupted {
		a.Level = 1
		a.Experience = 0
		a.History = append(a.History, model.HistoryEntry{Kind: model.HistoryReset, At: now, Level: 1})
		a.UpdatedAt = now
	}
	return nil
}

// AdvancePurification 推进当前阶段，第四阶段给出选项后结束净化
// 试炼 id 不在这里去重
func (r *Rules) AdvancePurification(s *model.PlayerState, phase int, data model.PhaseData, now time.Time) (PhaseOutcome, error) {
	p := s.Purification
	if p == nil {
		return PhaseOutcome{}, errors.Wrap(ErrNotActive, "no active purification")
	}
	if p.Phase < 1 || p.Phase > model.FinalPurificationPhase {
		return PhaseOutcome{}, errors.AssertionFailedf("purification phase %d out of range", p.Phase)
	}
	if phase != p.Phase {
		return PhaseOutcome{}, errors.Wrapf(ErrOutOfSequence, "phase %d submitted, current phase is %d", phase, p.Phase)
	}
	if data.Option != nil {
		if phase < model.FinalPurificationPhase {
			return PhaseOutcome{}, errors.Wrapf(ErrOutOfSequence, "resolution chosen at phase %d", phase)
		}
		if !data.Option.Valid() {
			return PhaseOutcome{}, errors.Wrapf(ErrInvalidState, "unknown resolution %q", *data.Option)
		}
	}

	p.CompletedTrials = append(p.CompletedTrials, data.TrialID)
	p.SacrificeMade = p.SacrificeMade || data.SacrificeMade
	p.MirrorDefeated = p.MirrorDefeated || data.MirrorDefeated

	out := PhaseOutcome{Phase: phase}
	if phase < model.FinalPurificationPhase {
		p.Phase++
		out.NextPhase = p.Phase
		return out, nil
	}
	if data.Option == nil {
		out.NextPhase = p.Phase
		return out, nil
	}

	opt := *data.Option
	p.SelectedOption = &opt
	out.Finalized = true
	out.Option = &opt
	out.Perk = finalizePurification(s, opt, now)
	out.Rank = s.Character.Rank
	return out, nil
}

func finalizePurification(s *model.PlayerState, opt model.PurificationOption, now time.Time) *model.Perk {
	c := s.Character
	c.IsFallen = false
	c.FallenSince = nil

	var perk *model.Perk
	title := titleRedeemed
	switch opt {
	case model.OptionPurge:
		c.Rank = c.PreFallRank
		if c.Rank == "" {
			c.Rank = model.RankF
		}
	case model.OptionAbsorb:
		title = titleScarredSage
		perk = grantUnbreakableWill(c)
	}
	c.PreFallRank = ""

	if !c.HasAchievement(AchievementRedeemed) {
		c.Achievements = append(c.Achievements, model.Achievement{
			ID:         AchievementRedeemed,
			Title:      title,
			Rarity:     model.RarityLegendary,
			UnlockedAt: now,
		})
	}
	c.UpdatedAt = now

	s.AddMilestone(model.MilestonePurified, now, map[string]string{"option": string(opt)})
	s.Purification = nil
	return perk
}

func grantUnbreakableWill(c *model.Character) *model.Perk {
	if p := c.Perk(PerkUnbreakableWill); p != nil {
		p.UsesRemaining = p.MaxUses
		out := *p
		return &out
	}
	p := model.Perk{
		ID:               PerkUnbreakableWill,
		Name:             unbreakableWillName,
		UsesRemaining:    unbreakableWillMaxUse,
		MaxUses:          unbreakableWillMaxUse,
		ResetOnPromotion: true,
	}
	c.Perks = append(c.Perks, p)
	return &p
}

// ConsumeForgiveness 晋升考核时用特性抵消一次失误，返回抵消次数
func ConsumeForgiveness(c *model.Character, formBreaks int) int {
	p := c.Perk(PerkUnbreakableWill)
	if p == nil || p.UsesRemaining <= 0 || formBreaks <= 0 {
		return 0
	}
	p.UsesRemaining--
	return 1
}

// ResetPromotionPerks 晋升后刷新特性次数
func ResetPromotionPerks(c *model.Character) {
	for i := range c.Perks {
		if c.Perks[i].ResetOnPromotion {
			c.Perks[i].UsesRemaining = c.Perks[i].MaxUses
		}
	}
}
