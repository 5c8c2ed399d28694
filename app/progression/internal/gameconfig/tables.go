package gameconfig

import (
	"fmt"

	"github.com/lk2023060901/arise/app/progression/internal/model"
	"github.com/shopspring/decimal"
)

// RankThreshold 等级达到 MinLevel 即获得 Rank
type RankThreshold struct {
	MinLevel int        `json:"min_level"`
	Rank     model.Rank `json:"rank"`
}

// GauntletBand 从 Start 关开始生效的经验档位，最后一档对更高关卡一直有效
type GauntletBand struct {
	Start      int   `json:"start"`
	XPPerStage int64 `json:"xp_per_stage"`
	BossBonus  int64 `json:"boss_bonus"`
}

// Tables 规则表
type Tables struct {
	Ranks    []RankThreshold
	Bands    []GauntletBand
	Sponsors map[model.Trigger]model.Sponsor
}

// DefaultRankTable 默认段位表
func DefaultRankTable() []RankThreshold {
	return []RankThreshold{
		{MinLevel: 0, Rank: model.RankF},
		{MinLevel: 10, Rank: model.RankE},
		{MinLevel: 20, Rank: model.RankD},
		{MinLevel: 30, Rank: model.RankC},
		{MinLevel: 40, Rank: model.RankB},
		{MinLevel: 60, Rank: model.RankA},
		{MinLevel: 80, Rank: model.RankS},
		{MinLevel: 90, Rank: model.RankSS},
		{MinLevel: 100, Rank: model.RankSSS},
	}
}

// DefaultGauntletBands 默认关卡经验表
func DefaultGauntletBands() []GauntletBand {
	return []GauntletBand{
		{Start: 1, XPPerStage: 10, BossBonus: 50},
		{Start: 11, XPPerStage: 20, BossBonus: 100},
		{Start: 21, XPPerStage: 30, BossBonus: 150},
		{Start: 31, XPPerStage: 40, BossBonus: 200},
		{Start: 41, XPPerStage: 60, BossBonus: 300},
		{Start: 51, XPPerStage: 80, BossBonus: 400},
		{Start: 61, XPPerStage: 110, BossBonus: 600},
		{Start: 71, XPPerStage: 160, BossBonus: 1000},
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// DefaultSponsors 默认赞助者，每个触发条件对应一位
func DefaultSponsors() []model.Sponsor {
	return []model.Sponsor{
		{
			ID: "naruto", Name: "Naruto Uzumaki", Title: "The One Who Refused to Be Left Behind",
			Rarity: model.RarityRare, PrimaryAttribute: model.AttrAgility, Trigger: model.TriggerComebackSpike,
			Effects: []model.Effect{
				{Kind: model.EffectStatBoost, Attribute: model.AttrAgility, Base: dec("0.5"), Scaling: dec("0.5")},
			},
		},
		{
			ID: "goku", Name: "Son Goku", Title: "The One Who Breaks His Limit Again and Again",
			Rarity: model.RarityRare, PrimaryAttribute: model.AttrStrength, Trigger: model.TriggerPRStreak,
			Effects: []model.Effect{
				{Kind: model.EffectStatBoost, Attribute: model.AttrStrength, Base: dec("1"), Scaling: dec("1")},
			},
		},
		{
			ID: "levi", Name: "Levi Ackerman", Title: "The One Who Stands Alone on the Battlefield",
			Rarity: model.RarityVeryRare, PrimaryAttribute: model.AttrIntelligence, Trigger: model.TriggerPerfectPromotion,
			Effects: []model.Effect{
				{Kind: model.EffectXPMultiplier, Base: dec("0.05"), Scaling: dec("0.01")},
			},
		},
		{
			ID: "itachi", Name: "Itachi Uchiha", Title: "The One Who Bore the World in Silence",
			Rarity: model.RarityVeryRare, PrimaryAttribute: model.AttrVitality, Trigger: model.TriggerSacrificeMade,
			Effects: []model.Effect{
				{Kind: model.EffectCreditMultiplier, Base: dec("0.05"), Scaling: dec("0.02")},
			},
		},
		{
			ID: "saitama", Name: "Saitama", Title: "The One Who Trained When No One Watched",
			Rarity: model.RarityLegendary, PrimaryAttribute: model.AttrStrength, Trigger: model.TriggerExtremeConsistency,
			Effects: []model.Effect{
				{Kind: model.EffectXPMultiplier, Base: dec("0.1"), Scaling: dec("0.05")},
			},
		},
	}
}

// DefaultTables 内置规则表
func DefaultTables() *Tables {
	t, err := NewTables(DefaultRankTable(), DefaultGauntletBands(), DefaultSponsors())
	if err != nil {
		panic(fmt.Sprintf("gameconfig: invalid built-in tables: %v", err))
	}
	return t
}

// NewTables 校验并组装规则表
func NewTables(ranks []RankThreshold, bands []GauntletBand, sponsors []model.Sponsor) (*Tables, error) {
	if err := validateRanks(ranks); err != nil {
		return nil, err
	}
	if err := validateBands(bands); err != nil {
		return nil, err
	}
	byTrigger, err := indexSponsors(sponsors)
	if err != nil {
		return nil, err
	}
	return &Tables{Ranks: ranks, Bands: bands, Sponsors: byTrigger}, nil
}

// RankFor 按等级查段位
func (t *Tables) RankFor(level int) model.Rank {
	r := t.Ranks[0].Rank
	for _, th := range t.Ranks {
		if level < th.MinLevel {
			break
		}
		r = th.Rank
	}
	return r
}

// BandFor 按关卡查经验档位
func (t *Tables) BandFor(stage int) GauntletBand {
	b := t.Bands[0]
	for _, band := range t.Bands {
		if stage < band.Start {
			break
		}
		b = band
	}
	return b
}

// Sponsor 按触发条件查赞助者
func (t *Tables) Sponsor(trigger model.Trigger) (model.Sponsor, bool) {
	s, ok := t.Sponsors[trigger]
	return s, ok
}

// 从 0 开始、严格递增，因此覆盖 [0,∞) 且无重叠
func validateRanks(ranks []RankThreshold) error {
	if len(ranks) == 0 {
		return fmt.Errorf("%w: rank table is empty", ErrInvalidTable)
	}
	if ranks[0].MinLevel != 0 {
		return fmt.Errorf("%w: rank table must start at level 0, got %d", ErrInvalidTable, ranks[0].MinLevel)
	}
	for i, r := range ranks {
		if r.Rank.Index() < 0 {
			return fmt.Errorf("%w: unknown rank %q", ErrInvalidTable, r.Rank)
		}
		if i == 0 {
			continue
		}
		prev := ranks[i-1]
		if r.MinLevel <= prev.MinLevel {
			return fmt.Errorf("%w: rank thresholds not increasing at %s", ErrInvalidTable, r.Rank)
		}
		if r.Rank.Index() <= prev.Rank.Index() {
			return fmt.Errorf("%w: ranks not ordered at %s", ErrInvalidTable, r.Rank)
		}
	}
	return nil
}

func validateBands(bands []GauntletBand) error {
	if len(bands) == 0 {
		return fmt.Errorf("%w: gauntlet band table is empty", ErrInvalidTable)
	}
	if bands[0].Start != 1 {
		return fmt.Errorf("%w: first gauntlet band must start at stage 1", ErrInvalidTable)
	}
	for i, b := range bands {
		if b.XPPerStage <= 0 || b.BossBonus < 0 {
			return fmt.Errorf("%w: band %d has non-positive rewards", ErrInvalidTable, b.Start)
		}
		if i > 0 && b.Start <= bands[i-1].Start {
			return fmt.Errorf("%w: gauntlet bands not increasing at %d", ErrInvalidTable, b.Start)
		}
	}
	return nil
}

func indexSponsors(sponsors []model.Sponsor) (map[model.Trigger]model.Sponsor, error) {
	out := make(map[model.Trigger]model.Sponsor, len(sponsors))
	for _, s := range sponsors {
		if !s.Trigger.Valid() {
			return nil, fmt.Errorf("%w: sponsor %s has unknown trigger %q", ErrInvalidTable, s.ID, s.Trigger)
		}
		if _, dup := out[s.Trigger]; dup {
			return nil, fmt.Errorf("%w: trigger %s mapped twice", ErrInvalidTable, s.Trigger)
		}
		if s.ID == "" || s.Name == "" {
			return nil, fmt.Errorf("%w: sponsor for %s missing identity", ErrInvalidTable, s.Trigger)
		}
		for _, e := range s.Effects {
			switch e.Kind {
			case model.EffectStatBoost:
				if e.Attribute == "" {
					return nil, fmt.Errorf("%w: stat boost of %s missing attribute", ErrInvalidTable, s.ID)
				}
			case model.EffectXPMultiplier, model.EffectCreditMultiplier:
			default:
				return nil, fmt.Errorf("%w: sponsor %s has unknown effect %q", ErrInvalidTable, s.ID, e.Kind)
			}
		}
		out[s.Trigger] = s
	}
	for _, t := range model.AllTriggers {
		if _, ok := out[t]; !ok {
			return nil, fmt.Errorf("%w: no sponsor for trigger %s", ErrInvalidTable, t)
		}
	}
	return out, nil
}
