package model

import (
	"time"
)

// EffectView 当前等级下的效果值
type EffectView struct {
	Kind      EffectKind `json:"kind"`
	Attribute Attribute  `json:"attribute,omitempty"`
	Value     string     `json:"value"`
}

// SponsorView 对外展示的赞助信息
type SponsorView struct {
	ID         string       `json:"id"`
	SponsorID  string       `json:"sponsor_id"`
	Name       string       `json:"name"`
	Title      string       `json:"title"`
	Rarity     Rarity       `json:"rarity"`
	Level      int          `json:"level"`
	Experience int64        `json:"experience"`
	Corrupted  bool         `json:"corrupted"`
	OriginalID string       `json:"original_id,omitempty"`
	Effects    []EffectView `json:"effects"`
}

// Snapshot 返回给调用方的只读视图
type Snapshot struct {
	PlayerID     int64                            `json:"player_id"`
	Version      int64                            `json:"version"`
	Character    *Character                       `json:"character"`
	Gauntlets    map[Discipline]*GauntletProgress `json:"gauntlets"`
	Statistics   Statistics                       `json:"statistics"`
	Promotion    PromotionStatus                  `json:"promotion"`
	ActiveRun    *DungeonRun                      `json:"active_run,omitempty"`
	Sponsor      *SponsorView                     `json:"sponsor,omitempty"`
	Purification *PurificationProgress            `json:"purification,omitempty"`
	GeneratedAt  time.Time                        `json:"generated_at"`
}

// NewSnapshot 从状态构造快照，内部数据全部拷贝
func NewSnapshot(s *PlayerState, now time.Time) *Snapshot {
	c := s.Clone()
	snap := &Snapshot{
		PlayerID:     c.PlayerID,
		Version:      c.Version,
		Character:    c.Character,
		Gauntlets:    c.Gauntlets,
		Statistics:   c.Statistics,
		Promotion:    c.Promotion,
		ActiveRun:    c.ActiveRun,
		Purification: c.Purification,
		GeneratedAt:  now,
	}
	if a := c.ActiveAssignment(); a != nil {
		view := &SponsorView{
			ID:         a.ID,
			SponsorID:  a.Sponsor.ID,
			Name:       a.Sponsor.Name,
			Title:      a.Sponsor.Title,
			Rarity:     a.Sponsor.Rarity,
			Level:      a.Level,
			Experience: a.Experience,
			Corrupted:  a.Corrupted,
			OriginalID: a.OriginalID,
		}
		for _, e := range a.Effects {
			view.Effects = append(view.Effects, EffectView{
				Kind:      e.Kind,
				Attribute: e.Attribute,
				Value:     e.ValueAt(a.Level).String(),
			})
		}
		snap.Sponsor = view
	}
	return snap
}
