package model

import (
	"time"
)

// Discipline 训练项目
type Discipline string

const (
	DisciplinePush Discipline = "push"
	DisciplinePull Discipline = "pull"
	DisciplineLegs Discipline = "legs"
	DisciplineCore Discipline = "core"
)

// AllDisciplines 固定顺序的全部项目
var AllDisciplines = []Discipline{DisciplinePush, DisciplinePull, DisciplineLegs, DisciplineCore}

// Valid 是否为已知项目
func (d Discipline) Valid() bool {
	switch d {
	case DisciplinePush, DisciplinePull, DisciplineLegs, DisciplineCore:
		return true
	}
	return false
}

// Attribute 属性
type Attribute string

const (
	AttrStrength     Attribute = "STR"
	AttrAgility      Attribute = "AGI"
	AttrVitality     Attribute = "VIT"
	AttrSensory      Attribute = "SEN"
	AttrIntelligence Attribute = "INT"
)

// Rank 段位，F 最低
type Rank string

const (
	RankF   Rank = "F"
	RankE   Rank = "E"
	RankD   Rank = "D"
	RankC   Rank = "C"
	RankB   Rank = "B"
	RankA   Rank = "A"
	RankS   Rank = "S"
	RankSS  Rank = "SS"
	RankSSS Rank = "SSS"
)

// RankOrder 段位从低到高
var RankOrder = []Rank{RankF, RankE, RankD, RankC, RankB, RankA, RankS, RankSS, RankSSS}

// Index 段位序号，未知段位返回 -1
func (r Rank) Index() int {
	for i, v := range RankOrder {
		if v == r {
			return i
		}
	}
	return -1
}

// Stats 五项属性
type Stats struct {
	Strength     int `json:"strength"`
	Agility      int `json:"agility"`
	Vitality     int `json:"vitality"`
	Sensory      int `json:"sensory"`
	Intelligence int `json:"intelligence"`
}

// Get 按属性取值
func (s Stats) Get(a Attribute) int {
	switch a {
	case AttrStrength:
		return s.Strength
	case AttrAgility:
		return s.Agility
	case AttrVitality:
		return s.Vitality
	case AttrSensory:
		return s.Sensory
	case AttrIntelligence:
		return s.Intelligence
	}
	return 0
}

// Perk 被动特性
type Perk struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	UsesRemaining    int    `json:"uses_remaining"`
	MaxUses          int    `json:"max_uses"`
	ResetOnPromotion bool   `json:"reset_on_promotion"`
}

// Achievement 成就
type Achievement struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Rarity     Rarity    `json:"rarity"`
	UnlockedAt time.Time `json:"unlocked_at"`
}

// Character 角色
// Intelligence 只由 Boss 关卡累加，其余属性、等级、段位都由经验和关卡推导
type Character struct {
	PlayerID int64 `json:"player_id"`

	Stats Stats `json:"stats"`
	Level int   `json:"level"`
	Rank  Rank  `json:"rank"`

	DisciplineXP map[Discipline]int64 `json:"discipline_xp"`
	TotalXP      int64                `json:"total_xp"`

	ChallengesCompleted int   `json:"challenges_completed"`
	DungeonKeys         int   `json:"dungeon_keys"`
	Credits             int64 `json:"credits"`
	StatPoints          int   `json:"stat_points"` // 未分配属性点

	IsFallen    bool       `json:"is_fallen"`
	FallenSince *time.Time `json:"fallen_since,omitempty"`
	PreFallRank Rank       `json:"pre_fall_rank,omitempty"`

	ActiveSponsorID string `json:"active_sponsor_id,omitempty"`

	Perks        []Perk         `json:"perks"`
	Achievements []Achievement  `json:"achievements"`
	Consumables  map[string]int `json:"consumables"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewCharacter 新角色：全部属性为 1，F 段位
func NewCharacter(playerID int64, now time.Time) *Character {
	return &Character{
		PlayerID:     playerID,
		Stats:        Stats{Strength: 1, Agility: 1, Vitality: 1, Sensory: 1, Intelligence: 1},
		Rank:         RankF,
		DisciplineXP: make(map[Discipline]int64, len(AllDisciplines)),
		Consumables:  make(map[string]int),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Perk 按 id 查找特性
func (c *Character) Perk(id string) *Perk {
	for i := range c.Perks {
		if c.Perks[i].ID == id {
			return &c.Perks[i]
		}
	}
	return nil
}

// HasAchievement 是否已解锁成就
func (c *Character) HasAchievement(id string) bool {
	for _, a := range c.Achievements {
		if a.ID == id {
			return true
		}
	}
	return false
}

// ConsumableCount 消耗品总数
func (c *Character) ConsumableCount() int {
	n := 0
	for _, v := range c.Consumables {
		n += v
	}
	return n
}

// Clone 深拷贝
func (c *Character) Clone() *Character {
	if c == nil {
		return nil
	}
	out := *c
	out.DisciplineXP = make(map[Discipline]int64, len(c.DisciplineXP))
	for k, v := range c.DisciplineXP {
		out.DisciplineXP[k] = v
	}
	out.Consumables = make(map[string]int, len(c.Consumables))
	for k, v := range c.Consumables {
		out.Consumables[k] = v
	}
	out.FallenSince = cloneTime(c.FallenSince)
	out.Perks = append([]Perk(nil), c.Perks...)
	out.Achievements = append([]Achievement(nil), c.Achievements...)
	return &out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
