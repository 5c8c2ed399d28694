package engine

import (
	"github.com/lk2023060901/arise/app/progression/internal/model"
)

// Derived 由经验和关卡推导出的展示属性
type Derived struct {
	Stats model.Stats
	Level int
	Rank  model.Rank
}

func currentStage(gauntlets map[model.Discipline]*model.GauntletProgress, d model.Discipline) int {
	if g, ok := gauntlets[d]; ok && g.CurrentStage > 0 {
		return g.CurrentStage
	}
	return 1
}

// DeriveStats 纯函数，智力原样带出
func (r *Rules) DeriveStats(c *model.Character, gauntlets map[model.Discipline]*model.GauntletProgress) Derived {
	xp := c.DisciplineXP
	pushXP, pullXP := nonNeg(xp[model.DisciplinePush]), nonNeg(xp[model.DisciplinePull])
	coreXP := nonNeg(xp[model.DisciplineCore])

	pull := currentStage(gauntlets, model.DisciplinePull)
	legs := currentStage(gauntlets, model.DisciplineLegs)

	sum := 0
	for _, d := range model.AllDisciplines {
		sum += currentStage(gauntlets, d)
	}
	level := sum / len(model.AllDisciplines)

	intelligence := c.Stats.Intelligence
	if intelligence < 1 {
		intelligence = 1
	}

	return Derived{
		Stats: model.Stats{
			Strength:     1 + int((pushXP+pullXP)/250),
			Agility:      1 + (legs+pull)/5,
			Vitality:     1 + int(nonNeg(c.TotalXP)/500),
			Sensory:      1 + int(coreXP/150),
			Intelligence: intelligence,
		},
		Level: level,
		Rank:  r.tables.RankFor(level),
	}
}

// ApplyDerivation 写回角色，返回段位是否变化
func (r *Rules) ApplyDerivation(c *model.Character, gauntlets map[model.Discipline]*model.GauntletProgress) bool {
	d := r.DeriveStats(c, gauntlets)
	changed := d.Rank != c.Rank
	c.Stats = d.Stats
	c.Level = d.Level
	c.Rank = d.Rank
	return changed
}

func nonNeg(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
