package dao

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/lk2023060901/arise/app/progression/internal/metrics"
	"github.com/lk2023060901/arise/app/progression/internal/model"
	"github.com/lk2023060901/arise/pkg/database/postgres"
	"github.com/lk2023060901/arise/pkg/logger"
)

// GauntletRow gauntlet_progress 表
type GauntletRow struct {
	PlayerID        int64   `db:"player_id"`
	Discipline      string  `db:"discipline"`
	CurrentStage    int32   `db:"current_stage"`
	StagesCompleted []int32 `db:"stages_completed"`
	TotalXP         int64   `db:"total_xp"`
	BossBonuses     []byte  `db:"boss_bonuses"`
}

// GauntletDAO 关卡进度
type GauntletDAO struct {
	logger  logger.Logger
	metrics *metrics.ProgressionMetrics
}

// NewGauntletDAO 创建关卡 DAO
func NewGauntletDAO(l logger.Logger, m *metrics.ProgressionMetrics) *GauntletDAO {
	return &GauntletDAO{
		logger:  l.Named("dao.gauntlet"),
		metrics: m,
	}
}

// ListByPlayer 查询玩家全部项目进度
func (d *GauntletDAO) ListByPlayer(ctx context.Context, q postgres.Querier, playerID int64) (out map[model.Discipline]*model.GauntletProgress, err error) {
	t := startQuery(d.metrics, "select")
	defer func() { t.done(err) }()

	query, args, err := postgres.QueryBuilder.
		Select("player_id", "discipline", "current_stage", "stages_completed", "total_xp", "boss_bonuses").
		From(tableGauntlets).
		Where(squirrel.Eq{"player_id": playerID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := postgres.QueryAll[GauntletRow](ctx, q, query, args...)
	if err != nil {
		d.logger.Error("failed to list gauntlets",
			"player_id", playerID,
			"error", err,
		)
		return nil, err
	}

	out = make(map[model.Discipline]*model.GauntletProgress, len(rows))
	for _, r := range rows {
		g := &model.GauntletProgress{
			PlayerID:     r.PlayerID,
			Discipline:   model.Discipline(r.Discipline),
			CurrentStage: int(r.CurrentStage),
			TotalXP:      r.TotalXP,
		}
		for _, s := range r.StagesCompleted {
			g.StagesCompleted = append(g.StagesCompleted, int(s))
		}
		if err := unmarshalJSON(r.BossBonuses, &g.BossBonuses); err != nil {
			return nil, fmt.Errorf("boss bonuses of %s: %w", r.Discipline, err)
		}
		out[g.Discipline] = g
	}
	return out, nil
}

// Upsert 写入单个项目进度
func (d *GauntletDAO) Upsert(ctx context.Context, q postgres.Querier, g *model.GauntletProgress) (err error) {
	t := startQuery(d.metrics, "upsert")
	defer func() { t.done(err) }()

	stages := make([]int32, 0, len(g.StagesCompleted))
	for _, s := range g.StagesCompleted {
		stages = append(stages, int32(s))
	}
	bonuses := g.BossBonuses
	if bonuses == nil {
		bonuses = []model.BossBonus{}
	}
	bb, err := marshalJSON(bonuses)
	if err != nil {
		return err
	}

	query, args, err := postgres.QueryBuilder.
		Insert(tableGauntlets).
		Columns("player_id", "discipline", "current_stage", "stages_completed", "total_xp", "boss_bonuses").
		Values(g.PlayerID, string(g.Discipline), int32(g.CurrentStage), stages, g.TotalXP, bb).
		Suffix(`ON CONFLICT (player_id, discipline) DO UPDATE SET
			current_stage = EXCLUDED.current_stage,
			stages_completed = EXCLUDED.stages_completed,
			total_xp = EXCLUDED.total_xp,
			boss_bonuses = EXCLUDED.boss_bonuses`).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build upsert: %w", err)
	}

	if _, err = postgres.Exec(ctx, q, query, args...); err != nil {
		d.logger.Error("failed to upsert gauntlet",
			"player_id", g.PlayerID,
			"discipline", g.Discipline,
			"error", err,
		)
		return err
	}
	return nil
}
