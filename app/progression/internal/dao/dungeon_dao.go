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

type countRow struct {
	Total int64 `db:"total"`
}

// ArchetypeAggRow 按类型聚合
type ArchetypeAggRow struct {
	Archetype string `db:"archetype"`
	Total     int64  `db:"total"`
	Completed int64  `db:"completed"`
	Failed    int64  `db:"failed"`
	Abandoned int64  `db:"abandoned"`
	Scored    int64  `db:"scored"`
	ScoreSum  int64  `db:"score_sum"`
	BestScore int64  `db:"best_score"`
}

// DungeonDAO 地下城记录
type DungeonDAO struct {
	logger  logger.Logger
	metrics *metrics.ProgressionMetrics
}

// NewDungeonDAO 创建地下城 DAO
func NewDungeonDAO(l logger.Logger, m *metrics.ProgressionMetrics) *DungeonDAO {
	return &DungeonDAO{
		logger:  l.Named("dao.dungeon"),
		metrics: m,
	}
}

// Upsert 写入或覆盖一次挑战
func (d *DungeonDAO) Upsert(ctx context.Context, q postgres.Querier, run *model.DungeonRun) (err error) {
	t := startQuery(d.metrics, "upsert")
	defer func() { t.done(err) }()

	data, err := marshalJSON(run)
	if err != nil {
		return err
	}

	query, args, err := postgres.QueryBuilder.
		Insert(tableDungeonRuns).
		Columns("id", "player_id", "archetype", "status", "score", "data", "started_at", "resolved_at").
		Values(run.ID, run.PlayerID, string(run.Archetype), string(run.Status), run.Score, data, run.StartedAt, run.ResolvedAt).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			score = EXCLUDED.score,
			data = EXCLUDED.data,
			resolved_at = EXCLUDED.resolved_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build upsert: %w", err)
	}

	if _, err = postgres.Exec(ctx, q, query, args...); err != nil {
		d.logger.Error("failed to upsert dungeon run",
			"player_id", run.PlayerID,
			"run_id", run.ID,
			"error", err,
		)
		return err
	}
	return nil
}

// GetActive 进行中的挑战，没有时返回 nil
func (d *DungeonDAO) GetActive(ctx context.Context, q postgres.Querier, playerID int64) (*model.DungeonRun, error) {
	runs, err := d.list(ctx, q, squirrel.Eq{"player_id": playerID, "status": string(model.RunInProgress)}, 1, 0)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return runs[0], nil
}

// Get 按 ID 查询，不存在返回 postgres.ErrNoRows
func (d *DungeonDAO) Get(ctx context.Context, q postgres.Querier, playerID int64, runID string) (*model.DungeonRun, error) {
	runs, err := d.list(ctx, q, squirrel.Eq{"player_id": playerID, "id": runID}, 1, 0)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, postgres.ErrNoRows
	}
	return runs[0], nil
}

// List 按开始时间倒序分页
func (d *DungeonDAO) List(ctx context.Context, q postgres.Querier, playerID int64, limit, offset int) ([]*model.DungeonRun, error) {
	return d.list(ctx, q, squirrel.Eq{"player_id": playerID}, limit, offset)
}

func (d *DungeonDAO) list(ctx context.Context, q postgres.Querier, where squirrel.Eq, limit, offset int) (out []*model.DungeonRun, err error) {
	t := startQuery(d.metrics, "select")
	defer func() { t.done(err) }()

	query, args, err := postgres.QueryBuilder.
		Select("data").
		From(tableDungeonRuns).
		Where(where).
		OrderBy("started_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := postgres.QueryAll[jsonRow](ctx, q, query, args...)
	if err != nil {
		d.logger.Error("failed to list dungeon runs", "error", err)
		return nil, err
	}

	out = make([]*model.DungeonRun, 0, len(rows))
	for _, r := range rows {
		run := &model.DungeonRun{}
		if err := unmarshalJSON(r.Data, run); err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, nil
}

// Count 玩家挑战总数
func (d *DungeonDAO) Count(ctx context.Context, q postgres.Querier, playerID int64) (n int64, err error) {
	t := startQuery(d.metrics, "count")
	defer func() { t.done(err) }()

	query, args, err := postgres.QueryBuilder.
		Select("COUNT(*) AS total").
		From(tableDungeonRuns).
		Where(squirrel.Eq{"player_id": playerID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build query: %w", err)
	}

	row, err := postgres.QueryOne[countRow](ctx, q, query, args...)
	if err != nil {
		return 0, err
	}
	return row.Total, nil
}

// Aggregate 按类型汇总
func (d *DungeonDAO) Aggregate(ctx context.Context, q postgres.Querier, playerID int64) (rows []*ArchetypeAggRow, err error) {
	t := startQuery(d.metrics, "aggregate")
	defer func() { t.done(err) }()

	query, args, err := postgres.QueryBuilder.
		Select(
			"archetype",
			"COUNT(*) AS total",
			"COUNT(*) FILTER (WHERE status = 'completed') AS completed",
			"COUNT(*) FILTER (WHERE status = 'failed') AS failed",
			"COUNT(*) FILTER (WHERE status = 'abandoned') AS abandoned",
			"COUNT(score) AS scored",
			"COALESCE(SUM(score), 0)::BIGINT AS score_sum",
			"COALESCE(MAX(score), 0)::BIGINT AS best_score",
		).
		From(tableDungeonRuns).
		Where(squirrel.Eq{"player_id": playerID}).
		Where(squirrel.NotEq{"status": string(model.RunInProgress)}).
		GroupBy("archetype").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err = postgres.QueryAll[ArchetypeAggRow](ctx, q, query, args...)
	if err != nil {
		d.logger.Error("failed to aggregate dungeon runs",
			"player_id", playerID,
			"error", err,
		)
		return nil, err
	}
	return rows, nil
}
