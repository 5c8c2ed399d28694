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

// ConstellationDAO 赞助关系
type ConstellationDAO struct {
	logger  logger.Logger
	metrics *metrics.ProgressionMetrics
}

// NewConstellationDAO 创建赞助 DAO
func NewConstellationDAO(l logger.Logger, m *metrics.ProgressionMetrics) *ConstellationDAO {
	return &ConstellationDAO{
		logger:  l.Named("dao.constellation"),
		metrics: m,
	}
}

// ListByPlayer 按创建时间升序
func (d *ConstellationDAO) ListByPlayer(ctx context.Context, q postgres.Querier, playerID int64) (out []*model.ConstellationAssignment, err error) {
	t := startQuery(d.metrics, "select")
	defer func() { t.done(err) }()

	query, args, err := postgres.QueryBuilder.
		Select("data").
		From(tableAssignments).
		Where(squirrel.Eq{"player_id": playerID}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := postgres.QueryAll[jsonRow](ctx, q, query, args...)
	if err != nil {
		d.logger.Error("failed to list assignments",
			"player_id", playerID,
			"error", err,
		)
		return nil, err
	}
	for _, r := range rows {
		a := &model.ConstellationAssignment{}
		if err := unmarshalJSON(r.Data, a); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// SupersedeAll 先把玩家全部赞助置为 superseded，再逐条 Upsert，避免触发唯一索引
func (d *ConstellationDAO) SupersedeAll(ctx context.Context, q postgres.Querier, playerID int64) (err error) {
	t := startQuery(d.metrics, "update")
	defer func() { t.done(err) }()

	query, args, err := postgres.QueryBuilder.
		Update(tableAssignments).
		Set("status", string(model.AssignmentSuperseded)).
		Where(squirrel.Eq{"player_id": playerID, "status": string(model.AssignmentActive)}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update: %w", err)
	}
	_, err = postgres.Exec(ctx, q, query, args...)
	return err
}

// Upsert 写入单条赞助
func (d *ConstellationDAO) Upsert(ctx context.Context, q postgres.Querier, a *model.ConstellationAssignment) (err error) {
	t := startQuery(d.metrics, "upsert")
	defer func() { t.done(err) }()

	data, err := marshalJSON(a)
	if err != nil {
		return err
	}

	query, args, err := postgres.QueryBuilder.
		Insert(tableAssignments).
		Columns("id", "player_id", "status", "corrupted", "data", "created_at").
		Values(a.ID, a.PlayerID, string(a.Status), a.Corrupted, data, a.CreatedAt).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			corrupted = EXCLUDED.corrupted,
			data = EXCLUDED.data`).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build upsert: %w", err)
	}

	if _, err = postgres.Exec(ctx, q, query, args...); err != nil {
		d.logger.Error("failed to upsert assignment",
			"player_id", a.PlayerID,
			"assignment_id", a.ID,
			"error", err,
		)
		return err
	}
	return nil
}
