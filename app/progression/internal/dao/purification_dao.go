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

// PurificationDAO 净化进度
type PurificationDAO struct {
	logger  logger.Logger
	metrics *metrics.ProgressionMetrics
}

// NewPurificationDAO 创建净化 DAO
func NewPurificationDAO(l logger.Logger, m *metrics.ProgressionMetrics) *PurificationDAO {
	return &PurificationDAO{
		logger:  l.Named("dao.purification"),
		metrics: m,
	}
}

// Get 没有进行中的净化时返回 nil
func (d *PurificationDAO) Get(ctx context.Context, q postgres.Querier, playerID int64) (p *model.PurificationProgress, err error) {
	t := startQuery(d.metrics, "select")
	defer func() { t.done(err) }()

	query, args, err := postgres.QueryBuilder.
		Select("data").
		From(tablePurifications).
		Where(squirrel.Eq{"player_id": playerID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	row, err := postgres.QueryOne[jsonRow](ctx, q, query, args...)
	if err != nil {
		if err == postgres.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	p = &model.PurificationProgress{}
	if err := unmarshalJSON(row.Data, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Save p 为 nil 时删除记录
func (d *PurificationDAO) Save(ctx context.Context, q postgres.Querier, playerID int64, p *model.PurificationProgress) (err error) {
	if p == nil {
		return d.delete(ctx, q, playerID)
	}

	t := startQuery(d.metrics, "upsert")
	defer func() { t.done(err) }()

	data, err := marshalJSON(p)
	if err != nil {
		return err
	}
	query, args, err := postgres.QueryBuilder.
		Insert(tablePurifications).
		Columns("player_id", "data", "started_at").
		Values(playerID, data, p.StartedAt).
		Suffix("ON CONFLICT (player_id) DO UPDATE SET data = EXCLUDED.data, started_at = EXCLUDED.started_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build upsert: %w", err)
	}
	_, err = postgres.Exec(ctx, q, query, args...)
	return err
}

func (d *PurificationDAO) delete(ctx context.Context, q postgres.Querier, playerID int64) (err error) {
	t := startQuery(d.metrics, "delete")
	defer func() { t.done(err) }()

	query, args, err := postgres.QueryBuilder.
		Delete(tablePurifications).
		Where(squirrel.Eq{"player_id": playerID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete: %w", err)
	}
	_, err = postgres.Exec(ctx, q, query, args...)
	return err
}
