package dao

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/lk2023060901/arise/app/progression/internal/metrics"
	"github.com/lk2023060901/arise/app/progression/internal/model"
	"github.com/lk2023060901/arise/pkg/database/postgres"
	"github.com/lk2023060901/arise/pkg/logger"
)

// PlayerRow players 表
type PlayerRow struct {
	PlayerID   int64     `db:"player_id"`
	Version    int64     `db:"version"`
	Character  []byte    `db:"character"`
	Statistics []byte    `db:"statistics"`
	Promotion  []byte    `db:"promotion"`
	Milestones []byte    `db:"milestones"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// PlayerDAO 玩家主表
type PlayerDAO struct {
	logger  logger.Logger
	metrics *metrics.ProgressionMetrics
}

// NewPlayerDAO 创建玩家 DAO
func NewPlayerDAO(l logger.Logger, m *metrics.ProgressionMetrics) *PlayerDAO {
	return &PlayerDAO{
		logger:  l.Named("dao.player"),
		metrics: m,
	}
}

// ToRow 从聚合提取主表字段
func (d *PlayerDAO) ToRow(s *model.PlayerState) (*PlayerRow, error) {
	character, err := marshalJSON(s.Character)
	if err != nil {
		return nil, err
	}
	stats, err := marshalJSON(s.Statistics)
	if err != nil {
		return nil, err
	}
	promotion, err := marshalJSON(s.Promotion)
	if err != nil {
		return nil, err
	}
	milestones := s.Milestones
	if milestones == nil {
		milestones = []model.Milestone{}
	}
	ms, err := marshalJSON(milestones)
	if err != nil {
		return nil, err
	}
	return &PlayerRow{
		PlayerID:   s.PlayerID,
		Version:    s.Version,
		Character:  character,
		Statistics: stats,
		Promotion:  promotion,
		Milestones: ms,
		CreatedAt:  s.Character.CreatedAt,
		UpdatedAt:  s.Character.UpdatedAt,
	}, nil
}

// Apply 把主表字段写回聚合
func (d *PlayerDAO) Apply(row *PlayerRow, s *model.PlayerState) error {
	s.PlayerID = row.PlayerID
	s.Version = row.Version
	s.Character = &model.Character{}
	if err := unmarshalJSON(row.Character, s.Character); err != nil {
		return fmt.Errorf("character of player %d: %w", row.PlayerID, err)
	}
	if s.Character.DisciplineXP == nil {
		s.Character.DisciplineXP = make(map[model.Discipline]int64)
	}
	if s.Character.Consumables == nil {
		s.Character.Consumables = make(map[string]int)
	}
	if err := unmarshalJSON(row.Statistics, &s.Statistics); err != nil {
		return fmt.Errorf("statistics of player %d: %w", row.PlayerID, err)
	}
	if err := unmarshalJSON(row.Promotion, &s.Promotion); err != nil {
		return fmt.Errorf("promotion of player %d: %w", row.PlayerID, err)
	}
	if err := unmarshalJSON(row.Milestones, &s.Milestones); err != nil {
		return fmt.Errorf("milestones of player %d: %w", row.PlayerID, err)
	}
	return nil
}

// Get 按 ID 查询，不存在返回 postgres.ErrNoRows
func (d *PlayerDAO) Get(ctx context.Context, q postgres.Querier, playerID int64) (row *PlayerRow, err error) {
	t := startQuery(d.metrics, "select")
	defer func() { t.done(err) }()

	query, args, err := postgres.QueryBuilder.
		Select("player_id", "version", "character", "statistics", "promotion", "milestones", "created_at", "updated_at").
		From(tablePlayers).
		Where(squirrel.Eq{"player_id": playerID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	row, err = postgres.QueryOne[PlayerRow](ctx, q, query, args...)
	if err != nil {
		if err != postgres.ErrNoRows {
			d.logger.Error("failed to get player",
				"player_id", playerID,
				"error", err,
			)
		}
		return nil, err
	}
	return row, nil
}

// Insert 新建玩家，主键冲突时返回 false
func (d *PlayerDAO) Insert(ctx context.Context, q postgres.Querier, row *PlayerRow) (created bool, err error) {
	t := startQuery(d.metrics, "insert")
	defer func() { t.done(err) }()

	query, args, err := postgres.QueryBuilder.
		Insert(tablePlayers).
		Columns("player_id", "version", "character", "statistics", "promotion", "milestones", "created_at", "updated_at").
		Values(row.PlayerID, row.Version, row.Character, row.Statistics, row.Promotion, row.Milestones, row.CreatedAt, row.UpdatedAt).
		Suffix("ON CONFLICT (player_id) DO NOTHING").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build insert: %w", err)
	}

	n, err := postgres.Exec(ctx, q, query, args...)
	if err != nil {
		d.logger.Error("failed to insert player",
			"player_id", row.PlayerID,
			"error", err,
		)
		return false, err
	}
	return n == 1, nil
}

// UpdateVersioned 仅当库中版本等于 expected 时更新，返回是否命中
func (d *PlayerDAO) UpdateVersioned(ctx context.Context, q postgres.Querier, row *PlayerRow, expected int64) (updated bool, err error) {
	t := startQuery(d.metrics, "update")
	defer func() { t.done(err) }()

	query, args, err := postgres.QueryBuilder.
		Update(tablePlayers).
		SetMap(map[string]any{
			"version":    row.Version,
			"character":  row.Character,
			"statistics": row.Statistics,
			"promotion":  row.Promotion,
			"milestones": row.Milestones,
			"updated_at": row.UpdatedAt,
		}).
		Where(squirrel.Eq{"player_id": row.PlayerID, "version": expected}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build update: %w", err)
	}

	n, err := postgres.Exec(ctx, q, query, args...)
	if err != nil {
		d.logger.Error("failed to update player",
			"player_id", row.PlayerID,
			"error", err,
		)
		return false, err
	}
	return n == 1, nil
}
