package repository

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/arise/app/progression/internal/dao"
	"github.com/lk2023060901/arise/app/progression/internal/engine"
	"github.com/lk2023060901/arise/app/progression/internal/model"
	"github.com/lk2023060901/arise/pkg/database/postgres"
	"github.com/lk2023060901/arise/pkg/logger"
)

// postgresRepository PostgreSQL 实现，可选 Redis 快照缓存
type postgresRepository struct {
	db               *postgres.Client
	playerDAO        *dao.PlayerDAO
	gauntletDAO      *dao.GauntletDAO
	dungeonDAO       *dao.DungeonDAO
	constellationDAO *dao.ConstellationDAO
	purificationDAO  *dao.PurificationDAO
	cache            StateCache
	logger           logger.Logger
}

// NewPostgresRepository 创建仓储，cache 为 nil 时不走缓存
func NewPostgresRepository(
	db *postgres.Client,
	playerDAO *dao.PlayerDAO,
	gauntletDAO *dao.GauntletDAO,
	dungeonDAO *dao.DungeonDAO,
	constellationDAO *dao.ConstellationDAO,
	purificationDAO *dao.PurificationDAO,
	cache StateCache,
	l logger.Logger,
) PlayerRepository {
	return &postgresRepository{
		db:               db,
		playerDAO:        playerDAO,
		gauntletDAO:      gauntletDAO,
		dungeonDAO:       dungeonDAO,
		constellationDAO: constellationDAO,
		purificationDAO:  purificationDAO,
		cache:            cache,
		logger:           l.Named("repository.player"),
	}
}

func (r *postgresRepository) Create(ctx context.Context, s *model.PlayerState) error {
	s.Version = 1
	row, err := r.playerDAO.ToRow(s)
	if err != nil {
		return err
	}

	err = r.db.WithTx(ctx, func(tx postgres.Querier) error {
		created, err := r.playerDAO.Insert(ctx, tx, row)
		if err != nil {
			return err
		}
		if !created {
			return errors.Wrapf(engine.ErrAlreadyExists, "player %d", s.PlayerID)
		}
		for _, d := range model.AllDisciplines {
			if err := r.gauntletDAO.Upsert(ctx, tx, s.Gauntlet(d)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.Version = 0
		return err
	}

	r.logger.Info("player created", "player_id", s.PlayerID)
	r.refreshCache(ctx, s)
	return nil
}

func (r *postgresRepository) Load(ctx context.Context, playerID int64) (*model.PlayerState, error) {
	// 1. 缓存
	if r.cache != nil {
		s, err := r.cache.GetState(ctx, playerID)
		if err != nil {
			r.logger.Warn("failed to get player state from cache, fallback to db",
				"player_id", playerID,
				"error", err,
			)
		} else if s != nil {
			return s, nil
		}
	}

	// 2. 数据库
	s, err := r.loadFromDB(ctx, playerID)
	if err != nil {
		return nil, err
	}

	// 3. 回写缓存
	r.refreshCache(ctx, s)
	return s, nil
}

func (r *postgresRepository) loadFromDB(ctx context.Context, playerID int64) (*model.PlayerState, error) {
	q := r.db.DB()

	row, err := r.playerDAO.Get(ctx, q, playerID)
	if err != nil {
		if err == postgres.ErrNoRows {
			return nil, errors.Wrapf(engine.ErrNotFound, "player %d", playerID)
		}
		return nil, fmt.Errorf("failed to load player: %w", err)
	}

	s := &model.PlayerState{}
	if err := r.playerDAO.Apply(row, s); err != nil {
		return nil, err
	}

	if s.Gauntlets, err = r.gauntletDAO.ListByPlayer(ctx, q, playerID); err != nil {
		return nil, fmt.Errorf("failed to load gauntlets: %w", err)
	}
	for _, d := range model.AllDisciplines {
		s.Gauntlet(d)
	}
	if s.ActiveRun, err = r.dungeonDAO.GetActive(ctx, q, playerID); err != nil {
		return nil, fmt.Errorf("failed to load active run: %w", err)
	}
	if s.Assignments, err = r.constellationDAO.ListByPlayer(ctx, q, playerID); err != nil {
		return nil, fmt.Errorf("failed to load assignments: %w", err)
	}
	if s.Purification, err = r.purificationDAO.Get(ctx, q, playerID); err != nil {
		return nil, fmt.Errorf("failed to load purification: %w", err)
	}

	r.logger.Debug("player loaded from db",
		"player_id", playerID,
		"version", s.Version,
	)
	return s, nil
}

func (r *postgresRepository) Save(ctx context.Context, m *Mutation) error {
	s := m.State
	expected := s.Version

	s.Version = expected + 1
	row, err := r.playerDAO.ToRow(s)
	if err != nil {
		s.Version = expected
		return err
	}

	err = r.db.WithTx(ctx, func(tx postgres.Querier) error {
		updated, err := r.playerDAO.UpdateVersioned(ctx, tx, row, expected)
		if err != nil {
			return err
		}
		if !updated {
			return errors.Wrapf(ErrConcurrentUpdate, "player %d at version %d", s.PlayerID, expected)
		}

		for _, d := range model.AllDisciplines {
			if err := r.gauntletDAO.Upsert(ctx, tx, s.Gauntlet(d)); err != nil {
				return err
			}
		}

		for _, run := range m.Runs {
			if err := r.dungeonDAO.Upsert(ctx, tx, run); err != nil {
				return err
			}
		}
		if s.ActiveRun != nil {
			if err := r.dungeonDAO.Upsert(ctx, tx, s.ActiveRun); err != nil {
				return err
			}
		}

		if err := r.constellationDAO.SupersedeAll(ctx, tx, s.PlayerID); err != nil {
			return err
		}
		for _, a := range s.Assignments {
			if err := r.constellationDAO.Upsert(ctx, tx, a); err != nil {
				return err
			}
		}

		return r.purificationDAO.Save(ctx, tx, s.PlayerID, s.Purification)
	})
	if err != nil {
		s.Version = expected
		if errors.Is(err, ErrConcurrentUpdate) {
			r.evictCache(ctx, s.PlayerID)
		}
		return err
	}

	r.refreshCache(ctx, s)
	return nil
}

func (r *postgresRepository) GetRun(ctx context.Context, playerID int64, runID string) (*model.DungeonRun, error) {
	run, err := r.dungeonDAO.Get(ctx, r.db.DB(), playerID, runID)
	if err != nil {
		if err == postgres.ErrNoRows {
			return nil, errors.Wrapf(engine.ErrNotFound, "dungeon %s", runID)
		}
		return nil, fmt.Errorf("failed to get dungeon run: %w", err)
	}
	return run, nil
}

func (r *postgresRepository) ListRuns(ctx context.Context, playerID int64, limit, offset int) ([]*model.DungeonRun, int64, error) {
	q := r.db.DB()
	total, err := r.dungeonDAO.Count(ctx, q, playerID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count dungeon runs: %w", err)
	}
	runs, err := r.dungeonDAO.List(ctx, q, playerID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list dungeon runs: %w", err)
	}
	return runs, total, nil
}

func (r *postgresRepository) DungeonStatistics(ctx context.Context, playerID int64) (*model.DungeonStatistics, error) {
	rows, err := r.dungeonDAO.Aggregate(ctx, r.db.DB(), playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate dungeon runs: %w", err)
	}
	return buildStatistics(rows), nil
}

func (r *postgresRepository) refreshCache(ctx context.Context, s *model.PlayerState) {
	if r.cache == nil {
		return
	}
	if err := r.cache.SetState(ctx, s); err != nil {
		r.logger.Warn("failed to set player state cache",
			"player_id", s.PlayerID,
			"error", err,
		)
		r.evictCache(ctx, s.PlayerID)
	}
}

func (r *postgresRepository) evictCache(ctx context.Context, playerID int64) {
	if r.cache == nil {
		return
	}
	if err := r.cache.DeleteState(ctx, playerID); err != nil {
		r.logger.Warn("failed to delete player state cache",
			"player_id", playerID,
			"error", err,
		)
	}
}
