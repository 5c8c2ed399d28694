package repository

import (
	"context"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/arise/app/progression/internal/dao"
	"github.com/lk2023060901/arise/app/progression/internal/model"
)

// ErrConcurrentUpdate 保存时版本号不匹配
var ErrConcurrentUpdate = errors.New("concurrent update of player state")

// Mutation 一次操作需要落库的全部内容
type Mutation struct {
	// State 修改后的聚合，Version 仍为加载时的版本
	State *model.PlayerState
	// Runs 本次进入终态的副本，进行中的副本随 State.ActiveRun 一起保存
	Runs []*model.DungeonRun
}

// PlayerRepository 玩家聚合仓储
type PlayerRepository interface {
	// Create 写入新玩家，已存在返回 engine.ErrAlreadyExists
	Create(ctx context.Context, s *model.PlayerState) error
	// Load 加载完整聚合，不存在返回 engine.ErrNotFound
	Load(ctx context.Context, playerID int64) (*model.PlayerState, error)
	// Save 原子保存，成功后 State.Version 加一
	Save(ctx context.Context, m *Mutation) error

	GetRun(ctx context.Context, playerID int64, runID string) (*model.DungeonRun, error)
	ListRuns(ctx context.Context, playerID int64, limit, offset int) ([]*model.DungeonRun, int64, error)
	DungeonStatistics(ctx context.Context, playerID int64) (*model.DungeonStatistics, error)
}

// StateCache 聚合快照缓存，可为空
type StateCache interface {
	GetState(ctx context.Context, playerID int64) (*model.PlayerState, error)
	SetState(ctx context.Context, s *model.PlayerState) error
	DeleteState(ctx context.Context, playerID int64) error
}

// buildStatistics 把按类型的聚合行汇总为统计结果
func buildStatistics(rows []*dao.ArchetypeAggRow) *model.DungeonStatistics {
	out := &model.DungeonStatistics{
		ByArchetype: make(map[model.Archetype]model.ArchetypeStat, len(rows)),
	}
	var scored, scoreSum int64
	for _, r := range rows {
		out.Total += int(r.Total)
		out.Completed += int(r.Completed)
		out.Failed += int(r.Failed)
		out.Abandoned += int(r.Abandoned)
		scored += r.Scored
		scoreSum += r.ScoreSum
		out.ByArchetype[model.Archetype(r.Archetype)] = model.ArchetypeStat{
			Total:     int(r.Total),
			Completed: int(r.Completed),
			BestScore: int(r.BestScore),
		}
	}
	if scored > 0 {
		out.AverageScore = float64(scoreSum) / float64(scored)
	}
	return out
}

// aggregateRuns 内存版聚合，口径与 DungeonDAO.Aggregate 一致
func aggregateRuns(runs []*model.DungeonRun) []*dao.ArchetypeAggRow {
	byArch := make(map[model.Archetype]*dao.ArchetypeAggRow)
	for _, run := range runs {
		if !run.Status.Terminal() {
			continue
		}
		r, ok := byArch[run.Archetype]
		if !ok {
			r = &dao.ArchetypeAggRow{Archetype: string(run.Archetype)}
			byArch[run.Archetype] = r
		}
		r.Total++
		switch run.Status {
		case model.RunCompleted:
			r.Completed++
		case model.RunFailed:
			r.Failed++
		case model.RunAbandoned:
			r.Abandoned++
		}
		if run.Score != nil {
			r.Scored++
			r.ScoreSum += int64(*run.Score)
			if int64(*run.Score) > r.BestScore {
				r.BestScore = int64(*run.Score)
			}
		}
	}

	rows := make([]*dao.ArchetypeAggRow, 0, len(byArch))
	for _, r := range byArch {
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Archetype < rows[j].Archetype })
	return rows
}
