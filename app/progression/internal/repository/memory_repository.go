package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/arise/app/progression/internal/engine"
	"github.com/lk2023060901/arise/app/progression/internal/model"
)

type memoryPlayer struct {
	state *model.PlayerState
	runs  map[string]*model.DungeonRun
}

// MemoryRepository 进程内实现，用于测试和无数据库部署
type MemoryRepository struct {
	mu      sync.RWMutex
	players map[int64]*memoryPlayer
}

// NewMemoryRepository 创建内存仓储
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		players: make(map[int64]*memoryPlayer),
	}
}

var _ PlayerRepository = (*MemoryRepository)(nil)

func (r *MemoryRepository) Create(_ context.Context, s *model.PlayerState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.players[s.PlayerID]; ok {
		return errors.Wrapf(engine.ErrAlreadyExists, "player %d", s.PlayerID)
	}
	s.Version = 1
	r.players[s.PlayerID] = &memoryPlayer{
		state: s.Clone(),
		runs:  make(map[string]*model.DungeonRun),
	}
	return nil
}

func (r *MemoryRepository) Load(_ context.Context, playerID int64) (*model.PlayerState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.players[playerID]
	if !ok {
		return nil, errors.Wrapf(engine.ErrNotFound, "player %d", playerID)
	}
	return p.state.Clone(), nil
}

func (r *MemoryRepository) Save(_ context.Context, m *Mutation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := m.State
	p, ok := r.players[s.PlayerID]
	if !ok {
		return errors.Wrapf(engine.ErrNotFound, "player %d", s.PlayerID)
	}
	if p.state.Version != s.Version {
		return errors.Wrapf(ErrConcurrentUpdate, "player %d at version %d, stored %d",
			s.PlayerID, s.Version, p.state.Version)
	}

	s.Version++
	p.state = s.Clone()
	for _, run := range m.Runs {
		p.runs[run.ID] = run.Clone()
	}
	if s.ActiveRun != nil {
		p.runs[s.ActiveRun.ID] = s.ActiveRun.Clone()
	}
	return nil
}

func (r *MemoryRepository) GetRun(_ context.Context, playerID int64, runID string) (*model.DungeonRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.players[playerID]
	if !ok {
		return nil, errors.Wrapf(engine.ErrNotFound, "player %d", playerID)
	}
	run, ok := p.runs[runID]
	if !ok {
		return nil, errors.Wrapf(engine.ErrNotFound, "dungeon %s", runID)
	}
	return run.Clone(), nil
}

func (r *MemoryRepository) ListRuns(_ context.Context, playerID int64, limit, offset int) ([]*model.DungeonRun, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	runs := r.sortedRuns(playerID)
	total := int64(len(runs))
	if offset >= len(runs) {
		return []*model.DungeonRun{}, total, nil
	}
	end := len(runs)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	out := make([]*model.DungeonRun, 0, end-offset)
	for _, run := range runs[offset:end] {
		out = append(out, run.Clone())
	}
	return out, total, nil
}

func (r *MemoryRepository) DungeonStatistics(_ context.Context, playerID int64) (*model.DungeonStatistics, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return buildStatistics(aggregateRuns(r.sortedRuns(playerID))), nil
}

// sortedRuns 按开始时间倒序，调用方持有读锁
func (r *MemoryRepository) sortedRuns(playerID int64) []*model.DungeonRun {
	p, ok := r.players[playerID]
	if !ok {
		return nil
	}
	runs := make([]*model.DungeonRun, 0, len(p.runs))
	for _, run := range p.runs {
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].StartedAt.Equal(runs[j].StartedAt) {
			return runs[i].ID > runs[j].ID
		}
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	return runs
}
