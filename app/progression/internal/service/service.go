package service

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/arise/app/progression/internal/engine"
	"github.com/lk2023060901/arise/app/progression/internal/event"
	"github.com/lk2023060901/arise/app/progression/internal/manager"
	"github.com/lk2023060901/arise/app/progression/internal/metrics"
	"github.com/lk2023060901/arise/app/progression/internal/model"
	"github.com/lk2023060901/arise/app/progression/internal/repository"
	"github.com/lk2023060901/arise/pkg/logger"
)

// ProgressionService 成长系统对外的唯一入口
// 每个修改操作：加锁、加载副本、执行规则、整体保存、发布事件
type ProgressionService struct {
	rules     *engine.Rules
	players   *manager.PlayerManager
	locks     *manager.LockManager
	publisher event.Publisher
	clock     engine.Clock
	rng       engine.Rand
	metrics   *metrics.ProgressionMetrics
	logger    logger.Logger
}

// NewProgressionService 创建成长服务
func NewProgressionService(
	rules *engine.Rules,
	players *manager.PlayerManager,
	locks *manager.LockManager,
	publisher event.Publisher,
	clock engine.Clock,
	rng engine.Rand,
	m *metrics.ProgressionMetrics,
	l logger.Logger,
) *ProgressionService {
	if publisher == nil {
		publisher = event.NoopPublisher{}
	}
	return &ProgressionService{
		rules:     rules,
		players:   players,
		locks:     locks,
		publisher: publisher,
		clock:     clock,
		rng:       rng,
		metrics:   m,
		logger:    l.Named("service.progression"),
	}
}

// change 一次操作的附带产出
type change struct {
	playerID int64
	now      time.Time
	runs     []*model.DungeonRun
	events   []*event.ProgressionEvent
	after    []func()
}

func (c *change) emit(kind event.Kind, payload any) {
	c.events = append(c.events, &event.ProgressionEvent{
		Kind:      kind,
		PlayerID:  c.playerID,
		Payload:   payload,
		Timestamp: c.now,
	})
}

// onCommit 提交成功后执行
func (c *change) onCommit(fn func()) {
	c.after = append(c.after, fn)
}

// mutate 在玩家锁内执行 fn，fn 修改的是独立副本，失败时什么都不保存
func (s *ProgressionService) mutate(
	ctx context.Context,
	op string,
	playerID int64,
	fn func(st *model.PlayerState, ch *change) error,
) (snap *model.Snapshot, err error) {
	start := time.Now()
	defer func() { s.recordOperation(op, start, err) }()

	err = s.locks.WithPlayerLock(ctx, playerID, func() error {
		st, err := s.players.Load(ctx, playerID)
		if err != nil {
			return err
		}

		ch := &change{playerID: playerID, now: s.clock.Now()}
		if err := fn(st, ch); err != nil {
			return err
		}
		st.Character.UpdatedAt = ch.now

		if err := s.players.Save(ctx, &repository.Mutation{State: st, Runs: ch.runs}); err != nil {
			return err
		}

		snap = model.NewSnapshot(st, ch.now)
		for _, ev := range ch.events {
			s.publisher.Publish(ctx, ev)
		}
		for _, f := range ch.after {
			f()
		}
		return nil
	})
	if err != nil {
		s.logFailure(ctx, op, playerID, err)
		return nil, err
	}
	return snap, nil
}

// read 只读操作，不加锁
func (s *ProgressionService) read(
	ctx context.Context,
	op string,
	playerID int64,
	fn func(st *model.PlayerState, now time.Time) error,
) (err error) {
	start := time.Now()
	defer func() { s.recordOperation(op, start, err) }()

	st, err := s.players.Load(ctx, playerID)
	if err != nil {
		s.logFailure(ctx, op, playerID, err)
		return err
	}
	if err = fn(st, s.clock.Now()); err != nil {
		s.logFailure(ctx, op, playerID, err)
	}
	return err
}

// derive 重新推导属性、等级和段位
func (s *ProgressionService) derive(st *model.PlayerState) bool {
	changed := s.rules.ApplyDerivation(st.Character, st.Gauntlets)
	refreshPromotion(st)
	return changed
}

// refreshPromotion 段位高于已认证段位时开放晋升考核，堕落期间关闭
func refreshPromotion(st *model.PlayerState) {
	c, p := st.Character, &st.Promotion
	if !c.IsFallen && c.Rank.Index() > p.CertifiedRank.Index() {
		p.CanAttempt = true
		p.NextRank = c.Rank
		return
	}
	p.CanAttempt = false
	p.NextRank = ""
}

func (s *ProgressionService) logFailure(ctx context.Context, op string, playerID int64, err error) {
	switch {
	case errors.HasAssertionFailure(err):
		s.logger.ErrorContext(ctx, "invariant violated, operation aborted",
			"op", op,
			"player_id", playerID,
			"error", err,
		)
	case engine.IsDomainError(err):
		s.logger.DebugContext(ctx, "operation rejected",
			"op", op,
			"player_id", playerID,
			"error", err,
		)
	default:
		s.logger.WarnContext(ctx, "operation failed",
			"op", op,
			"player_id", playerID,
			"error", err,
		)
	}
}

func (s *ProgressionService) recordOperation(op string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	result := metrics.ResultSuccess
	switch {
	case err == nil:
	case engine.IsDomainError(err):
		result = metrics.ResultDomainError
	default:
		result = metrics.ResultFailed
	}
	s.metrics.RecordOperation(op, result, time.Since(start))
}

func (s *ProgressionService) recordDungeon(run *model.DungeonRun) {
	if s.metrics != nil {
		s.metrics.RecordDungeon(string(run.Archetype), string(run.Status), run.Score)
	}
}
