package service

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/arise/app/progression/internal/engine"
	"github.com/lk2023060901/arise/app/progression/internal/event"
	"github.com/lk2023060901/arise/app/progression/internal/model"
)

// PurificationStarted 开始净化的结果
type PurificationStarted struct {
	Progress *model.PurificationProgress `json:"progress"`
	// SponsorReset 腐化赞助是否被重置到 1 级
	SponsorReset bool            `json:"sponsor_reset"`
	Snapshot     *model.Snapshot `json:"snapshot,omitempty"`
}

// PhaseResult 阶段推进结果
type PhaseResult struct {
	engine.PhaseOutcome
	Snapshot *model.Snapshot `json:"snapshot,omitempty"`
}

// StartPurification 开始净化
func (s *ProgressionService) StartPurification(ctx context.Context, playerID int64) (*PurificationStarted, error) {
	out := &PurificationStarted{}

	snap, err := s.mutate(ctx, "start_purification", playerID, func(st *model.PlayerState, ch *change) error {
		a := st.ActiveAssignment()
		corrupted := a != nil && a.Corrupted

		if err := s.rules.StartPurification(st, ch.now); err != nil {
			return err
		}
		out.Progress = st.Purification.Clone()
		out.SponsorReset = corrupted
		ch.emit(event.KindPurificationStarted, out.Progress)
		return nil
	})
	if err != nil {
		return nil, err
	}
	out.Snapshot = snap
	return out, nil
}

// AdvancePurificationPhase 提交当前阶段的试炼，重复的试炼 id 会被拒绝
func (s *ProgressionService) AdvancePurificationPhase(ctx context.Context, playerID int64, phase int, data model.PhaseData) (*PhaseResult, error) {
	out := &PhaseResult{}

	snap, err := s.mutate(ctx, "advance_purification", playerID, func(st *model.PlayerState, ch *change) error {
		if p := st.Purification; p != nil && p.HasTrial(data.TrialID) {
			return errors.Wrapf(engine.ErrAlreadyExists, "trial %s already completed", data.TrialID)
		}

		res, err := s.rules.AdvancePurification(st, phase, data, ch.now)
		if err != nil {
			return err
		}
		if res.Finalized {
			refreshPromotion(st)
			s.logger.InfoContext(ctx, "purification finalized",
				"player_id", playerID,
				"option", *res.Option,
				"rank", res.Rank,
			)
		}

		out.PhaseOutcome = res
		ch.emit(event.KindPurificationPhase, res)
		return nil
	})
	if err != nil {
		return nil, err
	}
	out.Snapshot = snap
	return out, nil
}
