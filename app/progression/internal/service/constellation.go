package service

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/arise/app/progression/internal/engine"
	"github.com/lk2023060901/arise/app/progression/internal/event"
	"github.com/lk2023060901/arise/app/progression/internal/model"
)

// SponsorOffers 当前可接受的赞助
type SponsorOffers struct {
	Triggers []model.Trigger `json:"triggers"`
	Sponsors []model.Sponsor `json:"sponsors"`
	// CanAccept 没有未腐化的生效赞助
	CanAccept bool `json:"can_accept"`
}

// SponsorAccepted 接受赞助的结果
type SponsorAccepted struct {
	Assignment *model.ConstellationAssignment `json:"assignment"`
	Snapshot   *model.Snapshot                `json:"snapshot,omitempty"`
}

// SponsorTaskOutcome 赞助任务结算
type SponsorTaskOutcome struct {
	engine.TaskResult
	Snapshot *model.Snapshot `json:"snapshot,omitempty"`
}

// DetectAvailableSponsors 只读，不修改状态
func (s *ProgressionService) DetectAvailableSponsors(ctx context.Context, playerID int64) (*SponsorOffers, error) {
	out := &SponsorOffers{}
	err := s.read(ctx, "detect_sponsors", playerID, func(st *model.PlayerState, now time.Time) error {
		out.Triggers = s.rules.DetectTriggers(st, now)
		out.Sponsors = s.rules.AvailableSponsors(st, now)
		a := st.ActiveAssignment()
		out.CanAccept = a == nil || a.Corrupted
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out.Triggers == nil {
		out.Triggers = []model.Trigger{}
	}
	if out.Sponsors == nil {
		out.Sponsors = []model.Sponsor{}
	}
	return out, nil
}

// AcceptSponsor 接受触发条件对应的赞助
func (s *ProgressionService) AcceptSponsor(ctx context.Context, playerID int64, trigger model.Trigger) (*SponsorAccepted, error) {
	out := &SponsorAccepted{}

	snap, err := s.mutate(ctx, "accept_sponsor", playerID, func(st *model.PlayerState, ch *change) error {
		a, err := s.rules.AcceptSponsor(st, trigger, ch.now)
		if err != nil {
			return err
		}
		out.Assignment = a.Clone()
		ch.emit(event.KindSponsorAccepted, out.Assignment)
		return nil
	})
	if err != nil {
		return nil, err
	}
	out.Snapshot = snap
	return out, nil
}

// CompleteSponsorTask 完成当前赞助布置的任务
func (s *ProgressionService) CompleteSponsorTask(ctx context.Context, playerID int64, taskID string, creditReward int64) (*SponsorTaskOutcome, error) {
	out := &SponsorTaskOutcome{}

	snap, err := s.mutate(ctx, "sponsor_task", playerID, func(st *model.PlayerState, ch *change) error {
		if creditReward < 0 {
			return errors.Wrapf(engine.ErrInvalidState, "negative task reward %d", creditReward)
		}
		a := st.ActiveAssignment()
		if a == nil {
			return errors.Wrap(engine.ErrNotActive, "no active sponsor")
		}

		res, err := s.rules.CompleteSponsorTask(st.Character, a, taskID, creditReward, ch.now)
		if err != nil {
			return err
		}
		st.Statistics.TotalCreditsEarned += res.Credits

		out.TaskResult = res
		ch.emit(event.KindSponsorTask, res)
		return nil
	})
	if err != nil {
		return nil, err
	}
	out.Snapshot = snap
	return out, nil
}
