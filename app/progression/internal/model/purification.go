package model

import (
	"time"
)

// PurificationOption 第四阶段的抉择
type PurificationOption string

const (
	OptionPurge  PurificationOption = "purge"
	OptionAbsorb PurificationOption = "absorb"
)

// Valid 是否为已知选项
func (o PurificationOption) Valid() bool {
	return o == OptionPurge || o == OptionAbsorb
}

// FinalPurificationPhase 最后阶段
const FinalPurificationPhase = 4

// PurificationProgress 净化进度，未开始或已完成时为 nil
type PurificationProgress struct {
	Phase           int                 `json:"phase"`
	CompletedTrials []string            `json:"completed_trials"`
	SacrificeMade   bool                `json:"sacrifice_made"`
	MirrorDefeated  bool                `json:"mirror_defeated"`
	SelectedOption  *PurificationOption `json:"selected_option,omitempty"`
	StartedAt       time.Time           `json:"started_at"`
}

// HasTrial 试炼是否已记录
func (p *PurificationProgress) HasTrial(id string) bool {
	for _, t := range p.CompletedTrials {
		if t == id {
			return true
		}
	}
	return false
}

// PhaseData 推进阶段时提交的数据
type PhaseData struct {
	TrialID        string              `json:"trial_id" binding:"required"`
	SacrificeMade  bool                `json:"sacrifice_made"`
	MirrorDefeated bool                `json:"mirror_defeated"`
	Option         *PurificationOption `json:"option,omitempty"`
}

// Clone 深拷贝
func (p *PurificationProgress) Clone() *PurificationProgress {
	if p == nil {
		return nil
	}
	out := *p
	out.CompletedTrials = append([]string(nil), p.CompletedTrials...)
	if p.SelectedOption != nil {
		o := *p.SelectedOption
		out.SelectedOption = &o
	}
	return &out
}
