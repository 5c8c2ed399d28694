package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/arise/app/progression/internal/model"
	"github.com/lk2023060901/arise/app/progression/internal/service"
)

// ChallengeRequest 日常挑战
type ChallengeRequest struct {
	XPEarned       int64            `json:"xp_earned" binding:"gte=0"`
	ChallengeID    string           `json:"challenge_id" binding:"max=64"`
	Discipline     model.Discipline `json:"discipline" binding:"omitempty,oneof=push pull legs core"`
	PersonalRecord bool             `json:"personal_record"`
	Note           string           `json:"note" binding:"max=256"`
}

// StageRequest 关卡结算，经验以服务端配置为准
type StageRequest struct {
	Stage     int   `json:"stage" binding:"required,gte=1"`
	XPEarned  int64 `json:"xp_earned" binding:"gte=0"`
	IsBoss    bool  `json:"is_boss"`
	BossBonus int64 `json:"boss_bonus" binding:"gte=0"`
}

// CreatePlayer POST /api/v1/players/:player_id
func (h *ProgressionHandler) CreatePlayer(c *gin.Context) {
	id, ok := h.playerID(c)
	if !ok {
		return
	}
	snap, err := h.svc.CreatePlayer(c.Request.Context(), id)
	h.respond(c, snap, err)
}

// GetSnapshot GET /api/v1/players/:player_id
func (h *ProgressionHandler) GetSnapshot(c *gin.Context) {
	id, ok := h.playerID(c)
	if !ok {
		return
	}
	snap, err := h.svc.GetSnapshot(c.Request.Context(), id)
	h.respond(c, snap, err)
}

// CompleteChallenge POST /api/v1/players/:player_id/challenges
func (h *ProgressionHandler) CompleteChallenge(c *gin.Context) {
	id, ok := h.playerID(c)
	if !ok {
		return
	}
	var req ChallengeRequest
	if !h.bindJSON(c, &req) {
		return
	}

	res, err := h.svc.CompleteChallenge(c.Request.Context(), id, req.XPEarned, service.ChallengeDetails{
		ChallengeID:    req.ChallengeID,
		Discipline:     req.Discipline,
		PersonalRecord: req.PersonalRecord,
		Note:           req.Note,
	})
	h.respond(c, res, err)
}

// CompleteGauntletStage POST /api/v1/players/:player_id/gauntlets/:discipline/stages
func (h *ProgressionHandler) CompleteGauntletStage(c *gin.Context) {
	id, ok := h.playerID(c)
	if !ok {
		return
	}
	var req StageRequest
	if !h.bindJSON(c, &req) {
		return
	}

	d := model.Discipline(c.Param("discipline"))
	res, err := h.svc.CompleteGauntletStage(c.Request.Context(), id, d, req.Stage, req.XPEarned, req.IsBoss, req.BossBonus)
	h.respond(c, res, err)
}
