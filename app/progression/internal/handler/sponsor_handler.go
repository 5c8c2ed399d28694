package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/arise/app/progression/internal/model"
	"github.com/lk2023060901/arise/pkg/web"
	weberrors "github.com/lk2023060901/arise/pkg/web/errors"
)

// AcceptSponsorRequest 接受赞助
type AcceptSponsorRequest struct {
	Trigger model.Trigger `json:"trigger" binding:"required"`
}

// SponsorTaskRequest 赞助任务
type SponsorTaskRequest struct {
	TaskID       string `json:"task_id" binding:"required,max=64"`
	CreditReward int64  `json:"credit_reward" binding:"gte=0"`
}

// DetectAvailableSponsors GET /api/v1/players/:player_id/sponsors/available
func (h *ProgressionHandler) DetectAvailableSponsors(c *gin.Context) {
	id, ok := h.playerID(c)
	if !ok {
		return
	}
	res, err := h.svc.DetectAvailableSponsors(c.Request.Context(), id)
	h.respond(c, res, err)
}

// AcceptSponsor POST /api/v1/players/:player_id/sponsors
func (h *ProgressionHandler) AcceptSponsor(c *gin.Context) {
	id, ok := h.playerID(c)
	if !ok {
		return
	}
	var req AcceptSponsorRequest
	if !h.bindJSON(c, &req) {
		return
	}
	res, err := h.svc.AcceptSponsor(c.Request.Context(), id, req.Trigger)
	h.respond(c, res, err)
}

// CompleteSponsorTask POST /api/v1/players/:player_id/sponsors/tasks
func (h *ProgressionHandler) CompleteSponsorTask(c *gin.Context) {
	id, ok := h.playerID(c)
	if !ok {
		return
	}
	var req SponsorTaskRequest
	if !h.bindJSON(c, &req) {
		return
	}
	res, err := h.svc.CompleteSponsorTask(c.Request.Context(), id, req.TaskID, req.CreditReward)
	h.respond(c, res, err)
}

// StartPurification POST /api/v1/players/:player_id/purification
func (h *ProgressionHandler) StartPurification(c *gin.Context) {
	id, ok := h.playerID(c)
	if !ok {
		return
	}
	res, err := h.svc.StartPurification(c.Request.Context(), id)
	h.respond(c, res, err)
}

// AdvancePurificationPhase POST /api/v1/players/:player_id/purification/phases/:phase
func (h *ProgressionHandler) AdvancePurificationPhase(c *gin.Context) {
	id, ok := h.playerID(c)
	if !ok {
		return
	}
	phase, err := strconv.Atoi(c.Param("phase"))
	if err != nil {
		web.Error(c, weberrors.CodeInvalidParams, "invalid phase")
		return
	}
	var req model.PhaseData
	if !h.bindJSON(c, &req) {
		return
	}
	res, err := h.svc.AdvancePurificationPhase(c.Request.Context(), id, phase, req)
	h.respond(c, res, err)
}
