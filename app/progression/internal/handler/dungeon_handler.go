package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/arise/app/progression/internal/model"
	"github.com/lk2023060901/arise/pkg/web"
	weberrors "github.com/lk2023060901/arise/pkg/web/errors"
)

// HistoryQuery 分页参数，越界值由服务端收敛
type HistoryQuery struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

// RequestDungeon POST /api/v1/players/:player_id/dungeons
func (h *ProgressionHandler) RequestDungeon(c *gin.Context) {
	id, ok := h.playerID(c)
	if !ok {
		return
	}
	res, err := h.svc.RequestDungeon(c.Request.Context(), id)
	h.respond(c, res, err)
}

// RequestPromotion POST /api/v1/players/:player_id/promotion
func (h *ProgressionHandler) RequestPromotion(c *gin.Context) {
	id, ok := h.playerID(c)
	if !ok {
		return
	}
	res, err := h.svc.RequestPromotion(c.Request.Context(), id)
	h.respond(c, res, err)
}

// ResolveDungeon POST /api/v1/players/:player_id/dungeons/:run_id/resolve
func (h *ProgressionHandler) ResolveDungeon(c *gin.Context) {
	id, ok := h.playerID(c)
	if !ok {
		return
	}
	var req model.AttemptResult
	if !h.bindJSON(c, &req) {
		return
	}
	res, err := h.svc.ResolveDungeon(c.Request.Context(), id, c.Param("run_id"), req)
	h.respond(c, res, err)
}

// AbandonDungeon POST /api/v1/players/:player_id/dungeons/:run_id/abandon
func (h *ProgressionHandler) AbandonDungeon(c *gin.Context) {
	id, ok := h.playerID(c)
	if !ok {
		return
	}
	res, err := h.svc.AbandonDungeon(c.Request.Context(), id, c.Param("run_id"))
	h.respond(c, res, err)
}

// GetDungeonHistory GET /api/v1/players/:player_id/dungeons?limit=&offset=
func (h *ProgressionHandler) GetDungeonHistory(c *gin.Context) {
	id, ok := h.playerID(c)
	if !ok {
		return
	}
	var q HistoryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		web.Error(c, weberrors.CodeInvalidParams, "invalid query: "+err.Error())
		return
	}
	res, err := h.svc.GetDungeonHistory(c.Request.Context(), id, q.Limit, q.Offset)
	h.respond(c, res, err)
}

// GetDungeonStatistics GET /api/v1/players/:player_id/dungeons/statistics
func (h *ProgressionHandler) GetDungeonStatistics(c *gin.Context) {
	id, ok := h.playerID(c)
	if !ok {
		return
	}
	res, err := h.svc.GetDungeonStatistics(c.Request.Context(), id)
	h.respond(c, res, err)
}
