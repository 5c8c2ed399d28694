package handler

import (
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/arise/app/progression/internal/engine"
	"github.com/lk2023060901/arise/app/progression/internal/service"
	"github.com/lk2023060901/arise/pkg/logger"
	"github.com/lk2023060901/arise/pkg/web"
	weberrors "github.com/lk2023060901/arise/pkg/web/errors"
)

// ProgressionHandler 进度服务的 HTTP 入口，玩家 id 取自路由
type ProgressionHandler struct {
	svc    *service.ProgressionService
	logger logger.Logger
}

// NewProgressionHandler 创建处理器
func NewProgressionHandler(svc *service.ProgressionService, l logger.Logger) *ProgressionHandler {
	return &ProgressionHandler{
		svc:    svc,
		logger: l.Named("handler.progression"),
	}
}

// Register 注册路由
func (h *ProgressionHandler) Register(r gin.IRouter) {
	p := r.Group("/api/v1/players/:player_id")
	{
		p.POST("", h.CreatePlayer)
		p.GET("", h.GetSnapshot)

		p.POST("/challenges", h.CompleteChallenge)
		p.POST("/gauntlets/:discipline/stages", h.CompleteGauntletStage)

		p.POST("/dungeons", h.RequestDungeon)
		p.GET("/dungeons", h.GetDungeonHistory)
		p.GET("/dungeons/statistics", h.GetDungeonStatistics)
		p.POST("/dungeons/:run_id/resolve", h.ResolveDungeon)
		p.POST("/dungeons/:run_id/abandon", h.AbandonDungeon)
		p.POST("/promotion", h.RequestPromotion)

		p.GET("/sponsors/available", h.DetectAvailableSponsors)
		p.POST("/sponsors", h.AcceptSponsor)
		p.POST("/sponsors/tasks", h.CompleteSponsorTask)

		p.POST("/purification", h.StartPurification)
		p.POST("/purification/phases/:phase", h.AdvancePurificationPhase)
	}
}

// playerID 解析路由中的玩家 id，失败时已写入响应
func (h *ProgressionHandler) playerID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("player_id"), 10, 64)
	if err != nil || id <= 0 {
		web.Error(c, weberrors.CodeInvalidParams, "invalid player_id")
		return 0, false
	}
	return id, true
}

func (h *ProgressionHandler) bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		web.Error(c, weberrors.CodeInvalidParams, "invalid request: "+err.Error())
		return false
	}
	return true
}

// respond 业务错误按种类映射业务码，其余一律 500 且不透出细节
func (h *ProgressionHandler) respond(c *gin.Context, data any, err error) {
	if err == nil {
		web.Success(c, data)
		return
	}
	code := errorCode(err)
	if code == weberrors.CodeInternalError {
		h.logger.ErrorContext(c.Request.Context(), "request failed",
			"path", c.FullPath(),
			"error", err,
		)
		web.Error(c, code, "internal error")
		return
	}
	web.Error(c, code, err.Error())
}

func errorCode(err error) int {
	switch {
	case errors.HasAssertionFailure(err):
		return weberrors.CodeInternalError
	case errors.Is(err, engine.ErrOutOfSequence):
		return weberrors.CodeOutOfSequence
	case errors.Is(err, engine.ErrInsufficientResource):
		return weberrors.CodeInsufficientResource
	case errors.Is(err, engine.ErrInvalidState):
		return weberrors.CodeInvalidState
	case errors.Is(err, engine.ErrNotEligible):
		return weberrors.CodeNotEligible
	case errors.Is(err, engine.ErrAlreadyExists):
		return weberrors.CodeAlreadyExists
	case errors.Is(err, engine.ErrMaxReached):
		return weberrors.CodeMaxReached
	case errors.Is(err, engine.ErrNotActive):
		return weberrors.CodeNotActive
	case errors.Is(err, engine.ErrNotFound):
		return weberrors.CodeNotFound
	}
	return weberrors.CodeInternalError
}
