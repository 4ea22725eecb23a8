package http

import (
	"net/http"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
	"social-publisher/usecase"

	"github.com/gin-gonic/gin"
)

type IPublishHandler interface {
	Publish(ctx *gin.Context)
	PublishStatus(ctx *gin.Context)
	QueueStats(ctx *gin.Context)
}

type PublishHandler struct {
	publishUsecase   usecase.IPublishUsecase
	schedulerUsecase usecase.ISchedulerUsecase
	oauthUsecase     usecase.IOAuthUsecase
}

func NewPublishHandler(publishUsecase usecase.IPublishUsecase, schedulerUsecase usecase.ISchedulerUsecase, oauthUsecase usecase.IOAuthUsecase) IPublishHandler {
	return &PublishHandler{
		publishUsecase:   publishUsecase,
		schedulerUsecase: schedulerUsecase,
		oauthUsecase:     oauthUsecase,
	}
}

func (h *PublishHandler) Publish(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	var req dto.PublishRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, invalidBodyMessage)
		return
	}
	result, err := h.publishUsecase.PublishPost(ctx.Request.Context(), userID, req.PostID, req.Platforms)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, result)
}

// PublishStatus answers one of four queries, checked in order: jobId, postId,
// stats=true and platform. With none of them it reports service status.
func (h *PublishHandler) PublishStatus(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	rc := ctx.Request.Context()

	if jobID := ctx.Query("jobId"); jobID != "" {
		status, err := h.publishUsecase.GetJobStatus(rc, userID, jobID)
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(http.StatusOK, status)
		return
	}
	if postID := ctx.Query("postId"); postID != "" {
		status, err := h.publishUsecase.GetPostStatus(rc, userID, postID)
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(http.StatusOK, status)
		return
	}
	if ctx.Query("stats") == "true" {
		stats, err := h.publishUsecase.GetStats(rc)
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(http.StatusOK, stats)
		return
	}
	if name := ctx.Query("platform"); name != "" {
		platform, err := model.ParsePlatform(name)
		if err != nil {
			writeError(ctx, err)
			return
		}
		stats, err := h.publishUsecase.GetPlatformStats(rc, platform)
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(http.StatusOK, dto.PlatformStatsResponse{Platform: platform, Stats: *stats})
		return
	}

	configured := h.oauthUsecase.ListConfiguredPlatforms()
	if configured == nil {
		configured = []model.Platform{}
	}
	ctx.JSON(http.StatusOK, dto.ServiceStatusResponse{
		Status:              "operational",
		SupportedPlatforms:  model.AllPlatforms,
		ConfiguredPlatforms: configured,
	})
}

func (h *PublishHandler) QueueStats(ctx *gin.Context) {
	stats, err := h.schedulerUsecase.Stats(ctx.Request.Context())
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, stats)
}
