package http

import (
	"net/http"
	"strconv"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
	"social-publisher/usecase"

	"github.com/gin-gonic/gin"
)

const invalidBodyMessage = "invalid request body"

type IPostHandler interface {
	CreatePost(ctx *gin.Context)
	SchedulePost(ctx *gin.Context)
	RetryPost(ctx *gin.Context)
	ListAttempts(ctx *gin.Context)
}

type PostHandler struct {
	publishUsecase usecase.IPublishUsecase
}

func NewPostHandler(publishUsecase usecase.IPublishUsecase) IPostHandler {
	return &PostHandler{publishUsecase: publishUsecase}
}

func (h *PostHandler) CreatePost(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	var req dto.CreatePostRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, invalidBodyMessage)
		return
	}
	platforms, err := model.ParsePlatforms(req.Platforms)
	if err != nil {
		writeError(ctx, err)
		return
	}
	post, err := h.publishUsecase.CreatePost(ctx.Request.Context(), userID, &model.Post{
		Content:     req.Content,
		MediaRefs:   req.MediaRefs,
		Platforms:   platforms,
		ScheduledAt: req.ScheduledAt,
	})
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, post)
}

func (h *PostHandler) SchedulePost(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	var req dto.SchedulePostRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, invalidBodyMessage)
		return
	}
	postID := ctx.Param("postId")
	if err := h.publishUsecase.SchedulePost(ctx.Request.Context(), userID, postID, req.ScheduledAt.UTC()); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"postId":      postID,
		"status":      model.PostScheduled,
		"scheduledAt": req.ScheduledAt.UTC(),
	})
}

func (h *PostHandler) RetryPost(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	job, err := h.publishUsecase.RetryPost(ctx.Request.Context(), userID, ctx.Param("postId"))
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusAccepted, job)
}

func (h *PostHandler) ListAttempts(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	var limit int64
	if v := ctx.Query("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			badRequest(ctx, "limit must be an integer")
			return
		}
		limit = n
	}
	postID := ctx.Param("postId")
	attempts, err := h.publishUsecase.ListAttempts(ctx.Request.Context(), userID, postID, limit)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"postId": postID, "attempts": attempts})
}
