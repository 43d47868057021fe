package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"benchclub/internal/api/middleware"
	"benchclub/internal/database"
	"benchclub/internal/gamification"
)

// SocialHandler 处理评论、评分与关注。
// 上述三类动作提交后都会触发徽章评估：评论与关注评估发起者，
// 评分评估被评配置的作者。
type SocialHandler struct {
	db          *gorm.DB
	evaluator   *gamification.Evaluator
	asynqClient *asynq.Client
}

// NewSocialHandler 构造社交动作处理器。
func NewSocialHandler(db *gorm.DB, evaluator *gamification.Evaluator, asynqClient *asynq.Client) *SocialHandler {
	return &SocialHandler{
		db:          db,
		evaluator:   evaluator,
		asynqClient: asynqClient,
	}
}

type commentRequest struct {
	Content     string `json:"content" binding:"required,min=3,max=800"`
	IsAnonymous bool   `json:"is_anonymous"`
}

// AddComment 在已发布配置下留言。
func (h *SocialHandler) AddComment(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	build, ok := h.visibleBuild(c, userID)
	if !ok {
		return
	}

	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c).With(
		slog.Uint64("user_id", uint64(userID)),
		slog.Uint64("build_id", uint64(build.ID)),
	)

	comment := database.BuildComment{
		Content:     req.Content,
		IsAnonymous: req.IsAnonymous,
		BuildID:     build.ID,
		AuthorID:    userID,
	}
	if err := h.db.WithContext(ctx).Create(&comment).Error; err != nil {
		logger.Error("create comment failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	evaluateAchievements(c, h.evaluator, h.asynqClient, userID)

	logger.Info("comment added", slog.Uint64("comment_id", uint64(comment.ID)))
	c.JSON(http.StatusCreated, gin.H{"id": comment.ID})
}

type ratingRequest struct {
	Score       int    `json:"score" binding:"required,min=1,max=5"`
	Feedback    string `json:"feedback" binding:"omitempty,max=500"`
	IsAnonymous bool   `json:"is_anonymous"`
}

// RateBuild 提交或更新评分：同一评审者对同一配置重复提交时
// 原地覆盖，不会产生第二行。提交后评估配置作者的徽章。
func (h *SocialHandler) RateBuild(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	build, ok := h.visibleBuild(c, userID)
	if !ok {
		return
	}

	var req ratingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c).With(
		slog.Uint64("user_id", uint64(userID)),
		slog.Uint64("build_id", uint64(build.ID)),
	)

	var existing database.BuildRating
	err := h.db.WithContext(ctx).
		Where("build_id = ? AND reviewer_id = ?", build.ID, userID).
		First(&existing).Error
	switch {
	case err == nil:
		updates := map[string]any{
			"score":        req.Score,
			"feedback":     req.Feedback,
			"is_anonymous": req.IsAnonymous,
		}
		if err := h.db.WithContext(ctx).Model(&existing).Updates(updates).Error; err != nil {
			logger.Error("update rating failed", slog.Any("error", err))
			Internal(c, "internal error")
			return
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		rating := database.BuildRating{
			Score:       req.Score,
			Feedback:    req.Feedback,
			IsAnonymous: req.IsAnonymous,
			BuildID:     build.ID,
			ReviewerID:  userID,
		}
		if err := h.db.WithContext(ctx).Create(&rating).Error; err != nil {
			logger.Error("create rating failed", slog.Any("error", err))
			Internal(c, "internal error")
			return
		}
	default:
		logger.Error("load rating failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	// 评分影响的是被评作者的 mentor 进度。
	evaluateAchievements(c, h.evaluator, h.asynqClient, build.AuthorID)

	logger.Info("rating submitted", slog.Int("score", req.Score))
	c.Status(http.StatusOK)
}

// ToggleSubscription 创建或取消 follower→followed 关注边。
// 自关注被持久层 CHECK 与此处双重拒绝。
func (h *SocialHandler) ToggleSubscription(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	rawTarget := c.Param("user_id")
	target, err := strconv.ParseUint(rawTarget, 10, 32)
	if err != nil || target == 0 {
		BadRequest(c, "invalid user id")
		return
	}
	targetID := uint(target)

	if targetID == userID {
		BadRequest(c, "cannot follow yourself")
		return
	}

	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c).With(
		slog.Uint64("user_id", uint64(userID)),
		slog.Uint64("target_id", uint64(targetID)),
	)

	var followed database.User
	if err := h.db.WithContext(ctx).First(&followed, targetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "user not found")
			return
		}
		logger.Error("load followed user failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	var existing database.Subscription
	err = h.db.WithContext(ctx).
		Where("follower_id = ? AND followed_id = ?", userID, targetID).
		First(&existing).Error
	switch {
	case err == nil:
		// 物理删除，软删行会继续占用唯一索引导致无法再次关注。
		if err := h.db.WithContext(ctx).Unscoped().Delete(&existing).Error; err != nil {
			logger.Error("delete subscription failed", slog.Any("error", err))
			Internal(c, "internal error")
			return
		}
		logger.Info("subscription removed")
		c.JSON(http.StatusOK, gin.H{"subscribed": false})
	case errors.Is(err, gorm.ErrRecordNotFound):
		subscription := database.Subscription{
			FollowerID: userID,
			FollowedID: targetID,
		}
		if err := h.db.WithContext(ctx).Create(&subscription).Error; err != nil {
			logger.Error("create subscription failed", slog.Any("error", err))
			Internal(c, "internal error")
			return
		}

		evaluateAchievements(c, h.evaluator, h.asynqClient, userID)

		logger.Info("subscription created")
		c.JSON(http.StatusOK, gin.H{"subscribed": true})
	default:
		logger.Error("load subscription failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
}

// visibleBuild 加载目标配置；未发布的仅作者可操作。
func (h *SocialHandler) visibleBuild(c *gin.Context, userID uint) (*database.Build, bool) {
	buildID, ok := buildIDParam(c)
	if !ok {
		return nil, false
	}

	var build database.Build
	err := h.db.WithContext(c.Request.Context()).First(&build, buildID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "build not found")
			return nil, false
		}
		middleware.LoggerFromContext(c).Error("load build failed", slog.Any("error", err))
		Internal(c, "internal error")
		return nil, false
	}
	if !build.IsPublished && build.AuthorID != userID {
		NotFound(c, "build not found")
		return nil, false
	}
	return &build, true
}
