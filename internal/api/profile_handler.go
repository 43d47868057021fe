package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"benchclub/internal/api/middleware"
	"benchclub/internal/database"
	"benchclub/internal/gamification"
	"benchclub/internal/visibility"
)

// ProfileHandler 提供仪表盘、公开成员页与排行榜。
// 所有聚合指标每次请求即时计算，不做缓存。
type ProfileHandler struct {
	db *gorm.DB
}

// NewProfileHandler 构造个人资料处理器。
func NewProfileHandler(db *gorm.DB) *ProfileHandler {
	return &ProfileHandler{db: db}
}

// Overview 返回当前成员的声望档案与最近动态。
func (h *ProfileHandler) Overview(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c).With(slog.Uint64("user_id", uint64(userID)))

	var user database.User
	if err := h.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		logger.Error("load user failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	profile, err := gamification.AggregateProfile(ctx, h.db, userID)
	if err != nil {
		logger.Error("aggregate profile failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	var recentGrants []database.UserAchievement
	err = h.db.WithContext(ctx).
		Preload("Achievement").
		Where("user_id = ?", userID).
		Order("awarded_at DESC").
		Limit(5).
		Find(&recentGrants).Error
	if err != nil {
		logger.Error("load recent achievements failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	achievements := make([]gin.H, 0, len(recentGrants))
	for _, grant := range recentGrants {
		achievements = append(achievements, gin.H{
			"code":        grant.Achievement.Code,
			"name":        grant.Achievement.Name,
			"description": grant.Achievement.Description,
			"points":      grant.Achievement.Points,
			"awarded_at":  grant.AwardedAt,
		})
	}

	var recentBuilds []database.Build
	err = h.db.WithContext(ctx).
		Where("author_id = ?", userID).
		Order("created_at DESC").
		Limit(5).
		Find(&recentBuilds).Error
	if err != nil {
		logger.Error("load recent builds failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	builds := make([]gin.H, 0, len(recentBuilds))
	for _, build := range recentBuilds {
		builds = append(builds, gin.H{
			"id":           build.ID,
			"title":        build.Title,
			"is_published": build.IsPublished,
			"created_at":   build.CreatedAt,
		})
	}

	var recentBenchmarks []database.BenchmarkResult
	err = h.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("recorded_at DESC").
		Limit(5).
		Find(&recentBenchmarks).Error
	if err != nil {
		logger.Error("load recent benchmarks failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	benchmarks := make([]gin.H, 0, len(recentBenchmarks))
	for _, record := range recentBenchmarks {
		benchmarks = append(benchmarks, gin.H{
			"id":             record.ID,
			"build_name":     record.BuildName,
			"benchmark_name": record.BenchmarkName,
			"score":          record.Score,
			"recorded_at":    record.RecordedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"display_name": user.DisplayName,
		"bio":          user.Bio,
		"profile":      profile,
		"achievements": achievements,
		"builds":       builds,
		"benchmarks":   benchmarks,
	})
}

type profileUpdateRequest struct {
	DisplayName string `json:"display_name" binding:"required,min=2,max=80"`
	Email       string `json:"email" binding:"omitempty,email,max=120"`
	Bio         string `json:"bio" binding:"omitempty,max=800"`
}

// Update 修改展示名、邮箱与简介。
func (h *ProfileHandler) Update(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req profileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c).With(slog.Uint64("user_id", uint64(userID)))

	updates := map[string]any{
		"display_name": req.DisplayName,
		"bio":          req.Bio,
	}
	if email := strings.TrimSpace(req.Email); email != "" {
		var emailOwner database.User
		err := h.db.WithContext(ctx).Where("email = ? AND id <> ?", email, userID).First(&emailOwner).Error
		switch {
		case err == nil:
			Conflict(c, "email already taken")
			return
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			logger.Error("email lookup failed", slog.Any("error", err))
			Internal(c, "internal error")
			return
		}
		updates["email"] = email
	} else {
		updates["email"] = nil
	}

	if err := h.db.WithContext(ctx).Model(&database.User{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
		logger.Error("update profile failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	logger.Info("profile updated")
	c.Status(http.StatusOK)
}

// Expert 返回任意成员的公开档案与已发布配置。
func (h *ProfileHandler) Expert(c *gin.Context) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		BadRequest(c, "invalid user id")
		return
	}

	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c)

	var user database.User
	if err := h.db.WithContext(ctx).First(&user, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "user not found")
			return
		}
		logger.Error("load expert failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	profile, err := gamification.AggregateProfile(ctx, h.db, user.ID)
	if err != nil {
		logger.Error("aggregate expert profile failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	var published []database.Build
	err = h.db.WithContext(ctx).
		Preload("Author").
		Preload("Ratings").
		Where("author_id = ? AND is_published = ?", user.ID, true).
		Order("created_at DESC").
		Find(&published).Error
	if err != nil {
		logger.Error("load expert builds failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	builds := make([]gin.H, 0, len(published))
	for i := range published {
		build := &published[i]
		item := gin.H{
			"id":          build.ID,
			"title":       build.Title,
			"author_name": visibility.BuildAuthorName(build),
			"created_at":  build.CreatedAt,
		}
		if avg, ok := build.AverageRating(); ok {
			item["average_rating"] = avg
		}
		builds = append(builds, item)
	}

	c.JSON(http.StatusOK, gin.H{
		"id":           user.ID,
		"display_name": user.DisplayName,
		"bio":          user.Bio,
		"profile":      profile,
		"builds":       builds,
	})
}

type leaderboardRow struct {
	UserID      uint   `json:"user_id"`
	DisplayName string `json:"display_name"`
	Published   int64  `json:"published"`
}

// Leaderboard 返回按已发布配置数排序的前五名成员。
func (h *ProfileHandler) Leaderboard(c *gin.Context) {
	var rows []leaderboardRow
	err := h.db.WithContext(c.Request.Context()).
		Model(&database.Build{}).
		Select("users.id AS user_id, users.display_name AS display_name, COUNT(builds.id) AS published").
		Joins("JOIN users ON users.id = builds.author_id").
		Where("builds.is_published = ?", true).
		Group("users.id, users.display_name").
		Order("COUNT(builds.id) DESC").
		Limit(5).
		Scan(&rows).Error
	if err != nil {
		middleware.LoggerFromContext(c).Error("load leaderboard failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": rows})
}
