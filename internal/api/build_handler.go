package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"benchclub/internal/api/middleware"
	"benchclub/internal/database"
	"benchclub/internal/gamification"
	"benchclub/internal/visibility"
)

// BuildHandler 管理整机配置的增删改查与公开目录。
type BuildHandler struct {
	db          *gorm.DB
	evaluator   *gamification.Evaluator
	asynqClient *asynq.Client
}

// NewBuildHandler 构造 Build 处理器。
func NewBuildHandler(db *gorm.DB, evaluator *gamification.Evaluator, asynqClient *asynq.Client) *BuildHandler {
	return &BuildHandler{
		db:          db,
		evaluator:   evaluator,
		asynqClient: asynqClient,
	}
}

type componentEntry struct {
	Name            string   `json:"name" binding:"omitempty,max=120"`
	DNSPrice        *float64 `json:"dns_price"`
	DNSURL          string   `json:"dns_url" binding:"omitempty,max=255"`
	MegamarketPrice *float64 `json:"megamarket_price"`
	MegamarketURL   string   `json:"megamarket_url" binding:"omitempty,max=255"`
	MvideoPrice     *float64 `json:"mvideo_price"`
	MvideoURL       string   `json:"mvideo_url" binding:"omitempty,max=255"`
}

type buildRequest struct {
	Title           string           `json:"title" binding:"required,max=120"`
	Description     string           `json:"description" binding:"required,min=10"`
	HardwareSummary string           `json:"hardware_summary" binding:"required,min=10"`
	Tags            []string         `json:"tags" binding:"max=10"`
	IsPublished     bool             `json:"is_published"`
	IsAnonymous     bool             `json:"is_anonymous"`
	CoverImage      string           `json:"cover_image" binding:"omitempty,max=255"`
	Components      []componentEntry `json:"components" binding:"max=20"`
}

// CreateBuild 创建一台配置；提交后重新评估作者的徽章。
func (h *BuildHandler) CreateBuild(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req buildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c).With(slog.Uint64("user_id", uint64(userID)))

	build := database.Build{
		Title:           req.Title,
		Description:     req.Description,
		HardwareSummary: req.HardwareSummary,
		IsPublished:     req.IsPublished,
		IsAnonymous:     req.IsAnonymous,
		CoverImage:      req.CoverImage,
		AuthorID:        userID,
		Components:      buildComponents(req.Components),
	}

	tags, err := h.resolveTags(c, req.Tags)
	if err != nil {
		logger.Error("resolve tags failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	build.Tags = tags

	if err := h.db.WithContext(ctx).Create(&build).Error; err != nil {
		logger.Error("create build failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	evaluateAchievements(c, h.evaluator, h.asynqClient, userID)

	logger.Info("build created", slog.Uint64("build_id", uint64(build.ID)))
	c.JSON(http.StatusCreated, gin.H{"id": build.ID})
}

// UpdateBuild 整体替换标题、标签与配件列表；提交后重新评估作者的徽章。
func (h *BuildHandler) UpdateBuild(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	build, ok := h.ownedBuild(c, userID)
	if !ok {
		return
	}

	var req buildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c).With(
		slog.Uint64("user_id", uint64(userID)),
		slog.Uint64("build_id", uint64(build.ID)),
	)

	tags, err := h.resolveTags(c, req.Tags)
	if err != nil {
		logger.Error("resolve tags failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	err = h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"title":            req.Title,
			"description":      req.Description,
			"hardware_summary": req.HardwareSummary,
			"is_published":     req.IsPublished,
			"is_anonymous":     req.IsAnonymous,
			"cover_image":      req.CoverImage,
		}
		if err := tx.Model(build).Updates(updates).Error; err != nil {
			return err
		}
		if err := tx.Model(build).Association("Tags").Replace(tags); err != nil {
			return err
		}
		if err := tx.Where("build_id = ?", build.ID).Delete(&database.BuildComponent{}).Error; err != nil {
			return err
		}
		components := buildComponents(req.Components)
		for i := range components {
			components[i].BuildID = build.ID
		}
		if len(components) == 0 {
			return nil
		}
		return tx.Create(&components).Error
	})
	if err != nil {
		logger.Error("update build failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	evaluateAchievements(c, h.evaluator, h.asynqClient, userID)

	logger.Info("build updated")
	c.Status(http.StatusOK)
}

// DeleteBuild 删除配置及其附属评论、评分、配件与跑分记录。
func (h *BuildHandler) DeleteBuild(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	build, ok := h.ownedBuild(c, userID)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c).With(
		slog.Uint64("user_id", uint64(userID)),
		slog.Uint64("build_id", uint64(build.ID)),
	)

	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("build_id = ?", build.ID).Delete(&database.BuildComment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("build_id = ?", build.ID).Delete(&database.BuildRating{}).Error; err != nil {
			return err
		}
		if err := tx.Where("build_id = ?", build.ID).Delete(&database.BuildComponent{}).Error; err != nil {
			return err
		}
		if err := tx.Where("build_id = ?", build.ID).Delete(&database.BenchmarkResult{}).Error; err != nil {
			return err
		}
		if err := tx.Model(build).Association("Tags").Clear(); err != nil {
			return err
		}
		return tx.Delete(build).Error
	})
	if err != nil {
		logger.Error("delete build failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	logger.Info("build deleted")
	c.Status(http.StatusOK)
}

// Catalog 返回公开目录，可按标签过滤（大小写不敏感）。
func (h *BuildHandler) Catalog(c *gin.Context) {
	ctx := c.Request.Context()

	query := h.db.WithContext(ctx).
		Model(&database.Build{}).
		Preload("Author").
		Preload("Tags").
		Preload("Ratings").
		Where("is_published = ?", true).
		Order("builds.created_at DESC")

	if tag := strings.TrimSpace(c.Query("tag")); tag != "" {
		query = query.
			Joins("JOIN build_tags ON build_tags.build_id = builds.id").
			Joins("JOIN tags ON tags.id = build_tags.tag_id").
			Where("LOWER(tags.name) = LOWER(?)", tag)
	}

	var builds []database.Build
	if err := query.Find(&builds).Error; err != nil {
		middleware.LoggerFromContext(c).Error("list builds failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	items := make([]gin.H, 0, len(builds))
	for i := range builds {
		items = append(items, h.buildSummary(&builds[i]))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// Mine 返回当前成员的全部配置（含未发布）。
func (h *BuildHandler) Mine(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var builds []database.Build
	err := h.db.WithContext(c.Request.Context()).
		Preload("Author").
		Preload("Tags").
		Preload("Ratings").
		Where("author_id = ?", userID).
		Order("updated_at DESC").
		Find(&builds).Error
	if err != nil {
		middleware.LoggerFromContext(c).Error("list own builds failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	items := make([]gin.H, 0, len(builds))
	for i := range builds {
		item := h.buildSummary(&builds[i])
		item["is_published"] = builds[i].IsPublished
		items = append(items, item)
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// Detail 返回单台配置的详情，含评论与评分。
// 未发布的配置仅作者可见。
func (h *BuildHandler) Detail(c *gin.Context) {
	buildID, ok := buildIDParam(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	var build database.Build
	err := h.db.WithContext(ctx).
		Preload("Author").
		Preload("Tags").
		Preload("Ratings").
		Preload("Ratings.Reviewer").
		Preload("Comments").
		Preload("Comments.Author").
		Preload("Components").
		First(&build, buildID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "build not found")
			return
		}
		middleware.LoggerFromContext(c).Error("load build failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if !build.IsPublished {
		userID, authed := userIDFromContext(c)
		if !authed || build.AuthorID != userID {
			NotFound(c, "build not found")
			return
		}
	}

	detail := h.buildSummary(&build)

	comments := make([]gin.H, 0, len(build.Comments))
	for i := range build.Comments {
		comment := &build.Comments[i]
		comments = append(comments, gin.H{
			"id":          comment.ID,
			"content":     comment.Content,
			"author_name": visibility.CommentAuthorName(comment),
			"created_at":  comment.CreatedAt,
		})
	}
	detail["comments"] = comments

	ratings := make([]gin.H, 0, len(build.Ratings))
	for i := range build.Ratings {
		rating := &build.Ratings[i]
		ratings = append(ratings, gin.H{
			"score":         rating.Score,
			"feedback":      rating.Feedback,
			"reviewer_name": visibility.RatingReviewerName(rating),
			"created_at":    rating.CreatedAt,
		})
	}
	detail["ratings"] = ratings

	components := make([]gin.H, 0, len(build.Components))
	for i := range build.Components {
		component := &build.Components[i]
		components = append(components, gin.H{
			"name":             component.Name,
			"dns_price":        component.DNSPrice,
			"dns_url":          component.DNSURL,
			"megamarket_price": component.MegamarketPrice,
			"megamarket_url":   component.MegamarketURL,
			"mvideo_price":     component.MvideoPrice,
			"mvideo_url":       component.MvideoURL,
		})
	}
	detail["components"] = components
	detail["description"] = build.Description
	detail["hardware_summary"] = build.HardwareSummary

	c.JSON(http.StatusOK, detail)
}

// buildSummary 组装对外展示的基础字段。
// 匿名配置不携带 author_id，订阅入口随之隐藏。
func (h *BuildHandler) buildSummary(build *database.Build) gin.H {
	item := gin.H{
		"id":                 build.ID,
		"title":              build.Title,
		"author_name":        visibility.BuildAuthorName(build),
		"allow_profile_link": visibility.AllowProfileLink(build),
		"cover_image":        build.CoverImage,
		"created_at":         build.CreatedAt,
	}
	if visibility.AllowProfileLink(build) {
		item["author_id"] = build.AuthorID
	}

	tagNames := make([]string, 0, len(build.Tags))
	for _, tag := range build.Tags {
		tagNames = append(tagNames, tag.Name)
	}
	item["tags"] = tagNames

	if avg, ok := build.AverageRating(); ok {
		item["average_rating"] = avg
	}
	item["rating_count"] = len(build.Ratings)
	return item
}

// ownedBuild 加载路径参数指定的配置并校验归属。
func (h *BuildHandler) ownedBuild(c *gin.Context, userID uint) (*database.Build, bool) {
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
	if build.AuthorID != userID {
		Forbidden(c, "not the build author")
		return nil, false
	}
	return &build, true
}

// resolveTags 大小写不敏感地去重并复用已有 Tag 行。
func (h *BuildHandler) resolveTags(c *gin.Context, names []string) ([]database.Tag, error) {
	seen := make(map[string]bool, len(names))
	tags := make([]database.Tag, 0, len(names))
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		normalized := strings.ToLower(name)
		if seen[normalized] {
			continue
		}
		seen[normalized] = true

		var tag database.Tag
		err := h.db.WithContext(c.Request.Context()).
			Where("LOWER(name) = ?", normalized).
			First(&tag).Error
		switch {
		case err == nil:
		case errors.Is(err, gorm.ErrRecordNotFound):
			tag = database.Tag{Name: name}
		default:
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// buildComponents 过滤掉名称为空的条目。
func buildComponents(entries []componentEntry) []database.BuildComponent {
	components := make([]database.BuildComponent, 0, len(entries))
	for _, entry := range entries {
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			continue
		}
		components = append(components, database.BuildComponent{
			Name:            name,
			DNSPrice:        entry.DNSPrice,
			DNSURL:          entry.DNSURL,
			MegamarketPrice: entry.MegamarketPrice,
			MegamarketURL:   entry.MegamarketURL,
			MvideoPrice:     entry.MvideoPrice,
			MvideoURL:       entry.MvideoURL,
		})
	}
	return components
}

func buildIDParam(c *gin.Context) (uint, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		BadRequest(c, "invalid build id")
		return 0, false
	}
	return uint(id), true
}
