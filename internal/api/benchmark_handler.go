package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"benchclub/internal/api/middleware"
	"benchclub/internal/database"
)

// BenchmarkHandler 管理成员的跑分记录。
type BenchmarkHandler struct {
	db *gorm.DB
}

// NewBenchmarkHandler 构造跑分处理器。
func NewBenchmarkHandler(db *gorm.DB) *BenchmarkHandler {
	return &BenchmarkHandler{db: db}
}

type benchmarkRequest struct {
	BuildID         *uint           `json:"build_id"`
	CustomBuildName string          `json:"custom_build_name" binding:"omitempty,max=120"`
	BenchmarkName   string          `json:"benchmark_name" binding:"required,min=2,max=120"`
	Score           float64         `json:"score" binding:"required,gt=0"`
	Notes           string          `json:"notes" binding:"omitempty,max=800"`
	Details         json.RawMessage `json:"details"`
	ScreenshotPath  string          `json:"screenshot_path" binding:"omitempty,max=255"`
	IsAnonymous     bool            `json:"is_anonymous"`
}

// Create 记录一条跑分。关联到自己的配置时沿用其标题，
// 否则必须给出自定义机器名。
func (h *BenchmarkHandler) Create(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req benchmarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c).With(slog.Uint64("user_id", uint64(userID)))

	record := database.BenchmarkResult{
		BenchmarkName:  req.BenchmarkName,
		Score:          req.Score,
		Notes:          req.Notes,
		ScreenshotPath: req.ScreenshotPath,
		IsAnonymous:    req.IsAnonymous,
		UserID:         userID,
	}

	if req.BuildID != nil {
		var build database.Build
		err := h.db.WithContext(ctx).
			Where("id = ? AND author_id = ?", *req.BuildID, userID).
			First(&build).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				NotFound(c, "build not found")
				return
			}
			logger.Error("load build failed", slog.Any("error", err))
			Internal(c, "internal error")
			return
		}
		record.BuildID = req.BuildID
		record.BuildName = build.Title
	} else {
		name := strings.TrimSpace(req.CustomBuildName)
		if name == "" {
			BadRequest(c, "custom_build_name is required without build_id")
			return
		}
		record.BuildName = name
	}

	if len(req.Details) > 0 {
		if !json.Valid(req.Details) {
			BadRequest(c, "details must be valid JSON")
			return
		}
		record.Details = datatypes.JSON(req.Details)
	}

	if err := h.db.WithContext(ctx).Create(&record).Error; err != nil {
		logger.Error("create benchmark failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	logger.Info("benchmark recorded",
		slog.Uint64("benchmark_id", uint64(record.ID)),
		slog.String("benchmark_name", record.BenchmarkName))
	c.JSON(http.StatusCreated, gin.H{"id": record.ID})
}

// List 返回当前成员的跑分历史，按记录时间倒序。
func (h *BenchmarkHandler) List(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var records []database.BenchmarkResult
	err := h.db.WithContext(c.Request.Context()).
		Where("user_id = ?", userID).
		Order("recorded_at DESC").
		Find(&records).Error
	if err != nil {
		middleware.LoggerFromContext(c).Error("list benchmarks failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	items := make([]gin.H, 0, len(records))
	for _, record := range records {
		item := gin.H{
			"id":             record.ID,
			"build_name":     record.BuildName,
			"benchmark_name": record.BenchmarkName,
			"score":          record.Score,
			"notes":          record.Notes,
			"is_anonymous":   record.IsAnonymous,
			"recorded_at":    record.RecordedAt,
		}
		if record.BuildID != nil {
			item["build_id"] = *record.BuildID
		}
		if len(record.Details) > 0 {
			item["details"] = json.RawMessage(record.Details)
		}
		if record.ScreenshotPath != "" {
			item["screenshot_path"] = record.ScreenshotPath
		}
		items = append(items, item)
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}
