package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"benchclub/internal/database"
	"benchclub/internal/errcode"
	"benchclub/internal/tasks"
)

// UnlockNotifyMessage 是推给前端的统一 WebSocket 消息
// （经由 Redis Pub/Sub 转发），字段名需与前端解析一致。
type UnlockNotifyMessage struct {
	Type          string   `json:"type"`
	Codes         []string `json:"codes"`
	Names         []string `json:"names"`
	Points        int      `json:"points"`
	ErrorCode     int      `json:"error_code"`
	CorrelationID string   `json:"correlation_id"`
}

// NotifyChannel 返回某用户的通知频道名。
func NotifyChannel(userID uint) string {
	return fmt.Sprintf("notify:user:%d", userID)
}

// AchievementNotifyHandler 消费徽章授予任务：
// 解析出徽章名称与分值后发布到用户的通知频道。
type AchievementNotifyHandler struct {
	db     *gorm.DB
	redis  redis.UniversalClient
	logger *slog.Logger
}

// NewAchievementNotifyHandler 构造通知任务处理器。
func NewAchievementNotifyHandler(db *gorm.DB, redisClient redis.UniversalClient, logger *slog.Logger) *AchievementNotifyHandler {
	return &AchievementNotifyHandler{
		db:     db,
		redis:  redisClient,
		logger: logger,
	}
}

// composeMessage 按任务载荷从目录解析徽章名称与分值。
// 目录里查不到的代码说明目录被手工改过，标记漂移但照常推送。
func (h *AchievementNotifyHandler) composeMessage(ctx context.Context, payload tasks.AchievementNotifyPayload) (UnlockNotifyMessage, error) {
	var entries []database.Achievement
	if err := h.db.WithContext(ctx).Where("code IN ?", payload.Codes).Find(&entries).Error; err != nil {
		return UnlockNotifyMessage{}, fmt.Errorf("load achievements for notify: %w", err)
	}

	message := UnlockNotifyMessage{
		Type:          "achievement_unlocked",
		Codes:         payload.Codes,
		ErrorCode:     errcode.OK,
		CorrelationID: payload.CorrelationID,
	}
	for _, entry := range entries {
		message.Names = append(message.Names, entry.Name)
		message.Points += entry.Points
	}
	if len(entries) < len(payload.Codes) {
		message.ErrorCode = errcode.CatalogDrift
	}
	return message, nil
}

// ProcessTask 实现 asynq.Handler。
func (h *AchievementNotifyHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload tasks.AchievementNotifyPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal achievement notify payload: %w", err)
	}

	logger := h.logger.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.Uint64("user_id", uint64(payload.UserID)),
	)

	if len(payload.Codes) == 0 {
		logger.Warn("achievement notify task without codes")
		return nil
	}

	message, err := h.composeMessage(ctx, payload)
	if err != nil {
		return err
	}
	if message.ErrorCode == errcode.CatalogDrift {
		logger.Warn("some achievement codes missing from catalog",
			slog.Int("requested", len(payload.Codes)),
			slog.Int("resolved", len(message.Names)),
		)
	}

	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal notify message: %w", err)
	}

	if err := h.redis.Publish(ctx, NotifyChannel(payload.UserID), body).Err(); err != nil {
		return fmt.Errorf("publish notify message: %w", err)
	}

	logger.Info("achievement unlock published",
		slog.Int("badge_count", len(payload.Codes)),
	)
	return nil
}
