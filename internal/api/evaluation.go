package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"benchclub/internal/api/middleware"
	"benchclub/internal/database"
	"benchclub/internal/gamification"
	"benchclub/internal/metrics"
	"benchclub/internal/tasks"
)

// evaluateAchievements 在写入动作提交后重新评估指定用户的徽章，
// 新授予的徽章计入指标并异步推送通知。评估失败只记日志：
// 评估是幂等的，下一次动作会重试，不应拖垮本次请求。
func evaluateAchievements(c *gin.Context, evaluator *gamification.Evaluator, asynqClient *asynq.Client, userID uint) {
	logger := middleware.LoggerFromContext(c)
	grants, err := evaluator.Evaluate(c.Request.Context(), userID)
	if err != nil {
		logger.Error("achievement evaluation failed",
			slog.Uint64("user_id", uint64(userID)),
			slog.Any("error", err),
		)
		return
	}
	if len(grants) == 0 {
		return
	}

	codes := grantCodes(grants)
	for _, code := range codes {
		metrics.CountGrantedAchievement(code)
	}
	logger.Info("achievements granted",
		slog.Uint64("user_id", uint64(userID)),
		slog.Any("codes", codes),
	)

	if asynqClient == nil {
		return
	}
	task, err := tasks.NewAchievementNotifyTask(userID, codes, middleware.GetCorrelationID(c))
	if err != nil {
		logger.Error("build notify task failed", slog.Any("error", err))
		return
	}
	if _, err := asynqClient.Enqueue(task); err != nil {
		logger.Error("enqueue notify task failed", slog.Any("error", err))
	}
}

// grantCodes 取出授予记录的规则代码，评估器已保证按规则顺序返回。
func grantCodes(grants []database.UserAchievement) []string {
	codes := make([]string, 0, len(grants))
	for _, grant := range grants {
		codes = append(codes, grant.Achievement.Code)
	}
	return codes
}
