package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeAchievementNotify = "achievement:notify"
)

// AchievementNotifyPayload 描述一次徽章授予的通知任务。
// Codes 是本次评估新授予的徽章代码，按规则顺序排列。
type AchievementNotifyPayload struct {
	UserID        uint     `json:"user_id"`
	Codes         []string `json:"codes"`
	CorrelationID string   `json:"correlation_id"`
}

// NewAchievementNotifyTask 构造一个徽章授予通知任务。
func NewAchievementNotifyTask(userID uint, codes []string, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(AchievementNotifyPayload{
		UserID:        userID,
		Codes:         codes,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeAchievementNotify, payload), nil
}
