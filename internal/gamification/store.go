package gamification

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"benchclub/internal/database"
)

// store 把评估器需要的聚合查询收拢到一处，
// 全部走索引计数而不是加载对象图。
type store struct {
	db *gorm.DB
}

func (s store) countBuilds(ctx context.Context, userID uint, publishedOnly bool) (int64, error) {
	query := s.db.WithContext(ctx).Model(&database.Build{}).Where("author_id = ?", userID)
	if publishedOnly {
		query = query.Where("is_published = ?", true)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count builds for user %d: %w", userID, err)
	}
	return count, nil
}

func (s store) countComments(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&database.BuildComment{}).
		Where("author_id = ?", userID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count comments for user %d: %w", userID, err)
	}
	return count, nil
}

// countFiveStarsReceived 统计该用户所有 Build 收到的 5 星评分数。
func (s store) countFiveStarsReceived(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&database.BuildRating{}).
		Joins("JOIN builds ON builds.id = build_ratings.build_id").
		Where("builds.author_id = ? AND build_ratings.score = ?", userID, 5).
		Where("builds.deleted_at IS NULL").
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count five-star ratings for user %d: %w", userID, err)
	}
	return count, nil
}

func (s store) countFollowing(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&database.Subscription{}).
		Where("follower_id = ?", userID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count following for user %d: %w", userID, err)
	}
	return count, nil
}

func (s store) countFollowers(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&database.Subscription{}).
		Where("followed_id = ?", userID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count followers for user %d: %w", userID, err)
	}
	return count, nil
}

// sumPoints 汇总该用户已授予徽章的分值。
// 授予记录按 (user, achievement) 唯一，不会重复计分。
func (s store) sumPoints(ctx context.Context, userID uint) (int, error) {
	var points int
	err := s.db.WithContext(ctx).
		Model(&database.UserAchievement{}).
		Select("COALESCE(SUM(achievements.points), 0)").
		Joins("JOIN achievements ON achievements.id = user_achievements.achievement_id").
		Where("user_achievements.user_id = ?", userID).
		Scan(&points).Error
	if err != nil {
		return 0, fmt.Errorf("sum points for user %d: %w", userID, err)
	}
	return points, nil
}

func (s store) catalogByCode(ctx context.Context) (map[string]database.Achievement, error) {
	var entries []database.Achievement
	if err := s.db.WithContext(ctx).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("load achievement catalog: %w", err)
	}
	byCode := make(map[string]database.Achievement, len(entries))
	for _, entry := range entries {
		byCode[entry.Code] = entry
	}
	return byCode, nil
}

func (s store) ownedCodes(ctx context.Context, userID uint) (map[string]bool, error) {
	var codes []string
	err := s.db.WithContext(ctx).
		Model(&database.UserAchievement{}).
		Joins("JOIN achievements ON achievements.id = user_achievements.achievement_id").
		Where("user_achievements.user_id = ?", userID).
		Pluck("achievements.code", &codes).Error
	if err != nil {
		return nil, fmt.Errorf("load owned achievement codes for user %d: %w", userID, err)
	}
	owned := make(map[string]bool, len(codes))
	for _, code := range codes {
		owned[code] = true
	}
	return owned, nil
}
